package querycache

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/metric"
	"github.com/mulligan-golf/mulligan-go/pkg/cmap"
)

// Default read policy.
const (
	DefaultStaleAfter = 30 * time.Second
	DefaultMaxRetries = 1
)

// Status is the state of a cache entry.
type Status string

// Entry states.
const (
	StatusIdle    Status = "idle"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusError   Status = "error"
)

// Fetcher produces the data for a key. It usually wraps one API client call.
type Fetcher func(ctx context.Context) (any, error)

// Result is what a reader observes for a key.
type Result struct {
	Data      any
	Status    Status
	Err       error
	FetchedAt time.Time
	Stale     bool
}

// Config holds cache-wide defaults for reads that do not override them.
type Config struct {
	StaleAfter time.Duration
	MaxRetries int
}

// DefaultConfig returns the default read policy.
func DefaultConfig() *Config {
	return &Config{
		StaleAfter: DefaultStaleAfter,
		MaxRetries: DefaultMaxRetries,
	}
}

// ReadOption overrides the policy of a single read.
type ReadOption func(*readOptions)

type readOptions struct {
	enabled    bool
	staleAfter time.Duration
	maxRetries int
}

// Enabled set to false skips fetching entirely; the read returns whatever
// the entry currently holds.
func Enabled(enabled bool) ReadOption {
	return func(o *readOptions) { o.enabled = enabled }
}

// StaleAfter sets how long fetched data counts as fresh.
func StaleAfter(d time.Duration) ReadOption {
	return func(o *readOptions) { o.staleAfter = d }
}

// MaxRetries sets how many reads may retry a failed fetch before the error
// is served from cache.
func MaxRetries(n int) ReadOption {
	return func(o *readOptions) { o.maxRetries = n }
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// WithMetrics records reads, fetches and entry count in the registry.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Cache) { c.metrics = m }
}

type entry struct {
	id  uint64
	key Key

	mu          sync.Mutex
	seq         uint64
	data        any
	status      Status
	err         error
	fetchedAt   time.Time
	staleAfter  time.Duration
	retryCount  int
	invalidated bool
	refreshing  bool

	// epoch counts invalidations; flightEpoch is the epoch the running
	// fetch started in.
	epoch       uint64
	flightEpoch uint64
}

func (e *entry) flightKey() string {
	return e.key.String() + "#" + strconv.FormatUint(e.id, 10) + "." + strconv.FormatUint(e.seq, 10)
}

func (e *entry) staleLocked(now time.Time) bool {
	if e.status != StatusSuccess {
		return false
	}
	return e.invalidated || now.Sub(e.fetchedAt) >= e.staleAfter
}

func (e *entry) resultLocked(now time.Time) Result {
	return Result{
		Data:      e.data,
		Status:    e.status,
		Err:       e.err,
		FetchedAt: e.fetchedAt,
		Stale:     e.staleLocked(now),
	}
}

// Cache is a concurrent query cache.
type Cache struct {
	cfg     *Config
	entries *cmap.Map[*entry]
	group   singleflight.Group
	nextID  atomic.Uint64

	now     func() time.Time
	log     logger.Logger
	metrics *metric.Registry

	subsMu  sync.RWMutex
	subs    map[string]map[uint64]func(Result)
	nextSub uint64
}

// New creates a cache. A nil cfg uses DefaultConfig.
func New(cfg *Config, opts ...Option) *Cache {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	c := &Cache{
		cfg:     cfg,
		entries: cmap.New[*entry](),
		now:     time.Now,
		log:     logger.Nop(),
		subs:    make(map[string]map[uint64]func(Result)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Cache) options(opts []ReadOption) readOptions {
	o := readOptions{
		enabled:    true,
		staleAfter: c.cfg.StaleAfter,
		maxRetries: c.cfg.MaxRetries,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Read returns the data for key, fetching it when the entry is missing,
// invalidated or failed with retries left.
//
// A read of data older than the staleness window returns that data at once
// and starts one background refetch. If ctx ends while waiting, Read returns
// the entry as it stands with ctx's error; the fetch itself keeps running and
// its result is stored for later readers.
func (c *Cache) Read(ctx context.Context, key Key, fetch Fetcher, opts ...ReadOption) Result {
	o := c.options(opts)
	k := key.String()

	if !o.enabled {
		c.observeRead("disabled")
		if r, ok := c.Peek(key); ok {
			return r
		}
		return Result{Status: StatusIdle}
	}

	e, existed := c.entries.GetOrCompute(k, func() *entry {
		return &entry{id: c.nextID.Add(1), key: key, status: StatusIdle}
	})
	if !existed {
		c.updateGauge()
	}

	now := c.now()
	e.mu.Lock()
	e.staleAfter = o.staleAfter

	switch e.status {
	case StatusPending:
		ch, joined := c.attach(ctx, e, fetch)
		e.mu.Unlock()
		if joined {
			c.observeRead("joined")
		} else {
			c.observeRead("miss")
		}
		return c.await(ctx, e, ch)

	case StatusSuccess:
		if !e.staleLocked(now) {
			r := e.resultLocked(now)
			e.mu.Unlock()
			c.observeRead("hit")
			return r
		}
		if e.invalidated {
			// Invalidated data is replaced before anyone sees it again.
			ch, _ := c.attach(ctx, e, fetch)
			e.mu.Unlock()
			c.observeRead("miss")
			return c.await(ctx, e, ch)
		}
		if !e.refreshing {
			c.start(ctx, e, fetch)
			c.log.Debug("background refetch", "key", k)
		}
		r := e.resultLocked(now)
		e.mu.Unlock()
		c.observeRead("stale")
		return r

	case StatusError:
		if e.refreshing && e.flightEpoch == e.epoch {
			ch := c.join(ctx, e, fetch)
			e.mu.Unlock()
			c.observeRead("joined")
			return c.await(ctx, e, ch)
		}
		if e.retryCount >= o.maxRetries {
			r := e.resultLocked(now)
			e.mu.Unlock()
			c.observeRead("error")
			return r
		}
		e.retryCount++
		attempt := e.retryCount
		e.status = StatusPending
		ch := c.start(ctx, e, fetch)
		e.mu.Unlock()
		c.observeRead("miss")
		c.log.Debug("retrying failed query", "key", k, "attempt", attempt)
		return c.await(ctx, e, ch)

	default:
		e.status = StatusPending
		ch := c.start(ctx, e, fetch)
		e.mu.Unlock()
		c.observeRead("miss")
		return c.await(ctx, e, ch)
	}
}

// start begins a new fetch for e, superseding any fetch in flight. Caller
// holds e.mu.
func (c *Cache) start(ctx context.Context, e *entry, fetch Fetcher) <-chan singleflight.Result {
	e.seq++
	e.refreshing = true
	e.flightEpoch = e.epoch
	return c.group.DoChan(e.flightKey(), c.flight(ctx, e, e.seq, e.epoch, fetch))
}

// join attaches to the fetch in flight for e. Caller holds e.mu.
func (c *Cache) join(ctx context.Context, e *entry, fetch Fetcher) <-chan singleflight.Result {
	return c.group.DoChan(e.flightKey(), c.flight(ctx, e, e.seq, e.flightEpoch, fetch))
}

// attach joins the fetch in flight when it started after the last
// invalidation, and starts a new one otherwise. Caller holds e.mu.
func (c *Cache) attach(ctx context.Context, e *entry, fetch Fetcher) (<-chan singleflight.Result, bool) {
	if e.refreshing && e.flightEpoch == e.epoch {
		return c.join(ctx, e, fetch), true
	}
	return c.start(ctx, e, fetch), false
}

// flight returns the singleflight body for one fetch of e. The fetch runs
// detached from the caller's cancellation.
//
// A fetch superseded by a newer one hands its result to its own waiters
// only. A fetch that completes after an invalidation stores its data but
// leaves the entry invalidated, so the next read fetches again.
func (c *Cache) flight(ctx context.Context, e *entry, seq, epoch uint64, fetch Fetcher) func() (any, error) {
	fetchCtx := context.WithoutCancel(ctx)
	return func() (any, error) {
		data, err := fetch(fetchCtx)
		now := c.now()

		e.mu.Lock()
		if e.seq != seq {
			e.mu.Unlock()
			c.observeFetch("discarded")
			return supersededResult(data, err, now), nil
		}
		e.refreshing = false
		e.invalidated = e.epoch != epoch
		e.fetchedAt = now
		if err != nil {
			e.status = StatusError
			e.err = err
		} else {
			e.status = StatusSuccess
			e.data = data
			e.err = nil
			e.retryCount = 0
		}
		r := e.resultLocked(now)
		e.mu.Unlock()

		if c.current(e) {
			if err != nil {
				c.observeFetch("error")
				c.log.Debug("query fetch failed", "key", e.key.String(), "error", err)
			} else {
				c.observeFetch("success")
			}
			c.notify(e.key.String(), r)
		} else {
			c.observeFetch("discarded")
		}
		return r, nil
	}
}

func supersededResult(data any, err error, now time.Time) Result {
	if err != nil {
		return Result{Status: StatusError, Err: err, FetchedAt: now}
	}
	return Result{Data: data, Status: StatusSuccess, FetchedAt: now, Stale: true}
}

func (c *Cache) await(ctx context.Context, e *entry, ch <-chan singleflight.Result) Result {
	select {
	case res := <-ch:
		return res.Val.(Result)
	case <-ctx.Done():
		e.mu.Lock()
		r := e.resultLocked(c.now())
		e.mu.Unlock()
		r.Err = ctx.Err()
		return r
	}
}

// current reports whether e is still the live entry for its key.
func (c *Cache) current(e *entry) bool {
	live, ok := c.entries.Get(e.key.String())
	return ok && live == e
}

// Mutate runs fn and, when it succeeds, invalidates every key under the
// given prefixes. The error from fn is returned unchanged.
func (c *Cache) Mutate(ctx context.Context, fn Fetcher, invalidate ...Key) (any, error) {
	out, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	for _, k := range invalidate {
		c.Invalidate(k)
	}
	return out, nil
}

// Invalidate marks every entry under prefix as stale and resets its retry
// counter. It returns the number of entries marked.
func (c *Cache) Invalidate(prefix Key) int {
	var matched []*entry
	c.entries.Range(func(_ string, e *entry) bool {
		if e.key.HasPrefix(prefix) {
			matched = append(matched, e)
		}
		return true
	})

	for _, e := range matched {
		e.mu.Lock()
		e.invalidated = true
		e.epoch++
		e.retryCount = 0
		e.mu.Unlock()
	}
	if len(matched) > 0 {
		c.log.Debug("invalidated queries", "prefix", prefix.String(), "count", len(matched))
	}
	return len(matched)
}

// Clear drops every entry and forgets their in-flight fetches. Fetches that
// complete afterwards do not repopulate the cache.
func (c *Cache) Clear() {
	dropped := c.entries.Drain()
	for _, e := range dropped {
		e.mu.Lock()
		c.group.Forget(e.flightKey())
		e.mu.Unlock()
	}
	c.updateGauge()
	if len(dropped) > 0 {
		c.log.Debug("query cache cleared", "entries", len(dropped))
	}
}

// Peek returns the entry for key without fetching.
func (c *Cache) Peek(key Key) (Result, bool) {
	e, ok := c.entries.Get(key.String())
	if !ok {
		return Result{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.resultLocked(c.now()), true
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	return c.entries.Count()
}

// Keys returns the canonical form of every cached key.
func (c *Cache) Keys() []string {
	return c.entries.Keys()
}

// Subscribe registers fn to receive every settled result of key, including
// background refetches. The returned function cancels the subscription.
func (c *Cache) Subscribe(key Key, fn func(Result)) func() {
	k := key.String()

	c.subsMu.Lock()
	c.nextSub++
	id := c.nextSub
	if c.subs[k] == nil {
		c.subs[k] = make(map[uint64]func(Result))
	}
	c.subs[k][id] = fn
	c.subsMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.subsMu.Lock()
			delete(c.subs[k], id)
			if len(c.subs[k]) == 0 {
				delete(c.subs, k)
			}
			c.subsMu.Unlock()
		})
	}
}

func (c *Cache) notify(k string, r Result) {
	c.subsMu.RLock()
	fns := make([]func(Result), 0, len(c.subs[k]))
	for _, fn := range c.subs[k] {
		fns = append(fns, fn)
	}
	c.subsMu.RUnlock()

	for _, fn := range fns {
		fn(r)
	}
}

func (c *Cache) observeRead(outcome string) {
	if c.metrics != nil {
		c.metrics.CacheReads.WithLabelValues(outcome).Inc()
	}
}

func (c *Cache) observeFetch(result string) {
	if c.metrics != nil {
		c.metrics.CacheFetches.WithLabelValues(result).Inc()
	}
}

func (c *Cache) updateGauge() {
	if c.metrics != nil {
		c.metrics.CacheEntries.Set(float64(c.entries.Count()))
	}
}
