package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mulligan-golf/mulligan-go/internal/cli/config"
	"github.com/mulligan-golf/mulligan-go/internal/cli/connection"
	"github.com/mulligan-golf/mulligan-go/internal/client"
	"github.com/mulligan-golf/mulligan-go/internal/core/querycache"
	"github.com/mulligan-golf/mulligan-go/internal/core/service"
	"github.com/mulligan-golf/mulligan-go/internal/infra/buildinfo"
	"github.com/mulligan-golf/mulligan-go/internal/infra/tlsroots"
	"github.com/mulligan-golf/mulligan-go/internal/storage"
	"github.com/mulligan-golf/mulligan-go/internal/storage/memory"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/metric"
)

// RuntimeOptions adjusts how a Runtime is assembled.
type RuntimeOptions struct {
	// NoPersist keeps the token in memory for this process only.
	NoPersist bool

	// Store replaces the configured token store.
	Store storage.TokenStore

	Stdout io.Writer
	Stderr io.Writer
}

// Runtime holds the collaborators shared by every command of one process.
type Runtime struct {
	Config    *config.Config
	Log       logger.Logger
	Metrics   *metric.Registry
	Transport *connection.HTTPClient
	Store     storage.TokenStore
	Session   *service.SessionService
	Client    *client.Client
	Cache     *querycache.Cache

	stdout io.Writer
	stderr io.Writer

	mu          sync.Mutex
	interactive bool
	started     bool
	stopWatch   func() error
	closeOnce   sync.Once
	closeErr    error
}

// NewRuntime wires transport, store, session, client and cache together.
func NewRuntime(cfg *config.Config, opts RuntimeOptions) (*Runtime, error) {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	log := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: opts.Stderr,
	})
	metrics := metric.NewRegistry()

	tlsCfg, err := tlsroots.ClientConfig(cfg.API.CAFile, cfg.API.Insecure)
	if err != nil {
		return nil, fmt.Errorf("load CA bundle: %w", err)
	}
	transportOpts := []connection.Option{
		connection.WithTimeout(cfg.API.Timeout),
		connection.WithUserAgent(buildinfo.UserAgent()),
	}
	if tlsCfg != nil {
		transportOpts = append(transportOpts, connection.WithTLSConfig(tlsCfg))
	}
	transport := connection.NewHTTPClient(cfg.API.URL, transportOpts...)

	store := opts.Store
	if store == nil {
		store, err = openStore(cfg, opts.NoPersist, log)
		if err != nil {
			return nil, err
		}
	}

	api := client.New(transport, &client.Config{
		AuthScheme: cfg.API.AuthScheme,
		LoginPath:  cfg.API.LoginPath,
	}, client.WithLogger(log.With("component", "client")), client.WithMetrics(metrics))

	session := service.NewSessionService(api, store, &service.SessionConfig{
		MinLoginInterval: cfg.Session.MinLoginInterval,
		SyncDebounce:     service.DefaultSyncDebounce,
	}, service.WithSessionLogger(log.With("component", "session")), service.WithSessionMetrics(metrics))
	api.SetAuthenticator(session)

	cache := querycache.New(&querycache.Config{
		StaleAfter: cfg.Cache.StaleAfter,
		MaxRetries: cfg.Cache.MaxRetries,
	}, querycache.WithLogger(log.With("component", "cache")), querycache.WithMetrics(metrics))

	rt := &Runtime{
		Config:    cfg,
		Log:       log,
		Metrics:   metrics,
		Transport: transport,
		Store:     store,
		Session:   session,
		Client:    api,
		Cache:     cache,
		stdout:    opts.Stdout,
		stderr:    opts.Stderr,
	}
	session.OnUnauthenticated(cache.Clear)
	session.OnRedirect(func() {
		fmt.Fprintln(rt.stderr, "Session expired. Run 'auth login' to sign in again.")
	})
	return rt, nil
}

func openStore(cfg *config.Config, noPersist bool, log logger.Logger) (storage.TokenStore, error) {
	if noPersist || cfg.Store.Backend == config.BackendMemory {
		return memory.New(""), nil
	}

	var (
		store storage.TokenStore
		err   error
	)
	switch cfg.Store.Backend {
	case config.BackendBadger:
		store, err = storage.NewBadgerStore(storage.BadgerConfig{
			Dir: cfg.StorePath(),
			TTL: cfg.Store.TTL,
		}, log.With("component", "store"))
		if err != nil {
			return nil, fmt.Errorf("open token store: %w", err)
		}
	default:
		store = storage.NewFileStore(cfg.StorePath(), log.With("component", "store"))
	}

	if cfg.Store.Passphrase == "" {
		return store, nil
	}
	sealed, err := storage.NewSealed(store, cfg.Store.Passphrase)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("seal token store: %w", err)
	}
	return sealed, nil
}

// Start settles the session from the persisted token and begins watching
// the store for changes made by other processes. It runs once.
func (rt *Runtime) Start(ctx context.Context) error {
	rt.mu.Lock()
	if rt.started {
		rt.mu.Unlock()
		return nil
	}
	rt.started = true
	rt.mu.Unlock()

	if err := rt.Session.Init(ctx); err != nil {
		return err
	}

	stop, err := rt.Session.WatchStore(context.WithoutCancel(ctx))
	if err != nil {
		rt.Log.Debug("token store watch unavailable", "error", err)
		return nil
	}
	rt.mu.Lock()
	rt.stopWatch = stop
	rt.mu.Unlock()
	return nil
}

// SetInteractive marks the runtime as driven by the shell.
func (rt *Runtime) SetInteractive(v bool) {
	rt.mu.Lock()
	rt.interactive = v
	rt.mu.Unlock()
}

func (rt *Runtime) isInteractive() bool {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return rt.interactive
}

// Stdout returns the writer for command results.
func (rt *Runtime) Stdout() io.Writer {
	return rt.stdout
}

// Stderr returns the writer for notices and errors.
func (rt *Runtime) Stderr() io.Writer {
	return rt.stderr
}

// Close stops the store watcher and closes the token store.
func (rt *Runtime) Close() error {
	rt.closeOnce.Do(func() {
		rt.mu.Lock()
		stop := rt.stopWatch
		rt.mu.Unlock()
		if stop != nil {
			if err := stop(); err != nil {
				rt.Log.Debug("stop store watch", "error", err)
			}
		}
		rt.closeErr = rt.Store.Close()
	})
	return rt.closeErr
}

// read serves key from the query cache. In the shell a stale answer also
// prints a notice once the background refetch lands.
func (rt *Runtime) read(ctx context.Context, key querycache.Key, fetch querycache.Fetcher) (any, error) {
	res := rt.Cache.Read(ctx, key, fetch)
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Stale && rt.isInteractive() {
		rt.notifyRefresh(key)
	}
	return res.Data, nil
}

func (rt *Runtime) notifyRefresh(key querycache.Key) {
	done := make(chan struct{})
	var once sync.Once
	cancel := rt.Cache.Subscribe(key, func(r querycache.Result) {
		once.Do(func() {
			if r.Err != nil {
				fmt.Fprintf(rt.stderr, "(refresh of %s failed: %v)\n", key, r.Err)
			} else {
				fmt.Fprintf(rt.stderr, "(%s refreshed in the background)\n", key)
			}
			close(done)
		})
	})
	go func() {
		defer cancel()
		select {
		case <-done:
		case <-time.After(rt.Config.API.Timeout):
		}
	}()
}

// mutate runs fn and invalidates the given keys when it succeeds.
func (rt *Runtime) mutate(ctx context.Context, fn querycache.Fetcher, invalidate ...querycache.Key) (any, error) {
	return rt.Cache.Mutate(ctx, fn, invalidate...)
}
