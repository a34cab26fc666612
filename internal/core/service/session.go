package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/mulligan-golf/mulligan-go/internal/client"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/storage"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/metric"
	"github.com/mulligan-golf/mulligan-go/pkg/token"
)

// Session defaults.
const (
	DefaultMinLoginInterval = time.Second
	DefaultSyncDebounce     = 100 * time.Millisecond

	msgSessionExpired = "session expired, please log in again"
)

// AuthAPI is the part of the API client the session needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*client.LoginResult, error)
	ProfileWithToken(ctx context.Context, token string) (domain.Profile, error)
	Logout(ctx context.Context, token string) error
}

// SessionConfig configures a SessionService.
type SessionConfig struct {
	// MinLoginInterval is the minimum time between two accepted Login calls.
	MinLoginInterval time.Duration

	// SyncDebounce coalesces bursts of store change events.
	SyncDebounce time.Duration
}

// DefaultSessionConfig returns the default session configuration.
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		MinLoginInterval: DefaultMinLoginInterval,
		SyncDebounce:     DefaultSyncDebounce,
	}
}

// SessionOption configures a SessionService.
type SessionOption func(*SessionService)

// WithSessionLogger sets the logger.
func WithSessionLogger(l logger.Logger) SessionOption {
	return func(s *SessionService) { s.log = l }
}

// WithSessionMetrics records transitions and throttled logins.
func WithSessionMetrics(m *metric.Registry) SessionOption {
	return func(s *SessionService) { s.metrics = m }
}

// WithSessionClock replaces the time source of the login limiter.
func WithSessionClock(now func() time.Time) SessionOption {
	return func(s *SessionService) { s.now = now }
}

// SessionService owns the credential and the session state machine.
type SessionService struct {
	api     AuthAPI
	store   storage.TokenStore
	cfg     *SessionConfig
	limiter *rate.Limiter
	now     func() time.Time
	log     logger.Logger
	metrics *metric.Registry

	mu      sync.RWMutex
	status  domain.SessionStatus
	cred    *domain.Credential
	pending string // token under validation while checking
	lastErr string
	gen     uint64

	ready     chan struct{}
	readyOnce sync.Once

	lmu        sync.Mutex
	onUnauth   []func()
	onRedirect []func()
}

// NewSessionService creates a session in the uninitialized state.
func NewSessionService(api AuthAPI, store storage.TokenStore, cfg *SessionConfig, opts ...SessionOption) *SessionService {
	if cfg == nil {
		cfg = DefaultSessionConfig()
	}
	s := &SessionService{
		api:     api,
		store:   store,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(cfg.MinLoginInterval), 1),
		now:     time.Now,
		log:     logger.Nop(),
		status:  domain.SessionUninitialized,
		ready:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// Listeners
// ============================================================================

// OnUnauthenticated registers fn to run whenever the session drops to
// unauthenticated through logout, a failed check or an auth failure, and
// when a different token starts replacing the current credential.
func (s *SessionService) OnUnauthenticated(fn func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.onUnauth = append(s.onUnauth, fn)
}

// OnRedirect registers fn to run once per auth failure, after the session
// has been torn down.
func (s *SessionService) OnRedirect(fn func()) {
	s.lmu.Lock()
	defer s.lmu.Unlock()
	s.onRedirect = append(s.onRedirect, fn)
}

func (s *SessionService) runUnauthenticated() {
	s.lmu.Lock()
	fns := append([]func(){}, s.onUnauth...)
	s.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (s *SessionService) runRedirect() {
	s.lmu.Lock()
	fns := append([]func(){}, s.onRedirect...)
	s.lmu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// ============================================================================
// State
// ============================================================================

// transitionLocked moves the session to next. Caller holds s.mu.
func (s *SessionService) transitionLocked(next domain.SessionStatus) error {
	if !s.status.CanTransition(next) {
		s.log.Warn("refused session transition", "from", s.status, "to", next)
		return domain.ErrInvalidTransition.WithDetails(fmt.Sprintf("%s -> %s", s.status, next))
	}
	if s.status != next {
		s.log.Debug("session transition", "from", s.status, "to", next)
	}
	s.status = next
	if s.metrics != nil {
		s.metrics.SessionTransitions.WithLabelValues(string(next)).Inc()
	}
	return nil
}

// dropLocked forgets the credential and moves to unauthenticated. It reports
// whether the session was holding anything worth tearing down.
func (s *SessionService) dropLocked(clearStore bool) bool {
	held := s.cred != nil || s.pending != "" || s.status != domain.SessionUnauthenticated
	s.gen++
	s.cred = nil
	s.pending = ""
	_ = s.transitionLocked(domain.SessionUnauthenticated)
	if clearStore {
		if err := s.store.Clear(context.Background()); err != nil {
			s.log.Warn("failed to clear persisted token", "error", err)
		}
	}
	return held
}

func (s *SessionService) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

// Ready is closed once the session has settled for the first time.
func (s *SessionService) Ready() <-chan struct{} {
	return s.ready
}

// Wait blocks until the session has settled or ctx ends.
func (s *SessionService) Wait(ctx context.Context) error {
	select {
	case <-s.ready:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// View returns a snapshot of the session.
func (s *SessionService) View() domain.SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := domain.SessionView{Status: s.status, Error: s.lastErr}
	if s.cred != nil {
		v.User = s.cred.Profile
	}
	return v
}

// Credential returns the current credential, or nil.
func (s *SessionService) Credential() *domain.Credential {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cred
}

// Token returns the token to attach to requests. It is empty unless the
// session is checking or authenticated.
func (s *SessionService) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch s.status {
	case domain.SessionAuthenticated:
		if s.cred != nil {
			return s.cred.Token
		}
	case domain.SessionChecking:
		return s.pending
	}
	return ""
}

// ============================================================================
// Operations
// ============================================================================

// Init settles the session at startup. A persisted token is validated
// before Ready is closed; without one the session goes straight to
// unauthenticated with no network call.
func (s *SessionService) Init(ctx context.Context) error {
	s.mu.RLock()
	started := s.status != domain.SessionUninitialized
	s.mu.RUnlock()
	if started {
		return s.Wait(ctx)
	}
	defer s.markReady()

	token, err := s.loadToken(ctx)
	if err != nil || token == "" {
		s.mu.Lock()
		_ = s.transitionLocked(domain.SessionUnauthenticated)
		s.mu.Unlock()
		return nil
	}

	if _, err := s.CheckAuth(ctx); err != nil {
		s.log.Info("persisted session is not valid", "error", err)
	}
	return nil
}

// Login exchanges credentials for a token. A call made sooner than the
// minimum interval after the previous accepted call fails with
// ErrLoginTooSoon and does not touch the network. Login is refused while
// the session is authenticated or checking; Logout comes first.
func (s *SessionService) Login(ctx context.Context, username, password string) (*domain.Credential, error) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()
	if status == domain.SessionAuthenticated || status == domain.SessionChecking {
		return nil, domain.ErrInvalidTransition.WithDetails(fmt.Sprintf("login while %s", status))
	}

	if !s.limiter.AllowN(s.now(), 1) {
		if s.metrics != nil {
			s.metrics.LoginThrottled.Inc()
		}
		return nil, domain.ErrLoginTooSoon
	}

	s.mu.Lock()
	if s.status == domain.SessionAuthenticated {
		s.mu.Unlock()
		return nil, domain.ErrInvalidTransition.WithDetails("login while authenticated")
	}
	if err := s.transitionLocked(domain.SessionChecking); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.gen++
	gen := s.gen
	s.cred = nil
	s.pending = ""
	s.lastErr = ""
	s.mu.Unlock()

	res, err := s.api.Login(ctx, username, password)
	if err != nil {
		msg := loginFailureMessage(err)
		s.mu.Lock()
		if s.gen == gen {
			s.lastErr = msg
			_ = s.transitionLocked(domain.SessionUnauthenticated)
		}
		s.mu.Unlock()
		s.markReady()
		s.log.Info("login failed", "user", username, "error", err)
		failed := domain.ErrLoginFailed.WithCause(err)
		if msg != domain.ErrLoginFailed.Message {
			failed = failed.WithDetails(msg)
		}
		return nil, failed
	}

	cred := domain.NewCredential(res.Token, res.Profile)

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, domain.ErrInvalidTransition.WithDetails("login overtaken by logout")
	}
	if err := s.store.Save(ctx, res.Token); err != nil {
		s.log.Warn("failed to persist token", "error", err)
	}
	s.cred = cred
	_ = s.transitionLocked(domain.SessionAuthenticated)
	s.mu.Unlock()
	s.markReady()

	s.log.Info("logged in", "user", cred.Profile.Username())
	return cred, nil
}

// loginFailureMessage picks the message shown for a failed login.
func loginFailureMessage(err error) string {
	var de *domain.DomainError
	if errors.As(err, &de) {
		if msg := de.ServerMessage(); msg != "" {
			return msg
		}
		if errors.Is(err, domain.ErrNetwork) {
			return de.Message
		}
	}
	return domain.ErrLoginFailed.Message
}

// Logout forgets the credential, clears the persisted token and runs the
// unauthenticated listeners. The server is then asked to invalidate the
// token; that call is best effort and Logout never fails.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	token := s.pending
	if s.cred != nil {
		token = s.cred.Token
	}
	s.lastErr = ""
	s.dropLocked(true)
	s.mu.Unlock()
	s.markReady()

	s.runUnauthenticated()

	if token == "" {
		return
	}
	if err := s.api.Logout(ctx, token); err != nil {
		s.log.Warn("server logout failed", "error", err)
	}
}

// CheckAuth validates the persisted token against the profile endpoint.
// Without a persisted token it returns ErrNotAuthenticated immediately.
// A failed check clears the persisted token.
func (s *SessionService) CheckAuth(ctx context.Context) (*domain.Credential, error) {
	stored, err := s.loadToken(ctx)
	if err != nil || stored == "" {
		s.mu.Lock()
		held := s.dropLocked(false)
		s.mu.Unlock()
		s.markReady()
		if held {
			s.runUnauthenticated()
		}
		return nil, domain.ErrNotAuthenticated
	}

	s.mu.Lock()
	if err := s.transitionLocked(domain.SessionChecking); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	previous := s.pending
	if s.cred != nil {
		previous = s.cred.Token
	}
	s.gen++
	gen := s.gen
	s.cred = nil
	s.pending = stored
	s.mu.Unlock()

	if previous != "" && !token.Equal(previous, stored) {
		s.log.Info("session credential replaced")
		s.runUnauthenticated()
	}

	profile, err := s.api.ProfileWithToken(ctx, stored)
	if err != nil {
		s.mu.Lock()
		dropped := false
		if s.gen == gen {
			s.lastErr = checkFailureMessage(err)
			s.dropLocked(true)
			dropped = true
		}
		s.mu.Unlock()
		s.markReady()
		if dropped {
			s.runUnauthenticated()
		}
		return nil, err
	}

	cred := domain.NewCredential(stored, profile)
	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return nil, domain.ErrInvalidTransition.WithDetails("check overtaken by logout")
	}
	s.cred = cred
	s.pending = ""
	s.lastErr = ""
	_ = s.transitionLocked(domain.SessionAuthenticated)
	s.mu.Unlock()
	s.markReady()
	return cred, nil
}

func checkFailureMessage(err error) string {
	if errors.Is(err, domain.ErrAuth) {
		return msgSessionExpired
	}
	var de *domain.DomainError
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// HandleAuthFailure tears the session down after the server rejected the
// credential. Listeners run synchronously and the redirect callbacks fire
// once; repeated calls on an already torn down session do nothing.
func (s *SessionService) HandleAuthFailure() {
	s.mu.Lock()
	if s.cred == nil && s.pending == "" && s.status == domain.SessionUnauthenticated {
		s.mu.Unlock()
		return
	}
	s.lastErr = msgSessionExpired
	s.dropLocked(true)
	s.mu.Unlock()
	s.markReady()

	s.log.Warn("server rejected the session credential")
	s.runUnauthenticated()
	s.runRedirect()
}

// Sync reconciles the session with a token changed outside this process.
func (s *SessionService) Sync(ctx context.Context) error {
	stored, err := s.loadToken(ctx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	current := s.pending
	if s.cred != nil {
		current = s.cred.Token
	}
	status := s.status
	s.mu.RUnlock()

	switch {
	case token.Equal(stored, current):
		return nil
	case stored == "":
		s.log.Info("session ended by another process")
		s.mu.Lock()
		held := s.dropLocked(false)
		s.mu.Unlock()
		if held {
			s.runUnauthenticated()
		}
		return nil
	case status == domain.SessionChecking:
		// The running check or login settles first.
		return nil
	default:
		s.log.Info("session changed by another process")
		_, err := s.CheckAuth(ctx)
		return err
	}
}

// WatchStore calls Sync whenever a watchable store reports a change.
// Stores that cannot be watched return a no-op stop function.
func (s *SessionService) WatchStore(ctx context.Context) (func() error, error) {
	w, ok := s.store.(storage.Watchable)
	if !ok {
		return func() error { return nil }, nil
	}

	var (
		mu    sync.Mutex
		timer *time.Timer
	)
	stop, err := w.Watch(func() {
		mu.Lock()
		defer mu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(s.cfg.SyncDebounce, func() {
			if err := s.Sync(ctx); err != nil {
				s.log.Debug("session sync failed", "error", err)
			}
		})
	})
	if err != nil {
		return nil, fmt.Errorf("watch token store: %w", err)
	}
	return func() error {
		mu.Lock()
		if timer != nil {
			timer.Stop()
		}
		mu.Unlock()
		return stop()
	}, nil
}

// loadToken returns the persisted token, or "" when there is none.
func (s *SessionService) loadToken(ctx context.Context) (string, error) {
	token, err := s.store.Load(ctx)
	switch {
	case err == nil:
		return token, nil
	case errors.Is(err, storage.ErrTokenNotFound):
		return "", nil
	default:
		s.log.Warn("failed to load persisted token", "error", err)
		return "", err
	}
}
