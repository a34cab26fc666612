package service

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/mulligan-golf/mulligan-go/internal/cli/connection"
	"github.com/mulligan-golf/mulligan-go/internal/client"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/core/querycache"
	"github.com/mulligan-golf/mulligan-go/internal/storage/memory"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/metric"
)

// fakeAPI implements AuthAPI without a server.
type fakeAPI struct {
	mu          sync.Mutex
	loginCalls  int
	checkCalls  int
	logoutCalls int
	loginErr    error
	checkErr    error
	logoutErr   error
	block       chan struct{}
}

func (f *fakeAPI) Login(ctx context.Context, username, password string) (*client.LoginResult, error) {
	f.mu.Lock()
	f.loginCalls++
	err := f.loginErr
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	if err != nil {
		return nil, err
	}
	return &client.LoginResult{Token: "T", Profile: domain.Profile{"id": float64(1), "username": username}}, nil
}

func (f *fakeAPI) ProfileWithToken(ctx context.Context, token string) (domain.Profile, error) {
	f.mu.Lock()
	f.checkCalls++
	err := f.checkErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return domain.Profile{"id": float64(1), "username": "restored"}, nil
}

func (f *fakeAPI) Logout(ctx context.Context, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeAPI) calls() (login, check, logout int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loginCalls, f.checkCalls, f.logoutCalls
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestSession(api AuthAPI, store *memory.Store, opts ...SessionOption) (*SessionService, *clock) {
	clk := &clock{now: time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)}
	opts = append([]SessionOption{WithSessionClock(clk.Now)}, opts...)
	return NewSessionService(api, store, nil, opts...), clk
}

func TestSession_InitWithoutToken(t *testing.T) {
	api := &fakeAPI{}
	s, _ := newTestSession(api, memory.New(""))

	if got := s.View().Status; got != domain.SessionUninitialized {
		t.Fatalf("initial status = %s", got)
	}
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	if got := s.View().Status; got != domain.SessionUnauthenticated {
		t.Errorf("status = %s, want unauthenticated", got)
	}
	if _, check, _ := api.calls(); check != 0 {
		t.Errorf("profile calls = %d, want 0", check)
	}
	select {
	case <-s.Ready():
	default:
		t.Error("Ready not closed after Init")
	}
}

func TestSession_InitRestoresPersistedToken(t *testing.T) {
	api := &fakeAPI{}
	s, _ := newTestSession(api, memory.New("persisted"))

	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	v := s.View()
	if v.Status != domain.SessionAuthenticated || v.User.Username() != "restored" {
		t.Errorf("view = %+v", v)
	}
	if s.Token() != "persisted" {
		t.Errorf("Token() = %q", s.Token())
	}
}

func TestSession_CheckAuthWithoutToken(t *testing.T) {
	api := &fakeAPI{}
	s, _ := newTestSession(api, memory.New(""))

	_, err := s.CheckAuth(context.Background())
	if !errors.Is(err, domain.ErrNotAuthenticated) {
		t.Fatalf("err = %v", err)
	}
	if s.View().Status != domain.SessionUnauthenticated {
		t.Errorf("status = %s", s.View().Status)
	}
	if _, check, _ := api.calls(); check != 0 {
		t.Errorf("network calls = %d, want 0", check)
	}
}

func TestSession_CheckAuthFailureClearsToken(t *testing.T) {
	api := &fakeAPI{checkErr: domain.ErrServer.WithResponse(500, nil)}
	store := memory.New("persisted")
	s, _ := newTestSession(api, store)

	var cleared atomic.Int32
	s.OnUnauthenticated(func() { cleared.Add(1) })

	if _, err := s.CheckAuth(context.Background()); !errors.Is(err, domain.ErrServer) {
		t.Fatalf("err = %v", err)
	}
	if store.Token() != "" {
		t.Error("persisted token survived a failed check")
	}
	if s.View().Status != domain.SessionUnauthenticated || s.Token() != "" {
		t.Errorf("view = %+v", s.View())
	}
	if cleared.Load() != 1 {
		t.Errorf("unauthenticated listeners ran %d times", cleared.Load())
	}
}

func TestSession_Login(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	reg := metric.NewRegistry()
	s, _ := newTestSession(api, store, WithSessionMetrics(reg))
	_ = s.Init(context.Background())

	cred, err := s.Login(context.Background(), "u", "p")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if cred.Token != "T" || cred.Profile.Username() != "u" {
		t.Errorf("credential = %+v", cred)
	}
	if store.Token() != "T" {
		t.Errorf("persisted token = %q", store.Token())
	}
	v := s.View()
	if v.Status != domain.SessionAuthenticated || v.Error != "" {
		t.Errorf("view = %+v", v)
	}
	if got := testutil.ToFloat64(reg.SessionTransitions.WithLabelValues("checking")); got != 1 {
		t.Errorf("transitions to checking = %v", got)
	}
	if got := testutil.ToFloat64(reg.SessionTransitions.WithLabelValues("authenticated")); got != 1 {
		t.Errorf("transitions to authenticated = %v", got)
	}
}

func TestSession_LoginMinimumInterval(t *testing.T) {
	api := &fakeAPI{}
	reg := metric.NewRegistry()
	s, clk := newTestSession(api, memory.New(""), WithSessionMetrics(reg))
	_ = s.Init(context.Background())
	ctx := context.Background()

	if _, err := s.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("first Login: %v", err)
	}
	s.Logout(ctx)

	clk.Advance(500 * time.Millisecond)
	if _, err := s.Login(ctx, "u", "p"); !errors.Is(err, domain.ErrLoginTooSoon) {
		t.Fatalf("second Login err = %v, want too soon", err)
	}
	if login, _, _ := api.calls(); login != 1 {
		t.Errorf("login calls = %d, want 1", login)
	}
	if got := testutil.ToFloat64(reg.LoginThrottled); got != 1 {
		t.Errorf("throttled metric = %v", got)
	}

	clk.Advance(600 * time.Millisecond)
	if _, err := s.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("Login after interval: %v", err)
	}
	if login, _, _ := api.calls(); login != 2 {
		t.Errorf("login calls = %d, want 2", login)
	}
}

func TestSession_LoginFailure(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "server message",
			err:     domain.ErrServer.WithResponse(400, []byte(`{"non_field_errors":["Unable to log in with provided credentials."]}`)),
			wantMsg: "Unable to log in with provided credentials.",
		},
		{
			name:    "detail message",
			err:     domain.ErrAuth.WithResponse(401, []byte(`{"detail":"Account disabled."}`)),
			wantMsg: "Account disabled.",
		},
		{
			name:    "generic fallback",
			err:     domain.ErrServer.WithResponse(500, []byte(`<html>`)),
			wantMsg: "Invalid username or password",
		},
		{
			name:    "network",
			err:     domain.ErrNetwork.WithCause(io.EOF),
			wantMsg: domain.ErrNetwork.Message,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{loginErr: tt.err}
			store := memory.New("")
			s, _ := newTestSession(api, store)
			_ = s.Init(context.Background())

			_, err := s.Login(context.Background(), "u", "bad")
			if !errors.Is(err, domain.ErrLoginFailed) {
				t.Fatalf("err = %v, want login failed", err)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("err does not wrap the classified error: %v", err)
			}
			v := s.View()
			if v.Status != domain.SessionUnauthenticated || v.User != nil {
				t.Errorf("view = %+v", v)
			}
			if v.Error != tt.wantMsg {
				t.Errorf("lastError = %q, want %q", v.Error, tt.wantMsg)
			}
			if store.Saves() != 0 {
				t.Error("failed login persisted a token")
			}
			if strings.Count(err.Error(), tt.wantMsg) != 1 {
				t.Errorf("error text repeats the message: %q", err.Error())
			}
		})
	}
}

func TestSession_Logout(t *testing.T) {
	api := &fakeAPI{logoutErr: domain.ErrNetwork}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	_ = s.Init(context.Background())

	var cleared atomic.Int32
	s.OnUnauthenticated(func() { cleared.Add(1) })

	if _, err := s.Login(context.Background(), "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	s.Logout(context.Background())

	if store.Token() != "" {
		t.Error("persisted token survived logout")
	}
	if s.View().Status != domain.SessionUnauthenticated || s.Token() != "" || s.Credential() != nil {
		t.Errorf("view after logout = %+v", s.View())
	}
	if _, _, logout := api.calls(); logout != 1 {
		t.Errorf("server logout calls = %d", logout)
	}
	if cleared.Load() != 1 {
		t.Errorf("unauthenticated listeners ran %d times", cleared.Load())
	}
}

func TestSession_LogoutOvertakesLogin(t *testing.T) {
	api := &fakeAPI{block: make(chan struct{})}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	_ = s.Init(context.Background())

	done := make(chan error, 1)
	go func() {
		_, err := s.Login(context.Background(), "u", "p")
		done <- err
	}()

	deadline := time.Now().Add(2 * time.Second)
	for s.View().Status != domain.SessionChecking {
		if time.Now().After(deadline) {
			t.Fatal("login never reached checking")
		}
		time.Sleep(time.Millisecond)
	}

	s.Logout(context.Background())
	close(api.block)

	if err := <-done; !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("overtaken login err = %v", err)
	}
	if s.View().Status != domain.SessionUnauthenticated || store.Token() != "" {
		t.Errorf("overtaken login changed the session: %+v", s.View())
	}
}

func TestSession_HandleAuthFailure(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	_ = s.Init(context.Background())
	_, _ = s.Login(context.Background(), "u", "p")

	var cleared, redirects atomic.Int32
	s.OnUnauthenticated(func() { cleared.Add(1) })
	s.OnRedirect(func() { redirects.Add(1) })

	s.HandleAuthFailure()
	s.HandleAuthFailure()

	if redirects.Load() != 1 || cleared.Load() != 1 {
		t.Errorf("redirects = %d, clears = %d, want 1 and 1", redirects.Load(), cleared.Load())
	}
	v := s.View()
	if v.Status != domain.SessionUnauthenticated || v.Error == "" {
		t.Errorf("view = %+v", v)
	}
	if store.Token() != "" {
		t.Error("persisted token survived auth failure")
	}
}

func TestSession_Sync(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	_ = s.Init(context.Background())
	ctx := context.Background()

	// Another process logged in.
	store.SetExternal("other")
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if s.View().Status != domain.SessionAuthenticated || s.Token() != "other" {
		t.Errorf("after external login: %+v", s.View())
	}

	// Unchanged token is a no-op.
	_ = s.Sync(ctx)
	if _, check, _ := api.calls(); check != 1 {
		t.Errorf("profile calls = %d, want 1", check)
	}

	// Another process logged out.
	store.SetExternal("")
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if s.View().Status != domain.SessionUnauthenticated {
		t.Errorf("after external logout: %+v", s.View())
	}
}

func TestSession_SyncToDifferentUserClearsCache(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	cache := querycache.New(nil)
	var cleared atomic.Int32
	s.OnUnauthenticated(func() {
		cleared.Add(1)
		cache.Clear()
	})
	_ = s.Init(context.Background())
	ctx := context.Background()

	if _, err := s.Login(ctx, "alice", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	cache.Read(ctx, querycache.K("profile"), func(context.Context) (any, error) { return "alice", nil })

	// Another process logged in as someone else.
	store.SetExternal("bob-token")
	if err := s.Sync(ctx); err != nil {
		t.Fatalf("Sync: %v", err)
	}

	if s.Token() != "bob-token" || s.View().Status != domain.SessionAuthenticated {
		t.Errorf("after switch: token=%q view=%+v", s.Token(), s.View())
	}
	if cleared.Load() != 1 {
		t.Errorf("unauthenticated listeners ran %d times, want 1", cleared.Load())
	}
	if cache.Len() != 0 {
		t.Errorf("cache entries = %d after user switch, want 0", cache.Len())
	}
}

func TestSession_LoginWhileAuthenticatedRefused(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	s, _ := newTestSession(api, store)
	var cleared atomic.Int32
	s.OnUnauthenticated(func() { cleared.Add(1) })
	_ = s.Init(context.Background())
	ctx := context.Background()

	if _, err := s.Login(ctx, "alice", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	api.mu.Lock()
	api.loginErr = domain.ErrAuth.WithResponse(400, []byte(`{"detail":"bad"}`))
	api.mu.Unlock()

	_, err := s.Login(ctx, "mallory", "x")
	if !errors.Is(err, domain.ErrInvalidTransition) {
		t.Fatalf("err = %v, want invalid transition", err)
	}
	if login, _, _ := api.calls(); login != 1 {
		t.Errorf("login calls = %d, want 1", login)
	}
	v := s.View()
	if v.Status != domain.SessionAuthenticated || v.User["username"] != "alice" {
		t.Errorf("view = %+v", v)
	}
	if store.Token() != "T" {
		t.Errorf("stored token = %q, want T", store.Token())
	}
	if cleared.Load() != 0 {
		t.Errorf("unauthenticated listeners ran %d times", cleared.Load())
	}
}

func TestSession_WatchStore(t *testing.T) {
	api := &fakeAPI{}
	store := memory.New("")
	s := NewSessionService(api, store, &SessionConfig{MinLoginInterval: time.Second, SyncDebounce: 5 * time.Millisecond})
	_ = s.Init(context.Background())

	stop, err := s.WatchStore(context.Background())
	if err != nil {
		t.Fatalf("WatchStore: %v", err)
	}
	defer stop()

	store.SetExternal("other")

	deadline := time.Now().Add(2 * time.Second)
	for s.View().Status != domain.SessionAuthenticated {
		if time.Now().After(deadline) {
			t.Fatal("store change was not synced")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// The scenarios below run the session, the API client and the query cache
// against one test server.

type apiServer struct {
	*httptest.Server
	listCalls atomic.Int32
	lastAuth  atomic.Value
	reject    atomic.Bool
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	a := &apiServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/users/login/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"token":"T","user":{"id":1,"username":"u"}}`)
	})
	mux.HandleFunc("/users/logout/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/tournaments/", func(w http.ResponseWriter, r *http.Request) {
		a.listCalls.Add(1)
		a.lastAuth.Store(r.Header.Get("Authorization"))
		if a.reject.Load() {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = io.WriteString(w, `{"detail":"Invalid token."}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":1}]`)
	})
	a.Server = httptest.NewServer(mux)
	t.Cleanup(a.Close)
	return a
}

func wire(t *testing.T, srv *apiServer) (*SessionService, *client.Client, *querycache.Cache, *memory.Store) {
	t.Helper()
	api := client.New(connection.NewHTTPClient(srv.URL), nil)
	store := memory.New("")
	sess := NewSessionService(api, store, nil)
	api.SetAuthenticator(sess)
	cache := querycache.New(nil)
	sess.OnUnauthenticated(cache.Clear)
	if err := sess.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return sess, api, cache, store
}

func TestScenario_LoginThenReadAttachesToken(t *testing.T) {
	srv := newAPIServer(t)
	sess, api, cache, _ := wire(t, srv)
	ctx := context.Background()

	if _, err := sess.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	r := cache.Read(ctx, querycache.K("tournaments"), func(ctx context.Context) (any, error) {
		return api.List(ctx, "/tournaments/", nil)
	})
	if r.Err != nil {
		t.Fatalf("Read: %v", r.Err)
	}
	page := r.Data.(*client.Page)
	if page.Count != 1 || string(page.Results[0]) != `{"id":1}` {
		t.Errorf("page = %+v", page)
	}
	if got := srv.lastAuth.Load(); got != "Token T" {
		t.Errorf("Authorization = %v", got)
	}
}

func TestScenario_AuthFailureClearsEverything(t *testing.T) {
	srv := newAPIServer(t)
	sess, api, cache, store := wire(t, srv)
	ctx := context.Background()

	var redirects atomic.Int32
	sess.OnRedirect(func() { redirects.Add(1) })

	if _, err := sess.Login(ctx, "u", "p"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	fetch := func(ctx context.Context) (any, error) { return api.List(ctx, "/tournaments/", nil) }
	cache.Read(ctx, querycache.K("tournaments"), fetch)
	cache.Read(ctx, querycache.K("profile"), func(context.Context) (any, error) { return "me", nil })

	srv.reject.Store(true)
	cache.Invalidate(querycache.K("tournaments"))
	r := cache.Read(ctx, querycache.K("tournaments"), fetch)

	if !errors.Is(r.Err, domain.ErrAuth) {
		t.Fatalf("read err = %v, want auth error", r.Err)
	}
	if sess.View().Status != domain.SessionUnauthenticated {
		t.Errorf("status = %s", sess.View().Status)
	}
	if store.Token() != "" {
		t.Error("persisted token survived the auth failure")
	}
	if cache.Len() != 0 {
		t.Errorf("cache entries = %d after auth failure, want 0", cache.Len())
	}
	if redirects.Load() != 1 {
		t.Errorf("redirects = %d, want 1", redirects.Load())
	}
}
