package command

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/mulligan-golf/mulligan-go/internal/storage/memory"
)

const testToken = "T"

// apiServer is a fake Mulligan API mounted under /api.
type apiServer struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	hits   map[string]int
	auth   []string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	s := &apiServer{
		routes: make(map[string]http.HandlerFunc),
		hits:   make(map[string]int),
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.Method + " " + r.URL.Path
		s.mu.Lock()
		s.hits[route]++
		s.auth = append(s.auth, r.Header.Get("Authorization"))
		h, ok := s.routes[route]
		s.mu.Unlock()
		if !ok {
			jsonResponse(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}
		h(w, r)
	}))
	t.Cleanup(s.Close)

	s.handle("GET", "/users/profile/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Token "+testToken {
			jsonResponse(w, http.StatusUnauthorized, map[string]string{"detail": "Invalid token."})
			return
		}
		jsonResponse(w, http.StatusOK, map[string]any{"id": 1, "username": "ann", "first_name": "Ann", "last_name": "Lee"})
	})
	return s
}

func (s *apiServer) apiURL() string {
	return s.URL + "/api"
}

func (s *apiServer) handle(method, path string, h http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[method+" /api"+path] = h
}

func (s *apiServer) reply(method, path string, status int, body any) {
	s.handle(method, path, func(w http.ResponseWriter, _ *http.Request) {
		jsonResponse(w, status, body)
	})
}

func (s *apiServer) count(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[method+" /api"+path]
}

func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// harness runs the CLI against an apiServer. Runs share one Runtime, the
// way lines of the shell do.
type harness struct {
	t      *testing.T
	server *apiServer
	store  *memory.Store
	config string
	stdin  string

	rt     *Runtime
	out    bytes.Buffer
	errOut bytes.Buffer
}

func newHarness(t *testing.T, token string) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		server: newAPIServer(t),
		store:  memory.New(token),
		config: filepath.Join(t.TempDir(), "cli.yaml"),
	}
	t.Cleanup(func() {
		if h.rt != nil {
			h.rt.Close()
		}
	})
	return h
}

func (h *harness) run(args ...string) error {
	h.t.Helper()
	h.out.Reset()
	h.errOut.Reset()

	opts := []AppOption{
		WithIO(strings.NewReader(h.stdin), &h.out, &h.errOut),
		WithStore(h.store),
	}
	if h.rt != nil {
		opts = append(opts, WithRuntime(h.rt))
	}
	app := App(opts...)

	argv := append([]string{"mulligan-cli", "--config", h.config, "--api-url", h.server.apiURL()}, args...)
	err := app.RunContext(h.t.Context(), argv)
	if rt, ok := app.Metadata[metaRuntime].(*Runtime); ok {
		h.rt = rt
	}
	return err
}

func sampleTournaments() map[string]any {
	return map[string]any{
		"count": 2,
		"results": []map[string]any{
			{"id": 1, "name": "Spring Open", "venue": "Augusta", "start_date": "2026-04-01", "end_date": "2026-04-03", "tournament_type": "individual"},
			{"id": 2, "name": "Club Cup", "venue": "St Andrews", "start_date": "2026-06-10", "end_date": "2026-06-12", "tournament_type": "inter_club"},
		},
	}
}
