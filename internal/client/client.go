package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mulligan-golf/mulligan-go/internal/cli/connection"
	"github.com/mulligan-golf/mulligan-go/internal/core/domain"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/logger"
	"github.com/mulligan-golf/mulligan-go/internal/telemetry/metric"
)

// Default endpoint settings.
const (
	DefaultAuthScheme  = "Token"
	DefaultLoginPath   = "/users/login/"
	DefaultLogoutPath  = "/users/logout/"
	DefaultProfilePath = "/users/profile/"
)

// Authenticator supplies the credential for outgoing requests and is told
// when the server rejects it.
type Authenticator interface {
	// Token returns the current token, or "" when there is none.
	Token() string

	// HandleAuthFailure tears the session down after a 401.
	HandleAuthFailure()
}

// Transport sends a request and returns the response. The error is non-nil
// only when no response was received.
type Transport interface {
	Do(ctx context.Context, r *connection.Request) (*connection.Response, error)
	Stream(ctx context.Context, r *connection.Request, w io.Writer) (*connection.Response, error)
}

// Config holds the endpoint conventions of the service.
type Config struct {
	AuthScheme  string
	LoginPath   string
	LogoutPath  string
	ProfilePath string
}

// DefaultConfig returns the conventions of the Mulligan API.
func DefaultConfig() *Config {
	return &Config{
		AuthScheme:  DefaultAuthScheme,
		LoginPath:   DefaultLoginPath,
		LogoutPath:  DefaultLogoutPath,
		ProfilePath: DefaultProfilePath,
	}
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics records every request in the registry.
func WithMetrics(m *metric.Registry) Option {
	return func(c *Client) { c.metrics = m }
}

// WithAuthenticator sets the credential source at construction time.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) { c.auth = a }
}

// Client is the Mulligan API client.
type Client struct {
	transport Transport
	cfg       *Config
	auth      Authenticator
	log       logger.Logger
	metrics   *metric.Registry
}

// New creates a client on top of the given transport. A nil cfg uses
// DefaultConfig; empty fields fall back to their defaults.
func New(transport Transport, cfg *Config, opts ...Option) *Client {
	def := DefaultConfig()
	if cfg == nil {
		cfg = def
	} else {
		merged := *cfg
		if merged.AuthScheme == "" {
			merged.AuthScheme = def.AuthScheme
		}
		if merged.LoginPath == "" {
			merged.LoginPath = def.LoginPath
		}
		if merged.LogoutPath == "" {
			merged.LogoutPath = def.LogoutPath
		}
		if merged.ProfilePath == "" {
			merged.ProfilePath = def.ProfilePath
		}
		cfg = &merged
	}

	c := &Client{
		transport: transport,
		cfg:       cfg,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetAuthenticator sets the credential source. It must be called before the
// client is shared between goroutines.
func (c *Client) SetAuthenticator(a Authenticator) {
	c.auth = a
}

// call is one request as the client sees it.
type call struct {
	method string
	path   string
	query  url.Values
	body   any
	header http.Header

	// token overrides the authenticator when non-empty.
	token string
	// anonymous suppresses the credential entirely.
	anonymous bool
}

func (c *Client) credential(r *call) string {
	if r.anonymous {
		return ""
	}
	if r.token != "" {
		return r.token
	}
	if c.auth == nil {
		return ""
	}
	return c.auth.Token()
}

func (c *Client) request(r *call) (*connection.Request, string) {
	header := http.Header{}
	for k, vs := range r.header {
		header[k] = vs
	}
	token := c.credential(r)
	if token != "" {
		header.Set("Authorization", c.cfg.AuthScheme+" "+token)
	}
	return &connection.Request{
		Method: r.method,
		Path:   r.path,
		Query:  r.query,
		Body:   r.body,
		Header: header,
	}, token
}

// do sends r and classifies the outcome. The body of a 2xx response is
// returned as-is.
func (c *Client) do(ctx context.Context, r *call) ([]byte, error) {
	req, token := c.request(r)
	start := time.Now()
	resp, err := c.transport.Do(ctx, req)
	if err := c.finish(ctx, r, req, token, resp, err, start); err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (c *Client) stream(ctx context.Context, r *call, w io.Writer) error {
	req, token := c.request(r)
	start := time.Now()
	resp, err := c.transport.Stream(ctx, req, w)
	return c.finish(ctx, r, req, token, resp, err, start)
}

func (c *Client) finish(ctx context.Context, r *call, req *connection.Request, token string, resp *connection.Response, sendErr error, start time.Time) error {
	err := c.classify(resp, sendErr, token != "")
	c.observe(ctx, r.method, req, resp, err, time.Since(start))
	return err
}

// classify maps a transport outcome onto the error taxonomy. The order of
// the checks matters: no response, 401, 403, 429, any other non-2xx.
func (c *Client) classify(resp *connection.Response, err error, withCredential bool) error {
	if err != nil {
		return domain.ErrNetwork.WithCause(err).WithDetails(err.Error())
	}
	if resp.OK() {
		return nil
	}

	status := resp.StatusCode
	switch status {
	case http.StatusUnauthorized:
		if c.metrics != nil {
			c.metrics.AuthFailures.Inc()
		}
		if withCredential && c.auth != nil {
			c.auth.HandleAuthFailure()
		}
		return withServerMessage(domain.ErrAuth.WithResponse(status, resp.Body))

	case http.StatusForbidden:
		return withServerMessage(domain.ErrForbidden.WithResponse(status, resp.Body))

	case http.StatusTooManyRequests:
		e := domain.ErrRateLimited.WithResponse(status, resp.Body)
		msg := e.ServerMessage()
		if after := resp.Header.Get("Retry-After"); after != "" {
			if msg != "" {
				return e.WithDetails(fmt.Sprintf("%s (retry after %s)", msg, after))
			}
			return e.WithDetails("retry after " + after)
		}
		return withServerMessage(e)

	default:
		e := domain.ErrServer.WithResponse(status, resp.Body)
		if msg := e.ServerMessage(); msg != "" {
			return e.WithDetails(fmt.Sprintf("status %d: %s", status, msg))
		}
		return e.WithDetails(fmt.Sprintf("status %d", status))
	}
}

func withServerMessage(e *domain.DomainError) error {
	if msg := e.ServerMessage(); msg != "" {
		return e.WithDetails(msg)
	}
	return e
}

func (c *Client) observe(ctx context.Context, method string, req *connection.Request, resp *connection.Response, err error, d time.Duration) {
	class := errorClass(err)
	if c.metrics != nil {
		c.metrics.APIRequests.WithLabelValues(method, class).Inc()
		c.metrics.APIRequestDuration.WithLabelValues(method).Observe(d.Seconds())
	}

	args := []any{
		"method", method,
		"path", req.Path,
		"class", class,
		"duration", d,
	}
	if auth := req.Header.Get("Authorization"); auth != "" {
		args = append(args, "auth", logger.RedactHeader(auth))
	}
	if resp != nil {
		args = append(args, "status", resp.StatusCode, "request_id", resp.RequestID)
	}
	if err != nil {
		args = append(args, "error", err)
	}
	c.log.WithContext(ctx).Debug("api request", args...)
}

func errorClass(err error) string {
	switch domain.GetErrorCode(err) {
	case "":
		return "ok"
	case domain.ErrNetwork.Code:
		return "network"
	case domain.ErrAuth.Code:
		return "auth"
	case domain.ErrForbidden.Code:
		return "forbidden"
	case domain.ErrRateLimited.Code:
		return "rate_limited"
	default:
		return "server"
	}
}

// ============================================================================
// Generic operations
// ============================================================================

// List reads path and normalizes the payload into a Page.
func (c *Client) List(ctx context.Context, path string, query url.Values) (*Page, error) {
	body, err := c.do(ctx, &call{method: http.MethodGet, path: path, query: query})
	if err != nil {
		return nil, err
	}
	return Normalize(body), nil
}

// Get reads a single object and returns the payload as-is.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (json.RawMessage, error) {
	return c.do(ctx, &call{method: http.MethodGet, path: path, query: query})
}

// Post sends body with POST and returns the payload as-is.
func (c *Client) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, &call{method: http.MethodPost, path: path, body: body})
}

// Put sends body with PUT and returns the payload as-is.
func (c *Client) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, &call{method: http.MethodPut, path: path, body: body})
}

// Patch sends body with PATCH and returns the payload as-is.
func (c *Client) Patch(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return c.do(ctx, &call{method: http.MethodPatch, path: path, body: body})
}

// Delete sends DELETE and returns the payload as-is (usually empty).
func (c *Client) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return c.do(ctx, &call{method: http.MethodDelete, path: path})
}

// Download streams a 2xx response body into w. accept selects the content
// type, e.g. "application/pdf".
func (c *Client) Download(ctx context.Context, path, accept string, w io.Writer) error {
	h := http.Header{}
	if accept != "" {
		h.Set("Accept", accept)
	}
	return c.stream(ctx, &call{method: http.MethodGet, path: path, header: h}, w)
}

// ============================================================================
// Authentication endpoints
// ============================================================================

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Token   string
	Profile domain.Profile
}

// Login exchanges username and password for a token. The request never
// carries a credential, and a rejection does not trigger the auth failure
// hook. When the response omits the profile it is fetched with the new token.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body, err := c.do(ctx, &call{
		method:    http.MethodPost,
		path:      c.cfg.LoginPath,
		body:      map[string]string{"username": username, "password": password},
		anonymous: true,
	})
	if err != nil {
		return nil, err
	}

	var payload struct {
		Token   string         `json:"token"`
		Key     string         `json:"key"`
		Access  string         `json:"access"`
		User    domain.Profile `json:"user"`
		Profile domain.Profile `json:"profile"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, domain.ErrServer.WithResponse(http.StatusOK, body).WithDetails("login response is not an object").WithCause(err)
	}

	res := &LoginResult{Token: firstNonEmpty(payload.Token, payload.Key, payload.Access)}
	if res.Token == "" {
		return nil, domain.ErrServer.WithResponse(http.StatusOK, body).WithDetails("login response carried no token")
	}

	switch {
	case len(payload.User) > 0:
		res.Profile = payload.User
	case len(payload.Profile) > 0:
		res.Profile = payload.Profile
	default:
		res.Profile, err = c.ProfileWithToken(ctx, res.Token)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Profile fetches the profile of the current credential.
func (c *Client) Profile(ctx context.Context) (domain.Profile, error) {
	return c.profile(ctx, &call{method: http.MethodGet, path: c.cfg.ProfilePath})
}

// ProfileWithToken fetches the profile that token belongs to.
func (c *Client) ProfileWithToken(ctx context.Context, token string) (domain.Profile, error) {
	return c.profile(ctx, &call{method: http.MethodGet, path: c.cfg.ProfilePath, token: token})
}

func (c *Client) profile(ctx context.Context, r *call) (domain.Profile, error) {
	body, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	var p domain.Profile
	if err := json.Unmarshal(body, &p); err != nil || p == nil {
		return nil, domain.ErrServer.WithResponse(http.StatusOK, body).WithDetails("profile response is not an object")
	}
	return p, nil
}

// Logout asks the server to invalidate token.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.do(ctx, &call{method: http.MethodPost, path: c.cfg.LogoutPath, token: token})
	return err
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
