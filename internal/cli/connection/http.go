package connection

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	// DefaultBaseURL is the development address of the Mulligan API.
	DefaultBaseURL = "http://localhost:8001/api"

	// DefaultTimeout bounds every request.
	DefaultTimeout = 30 * time.Second

	// ContentTypeJSON is the content type of every request body.
	ContentTypeJSON = "application/json"

	// RequestIDHeader carries the client-generated request ID.
	RequestIDHeader = "X-Request-ID"

	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 32 << 20
)

// ErrBodyTooLarge reports a response body longer than the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Header http.Header
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	RequestID  string
	Duration   time.Duration
}

// OK reports whether the status is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *HTTPClient) {
		c.userAgent = ua
	}
}

// WithTLSConfig sets the TLS configuration used for https base URLs.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.TLSClientConfig = cfg
		c.client.Transport = tr
	}
}

// WithMaxBodyBytes caps response bodies at n bytes.
func WithMaxBodyBytes(n int64) Option {
	return func(c *HTTPClient) {
		if n > 0 {
			c.maxBody = n
		}
	}
}

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.client = hc
	}
}

// HTTPClient provides HTTP communication with the Mulligan API.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
	maxBody   int64

	idMu    sync.Mutex
	entropy io.Reader
}

// NewHTTPClient creates a new HTTP client for the given base URL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	c := &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: "mulligan-cli",
		maxBody:   DefaultMaxBodyBytes,
		client: &http.Client{
			Timeout: DefaultTimeout,
		},
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Do sends the request and reads the whole response body.
//
// The returned error is non-nil only when no complete response was
// received. A body over the size cap fails with ErrBodyTooLarge.
func (c *HTTPClient) Do(ctx context.Context, r *Request) (*Response, error) {
	var body bytes.Buffer
	resp, err := c.send(ctx, r, &body)
	if err != nil {
		return nil, err
	}
	resp.Body = body.Bytes()
	return resp, nil
}

// Stream sends the request and copies a 2xx body into w.
//
// Non-2xx bodies are read into Response.Body instead so that callers can
// classify them like any other response.
func (c *HTTPClient) Stream(ctx context.Context, r *Request, w io.Writer) (*Response, error) {
	return c.send(ctx, r, w)
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodGet, Path: path, Query: query})
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, &Request{Method: http.MethodPost, Path: path, Body: body})
}

func (c *HTTPClient) send(ctx context.Context, r *Request, sink io.Writer) (*Response, error) {
	req, requestID, err := c.newRequest(ctx, r)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	httpResp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	resp := &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		RequestID:  requestID,
	}

	if resp.OK() {
		err = c.readBody(sink, httpResp.Body)
	} else {
		var buf bytes.Buffer
		err = c.readBody(&buf, httpResp.Body)
		resp.Body = buf.Bytes()
	}
	resp.Duration = time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	return resp, nil
}

// readBody copies at most maxBody bytes of src into dst. A longer body is
// an error rather than a silently truncated one.
func (c *HTTPClient) readBody(dst io.Writer, src io.Reader) error {
	if _, err := io.CopyN(dst, src, c.maxBody); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}
	var extra [1]byte
	if n, _ := io.ReadFull(src, extra[:]); n > 0 {
		return fmt.Errorf("%w: more than %d bytes", ErrBodyTooLarge, c.maxBody)
	}
	return nil
}

func (c *HTTPClient) newRequest(ctx context.Context, r *Request) (*http.Request, string, error) {
	var bodyReader io.Reader
	if r.Body != nil {
		data, err := json.Marshal(r.Body)
		if err != nil {
			return nil, "", fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	target := c.baseURL + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	method := r.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, "", fmt.Errorf("create request: %w", err)
	}

	requestID := c.nextRequestID()
	req.Header.Set("Content-Type", ContentTypeJSON)
	req.Header.Set("Accept", ContentTypeJSON)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)

	// Per-request headers win over the defaults.
	for k, vs := range r.Header {
		req.Header[http.CanonicalHeaderKey(k)] = append([]string(nil), vs...)
	}

	return req, requestID, nil
}

func (c *HTTPClient) nextRequestID() string {
	c.idMu.Lock()
	defer c.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String()
}
