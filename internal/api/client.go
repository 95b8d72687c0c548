// ABOUTME: Shared HTTP client for the ADDoc backend with base URL and timeout
// ABOUTME: Routes every request through the interceptor pipeline and maps non-2xx to HTTPError

package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2389/addoc-client/internal/metrics"
)

// maxErrorBody caps how much of an error body is read for the detail message.
const maxErrorBody = 64 << 10

// Config describes the backend.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client issues requests against the ADDoc backend.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	pipeline *Pipeline
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*clientOptions)

type clientOptions struct {
	transport http.RoundTripper
	logger    *slog.Logger
	metrics   metrics.Recorder
}

// WithTransport sets the transport the pipeline delegates to.
func WithTransport(rt http.RoundTripper) Option {
	return func(o *clientOptions) { o.transport = rt }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(rec metrics.Recorder) Option {
	return func(o *clientOptions) { o.metrics = rec }
}

// NewClient creates a Client. tokens and locator are read by the pipeline
// on every request; either may be nil.
func NewClient(cfg Config, tokens TokenSource, locator Locator, opts ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parsing base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", cfg.BaseURL)
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	pipeline := NewPipeline(o.transport, base, tokens, locator, logger, o.metrics)
	return &Client{
		baseURL: base,
		http: &http.Client{
			Transport: pipeline,
			Timeout:   cfg.Timeout,
		},
		pipeline: pipeline,
		logger:   logger.With("component", "api"),
	}, nil
}

// OnUnauthorized registers the hook the pipeline calls on a 401.
func (c *Client) OnUnauthorized(fn UnauthorizedFunc) {
	c.pipeline.OnUnauthorized(fn)
}

// BaseURL returns the backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// HTTPClient returns the underlying client so collaborators can issue their
// own requests through the same pipeline. The credential is only sent to the
// base URL's origin.
func (c *Client) HTTPClient() *http.Client {
	return c.http
}

// NewRequest builds a request for path (relative to the base URL).
func (c *Client) NewRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return req, nil
}

// Do sends req. Non-2xx responses are consumed and returned as *HTTPError;
// on success the caller owns resp.Body.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, nil
	}
	defer resp.Body.Close()

	httpErr := &HTTPError{
		StatusCode: resp.StatusCode,
		Method:     req.Method,
		Path:       req.URL.Path,
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var detail struct {
		Detail any `json:"detail"`
	}
	if json.Unmarshal(body, &detail) == nil && detail.Detail != nil {
		httpErr.Detail = fmt.Sprint(detail.Detail)
	}
	return nil, httpErr
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	req, err := c.NewRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

// PostForm issues a form-url-encoded POST and decodes the JSON response into out.
func (c *Client) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	req, err := c.NewRequest(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decoding response: %w", req.Method, req.URL.Path, err)
	}
	return nil
}
