// ABOUTME: Request interceptor pipeline implemented as an http.RoundTripper
// ABOUTME: Attaches the bearer credential outbound and triages 401s inbound

package api

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/2389/addoc-client/internal/metrics"
)

// LoginPath is the login view. A 401 received while already there does not
// tear the session down again.
const LoginPath = "/login"

// TokenSource supplies the current bearer credential ("" when anonymous).
type TokenSource interface {
	Token() string
}

// Locator reports the current view location.
type Locator interface {
	Location() string
}

// UnauthorizedFunc is invoked when a request is rejected with 401. ctx
// carries the token the request was sent with; see SentToken.
type UnauthorizedFunc func(ctx context.Context)

type skipGlobalErrorHandlerKey struct{}

// SkipGlobalErrorHandler marks requests made with ctx as handling their own
// failures; the pipeline will not react to their 401 responses.
func SkipGlobalErrorHandler(ctx context.Context) context.Context {
	return context.WithValue(ctx, skipGlobalErrorHandlerKey{}, true)
}

func skipsGlobalErrorHandler(ctx context.Context) bool {
	skip, _ := ctx.Value(skipGlobalErrorHandlerKey{}).(bool)
	return skip
}

type sentTokenKey struct{}

// SentToken returns the bearer token the rejected request carried ("" if it
// went out anonymous). ok is false when ctx did not come from the pipeline.
func SentToken(ctx context.Context) (token string, ok bool) {
	token, ok = ctx.Value(sentTokenKey{}).(string)
	return token, ok
}

// Pipeline is the interceptor wrapped around every outbound request.
type Pipeline struct {
	next    http.RoundTripper
	origin  *url.URL
	tokens  TokenSource
	locator Locator
	logger  *slog.Logger
	metrics metrics.Recorder

	mu             sync.RWMutex
	onUnauthorized UnauthorizedFunc
}

// NewPipeline wraps next. The credential is only attached to, and 401s only
// triaged for, requests whose scheme and host match origin; a nil origin
// matches nothing. A nil next uses http.DefaultTransport.
func NewPipeline(next http.RoundTripper, origin *url.URL, tokens TokenSource, locator Locator, logger *slog.Logger, rec metrics.Recorder) *Pipeline {
	if next == nil {
		next = http.DefaultTransport
	}
	if logger == nil {
		logger = slog.Default()
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &Pipeline{
		next:    next,
		origin:  origin,
		tokens:  tokens,
		locator: locator,
		logger:  logger.With("component", "pipeline"),
		metrics: rec,
	}
}

// OnUnauthorized registers the session teardown hook.
func (p *Pipeline) OnUnauthorized(fn UnauthorizedFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onUnauthorized = fn
}

// RoundTrip implements http.RoundTripper.
func (p *Pipeline) RoundTrip(req *http.Request) (*http.Response, error) {
	req, sent := p.outbound(req)

	start := time.Now()
	resp, err := p.next.RoundTrip(req)
	if err != nil {
		p.metrics.RecordTransportError()
		return nil, err
	}
	p.metrics.RecordResponse(resp.StatusCode, time.Since(start))

	p.inbound(req, resp, sent)
	return resp, nil
}

// sameOrigin reports whether u points at the backend. Redirect hops to any
// other host go out without the credential.
func (p *Pipeline) sameOrigin(u *url.URL) bool {
	return p.origin != nil &&
		strings.EqualFold(u.Scheme, p.origin.Scheme) &&
		strings.EqualFold(u.Host, p.origin.Host)
}

// outbound attaches the bearer credential and a request id, and returns the
// token that was attached. The caller's request is never mutated.
func (p *Pipeline) outbound(req *http.Request) (*http.Request, string) {
	out := req.Clone(req.Context())
	var sent string
	if p.sameOrigin(out.URL) {
		if p.tokens != nil {
			sent = p.tokens.Token()
		}
		if sent != "" {
			out.Header.Set("Authorization", "Bearer "+sent)
		}
	}
	if out.Header.Get("X-Request-ID") == "" {
		out.Header.Set("X-Request-ID", uuid.NewString())
	}
	return out, sent
}

// inbound applies the global 401 policy. It never alters the response.
func (p *Pipeline) inbound(req *http.Request, resp *http.Response, sent string) {
	if resp.StatusCode != http.StatusUnauthorized {
		return
	}
	if skipsGlobalErrorHandler(req.Context()) || !p.sameOrigin(req.URL) {
		return
	}

	location := ""
	if p.locator != nil {
		location = p.locator.Location()
	}
	if location == LoginPath {
		p.logger.Debug("401 on login view, not tearing down",
			"path", req.URL.Path,
			"request_id", req.Header.Get("X-Request-ID"),
		)
		return
	}

	p.mu.RLock()
	teardown := p.onUnauthorized
	p.mu.RUnlock()

	p.logger.Warn("session rejected by server",
		"reason", "unauthorized",
		"method", req.Method,
		"path", req.URL.Path,
		"location", location,
		"request_id", req.Header.Get("X-Request-ID"),
	)
	if teardown != nil {
		teardown(context.WithValue(req.Context(), sentTokenKey{}, sent))
	}
}
