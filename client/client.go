// Package client is a typed client for the remote storefront API. Every
// response is decoded from the shared envelope and classified into a
// TransportError or an APIError.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"storefront/model"
)

const (
	// RequestIDHeader is forwarded to the remote API on every call.
	RequestIDHeader = "X-Request-ID"

	defaultTimeout = 15 * time.Second
)

// TokenSource yields the bearer credential for authenticated calls. An
// empty token sends the request anonymously.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

func (f TokenSourceFunc) Token(ctx context.Context) (string, error) { return f(ctx) }

// Config is the connection configuration of the remote API.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// RateLimit caps outbound requests per second; zero disables limiting.
	RateLimit float64
	Burst     int
}

// Client talks to the remote API. It is safe for concurrent use; WithTokenSource
// returns a copy bound to another identity that shares the transport.
type Client struct {
	base    string
	http    *http.Client
	limiter *rate.Limiter
	tokens  TokenSource
	log     *zap.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the logger used for per-call debug lines.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTokens sets the initial token source.
func WithTokens(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("client: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &Client{
		base: base,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		log: zap.NewNop(),
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// WithTokenSource returns a shallow copy of c that authenticates with ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

type requestIDKey struct{}

// ContextWithRequestID attaches the id forwarded as X-Request-ID.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFrom returns the request id carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// call is one remote request.
type call struct {
	op          string
	method      string
	path        string
	query       url.Values
	body        io.Reader
	contentType string
}

func jsonCall(op, method, path string, payload any) (call, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return call{}, fmt.Errorf("%s: encode body: %w", op, err)
	}
	return call{op: op, method: method, path: path, body: bytes.NewReader(b), contentType: "application/json"}, nil
}

// do sends rc and decodes the envelope into T. The returned pointer is nil
// when the server reported success with null data.
func do[T any](ctx context.Context, c *Client, rc call) (*T, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &TransportError{Op: rc.op, Err: err}
		}
	}

	target := c.base + rc.path
	if len(rc.query) > 0 {
		target += "?" + rc.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, rc.method, target, rc.body)
	if err != nil {
		return nil, &TransportError{Op: rc.op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if rc.contentType != "" {
		req.Header.Set("Content-Type", rc.contentType)
	}

	reqID := RequestIDFrom(ctx)
	if reqID == "" {
		reqID = uuid.New().String()
	}
	req.Header.Set(RequestIDHeader, reqID)

	if c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: obtain token: %w", rc.op, err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("remote call failed",
			zap.String("op", rc.op),
			zap.String("request_id", reqID),
			zap.Error(err))
		return nil, &TransportError{Op: rc.op, Err: err}
	}
	defer resp.Body.Close()

	c.log.Debug("remote call",
		zap.String("op", rc.op),
		zap.String("method", rc.method),
		zap.String("path", rc.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", reqID))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &TransportError{
			Op:         rc.op,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("unexpected status %s", http.StatusText(resp.StatusCode)),
		}
	}

	var env model.Envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, &TransportError{Op: rc.op, StatusCode: resp.StatusCode, Err: fmt.Errorf("decode envelope: %w", err)}
	}
	data, ok := env.Payload()
	if !ok {
		apiErr := &APIError{Op: rc.op, Message: env.Message, StatusCode: env.StatusCode}
		if env.Error != nil {
			apiErr.Code = env.Error.ErrorCode
			apiErr.ValidationErrors = env.Error.ValidationErrors
			if apiErr.Message == "" {
				apiErr.Message = env.Error.ErrorMessage
			}
		}
		return nil, apiErr
	}
	return data, nil
}

// required turns a successful-but-null payload into an error for
// operations whose result is mandatory.
func required[T any](op string, v *T, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, &TransportError{Op: op, Err: ErrEmptyResponse}
	}
	return *v, nil
}

// segment escapes one path segment, such as an id.
func segment(s string) string { return url.PathEscape(s) }
