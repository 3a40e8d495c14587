package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"campusdash/internal/logger"
	"campusdash/internal/metrics"
	"campusdash/internal/session"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Rate limit tiers, per client.
const (
	// Auth endpoints (strict)
	limitAuth = rate.Limit(2)
	burstAuth = 5

	// Everything else
	limitGeneral = rate.Limit(10)
	burstGeneral = 20
)

const (
	DefaultTimeout     = 15 * time.Second
	DefaultGetAttempts = 3
)

// UnauthorizedHandler is invoked whenever a protected call comes back 401.
type UnauthorizedHandler func(ctx context.Context)

type Options struct {
	BaseURL string
	Store   session.Store

	// Transport is the innermost round tripper; http.DefaultTransport when nil.
	Transport   http.RoundTripper
	Timeout     time.Duration
	GetAttempts uint

	// Backoff for GET retries; an exponential policy when nil.
	Backoff backoff.BackOff

	AuthLimiter    *rate.Limiter
	GeneralLimiter *rate.Limiter
}

// Client talks to the campus delivery backend.
type Client struct {
	baseURL     string
	store       session.Store
	httpClient  *http.Client
	getAttempts uint
	newBackoff  func() backoff.BackOff

	authLimiter    *rate.Limiter
	generalLimiter *rate.Limiter

	mu             sync.RWMutex
	onUnauthorized UnauthorizedHandler

	calls *metrics.Calls
}

func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.GetAttempts == 0 {
		opts.GetAttempts = DefaultGetAttempts
	}
	if opts.AuthLimiter == nil {
		opts.AuthLimiter = rate.NewLimiter(limitAuth, burstAuth)
	}
	if opts.GeneralLimiter == nil {
		opts.GeneralLimiter = rate.NewLimiter(limitGeneral, burstGeneral)
	}

	base := opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	c := &Client{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		store:          opts.Store,
		getAttempts:    opts.GetAttempts,
		authLimiter:    opts.AuthLimiter,
		generalLimiter: opts.GeneralLimiter,
		calls:          metrics.NewCalls(),
	}

	if opts.Backoff != nil {
		b := opts.Backoff
		c.newBackoff = func() backoff.BackOff { return b }
	} else {
		c.newBackoff = func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 200 * time.Millisecond
			b.MaxInterval = 2 * time.Second
			return b
		}
	}

	transport := otelhttp.NewTransport(base)
	c.httpClient = &http.Client{
		Timeout: opts.Timeout,
		Transport: c.interceptUnauthorized(
			logger.RequestIDTransport(logger.LoggingTransport(transport)),
		),
	}
	return c
}

// SetUnauthorizedHandler installs the process-wide 401 hook.
func (c *Client) SetUnauthorizedHandler(h UnauthorizedHandler) {
	c.mu.Lock()
	c.onUnauthorized = h
	c.mu.Unlock()
}

func (c *Client) Stats() []metrics.OpSnapshot {
	return c.calls.Snapshot()
}

func isAuthPath(path string) bool {
	return strings.HasPrefix(path, "/auth/")
}

// interceptUnauthorized fires the unauthorized handler for every 401 on a
// protected path, regardless of which caller issued the request. Credential
// failures on /auth/* are not session expiry and are left alone.
func (c *Client) interceptUnauthorized(next http.RoundTripper) http.RoundTripper {
	return logger.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
		resp, err := next.RoundTrip(r)
		if err != nil || resp.StatusCode != http.StatusUnauthorized || isAuthPath(r.URL.Path) {
			return resp, err
		}

		c.mu.RLock()
		h := c.onUnauthorized
		c.mu.RUnlock()

		if h != nil {
			logger.FromCtx(r.Context()).Warn("authorization denied, forcing sign-out",
				zap.String("path", r.URL.Path))
			h(context.WithoutCancel(r.Context()))
		}
		return resp, nil
	})
}

type call struct {
	op             string
	method         string
	path           string
	body           any
	protected      bool
	idempotencyKey string
}

// do executes c and decodes a 2xx body into out (raw bytes when out is
// *[]byte). GETs are retried on network and 5xx failures; nothing else is.
func (c *Client) do(ctx context.Context, req call, out any) error {
	timer := metrics.StartTimer()
	err := c.execute(ctx, req, out)
	c.calls.Observe(req.op, timer.Duration(), err != nil)
	return err
}

func (c *Client) execute(ctx context.Context, req call, out any) error {
	log := logger.FromCtx(ctx).With(zap.String("op", req.op))

	limiter := c.generalLimiter
	if isAuthPath(req.path) {
		limiter = c.authLimiter
	}
	if err := limiter.Wait(ctx); err != nil {
		return NewError(req.op, KindNetworkUnreachable, err)
	}

	var token string
	if req.protected {
		t, ok, err := c.store.Get(ctx, session.KeyAccessToken)
		if err != nil {
			return NewError(req.op, KindUnauthenticated, err)
		}
		if !ok || t == "" {
			return NewError(req.op, KindUnauthenticated, ErrMissingToken)
		}
		token = t
	}

	var payload []byte
	if req.body != nil {
		b, err := json.Marshal(req.body)
		if err != nil {
			return NewError(req.op, KindValidationFailed, fmt.Errorf("encode request: %w", err))
		}
		payload = b
	}

	attempt := func() ([]byte, error) {
		body, err := c.roundTrip(ctx, req, token, payload)
		if err != nil && !retryable(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	tries := uint(1)
	if req.method == http.MethodGet {
		tries = c.getAttempts
	}

	body, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(c.newBackoff()),
		backoff.WithMaxTries(tries),
	)
	if err != nil {
		var apiErr *Error
		if !errors.As(err, &apiErr) {
			err = NewError(req.op, KindNetworkUnreachable, err)
		}
		log.Warn("api call failed", zap.Error(err))
		return err
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if raw, ok := out.(*[]byte); ok {
		*raw = body
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error("failed decoding response", zap.Error(err))
		return NewError(req.op, KindServerError, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req call, token string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, NewError(req.op, KindValidationFailed, err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	if req.idempotencyKey != "" {
		httpReq.Header.Set("Idempotency-Key", req.idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, NewError(req.op, KindNetworkUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewError(req.op, KindNetworkUnreachable, fmt.Errorf("read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(req.op, resp.StatusCode, body, isAuthPath(req.path))
	}
	return body, nil
}

// decodeList accepts a bare JSON array or an object wrapping it under key.
func decodeList[T any](op string, body []byte, key string) ([]T, error) {
	out := []T{}
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return out, nil
	}

	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, NewError(op, KindServerError, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
		}
		return out, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &wrapped); err != nil {
		return nil, NewError(op, KindServerError, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}
	raw, ok := wrapped[key]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, NewError(op, KindServerError, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err))
	}
	return out, nil
}
