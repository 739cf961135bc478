// Package httpclient is the resilient JSON-over-HTTP access layer used by every
// ingestion job. Each logical call retries transient failures under an
// explicit Policy and never retries permanent client errors.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"

	"github.com/JakeFAU/growth-metrics-ingestion/internal/config"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/logging"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/metrics"
	"github.com/JakeFAU/growth-metrics-ingestion/internal/policy/ratelimit"
)

// maxErrorBody bounds the response excerpt kept on status errors.
const maxErrorBody = 4 << 10

// Call results recorded in metrics.
const (
	resultSuccess   = "success"
	resultTerminal  = "terminal"
	resultExhausted = "exhausted"
	resultCanceled  = "canceled"
	resultFormat    = "bad_format"
)

// RateLimiter blocks until an attempt against rawURL may proceed.
type RateLimiter interface {
	Wait(ctx context.Context, rawURL string) error
}

// RetryEvent describes a wait scheduled between two attempts.
type RetryEvent struct {
	Method     string
	URL        string
	Attempt    int // attempts completed so far
	Wait       time.Duration
	StatusCode int // zero for transport failures
	Err        error
}

// Option customizes a Client.
type Option func(*Client)

// WithPolicy replaces the default retry policy.
func WithPolicy(p Policy) Option {
	return func(c *Client) { c.policy = p }
}

// WithTimeout overrides the per-attempt timeout taken from Settings.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithTransport sets the factory used to build a fresh transport for each
// logical call.
func WithTransport(fn func() http.RoundTripper) Option {
	return func(c *Client) {
		if fn != nil {
			c.transport = fn
		}
	}
}

// WithRateLimiter installs a limiter consulted before every attempt.
func WithRateLimiter(l RateLimiter) Option {
	return func(c *Client) { c.limiter = l }
}

// WithRetryHook registers a callback invoked before each backoff wait.
func WithRetryHook(fn func(RetryEvent)) Option {
	return func(c *Client) { c.onRetry = fn }
}

// WithUserAgent sets the User-Agent header on every request.
func WithUserAgent(ua string) Option {
	return func(c *Client) { c.userAgent = ua }
}

// Client issues JSON requests with bounded exponential retry. Its timeout and
// policy are copied from Settings at construction and never change.
type Client struct {
	policy    Policy
	timeout   time.Duration
	transport func() http.RoundTripper
	limiter   RateLimiter
	onRetry   func(RetryEvent)
	userAgent string
	logger    *zap.Logger
}

// New builds a Client from settings. A positive HTTPRateLimitRPS installs a
// per-host limiter.
func New(settings config.Settings, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		policy:    DefaultPolicy(settings.BackoffBase()),
		timeout:   settings.HTTPTimeout(),
		transport: func() http.RoundTripper { return cleanhttp.DefaultTransport() },
		userAgent: "growth-metrics-ingestion",
		logger:    logging.OrNop(logger),
	}
	if settings.HTTPRateLimitRPS > 0 {
		c.limiter = ratelimit.New(ratelimit.Config{RPS: settings.HTTPRateLimitRPS, Burst: 1})
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON issues a GET with the given query params and returns the decoded
// JSON object.
func (c *Client) GetJSON(
	ctx context.Context,
	rawURL string,
	headers map[string]string,
	params url.Values,
) (map[string]any, error) {
	req, err := retryablehttp.NewRequestWithContext(ctxOrBackground(ctx), http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build GET %s: %w", rawURL, err)
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	return c.do(req, headers)
}

// PostJSON issues a POST whose body is payload encoded as JSON and returns the
// decoded JSON object.
func (c *Client) PostJSON(
	ctx context.Context,
	rawURL string,
	headers map[string]string,
	payload any,
) (map[string]any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode POST body: %w", err)
	}
	req, err := retryablehttp.NewRequestWithContext(ctxOrBackground(ctx), http.MethodPost, rawURL, body)
	if err != nil {
		return nil, fmt.Errorf("build POST %s: %w", rawURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, headers)
}

func (c *Client) do(req *retryablehttp.Request, headers map[string]string) (map[string]any, error) {
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	applyHeaders(req.Header, headers)

	st := &call{
		ctx:    req.Context(),
		method: req.Method,
		url:    req.URL.String(),
		policy: c.policy,
		client: c,
	}

	hc := &http.Client{
		Timeout:   c.timeout,
		Transport: &attemptTransport{next: c.transport(), limiter: c.limiter, call: st},
		// Redirects are not followed; a 3xx is classified like any other status.
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	defer hc.CloseIdleConnections()

	rc := &retryablehttp.Client{
		HTTPClient:   hc,
		Logger:       newLeveled(c.logger),
		RetryMax:     st.policy.attempts() - 1,
		RetryWaitMin: st.policy.BaseDelay,
		CheckRetry:   st.checkRetry,
		Backoff:      st.backoff,
		ErrorHandler: st.exhausted,
	}

	resp, err := rc.Do(req)
	if err != nil {
		return nil, st.fail(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.ObserveCall(st.url, resultTerminal)
		return nil, &TransportError{Method: st.method, URL: st.url, Cause: err}
	}

	if v := st.policy.classify(resp, nil); v != VerdictSuccess {
		metrics.ObserveCall(st.url, resultTerminal)
		c.logger.Debug("request rejected",
			zap.String("method", st.method),
			zap.String("url", st.url),
			zap.Int("status", resp.StatusCode),
		)
		return nil, &ClientRequestError{
			Method:     st.method,
			URL:        st.url,
			StatusCode: resp.StatusCode,
			Body:       excerpt(body),
		}
	}

	out, err := decodeObject(body)
	if err != nil {
		metrics.ObserveCall(st.url, resultFormat)
		return nil, &ResponseFormatError{Method: st.method, URL: st.url, Cause: err}
	}
	metrics.ObserveCall(st.url, resultSuccess)
	return out, nil
}

// applyHeaders sets caller headers verbatim. A caller key replaces any
// default already set under a case-insensitive match.
func applyHeaders(dst http.Header, headers map[string]string) {
	for k := range headers {
		for existing := range dst {
			if existing != k && strings.EqualFold(existing, k) {
				delete(dst, existing)
			}
		}
	}
	for k, v := range headers {
		dst[k] = []string{v}
	}
}

// call is the retry state of one logical request. It is never shared.
type call struct {
	ctx         context.Context
	method      string
	url         string
	policy      Policy
	client      *Client
	attempts    int
	lastElapsed time.Duration
	lastErr     error
}

func (s *call) checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	s.attempts++
	if ctxErr := ctx.Err(); ctxErr != nil {
		metrics.ObserveAttempt(s.method, s.url, metrics.OutcomeTerminal, s.lastElapsed)
		return false, ctxErr
	}
	v := s.policy.classify(resp, err)
	metrics.ObserveAttempt(s.method, s.url, v.String(), s.lastElapsed)
	s.lastErr = err
	return v == VerdictRetry, nil
}

func (s *call) backoff(_, _ time.Duration, attemptNum int, resp *http.Response) time.Duration {
	completed := attemptNum + 1
	wait := s.policy.Backoff(completed)
	ev := RetryEvent{
		Method:  s.method,
		URL:     s.url,
		Attempt: completed,
		Wait:    wait,
		Err:     s.lastErr,
	}
	fields := []zap.Field{
		zap.String("method", s.method),
		zap.String("url", s.url),
		zap.Int("attempt", completed),
		zap.Duration("wait", wait),
	}
	if resp != nil {
		ev.StatusCode = resp.StatusCode
		fields = append(fields, zap.Int("status", resp.StatusCode))
	}
	if s.lastErr != nil {
		fields = append(fields, zap.Error(s.lastErr))
	}
	s.client.logger.Warn("backing off before retry", fields...)
	metrics.ObserveBackoff(s.url, wait)
	if s.client.onRetry != nil {
		s.client.onRetry(ev)
	}
	return wait
}

// exhausted is the retryablehttp ErrorHandler. It is reached when the attempt
// ceiling is hit, when checkRetry reported a cancelled context, or when the
// policy gave up on a transport error early.
func (s *call) exhausted(resp *http.Response, err error, numTries int) (*http.Response, error) {
	var body []byte
	if resp != nil {
		body, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		_ = resp.Body.Close()
	}
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return nil, &TransportError{Method: s.method, URL: s.url, Cause: ctxErr}
	}
	if err != nil && numTries < s.policy.attempts() {
		return nil, &TransportError{Method: s.method, URL: s.url, Cause: err}
	}
	var last error
	switch {
	case err != nil:
		last = &TransportError{Method: s.method, URL: s.url, Cause: err}
	case resp != nil:
		last = &ServerError{Method: s.method, URL: s.url, StatusCode: resp.StatusCode, Body: excerpt(body)}
	default:
		last = &TransportError{Method: s.method, URL: s.url, Cause: errors.New("no response")}
	}
	return nil, &ExhaustedError{Attempts: numTries, Last: last}
}

// fail normalizes an error returned by retryablehttp. Cancellation during a
// backoff wait comes back as a bare context error.
func (s *call) fail(err error) error {
	var exhausted *ExhaustedError
	var transport *TransportError
	switch {
	case errors.As(err, &exhausted):
		metrics.ObserveCall(s.url, resultExhausted)
		s.client.logger.Warn("request failed after retries",
			zap.String("method", s.method),
			zap.String("url", s.url),
			zap.Int("attempts", exhausted.Attempts),
			zap.Error(exhausted.Last),
		)
		return err
	case errors.As(err, &transport):
		if s.ctx.Err() != nil {
			metrics.ObserveCall(s.url, resultCanceled)
		} else {
			metrics.ObserveCall(s.url, resultTerminal)
		}
		return err
	default:
		if s.ctx.Err() != nil {
			metrics.ObserveCall(s.url, resultCanceled)
		} else {
			metrics.ObserveCall(s.url, resultTerminal)
		}
		return &TransportError{Method: s.method, URL: s.url, Cause: err}
	}
}

// attemptTransport rate limits and times each physical attempt and reads the
// whole body inside it, so a failed body read counts as a transport failure
// and falls under the per-attempt timeout.
type attemptTransport struct {
	next    http.RoundTripper
	limiter RateLimiter
	call    *call
}

func (t *attemptTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(req.Context(), req.URL.String()); err != nil {
			return nil, err
		}
	}
	start := time.Now()
	defer func() { t.call.lastElapsed = time.Since(start) }()

	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}
	resp.Body = io.NopCloser(bytes.NewReader(body))
	resp.ContentLength = int64(len(body))
	return resp, nil
}

func decodeObject(body []byte) (map[string]any, error) {
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("got %T", v)
	}
	return obj, nil
}

func excerpt(body []byte) string {
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody]
	}
	return string(body)
}

func ctxOrBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
