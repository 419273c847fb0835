// Package fetch wraps single outbound upstream calls with a per-attempt
// deadline and an exponential-backoff retry policy.
//
// Only idempotent reads go through a Fetcher, so retrying a request never
// duplicates a side effect upstream.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	DefaultMaxRetries     = 3
	DefaultInitialDelay   = time.Second
	DefaultAttemptTimeout = 15 * time.Second

	maxBackoffInterval = 5 * time.Minute
	maxErrorBody       = 512
)

// Options describes the request issued on every attempt.
type Options struct {
	Method string // defaults to GET
	Header http.Header
	Body   []byte
}

// Response is a successful (2xx) upstream response with its body fully read.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// JSON decodes the response body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// Attempt describes one finished attempt for diagnostics.
type Attempt struct {
	Method     string
	URL        string
	Number     int
	StatusCode int
	Duration   time.Duration
	Err        error
}

// Observer receives diagnostic events. Implementations must be safe for
// concurrent use; a panicking observer is recovered and ignored.
type Observer interface {
	ObserveAttempt(ctx context.Context, a Attempt)
	ObserveRetry(ctx context.Context, a Attempt, delay time.Duration)
	ObserveFailure(ctx context.Context, err *UpstreamError)
}

// Fetcher issues HTTP requests with a bounded retry loop.
//
// The loop is Attempting → (Success | Retrying → Attempting) → (Success | Failed):
// MaxRetries bounds the number of retries after the first attempt, and the
// delay before retry n is InitialDelay * 2^(n-1).
type Fetcher struct {
	HTTPClient     *http.Client
	MaxRetries     int
	InitialDelay   time.Duration
	AttemptTimeout time.Duration
	Logger         *slog.Logger
	Observer       Observer

	// NewTimer overrides the timer used to wait between attempts.
	// Nil uses a real timer.
	NewTimer func() backoff.Timer
}

// New returns a Fetcher with the default policy.
func New(logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Fetcher{
		HTTPClient:     &http.Client{},
		MaxRetries:     DefaultMaxRetries,
		InitialDelay:   DefaultInitialDelay,
		AttemptTimeout: DefaultAttemptTimeout,
		Logger:         logger,
	}
}

// WithPolicy returns a copy of f using a different retry ceiling and initial delay.
func (f *Fetcher) WithPolicy(maxRetries int, initialDelay time.Duration) *Fetcher {
	c := *f
	c.MaxRetries = maxRetries
	c.InitialDelay = initialDelay
	return &c
}

// Fetch performs the request, retrying failed attempts per the policy.
// A non-nil error is always an *UpstreamError (or a request construction error).
func (f *Fetcher) Fetch(ctx context.Context, url string, opts Options) (*Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}
	if _, err := http.NewRequestWithContext(ctx, method, url, nil); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var (
		resp     *Response
		attempts int
		lastErr  error
	)
	operation := func() error {
		attempts++
		r, err := f.attempt(ctx, method, url, opts, attempts)
		if err != nil {
			lastErr = err
			return err
		}
		resp = r
		return nil
	}
	notify := func(err error, delay time.Duration) {
		f.reportRetry(ctx, Attempt{Method: method, URL: url, Number: attempts, Err: err}, delay)
	}

	err := backoff.RetryNotifyWithTimer(operation, f.backOff(ctx), notify, f.timer())
	if err == nil {
		return resp, nil
	}

	ue := &UpstreamError{URL: url, Attempts: attempts, Err: err}
	var se *statusError
	if errors.As(lastErr, &se) {
		ue.StatusCode = se.StatusCode
		ue.Message = se.Message
	} else if lastErr != nil {
		ue.Message = lastErr.Error()
	}
	if lastErr == nil || !errors.Is(err, lastErr) {
		// The caller's context ended between attempts.
		ue.Message = fmt.Sprintf("%v (last attempt: %s)", err, ue.Message)
	}
	f.reportFailure(ctx, ue)
	return nil, ue
}

func (f *Fetcher) backOff(ctx context.Context) backoff.BackOff {
	if f.MaxRetries <= 0 {
		// WithMaxRetries treats zero as unlimited.
		return backoff.WithContext(&backoff.StopBackOff{}, ctx)
	}
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     f.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxBackoffInterval,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	bo.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(bo, uint64(f.MaxRetries)), ctx)
}

func (f *Fetcher) timer() backoff.Timer {
	if f.NewTimer == nil {
		return nil
	}
	return f.NewTimer()
}

// attempt runs one request under its own deadline.
func (f *Fetcher) attempt(ctx context.Context, method, url string, opts Options, n int) (*Response, error) {
	timeout := f.AttemptTimeout
	if timeout <= 0 {
		timeout = DefaultAttemptTimeout
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if opts.Body != nil {
		body = bytes.NewReader(opts.Body)
	}
	req, err := http.NewRequestWithContext(actx, method, url, body)
	if err != nil {
		return nil, &TransportError{URL: url, Attempt: n, Err: err}
	}
	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Cache-Control", "no-store")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if opts.Body != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	client := f.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	start := time.Now()
	a := Attempt{Method: method, URL: url, Number: n}

	httpResp, err := client.Do(req)
	if err != nil {
		a.Duration = time.Since(start)
		a.Err = &TransportError{URL: url, Attempt: n, Err: err}
		f.reportAttempt(ctx, a)
		return nil, a.Err
	}
	defer func() { _ = httpResp.Body.Close() }()

	data, err := io.ReadAll(httpResp.Body)
	a.Duration = time.Since(start)
	a.StatusCode = httpResp.StatusCode
	if err != nil {
		a.Err = &TransportError{URL: url, Attempt: n, Err: fmt.Errorf("read response: %w", err)}
		f.reportAttempt(ctx, a)
		return nil, a.Err
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		a.Err = &statusError{StatusCode: httpResp.StatusCode, Message: truncate(string(data), maxErrorBody)}
		f.reportAttempt(ctx, a)
		return nil, a.Err
	}

	f.reportAttempt(ctx, a)
	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: data}, nil
}

func (f *Fetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return f.Logger
}

func (f *Fetcher) reportAttempt(ctx context.Context, a Attempt) {
	defer func() { _ = recover() }()
	if a.Err != nil {
		f.logger().DebugContext(ctx, "upstream attempt failed",
			"method", a.Method, "url", a.URL, "attempt", a.Number,
			"status", a.StatusCode, "duration", a.Duration, "error", a.Err)
	} else {
		f.logger().DebugContext(ctx, "upstream attempt",
			"method", a.Method, "url", a.URL, "attempt", a.Number,
			"status", a.StatusCode, "duration", a.Duration)
	}
	if f.Observer != nil {
		f.Observer.ObserveAttempt(ctx, a)
	}
}

func (f *Fetcher) reportRetry(ctx context.Context, a Attempt, delay time.Duration) {
	defer func() { _ = recover() }()
	f.logger().InfoContext(ctx, "retrying upstream request",
		"method", a.Method, "url", a.URL, "attempt", a.Number, "delay", delay, "error", a.Err)
	if f.Observer != nil {
		f.Observer.ObserveRetry(ctx, a, delay)
	}
}

func (f *Fetcher) reportFailure(ctx context.Context, err *UpstreamError) {
	defer func() { _ = recover() }()
	f.logger().WarnContext(ctx, "upstream request failed",
		"url", err.URL, "attempts", err.Attempts, "status", err.StatusCode, "error", err.Message)
	if f.Observer != nil {
		f.Observer.ObserveFailure(ctx, err)
	}
}
