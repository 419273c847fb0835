package telemetry

import (
	"context"
	"errors"
	"net/url"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/steveyegge/trackdash/internal/fetch"
)

const upstreamScopeName = "github.com/steveyegge/trackdash/upstream"

// FetchObserver records fetch attempts, retries and failures as
// trackdash.upstream.* metrics. It implements fetch.Observer.
type FetchObserver struct {
	attempts metric.Int64Counter
	retries  metric.Int64Counter
	failures metric.Int64Counter
	dur      metric.Float64Histogram
}

// NewFetchObserver creates the instruments on m (the global meter when nil).
func NewFetchObserver(m metric.Meter) (*FetchObserver, error) {
	if m == nil {
		m = Meter(upstreamScopeName)
	}
	attempts, err := m.Int64Counter("trackdash.upstream.attempts",
		metric.WithDescription("Upstream HTTP attempts, including retries"))
	if err != nil {
		return nil, err
	}
	retries, err := m.Int64Counter("trackdash.upstream.retries",
		metric.WithDescription("Upstream retries scheduled after a failed attempt"))
	if err != nil {
		return nil, err
	}
	failures, err := m.Int64Counter("trackdash.upstream.failures",
		metric.WithDescription("Upstream requests that failed after exhausting retries"))
	if err != nil {
		return nil, err
	}
	dur, err := m.Float64Histogram("trackdash.upstream.attempt.duration",
		metric.WithDescription("Upstream attempt duration in milliseconds"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &FetchObserver{attempts: attempts, retries: retries, failures: failures, dur: dur}, nil
}

func (o *FetchObserver) ObserveAttempt(ctx context.Context, a fetch.Attempt) {
	kv := []attribute.KeyValue{
		semconv.HTTPRequestMethodKey.String(a.Method),
		semconv.ServerAddressKey.String(host(a.URL)),
		semconv.HTTPResponseStatusCodeKey.Int(a.StatusCode),
	}
	if a.Err != nil {
		kv = append(kv, semconv.ErrorTypeKey.String(errorType(a.StatusCode, a.Err)))
	}
	attrs := metric.WithAttributes(kv...)
	o.attempts.Add(ctx, 1, attrs)
	o.dur.Record(ctx, float64(a.Duration.Milliseconds()), attrs)
}

func (o *FetchObserver) ObserveRetry(ctx context.Context, a fetch.Attempt, delay time.Duration) {
	o.retries.Add(ctx, 1, metric.WithAttributes(
		semconv.ServerAddressKey.String(host(a.URL)),
		attribute.Int("trackdash.attempt", a.Number),
	))
}

func (o *FetchObserver) ObserveFailure(ctx context.Context, err *fetch.UpstreamError) {
	o.failures.Add(ctx, 1, metric.WithAttributes(
		semconv.ServerAddressKey.String(host(err.URL)),
		semconv.HTTPResponseStatusCodeKey.Int(err.StatusCode),
		semconv.ErrorTypeKey.String(errorType(err.StatusCode, err)),
	))
}

// Doer is the upstream call surface (see jira.Doer).
type Doer interface {
	Fetch(ctx context.Context, url string, opts fetch.Options) (*fetch.Response, error)
}

// InstrumentedDoer wraps a Doer with one client span per logical upstream call.
type InstrumentedDoer struct {
	inner  Doer
	tracer trace.Tracer
}

// WrapDoer returns d decorated with tracing (global tracer when t is nil).
func WrapDoer(d Doer, t trace.Tracer) *InstrumentedDoer {
	if t == nil {
		t = Tracer(upstreamScopeName)
	}
	return &InstrumentedDoer{inner: d, tracer: t}
}

func (d *InstrumentedDoer) Fetch(ctx context.Context, rawURL string, opts fetch.Options) (*fetch.Response, error) {
	method := opts.Method
	if method == "" {
		method = "GET"
	}
	path := rawURL
	if u, err := url.Parse(rawURL); err == nil {
		path = u.Path
	}
	ctx, span := d.tracer.Start(ctx, "upstream "+method+" "+path,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(method),
			semconv.ServerAddressKey.String(host(rawURL)),
			semconv.URLPathKey.String(path),
		),
	)
	defer span.End()

	resp, err := d.inner.Fetch(ctx, rawURL, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var ue *fetch.UpstreamError
		if errors.As(err, &ue) {
			span.SetAttributes(
				semconv.HTTPResponseStatusCodeKey.Int(ue.StatusCode),
				semconv.ErrorTypeKey.String(errorType(ue.StatusCode, ue)),
				attribute.Int("trackdash.attempts", ue.Attempts),
			)
		}
		return nil, err
	}
	span.SetAttributes(semconv.HTTPResponseStatusCodeKey.Int(resp.StatusCode))
	return resp, nil
}

// errorType is the error.type value: the status code when the server
// answered, otherwise a coarse transport class.
func errorType(status int, err error) string {
	switch {
	case status > 0:
		return strconv.Itoa(status)
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "_OTHER"
	}
}

func host(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}
