package telemetry

import (
	"context"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// otlpTarget splits a configured endpoint into host and per-signal URL path.
// The endpoint is a base: either a full URL (http://collector:4318/otel) or
// a bare host:port, which is treated as plain HTTP. The signal path
// (/v1/traces, /v1/metrics) is appended to the base path.
type otlpTarget struct {
	host     string
	path     string
	insecure bool
}

func resolveOTLP(endpoint, signalPath string) (otlpTarget, error) {
	if !strings.Contains(endpoint, "://") {
		return otlpTarget{host: endpoint, path: signalPath, insecure: true}, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return otlpTarget{}, err
	}
	return otlpTarget{
		host:     u.Host,
		path:     strings.TrimSuffix(u.Path, "/") + signalPath,
		insecure: u.Scheme != "https",
	}, nil
}

func buildOTLPMetricExporter(ctx context.Context, endpoint string) (sdkmetric.Exporter, error) {
	t, err := resolveOTLP(endpoint, "/v1/metrics")
	if err != nil {
		return nil, err
	}
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(t.host),
		otlpmetrichttp.WithURLPath(t.path),
	}
	if t.insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func buildOTLPTraceExporter(ctx context.Context, endpoint string) (sdktrace.SpanExporter, error) {
	t, err := resolveOTLP(endpoint, "/v1/traces")
	if err != nil {
		return nil, err
	}
	opts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(t.host),
		otlptracehttp.WithURLPath(t.path),
	}
	if t.insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}
