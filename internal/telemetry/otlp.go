// Package telemetry wires OpenTelemetry tracing for nbterm.
package telemetry

import (
	"context"
	"net/url"
	"os"
	"path"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
)

const (
	// EndpointEnv enables export when set.
	EndpointEnv = "OTEL_EXPORTER_OTLP_ENDPOINT"
	// ServiceNameEnv overrides the reported service name.
	ServiceNameEnv = "OTEL_SERVICE_NAME"

	defaultServiceName = "nbterm"
)

// OTLPExporter owns the tracer provider installed as the global one.
type OTLPExporter struct {
	provider *sdktrace.TracerProvider
}

// NewOTLPExporter installs an OTLP/HTTP tracer provider if
// OTEL_EXPORTER_OTLP_ENDPOINT is set. Returns nil if endpoint not
// configured (disabled); the global no-op provider stays in place then.
func NewOTLPExporter(ctx context.Context) (*OTLPExporter, error) {
	endpoint := os.Getenv(EndpointEnv)
	if endpoint == "" {
		return nil, nil
	}

	exporter, err := otlptracehttp.New(ctx, endpointOptions(endpoint)...)
	if err != nil {
		return nil, err
	}

	serviceName := os.Getenv(ServiceNameEnv)
	if serviceName == "" {
		serviceName = defaultServiceName
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(serviceName),
	)

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return &OTLPExporter{provider: provider}, nil
}

// endpointOptions accepts both forms seen in OTEL_EXPORTER_OTLP_ENDPOINT: a
// base URL such as http://collector:4318, which gets /v1/traces appended, or
// a bare host:port, which is sent plain HTTP.
func endpointOptions(endpoint string) []otlptracehttp.Option {
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		u.Path = path.Join("/", u.Path, "v1/traces")
		return []otlptracehttp.Option{otlptracehttp.WithEndpointURL(u.String())}
	}
	return []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	}
}

// Enabled reports whether spans are exported.
func (e *OTLPExporter) Enabled() bool { return e != nil }

// Shutdown flushes and closes the exporter. Safe on a nil exporter.
func (e *OTLPExporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	return e.provider.Shutdown(ctx)
}
