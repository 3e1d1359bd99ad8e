// Package tracing sets up the OpenTelemetry tracer provider.
//
// Reconciliation runs and their steps are traced through the global
// provider. When no OTLP endpoint is configured the provider still records
// spans (so trace IDs reach the logs) but exports nothing.
//
//	p, err := tracing.New(ctx, cfg.Tracing, "assetsync", version)
//	if err != nil {
//	    return err
//	}
//	p.SetGlobal()
//	defer p.Shutdown(context.Background())
package tracing

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"github.com/nerrad567/assetsync/internal/infrastructure/config"
)

// Provider owns the SDK tracer provider.
type Provider struct {
	tp        *sdktrace.TracerProvider
	exporting bool
}

// New builds a tracer provider. A non-empty endpoint adds a batching OTLP
// gRPC exporter; the endpoint may be host:port or a URL whose path is ignored.
// Plain http and bare host:port endpoints dial without TLS.
func New(ctx context.Context, cfg config.TracingConfig, serviceName, version string) (*Provider, error) {
	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("building trace resource: %w", err)
	}

	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return &Provider{tp: sdktrace.NewTracerProvider(sdktrace.WithResource(res))}, nil
	}

	target, insecure, err := grpcTarget(endpoint)
	if err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(target)}
	if insecure || cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exp, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating OTLP trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	return &Provider{tp: tp, exporting: true}, nil
}

// grpcTarget reduces endpoint to host:port and reports whether the scheme
// implies a plaintext connection.
func grpcTarget(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		endpoint = "http://" + endpoint
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: %w", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid OTLP endpoint %q: missing host", endpoint)
	}
	return u.Host, u.Scheme != "https", nil
}

// TracerProvider returns the SDK provider.
func (p *Provider) TracerProvider() *sdktrace.TracerProvider {
	return p.tp
}

// Exporting reports whether spans leave the process.
func (p *Provider) Exporting() bool {
	return p.exporting
}

// SetGlobal installs the provider and W3C trace-context propagation globally.
func (p *Provider) SetGlobal() {
	otel.SetTracerProvider(p.tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Shutdown flushes pending spans and stops the exporter.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p == nil || p.tp == nil {
		return nil
	}
	if err := p.tp.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down tracer provider: %w", err)
	}
	return nil
}
