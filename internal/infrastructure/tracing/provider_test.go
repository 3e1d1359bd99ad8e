package tracing

import (
	"context"
	"testing"

	"github.com/nerrad567/assetsync/internal/infrastructure/config"
)

func TestNew_NoEndpoint(t *testing.T) {
	p, err := New(context.Background(), config.TracingConfig{}, "assetsync", "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer p.Shutdown(context.Background())

	if p.Exporting() {
		t.Error("Exporting() = true without an endpoint")
	}

	_, span := p.TracerProvider().Tracer("test").Start(context.Background(), "op")
	defer span.End()
	if !span.SpanContext().IsValid() {
		t.Error("spans should carry valid IDs even without export")
	}
}

func TestNew_WithEndpoint(t *testing.T) {
	// The gRPC exporter connects lazily, so construction succeeds without a collector.
	p, err := New(context.Background(), config.TracingConfig{Endpoint: "127.0.0.1:4317"}, "assetsync", "test")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if !p.Exporting() {
		t.Error("Exporting() = false with an endpoint")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}

func TestGRPCTarget(t *testing.T) {
	tests := []struct {
		endpoint     string
		wantTarget   string
		wantInsecure bool
		wantErr      bool
	}{
		{"collector:4317", "collector:4317", true, false},
		{"http://collector:4317/v1/traces", "collector:4317", true, false},
		{"https://otel.example.com:4317", "otel.example.com:4317", false, false},
		{"http://", "", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.endpoint, func(t *testing.T) {
			target, insecure, err := grpcTarget(tt.endpoint)
			if (err != nil) != tt.wantErr {
				t.Fatalf("grpcTarget() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if target != tt.wantTarget || insecure != tt.wantInsecure {
				t.Errorf("grpcTarget() = (%q, %v), want (%q, %v)", target, insecure, tt.wantTarget, tt.wantInsecure)
			}
		})
	}
}

func TestShutdown_Nil(t *testing.T) {
	var p *Provider
	if err := p.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() on nil provider error = %v", err)
	}
}
