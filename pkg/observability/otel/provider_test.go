package otel

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	gotel "go.opentelemetry.io/otel"
)

func TestNewTracerProvider_Stdout(t *testing.T) {
	var buf bytes.Buffer
	tp, err := NewTracerProvider(context.Background(), Config{
		ServiceName: "workpool-test",
		Exporter:    ExporterStdout,
		SampleRate:  1,
		Writer:      &buf,
	})
	if err != nil {
		t.Fatalf("NewTracerProvider() error = %v", err)
	}

	_, span := tp.Tracer("test").Start(context.Background(), "stdout-span")
	span.End()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := tp.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "stdout-span") {
		t.Errorf("exporter output missing span name:\n%s", out)
	}
	if !strings.Contains(out, "workpool-test") {
		t.Errorf("exporter output missing service name:\n%s", out)
	}
}

func TestNewTracerProvider_Exporters(t *testing.T) {
	tests := []struct {
		name     string
		exporter string
		endpoint string
		wantErr  error
	}{
		{name: "none", exporter: ExporterNone},
		{name: "empty means none", exporter: ""},
		{name: "zipkin", exporter: ExporterZipkin, endpoint: "http://127.0.0.1:9411/api/v2/spans"},
		{name: "jaeger", exporter: ExporterJaeger, endpoint: "http://127.0.0.1:14268/api/traces"},
		{name: "unknown", exporter: "carrier-pigeon", wantErr: ErrUnknownExporter},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tp, err := NewTracerProvider(context.Background(), Config{Exporter: tt.exporter, Endpoint: tt.endpoint})
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NewTracerProvider() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewTracerProvider() error = %v", err)
			}
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if err := tp.Shutdown(ctx); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestNewTracerProvider_Sampling(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), Config{SampleRate: 0})
	if err != nil {
		t.Fatalf("NewTracerProvider() error = %v", err)
	}
	defer tp.Shutdown(context.Background())

	_, span := tp.Tracer("test").Start(context.Background(), "dropped")
	defer span.End()
	if span.SpanContext().IsSampled() {
		t.Error("span should not be sampled with SampleRate 0")
	}
}

func TestInitializeAndShutdown(t *testing.T) {
	if IsInitialized() {
		t.Fatal("IsInitialized() = true before Initialize")
	}
	if err := Initialize(context.Background(), DefaultConfig()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if !IsInitialized() {
		t.Error("IsInitialized() = false after Initialize")
	}

	// a nil provider falls back to the global one
	observer := NewTracingObserver(nil)
	if observer.tracer == nil {
		t.Error("NewTracingObserver(nil) has no tracer")
	}
	if gotel.GetTextMapPropagator() == nil {
		t.Error("propagator not installed")
	}

	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
	if IsInitialized() {
		t.Error("IsInitialized() = true after Shutdown")
	}
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("second Shutdown() error = %v", err)
	}
}
