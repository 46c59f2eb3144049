package otel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	gotel "go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/exporters/zipkin"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Exporter names accepted by Config.Exporter
const (
	ExporterNone   = "none"
	ExporterStdout = "stdout"
	ExporterZipkin = "zipkin"
	ExporterJaeger = "jaeger"
)

// ErrUnknownExporter is returned for an unsupported Config.Exporter value
var ErrUnknownExporter = errors.New("unknown trace exporter")

// Config configures the tracer provider
type Config struct {
	ServiceName    string  `yaml:"service_name" json:"service_name"`
	ServiceVersion string  `yaml:"service_version" json:"service_version"`
	Environment    string  `yaml:"environment" json:"environment"`
	Exporter       string  `yaml:"exporter" json:"exporter"` // none, stdout, zipkin, jaeger
	Endpoint       string  `yaml:"endpoint" json:"endpoint"`
	SampleRate     float64 `yaml:"sample_rate" json:"sample_rate"`

	// Writer receives stdout exporter output (os.Stdout when nil)
	Writer io.Writer `yaml:"-" json:"-"`
}

// DefaultConfig returns a config that samples everything and exports nowhere
func DefaultConfig() Config {
	return Config{
		ServiceName: "workpool",
		Exporter:    ExporterNone,
		SampleRate:  1.0,
	}
}

// NewTracerProvider builds an SDK tracer provider for cfg.
// The caller owns the provider and must Shutdown it to flush spans.
func NewTracerProvider(ctx context.Context, cfg Config) (*sdktrace.TracerProvider, error) {
	exporter, err := newExporter(cfg)
	if err != nil {
		return nil, err
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "workpool"
	}
	attrs := []attribute.KeyValue{attribute.String("service.name", serviceName)}
	if cfg.ServiceVersion != "" {
		attrs = append(attrs, attribute.String("service.version", cfg.ServiceVersion))
	}
	if cfg.Environment != "" {
		attrs = append(attrs, attribute.String("deployment.environment", cfg.Environment))
	}
	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(attrs...))
	if err != nil {
		res = resource.NewSchemaless(attrs...)
	}

	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sampler(cfg.SampleRate))),
	}
	if exporter != nil {
		opts = append(opts, sdktrace.WithBatcher(exporter))
	}
	return sdktrace.NewTracerProvider(opts...), nil
}

func sampler(rate float64) sdktrace.Sampler {
	switch {
	case rate >= 1:
		return sdktrace.AlwaysSample()
	case rate <= 0:
		return sdktrace.NeverSample()
	default:
		return sdktrace.TraceIDRatioBased(rate)
	}
}

func newExporter(cfg Config) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "", ExporterNone:
		return nil, nil
	case ExporterStdout:
		w := cfg.Writer
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	case ExporterZipkin:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:9411/api/v2/spans"
		}
		return zipkin.New(endpoint)
	case ExporterJaeger:
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "http://localhost:14268/api/traces"
		}
		return jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(endpoint)))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownExporter, cfg.Exporter)
	}
}

var (
	globalMu       sync.Mutex
	globalProvider *sdktrace.TracerProvider
)

// Initialize installs a tracer provider for cfg as the global OpenTelemetry
// provider, together with the W3C trace-context propagator.
func Initialize(ctx context.Context, cfg Config) error {
	tp, err := NewTracerProvider(ctx, cfg)
	if err != nil {
		return err
	}

	globalMu.Lock()
	prev := globalProvider
	globalProvider = tp
	globalMu.Unlock()

	gotel.SetTracerProvider(tp)
	gotel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if prev != nil {
		return prev.Shutdown(ctx)
	}
	return nil
}

// IsInitialized reports whether Initialize has installed a provider
func IsInitialized() bool {
	globalMu.Lock()
	defer globalMu.Unlock()
	return globalProvider != nil
}

// Shutdown flushes and stops the provider installed by Initialize
func Shutdown(ctx context.Context) error {
	globalMu.Lock()
	tp := globalProvider
	globalProvider = nil
	globalMu.Unlock()

	if tp == nil {
		return nil
	}
	return tp.Shutdown(ctx)
}
