// Package observability provides OpenTelemetry tracing for graphkv
package observability

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/ajitpratap0/graphkv/pkg/config"
	"github.com/ajitpratap0/graphkv/pkg/errors"
)

// InstrumentationName names the tracer of every graphkv span.
const InstrumentationName = "github.com/ajitpratap0/graphkv"

var (
	mu       sync.Mutex
	provider *sdktrace.TracerProvider
)

// TracingConfig contains tracing configuration
type TracingConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	SamplingRate   float64
	BatchTimeout   time.Duration
	// Writer receives stdout exporter output. Nil means stderr.
	Writer io.Writer
	// Exporter replaces the stdout exporter and exports synchronously.
	Exporter sdktrace.SpanExporter
}

// DefaultConfig returns a tracing configuration sampling 10% of traces.
func DefaultConfig() TracingConfig {
	return TracingConfig{
		ServiceName:    "graphkv",
		ServiceVersion: "dev",
		Environment:    getEnv("ENVIRONMENT", "development"),
		SamplingRate:   0.1,
		BatchTimeout:   5 * time.Second,
	}
}

// ConfigFrom derives a tracing configuration from a graph's observability
// settings.
func ConfigFrom(graph string, c config.ObservabilityConfig) TracingConfig {
	cfg := DefaultConfig()
	if graph != "" {
		cfg.ServiceName = "graphkv-" + graph
	}
	cfg.SamplingRate = c.TracingSampleRate
	return cfg
}

// Initialize installs a tracer provider built from config as the global
// provider, replacing any provider installed earlier.
func Initialize(config TracingConfig) error {
	tp, err := newProvider(config)
	if err != nil {
		return err
	}

	mu.Lock()
	old := provider
	provider = tp
	mu.Unlock()

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	if old != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := old.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown previous tracer provider: %w", err)
		}
	}
	return nil
}

// Tracer returns the graphkv tracer of the global provider. Spans are no-ops
// until Initialize is called.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName)
}

// Span wraps a trace span and batches its attributes until End.
type Span struct {
	span       trace.Span
	attributes []attribute.KeyValue
}

// StartSpan starts a span named operation.
func StartSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	ctx, span := Tracer().Start(ctx, operation, trace.WithAttributes(attrs...))
	return ctx, &Span{span: span}
}

// SetAttribute adds an attribute to the span
func (s *Span) SetAttribute(key string, value interface{}) {
	var attr attribute.KeyValue

	switch v := value.(type) {
	case string:
		attr = attribute.String(key, v)
	case int:
		attr = attribute.Int(key, v)
	case int64:
		attr = attribute.Int64(key, v)
	case float64:
		attr = attribute.Float64(key, v)
	case bool:
		attr = attribute.Bool(key, v)
	default:
		attr = attribute.String(key, fmt.Sprintf("%v", v))
	}

	s.attributes = append(s.attributes, attr)
}

// AddEvent adds an event to the span
func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	s.span.AddEvent(name, trace.WithAttributes(attrs...))
}

// End records err, if any, and ends the span.
func (s *Span) End(err error) {
	if err != nil {
		s.attributes = append(s.attributes, attribute.String("error.type", string(errors.TypeOf(err))))
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	if len(s.attributes) > 0 {
		s.span.SetAttributes(s.attributes...)
	}
	s.span.End()
}
