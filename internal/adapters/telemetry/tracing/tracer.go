// Package tracing provides an OpenTelemetry implementation of the telemetry adapter.
package tracing

import (
	"context"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.trai.ch/pbundle/internal/core/domain"
	"go.trai.ch/pbundle/internal/core/ports"
)

// InstrumentationName names the tracer spans are started from.
const InstrumentationName = "go.trai.ch/pbundle"

// Tracer implements ports.Telemetry by starting one span per vertex.
type Tracer struct {
	tracer trace.Tracer
}

// New creates a Tracer backed by the globally registered tracer provider.
func New() *Tracer {
	return NewWithProvider(otel.GetTracerProvider())
}

// NewWithProvider creates a Tracer backed by tp.
func NewWithProvider(tp trace.TracerProvider) *Tracer {
	return &Tracer{tracer: tp.Tracer(InstrumentationName)}
}

// Record starts a span named after the vertex.
func (t *Tracer) Record(ctx context.Context, name string, opts ...ports.VertexOption) (context.Context, ports.Vertex) {
	cfg := ports.VertexConfig{ID: name}
	for _, opt := range opts {
		opt(&cfg)
	}
	ctx, span := t.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("pbundle.vertex.id", cfg.ID)))
	v := &Span{span: span}
	return ports.ContextWithVertex(ctx, v), v
}

// Close does nothing. The tracer provider is owned by whoever registered it.
func (t *Tracer) Close() error {
	return nil
}

// Span implements ports.Vertex over an OpenTelemetry span.
type Span struct {
	span trace.Span
}

// Stdout returns a writer that records each write as a span event.
func (s *Span) Stdout() io.Writer {
	return &eventWriter{span: s.span, stream: "stdout"}
}

// Stderr returns a writer that records each write as a span event.
func (s *Span) Stderr() io.Writer {
	return &eventWriter{span: s.span, stream: "stderr"}
}

// Log records msg as a span event.
func (s *Span) Log(level domain.LogLevel, msg string) {
	s.span.AddEvent("log", trace.WithAttributes(
		attribute.String("level", level.String()),
		attribute.String("message", msg),
	))
}

// Complete ends the span, recording err if there is one.
func (s *Span) Complete(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}

// Cached marks the span as served from the local store.
func (s *Span) Cached() {
	s.span.SetAttributes(attribute.Bool("pbundle.cached", true))
}

type eventWriter struct {
	span   trace.Span
	stream string
}

func (w *eventWriter) Write(p []byte) (int, error) {
	if w.span.IsRecording() {
		w.span.AddEvent(w.stream, trace.WithAttributes(attribute.String("data", string(p))))
	}
	return len(p), nil
}
