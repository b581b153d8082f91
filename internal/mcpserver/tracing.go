package mcpserver

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracer opens one span per call_tool invocation. It is ambient
// observability, not excluded by any Non-goal (SPEC_FULL.md §2.1).
type Tracer interface {
	StartCallTool(ctx context.Context, toolName string) (context.Context, CallToolSpan)
}

// CallToolSpan is the live span returned by StartCallTool; callers fill
// in the outcome attributes and End() it exactly once.
type CallToolSpan interface {
	SetExitCode(code int)
	SetTimedOut(timedOut bool)
	SetError(err error)
	End()
}

// otelTracer is the real implementation, backed by the process-wide
// otel TracerProvider (configured by cmd/ushell-mcpd from
// OTEL_EXPORTER_OTLP_ENDPOINT, or left as the SDK's no-op default).
type otelTracer struct {
	tracer trace.Tracer
}

// NewOtelTracer wraps the global otel tracer under the given
// instrumentation name.
func NewOtelTracer(name string) Tracer {
	return otelTracer{tracer: otel.Tracer(name)}
}

func (t otelTracer) StartCallTool(ctx context.Context, toolName string) (context.Context, CallToolSpan) {
	ctx, span := t.tracer.Start(ctx, "call_tool",
		trace.WithAttributes(attribute.String("tool.name", toolName)))
	return ctx, otelSpan{span}
}

type otelSpan struct{ span trace.Span }

func (s otelSpan) SetExitCode(code int)     { s.span.SetAttributes(attribute.Int("tool.exit_code", code)) }
func (s otelSpan) SetTimedOut(timedOut bool) { s.span.SetAttributes(attribute.Bool("tool.timed_out", timedOut)) }
func (s otelSpan) SetError(err error) {
	if err != nil {
		s.span.RecordError(err)
	}
}
func (s otelSpan) End() { s.span.End() }

// noopTracer is used when the caller passes a nil Tracer to New.
type noopTracer struct{}

func (noopTracer) StartCallTool(ctx context.Context, _ string) (context.Context, CallToolSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) SetExitCode(int)     {}
func (noopSpan) SetTimedOut(bool)    {}
func (noopSpan) SetError(error)      {}
func (noopSpan) End()                {}
