// Package telemetry turns run events into OpenTelemetry spans: one per run,
// one per class and one per case.
package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"conventest/internal/reporting"
	"conventest/pkg/logging"
)

// InstrumentationName names the tracer used by the listener.
const InstrumentationName = "conventest"

// NewProvider creates a tracer provider exporting spans as JSON to w.
func NewProvider(w io.Writer, serviceVersion string) (*sdktrace.TracerProvider, error) {
	exp, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	r, err := resource.Merge(
		resource.Default(),
		resource.NewSchemaless(
			attribute.String("service.name", InstrumentationName),
			attribute.String("service.version", serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace resource: %w", err)
	}

	return sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(r),
	), nil
}

type openSpan struct {
	ctx  context.Context
	span trace.Span
}

// Listener records spans timed by event timestamps.
type Listener struct {
	tracer trace.Tracer

	assembly openSpan
	class    openSpan
	current  trace.Span
}

// New creates a listener using a tracer from provider.
func New(provider trace.TracerProvider) *Listener {
	return &Listener{tracer: provider.Tracer(InstrumentationName)}
}

// EventTypes implements reporting.Interested.
func (l *Listener) EventTypes() []reporting.EventType {
	return []reporting.EventType{
		reporting.EventTypeAssemblyStarted,
		reporting.EventTypeClassStarted,
		reporting.EventTypeTestStarted,
		reporting.EventTypeCaseSkipped,
		reporting.EventTypeCasePassed,
		reporting.EventTypeCaseFailed,
		reporting.EventTypeClassCompleted,
		reporting.EventTypeAssemblyCompleted,
	}
}

// Handle implements reporting.Listener.
func (l *Listener) Handle(ctx context.Context, event reporting.Event) error {
	switch e := event.(type) {
	case *reporting.AssemblyStarted:
		spanCtx, span := l.tracer.Start(ctx, reporting.RunName(e.Module, e.Framework),
			trace.WithTimestamp(e.Timestamp()),
			trace.WithAttributes(
				attribute.String("test.run.id", e.RunID),
				attribute.String("test.module", e.Module),
				attribute.String("test.framework", e.Framework),
			))
		l.assembly = openSpan{ctx: spanCtx, span: span}
	case *reporting.ClassStarted:
		spanCtx, span := l.tracer.Start(l.parent(ctx), e.Class,
			trace.WithTimestamp(e.Timestamp()),
			trace.WithAttributes(attribute.String("test.class", e.Class)))
		l.class = openSpan{ctx: spanCtx, span: span}
	case *reporting.TestStarted:
		_, l.current = l.tracer.Start(l.classParent(ctx), e.Name,
			trace.WithTimestamp(e.Timestamp()),
			trace.WithAttributes(attribute.String("test.name", e.Test.Name())))
	case reporting.CaseCompleted:
		l.completeCase(ctx, e)
	case *reporting.ClassCompleted:
		if l.class.span != nil {
			setSummary(l.class.span, e.Summary)
			l.class.span.End(trace.WithTimestamp(e.Timestamp()))
			l.class = openSpan{}
		}
	case *reporting.AssemblyCompleted:
		if l.assembly.span != nil {
			setSummary(l.assembly.span, e.Summary)
			if e.Summary.Failed > 0 {
				l.assembly.span.SetStatus(codes.Error, e.Summary.String())
			}
			l.assembly.span.End(trace.WithTimestamp(e.Timestamp()))
			l.assembly = openSpan{}
			logging.Debug("Telemetry", "Closed run span for %s", e.Module)
		}
	}
	return nil
}

func (l *Listener) completeCase(ctx context.Context, e reporting.CaseCompleted) {
	result := e.Result()
	span := l.current
	l.current = nil
	if span == nil {
		// Cases that never started still get a span covering their duration.
		_, span = l.tracer.Start(l.classParent(ctx), result.Name,
			trace.WithTimestamp(e.Timestamp().Add(-result.Duration)),
			trace.WithAttributes(attribute.String("test.name", result.Test.Name())))
	}

	span.SetAttributes(
		attribute.String("test.outcome", e.Status().String()),
		attribute.Int64("test.duration_ms", result.Duration.Milliseconds()),
	)
	switch c := e.(type) {
	case *reporting.CaseSkipped:
		if c.Reason != "" {
			span.SetAttributes(attribute.String("test.skip_reason", c.Reason))
		}
	case *reporting.CaseFailed:
		if c.Exception != nil {
			span.RecordError(c.Exception.Original,
				trace.WithTimestamp(e.Timestamp()),
				trace.WithAttributes(attribute.String("exception.stacktrace", c.FailureText())))
		}
		span.SetStatus(codes.Error, c.Message())
	}
	span.End(trace.WithTimestamp(e.Timestamp()))
}

func (l *Listener) parent(ctx context.Context) context.Context {
	if l.assembly.ctx != nil {
		return l.assembly.ctx
	}
	return ctx
}

func (l *Listener) classParent(ctx context.Context) context.Context {
	if l.class.ctx != nil {
		return l.class.ctx
	}
	return l.parent(ctx)
}

func setSummary(span trace.Span, s reporting.ExecutionSummary) {
	span.SetAttributes(
		attribute.Int("test.passed", s.Passed),
		attribute.Int("test.failed", s.Failed),
		attribute.Int("test.skipped", s.Skipped),
	)
}
