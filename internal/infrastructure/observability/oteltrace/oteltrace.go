package oteltrace

import (
	"context"

	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// DefaultTracerName is the instrumentation scope used when none is given.
const DefaultTracerName = "paymentapi"

type tracer struct{ t trace.Tracer }

// New returns a Tracer bound to the instrumentation scope name on tp. A nil tp
// yields a tracer whose spans are no-ops.
func New(tp trace.TracerProvider, name string) observability.Tracer {
	if name == "" {
		name = DefaultTracerName
	}
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &tracer{t: tp.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *observability.Span) {
	ctx, span := t.t.Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, observability.NewSpan(span)
}

func (t *tracer) StartServer(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *observability.Span) {
	ctx, span := t.t.Start(ctx, name,
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
	)
	return ctx, observability.NewSpan(span)
}
