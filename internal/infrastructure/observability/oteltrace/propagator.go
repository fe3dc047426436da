package oteltrace

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Propagator reads and writes W3C trace context (traceparent, tracestate) and
// W3C baggage on HTTP headers. It is immutable after construction and safe for
// concurrent use.
type Propagator struct {
	tm propagation.TextMapPropagator
}

// NewPropagator returns the composite W3C trace-context and baggage propagator.
func NewPropagator() *Propagator {
	return &Propagator{
		tm: propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	}
}

// Extract returns ctx carrying the remote parent found in h. Missing or
// malformed headers are not an error: ctx comes back without a parent.
// With several traceparent values the first one is used.
func (p *Propagator) Extract(ctx context.Context, h http.Header) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return p.tm.Extract(ctx, ExtractionCarrier(h))
}

// Inject writes the span context held by ctx into h. It does nothing when ctx
// has no valid span context.
func (p *Propagator) Inject(ctx context.Context, h http.Header) {
	if ctx == nil || h == nil {
		return
	}
	p.tm.Inject(ctx, HeaderCarrier(h))
}

// Fields lists the header names this propagator reads and writes.
func (p *Propagator) Fields() []string {
	return p.tm.Fields()
}

// TextMap exposes the underlying propagator, e.g. for otel.SetTextMapPropagator.
func (p *Propagator) TextMap() propagation.TextMapPropagator {
	return p.tm
}

// RemoteParent reports the upstream span context extracted into ctx, if any.
func RemoteParent(ctx context.Context) (trace.SpanContext, bool) {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() || !sc.IsRemote() {
		return trace.SpanContext{}, false
	}
	return sc, true
}
