package oteltrace

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/trace"
)

const (
	validTraceparent = "00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01"
	validTraceID     = "0af7651916cd43dd8448eb211c80319c"
	validSpanID      = "b7ad6b7169203331"
)

func TestExtractWithoutTraceHeadersIsEmpty(t *testing.T) {
	p := NewPropagator()

	cases := map[string]http.Header{
		"nil":            nil,
		"empty":          {},
		"unrelated":      {"Accept": {"application/json"}, "X-Request-Id": {"abc"}},
		"tracestate only": {"Tracestate": {"vendor=1"}},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			ctx := p.Extract(context.Background(), h)
			_, ok := RemoteParent(ctx)
			assert.False(t, ok)
			assert.False(t, trace.SpanContextFromContext(ctx).IsValid())
		})
	}
}

func TestExtractMalformedTraceparentIsEmpty(t *testing.T) {
	p := NewPropagator()

	for _, v := range []string{
		"garbage",
		"00-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331",
		"00-00000000000000000000000000000000-b7ad6b7169203331-01",
		"00-0af7651916cd43dd8448eb211c80319c-0000000000000000-01",
		"00-0af7651916cd43dd8448eb211c80319c-b7ad6b71692033-01",
		"ff-0af7651916cd43dd8448eb211c80319c-b7ad6b7169203331-01",
		"00-0AF7651916CD43DD8448EB211C80319C-b7ad6b7169203331-01",
		validTraceparent + "," + validTraceparent,
	} {
		t.Run(v, func(t *testing.T) {
			h := http.Header{}
			h.Set("traceparent", v)
			_, ok := RemoteParent(p.Extract(context.Background(), h))
			assert.False(t, ok)
		})
	}
}

func TestExtractValidTraceparent(t *testing.T) {
	h := http.Header{}
	h.Set("Traceparent", validTraceparent)
	h.Set("Tracestate", "vendor=opaque")

	sc, ok := RemoteParent(NewPropagator().Extract(context.Background(), h))
	require.True(t, ok)
	assert.Equal(t, validTraceID, sc.TraceID().String())
	assert.Equal(t, validSpanID, sc.SpanID().String())
	assert.True(t, sc.IsSampled())
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "vendor=opaque", sc.TraceState().String())
}

func TestExtractUsesFirstTraceparent(t *testing.T) {
	h := http.Header{}
	h.Add("traceparent", validTraceparent)
	h.Add("traceparent", "00-11111111111111111111111111111111-2222222222222222-01")

	sc, ok := RemoteParent(NewPropagator().Extract(context.Background(), h))
	require.True(t, ok)
	assert.Equal(t, validTraceID, sc.TraceID().String())
}

func TestExtractThenInjectRoundTripsTraceID(t *testing.T) {
	p := NewPropagator()
	for _, tp := range []string{
		validTraceparent,
		"00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-00",
		"00-ffffffffffffffffffffffffffffffff-0123456789abcdef-01",
	} {
		t.Run(tp, func(t *testing.T) {
			in := http.Header{}
			in.Set("traceparent", tp)

			out := http.Header{}
			p.Inject(p.Extract(context.Background(), in), out)

			assert.Equal(t, tp, out.Get("traceparent"))
		})
	}
}

func TestExtractCarriesBaggage(t *testing.T) {
	h := http.Header{}
	h.Set("traceparent", validTraceparent)
	h.Set("baggage", "user.id=ada")

	ctx := NewPropagator().Extract(context.Background(), h)
	assert.Equal(t, "ada", baggage.FromContext(ctx).Member("user.id").Value())

	out := http.Header{}
	NewPropagator().Inject(ctx, out)
	assert.Equal(t, "user.id=ada", out.Get("baggage"))
}

func TestInjectEmptyContextWritesNothing(t *testing.T) {
	out := http.Header{}
	NewPropagator().Inject(context.Background(), out)
	assert.Empty(t, out)

	assert.NotPanics(t, func() { NewPropagator().Inject(context.Background(), nil) })
}

func TestExtractDoesNotMutateRequestHeaders(t *testing.T) {
	h := http.Header{}
	h.Set("traceparent", validTraceparent)
	before := h.Clone()

	_ = NewPropagator().Extract(context.Background(), h)
	assert.Equal(t, before, h)
}

func TestFields(t *testing.T) {
	assert.ElementsMatch(t, []string{"traceparent", "tracestate", "baggage"}, NewPropagator().Fields())
}
