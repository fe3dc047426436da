package oteltrace

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-logr/zapr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/exportqueue"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/zaplogger"
)

func TestSetupWithoutEndpointIsDisabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	p, err := Setup(context.Background(), Config{ServiceName: "paymentapi"}, zaplogger.New(zap.New(core)), nil)
	require.NoError(t, err)

	assert.False(t, p.Enabled())
	assert.NotNil(t, p.Propagator())

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "tracing_disabled", warnings[0].Message)

	assert.NoError(t, p.ForceFlush(context.Background()))
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDisabledPipelineHandlesManySpans(t *testing.T) {
	p, err := Setup(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)

	tracer := p.Tracer("")
	for i := 0; i < 10_000; i++ {
		_, span := tracer.Start(context.Background(), "noop")
		span.End()
		span.End()
	}
	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestDisabledPipelineStillPropagates(t *testing.T) {
	p, err := Setup(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)

	in := http.Header{}
	in.Set("traceparent", validTraceparent)
	ctx := p.Propagator().Extract(context.Background(), in)

	ctx, span := p.Tracer("").Start(ctx, "child")
	defer span.End()

	out := http.Header{}
	p.Propagator().Inject(ctx, out)
	assert.Contains(t, out.Get("traceparent"), validTraceID)
}

func TestSetupWithEndpointIsEnabled(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)

	p, err := Setup(context.Background(), Config{
		ServiceName: "paymentapi",
		Endpoint:    "http://127.0.0.1:4317",
	}, zaplogger.New(zap.New(core)), nil)
	require.NoError(t, err)

	assert.True(t, p.Enabled())
	assert.Equal(t, 1, logs.FilterMessage("tracing_enabled").Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewPipelineRequiresExporter(t *testing.T) {
	_, err := NewPipeline(Config{}, nil, nil, nil)
	assert.Error(t, err)
}

func TestPipelineExportsSpanParentedToExtractedContext(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	p, err := NewPipeline(Config{
		ServiceName: "paymentapi-test",
		Environment: "test",
		Queue:       exportqueue.Options{Interval: time.Hour},
	}, exp, nil, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	in := http.Header{}
	in.Set("traceparent", validTraceparent)
	ctx := p.Propagator().Extract(context.Background(), in)

	_, span := p.Tracer("").StartServer(ctx, "hello")
	span.End()
	span.End()

	_, root := p.Tracer("").Start(context.Background(), "root")
	root.End()

	require.NoError(t, p.ForceFlush(context.Background()))
	spans := exp.GetSpans()
	require.Len(t, spans, 2)

	hello := spans[0]
	assert.Equal(t, "hello", hello.Name)
	assert.Equal(t, trace.SpanKindServer, hello.SpanKind)
	assert.Equal(t, validTraceID, hello.SpanContext.TraceID().String())
	assert.Equal(t, validSpanID, hello.Parent.SpanID().String())
	assert.True(t, hello.Parent.IsRemote())
	assert.Equal(t, "paymentapi-test", hello.InstrumentationScope.Name)
	assert.Contains(t, hello.Resource.Attributes(), semconv.ServiceName("paymentapi-test"))
	assert.Contains(t, hello.Resource.Attributes(), semconv.DeploymentEnvironment("test"))

	rootStub := spans[1]
	assert.False(t, rootStub.Parent.IsValid())
	assert.NotEqual(t, validTraceID, rootStub.SpanContext.TraceID().String())
}

func TestInstallGlobal(t *testing.T) {
	prevProp := otel.GetTextMapPropagator()
	prevTP := otel.GetTracerProvider()
	t.Cleanup(func() {
		otel.SetTextMapPropagator(prevProp)
		otel.SetTracerProvider(prevTP)
	})

	p, err := Setup(context.Background(), Config{}, nil, nil)
	require.NoError(t, err)

	core, _ := observer.New(zapcore.InfoLevel)
	p.InstallGlobal(zapr.NewLogger(zap.New(core)))

	in := http.Header{}
	in.Set("traceparent", validTraceparent)
	ctx := otel.GetTextMapPropagator().Extract(context.Background(), propagation.HeaderCarrier(in))
	sc, ok := RemoteParent(ctx)
	require.True(t, ok)
	assert.Equal(t, validTraceID, sc.TraceID().String())
}
