package oteltrace

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"

	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/exportqueue"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
)

const componentTracing = "tracing"

// Config describes the export pipeline. An empty Endpoint disables export.
type Config struct {
	ServiceName string
	Environment string
	// Endpoint is OTEL_EXPORTER_OTLP_ENDPOINT, used verbatim.
	Endpoint string
	Queue    exportqueue.Options
}

// Pipeline owns the propagator and tracer provider of the process. Both are
// fixed at construction and may be shared by all request goroutines.
type Pipeline struct {
	propagator *Propagator
	provider   trace.TracerProvider
	sdk        *sdktrace.TracerProvider
	name       string
	log        observability.Logger
}

// Setup builds the pipeline described by cfg. Without an endpoint it returns a
// disabled pipeline and logs a single warning. With an endpoint, any failure to
// build the exporter is returned; the caller must not start serving.
func Setup(ctx context.Context, cfg Config, logger observability.Logger, metrics observability.Metrics) (*Pipeline, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}
	log := logger.With(observability.F("component", componentTracing))

	if strings.TrimSpace(cfg.Endpoint) == "" {
		log.Warn("tracing_disabled",
			observability.F("reason", "OTEL_EXPORTER_OTLP_ENDPOINT not set; traces will not be exported"),
		)
		return &Pipeline{
			propagator: NewPropagator(),
			provider:   noop.NewTracerProvider(),
			name:       tracerName(cfg),
			log:        log,
		}, nil
	}

	exporter, err := newGRPCExporter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	p, err := NewPipeline(cfg, exporter, logger, metrics)
	if err != nil {
		_ = exporter.Shutdown(ctx)
		return nil, err
	}
	log.Info("tracing_enabled",
		observability.F("endpoint", cfg.Endpoint),
		observability.F("service_name", p.name),
	)
	return p, nil
}

// NewPipeline builds an enabled pipeline exporting through exporter.
func NewPipeline(cfg Config, exporter sdktrace.SpanExporter, logger observability.Logger, metrics observability.Metrics) (*Pipeline, error) {
	if exporter == nil {
		return nil, errors.New("oteltrace: nil span exporter")
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	attrs := []attribute.KeyValue{semconv.ServiceName(tracerName(cfg))}
	if cfg.Environment != "" {
		attrs = append(attrs, semconv.DeploymentEnvironment(cfg.Environment))
	}
	res := resource.NewSchemaless(attrs...)

	processor := exportqueue.New(exporter, cfg.Queue, logger, metrics)
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(processor),
	)

	return &Pipeline{
		propagator: NewPropagator(),
		provider:   tp,
		sdk:        tp,
		name:       tracerName(cfg),
		log:        logger.With(observability.F("component", componentTracing)),
	}, nil
}

func newGRPCExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	opts := append(endpointOptions(cfg.Endpoint),
		otlptracegrpc.WithDialOption(grpc.WithUserAgent(tracerName(cfg))),
		otlptracegrpc.WithTimeout(10*time.Second),
	)

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("oteltrace: create OTLP exporter for %q: %w", cfg.Endpoint, err)
	}
	return exporter, nil
}

func tracerName(cfg Config) string {
	if cfg.ServiceName == "" {
		return DefaultTracerName
	}
	return cfg.ServiceName
}

// Enabled reports whether spans are exported.
func (p *Pipeline) Enabled() bool {
	return p.sdk != nil
}

func (p *Pipeline) Propagator() *Propagator {
	return p.propagator
}

func (p *Pipeline) TracerProvider() trace.TracerProvider {
	return p.provider
}

// Tracer returns a tracer for the named instrumentation scope; an empty name
// means the service name.
func (p *Pipeline) Tracer(name string) observability.Tracer {
	if name == "" {
		name = p.name
	}
	return New(p.provider, name)
}

// InstallGlobal publishes the propagator and provider through the otel global
// API and routes OpenTelemetry's own diagnostics to log.
func (p *Pipeline) InstallGlobal(log logr.Logger) {
	otel.SetTextMapPropagator(p.propagator.TextMap())
	otel.SetTracerProvider(p.provider)
	otel.SetLogger(log.WithName("otel"))
	otel.SetErrorHandler(otel.ErrorHandlerFunc(func(err error) {
		p.log.Warn("otel_error", observability.F("error", err))
	}))
}

// ForceFlush exports every span ended so far, bounded by ctx.
func (p *Pipeline) ForceFlush(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	return p.sdk.ForceFlush(ctx)
}

// Shutdown flushes ended spans and stops the exporter, bounded by ctx.
// It is a no-op for a disabled pipeline.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	if p.sdk == nil {
		return nil
	}
	flushErr := p.ForceFlush(ctx)
	if err := p.sdk.Shutdown(ctx); err != nil {
		return errors.Join(flushErr, err)
	}
	return flushErr
}
