package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
)

type nopLogger struct{}

func (nopLogger) With(_ ...Field) Logger { return nopLogger{} }
func (nopLogger) Debug(string, ...Field) {}
func (nopLogger) Info(string, ...Field)  {}
func (nopLogger) Warn(string, ...Field)  {}
func (nopLogger) Error(string, ...Field) {}

// NopLogger returns a logger that discards all logs. Useful as a safe fallback.
func NopLogger() Logger { return nopLogger{} }

type nopTracer struct{}

func (nopTracer) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, *Span) {
	return ctx, NewSpan(nil)
}

func (t nopTracer) StartServer(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, *Span) {
	return t.Start(ctx, name, attrs...)
}

// NopTracer returns a tracer that leaves the context untouched and hands out detached spans.
func NopTracer() Tracer { return nopTracer{} }

type nopCounter struct{}
type nopBoundCounter struct{}

func (nopCounter) Add(float64, ...Label)      {}
func (nopCounter) Bind(...Label) BoundCounter { return nopBoundCounter{} }
func (nopBoundCounter) Add(float64)           {}

type nopHistogram struct{}
type nopBoundHistogram struct{}

func (nopHistogram) Observe(float64, ...Label)    {}
func (nopHistogram) Bind(...Label) BoundHistogram { return nopBoundHistogram{} }
func (nopBoundHistogram) Observe(float64)         {}

// NopCounter returns a counter that drops every observation.
func NopCounter() Counter { return nopCounter{} }

// NopHistogram returns a histogram that drops every observation.
func NopHistogram() Histogram { return nopHistogram{} }

type nopMetrics struct{}

func (nopMetrics) Counter(MetricKey) Counter     { return nopCounter{} }
func (nopMetrics) Histogram(MetricKey) Histogram { return nopHistogram{} }

// NopMetrics returns a metrics provider whose instruments discard everything.
func NopMetrics() Metrics { return nopMetrics{} }
