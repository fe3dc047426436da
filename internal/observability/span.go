package observability

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span guards an OpenTelemetry span so that End takes effect exactly once,
// however many exit paths call it. A Span wrapping nil is valid and records nothing.
type Span struct {
	span  trace.Span
	once  sync.Once
	ended atomic.Bool
}

// NewSpan wraps s.
func NewSpan(s trace.Span) *Span {
	return &Span{span: s}
}

// End closes the span. Only the first call is forwarded to the underlying span.
func (s *Span) End(opts ...trace.SpanEndOption) {
	if s == nil {
		return
	}
	s.once.Do(func() {
		s.ended.Store(true)
		if s.span != nil {
			s.span.End(opts...)
		}
	})
}

// Ended reports whether End has been called.
func (s *Span) Ended() bool {
	return s != nil && s.ended.Load()
}

func (s *Span) SpanContext() trace.SpanContext {
	if s == nil || s.span == nil {
		return trace.SpanContext{}
	}
	return s.span.SpanContext()
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	if s.live() {
		s.span.SetAttributes(attrs...)
	}
}

func (s *Span) AddEvent(name string, attrs ...attribute.KeyValue) {
	if s.live() {
		s.span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

func (s *Span) RecordError(err error) {
	if err != nil && s.live() {
		s.span.RecordError(err)
	}
}

func (s *Span) SetStatus(code codes.Code, description string) {
	if s.live() {
		s.span.SetStatus(code, description)
	}
}

func (s *Span) live() bool {
	return s != nil && s.span != nil && !s.ended.Load()
}

// InSpan runs body inside a span named name. The span is ended on every exit
// path, including a panic in body, which is recorded and then re-raised.
// body's result and error are returned unchanged.
func InSpan[T any](
	ctx context.Context,
	tracer Tracer,
	name string,
	body func(ctx context.Context) (T, error),
	attrs ...attribute.KeyValue,
) (result T, err error) {
	if tracer == nil {
		tracer = NopTracer()
	}
	ctx, span := tracer.Start(ctx, name, attrs...)
	defer func() {
		if r := recover(); r != nil {
			span.RecordError(fmt.Errorf("panic: %v", r))
			span.SetStatus(codes.Error, "panic")
			span.End()
			panic(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	return body(ctx)
}
