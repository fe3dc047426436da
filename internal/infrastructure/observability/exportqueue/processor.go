// Package exportqueue hands ended spans from request goroutines to a single
// background exporter through a bounded queue.
package exportqueue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	componentExportQueue = "span_export_queue"

	DefaultQueueSize     = 2048
	DefaultBatchSize     = 512
	DefaultInterval      = 5 * time.Second
	DefaultExportTimeout = 30 * time.Second
)

// Options tunes the queue. Zero values take the defaults above.
type Options struct {
	QueueSize     int
	BatchSize     int
	Interval      time.Duration
	ExportTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = DefaultQueueSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchSize > o.QueueSize {
		o.BatchSize = o.QueueSize
	}
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.ExportTimeout <= 0 {
		o.ExportTimeout = DefaultExportTimeout
	}
	return o
}

type flushRequest struct {
	ctx   context.Context
	reply chan error
}

// Processor is an sdktrace.SpanProcessor. OnEnd never blocks: when the queue
// is full the span is dropped and counted. Exports happen on one goroutine,
// either when a batch fills up, on every interval tick, or on ForceFlush.
type Processor struct {
	exporter sdktrace.SpanExporter
	opts     Options

	queue   chan sdktrace.ReadOnlySpan
	flushes chan flushRequest
	stop    chan context.Context
	done    chan struct{}

	stopOnce sync.Once
	// mu orders enqueues before the stop signal: once stopped is set under
	// the write lock, no OnEnd can still be sending to queue.
	mu      sync.RWMutex
	stopped bool

	log      observability.Logger
	exported observability.BoundCounter
	dropped  observability.BoundCounter
	failures observability.BoundCounter
}

var _ sdktrace.SpanProcessor = (*Processor)(nil)

// New starts the export goroutine and returns the processor feeding it.
func New(exporter sdktrace.SpanExporter, opts Options, logger observability.Logger, metrics observability.Metrics) *Processor {
	if logger == nil {
		logger = observability.NopLogger()
	}
	if metrics == nil {
		metrics = observability.NopMetrics()
	}
	opts = opts.withDefaults()

	p := &Processor{
		exporter: exporter,
		opts:     opts,
		queue:    make(chan sdktrace.ReadOnlySpan, opts.QueueSize),
		flushes:  make(chan flushRequest),
		stop:     make(chan context.Context, 1),
		done:     make(chan struct{}),
		log:      logger.With(observability.F("component", componentExportQueue)),
		exported: metrics.Counter(observability.MSpansExported).Bind(),
		dropped:  metrics.Counter(observability.MSpansDropped).Bind(),
		failures: metrics.Counter(observability.MSpanExportFailures).Bind(),
	}
	go p.run()
	return p
}

func (p *Processor) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd enqueues s for export without blocking.
func (p *Processor) OnEnd(s sdktrace.ReadOnlySpan) {
	if s == nil || !s.SpanContext().IsSampled() {
		return
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		p.dropped.Add(1)
		return
	}
	select {
	case p.queue <- s:
	default:
		p.dropped.Add(1)
	}
}

// ForceFlush exports everything queued so far and waits for the result, or
// for ctx to expire.
func (p *Processor) ForceFlush(ctx context.Context) error {
	if p.isStopped() {
		return nil
	}
	req := flushRequest{ctx: ctx, reply: make(chan error, 1)}
	select {
	case p.flushes <- req:
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-req.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting spans, exports what is left and shuts the exporter
// down. Calls after the first return nil.
func (p *Processor) Shutdown(ctx context.Context) error {
	var err error
	p.stopOnce.Do(func() { err = p.shutdown(ctx) })
	return err
}

func (p *Processor) isStopped() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.stopped
}

func (p *Processor) shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.stopped = true
	p.mu.Unlock()
	p.stop <- ctx

	var err error
	select {
	case <-p.done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if shutdownErr := p.exporter.Shutdown(ctx); shutdownErr != nil {
		err = errors.Join(err, shutdownErr)
	}
	p.log.Info("span_export_queue_stopped")
	return err
}

func (p *Processor) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	// Exporters may keep the slice they are given, so a fresh batch is
	// allocated after every hand-off.
	newBatch := func() []sdktrace.ReadOnlySpan {
		return make([]sdktrace.ReadOnlySpan, 0, p.opts.BatchSize)
	}
	batch := newBatch()
	for {
		select {
		case s := <-p.queue:
			batch = append(batch, s)
			if len(batch) >= p.opts.BatchSize {
				_ = p.export(context.Background(), batch)
				batch = newBatch()
			}
		case <-ticker.C:
			if len(batch) > 0 {
				_ = p.export(context.Background(), batch)
				batch = newBatch()
			}
		case req := <-p.flushes:
			req.reply <- p.exportAll(req.ctx, p.drain(batch))
			batch = newBatch()
		case ctx := <-p.stop:
			_ = p.exportAll(ctx, p.drain(batch))
			return
		}
	}
}

// drain moves every span currently queued onto batch.
func (p *Processor) drain(batch []sdktrace.ReadOnlySpan) []sdktrace.ReadOnlySpan {
	for {
		select {
		case s := <-p.queue:
			batch = append(batch, s)
		default:
			return batch
		}
	}
}

func (p *Processor) exportAll(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	var errs []error
	for len(spans) > 0 {
		n := min(len(spans), p.opts.BatchSize)
		if err := p.export(ctx, spans[:n]); err != nil {
			errs = append(errs, err)
		}
		spans = spans[n:]
	}
	return errors.Join(errs...)
}

func (p *Processor) export(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	if len(spans) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.opts.ExportTimeout)
	defer cancel()

	if err := p.exporter.ExportSpans(ctx, spans); err != nil {
		p.failures.Add(1)
		p.log.Warn("span_export_failed",
			observability.F("spans", len(spans)),
			observability.F("error", err),
		)
		return err
	}
	p.exported.Add(float64(len(spans)))
	p.log.Debug("span_batch_exported", observability.F("spans", len(spans)))
	return nil
}
