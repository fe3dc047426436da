package prometrics

import (
	"sync"

	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
)

// Registry exposes the subset of Prometheus registry functionality needed by the application.
type Registry interface {
	Counter(name string, help string, labelKeys ...string) observability.Counter
	Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram
}

type registry struct {
	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	histograms map[string]*prometheus.HistogramVec
	reg        prometheus.Registerer
	namespace  string
	subsystem  string
}

// New returns a Registry that registers its vectors on reg. A nil reg means
// prometheus.DefaultRegisterer.
func New(reg prometheus.Registerer, namespace, subsystem string) Registry {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	return &registry{
		counters:   make(map[string]*prometheus.CounterVec),
		histograms: make(map[string]*prometheus.HistogramVec),
		reg:        reg,
		namespace:  namespace,
		subsystem:  subsystem,
	}
}

type counter struct{ v *prometheus.CounterVec }

func (c *counter) Add(d float64, labels ...observability.Label) {
	c.v.With(labelMap(labels)).Add(d)
}

func (c *counter) Bind(labels ...observability.Label) observability.BoundCounter {
	return &boundCounter{c: c.v.With(labelMap(labels))}
}

type boundCounter struct {
	c prometheus.Counter
}

func (c *boundCounter) Add(d float64) {
	if c == nil || c.c == nil {
		return
	}
	c.c.Add(d)
}

type histogram struct{ v *prometheus.HistogramVec }

func (h *histogram) Observe(v float64, labels ...observability.Label) {
	h.v.With(labelMap(labels)).Observe(v)
}

func (h *histogram) Bind(labels ...observability.Label) observability.BoundHistogram {
	return &boundHistogram{o: h.v.With(labelMap(labels))}
}

type boundHistogram struct {
	o prometheus.Observer
}

func (h *boundHistogram) Observe(v float64) {
	if h == nil || h.o == nil {
		return
	}
	h.o.Observe(v)
}

func labelMap(ls []observability.Label) prometheus.Labels {
	m := make(prometheus.Labels, len(ls))
	for _, l := range ls {
		m[l.Key] = l.Value
	}
	return m
}

func (r *registry) Counter(name string, help string, labelKeys ...string) observability.Counter {
	r.mu.Lock()
	defer r.mu.Unlock()
	// ensure only registered once
	if cv, ok := r.counters[name]; ok {
		return &counter{v: cv}
	}
	cv := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help,
	}, labelKeys)
	r.reg.MustRegister(cv)
	r.counters[name] = cv
	return &counter{v: cv}
}

func (r *registry) Histogram(name string, help string, buckets []float64, labelKeys ...string) observability.Histogram {
	r.mu.Lock()
	defer r.mu.Unlock()
	if hv, ok := r.histograms[name]; ok {
		return &histogram{v: hv}
	}
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}
	hv := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: r.namespace, Subsystem: r.subsystem, Name: name, Help: help, Buckets: buckets,
	}, labelKeys)
	r.reg.MustRegister(hv)
	r.histograms[name] = hv
	return &histogram{v: hv}
}

// Standard registers every instrument the service records and returns them keyed
// for observability.New.
func Standard(r Registry) (map[observability.MetricKey]observability.Counter, map[observability.MetricKey]observability.Histogram) {
	counters := map[observability.MetricKey]observability.Counter{
		observability.MHTTPRequests: r.Counter(string(observability.MHTTPRequests),
			"Total number of HTTP requests.", "method", "route", "status"),
		observability.MUsecaseRequests: r.Counter(string(observability.MUsecaseRequests),
			"Total number of use case invocations.", "use_case", "outcome"),
		observability.MPaymentDecisions: r.Counter(string(observability.MPaymentDecisions),
			"Payment approval decisions by resulting status.", "status"),
		observability.MSpansExported: r.Counter(string(observability.MSpansExported),
			"Spans handed to the trace exporter successfully."),
		observability.MSpansDropped: r.Counter(string(observability.MSpansDropped),
			"Spans dropped because the export queue was full or closed."),
		observability.MSpanExportFailures: r.Counter(string(observability.MSpanExportFailures),
			"Failed span export batches."),
	}
	histograms := map[observability.MetricKey]observability.Histogram{
		observability.MHTTPRequestDuration: r.Histogram(string(observability.MHTTPRequestDuration),
			"Duration of HTTP requests in seconds.", nil, "method", "route", "status"),
		observability.MUsecaseDuration: r.Histogram(string(observability.MUsecaseDuration),
			"Duration of use case execution in seconds.", nil, "use_case"),
	}
	return counters, histograms
}
