package httppresentation

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/oteltrace"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability/logctx"
)

const unknownRoute = "unknown"

// withTraceContext extracts the W3C trace context of the caller. It starts no
// span: the use case owns the single span of each request.
func (h *Handler) withTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := h.propagator.Extract(r.Context(), r.Header)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withRequestLogger echoes or generates X-Request-ID and stores a request-scoped
// logger carrying the request id and the remote parent, if any.
func (h *Handler) withRequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := r.Header.Get(headerRequestID)
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set(headerRequestID, rid)

		fields := []observability.Field{observability.F("request_id", rid)}
		if sc, ok := oteltrace.RemoteParent(r.Context()); ok {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		ctx := logctx.Enrich(r.Context(), h.log, fields...)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// withHTTPMetrics records request count and latency labelled by route template.
func (h *Handler) withHTTPMetrics(next http.Handler) http.Handler {
	requests := h.metrics.Counter(observability.MHTTPRequests)
	durations := h.metrics.Histogram(observability.MHTTPRequestDuration)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newStatusRecorder(w)

		next.ServeHTTP(lrw, r)

		labels := []observability.Label{
			observability.L("method", r.Method),
			observability.L("route", routeTemplate(r)),
			observability.L("status", strconv.Itoa(lrw.status)),
		}
		requests.Add(1, labels...)
		durations.Observe(time.Since(start).Seconds(), labels...)
	})
}

// withAccessLog writes a single access log after the handler completes.
func (h *Handler) withAccessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := newStatusRecorder(w)

		next.ServeHTTP(lrw, r)

		logctx.FromOr(r.Context(), h.log).Info("http_access",
			observability.F("method", r.Method),
			observability.F("route", routeTemplate(r)),
			observability.F("path", r.URL.Path),
			observability.F("status", lrw.status),
			observability.F("bytes", lrw.bytes),
			observability.F("latency_ms", time.Since(start).Milliseconds()),
		)
	})
}

// routeTemplate keeps metric labels low-cardinality: /hello/{name}, not /hello/Ada.
func routeTemplate(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return unknownRoute
	}
	tpl, err := route.GetPathTemplate()
	if err != nil || tpl == "" {
		return unknownRoute
	}
	return tpl
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.status = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	w.wroteHeader = true
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}
