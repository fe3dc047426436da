package httppresentation

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/flcdrg/aspire-non-dotnet/internal/application"
	"github.com/flcdrg/aspire-non-dotnet/internal/application/greeting"
	appPayment "github.com/flcdrg/aspire-non-dotnet/internal/application/payment"
	domainPayment "github.com/flcdrg/aspire-non-dotnet/internal/domain/payment"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/oteltrace"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	maxBodyBytes         = 1 << 20
)

type (
	GreetUseCase   = application.UseCase[greeting.GreetInput, *greeting.GreetResult]
	PaymentUseCase = application.UseCase[appPayment.ProcessPaymentInput, *appPayment.ProcessPaymentResult]
)

type Handler struct {
	greet      GreetUseCase
	pay        PaymentUseCase
	propagator *oteltrace.Propagator
	log        observability.Logger
	metrics    observability.Metrics
}

func NewHandler(
	greet GreetUseCase,
	pay PaymentUseCase,
	propagator *oteltrace.Propagator,
	tel observability.Observability,
) *Handler {
	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}
	if propagator == nil {
		propagator = oteltrace.NewPropagator()
	}
	return &Handler{
		greet:      greet,
		pay:        pay,
		propagator: propagator,
		log:        logger.With(observability.F("component", componentHTTPHandler)),
		metrics:    metrics,
	}
}

// Router wires every route behind the middleware chain:
// trace context → request logger → HTTP metrics → access log → handler.
// A nil metricsHandler leaves /metrics unrouted.
func (h *Handler) Router(metricsHandler http.Handler) http.Handler {
	r := mux.NewRouter()
	r.Use(h.withTraceContext, h.withRequestLogger, h.withHTTPMetrics, h.withAccessLog)

	r.HandleFunc("/hello/{name}", h.handleHello).Methods(http.MethodGet)
	r.HandleFunc("/payment", h.handlePayment).Methods(http.MethodPost)
	r.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler).Methods(http.MethodGet)
	}

	return r
}

func (h *Handler) handleHello(w http.ResponseWriter, r *http.Request) {
	res, err := h.greet.Execute(r.Context(), greeting.GreetInput{Name: mux.Vars(r)["name"]})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(res.Message))
}

type processPaymentRequest struct {
	TotalAmount *float64 `json:"total_amount"`
}

type processPaymentResponse struct {
	Status domainPayment.Status `json:"status"`
}

var errMissingAmount = errors.New("total_amount is required")

func (h *Handler) handlePayment(w http.ResponseWriter, r *http.Request) {
	var req processPaymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logctx.FromOr(r.Context(), h.log).Warn("payment_request_invalid", observability.F("error", err))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.TotalAmount == nil {
		writeError(w, http.StatusBadRequest, errMissingAmount)
		return
	}

	res, err := h.pay.Execute(r.Context(), appPayment.ProcessPaymentInput{Amount: *req.TotalAmount})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, processPaymentResponse{Status: res.Status})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domainPayment.ErrInvalidAmount),
		errors.Is(err, greeting.ErrNameRequired):
		writeError(w, http.StatusBadRequest, err)
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}
