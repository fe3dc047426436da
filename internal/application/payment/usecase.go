package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flcdrg/aspire-non-dotnet/internal/application"
	dompay "github.com/flcdrg/aspire-non-dotnet/internal/domain/payment"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	paymentService        = "payment-service"
	useCasePaymentProcess = "payment.process"
	SpanName              = "process_payment"
)

type ProcessPaymentInput struct {
	Amount float64
}

type ProcessPaymentResult struct {
	Status dompay.Status
}

type ProcessPaymentUseCase struct {
	approver   dompay.Approver
	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.BoundHistogram
	decisions  observability.Counter
}

var _ application.UseCase[ProcessPaymentInput, *ProcessPaymentResult] = (*ProcessPaymentUseCase)(nil)

func NewProcessPaymentUseCase(approver dompay.Approver, tel observability.Observability) *ProcessPaymentUseCase {
	baseLog := observability.NopLogger().With(
		observability.F("service", paymentService),
	)
	metricsProvider := observability.NopMetrics()
	if tel != nil {
		baseLog = tel.Logger().With(
			observability.F("service", paymentService),
		)
		metricsProvider = tel.Metrics()
	}

	return &ProcessPaymentUseCase{
		approver:   approver,
		tel:        tel,
		log:        baseLog,
		reqCounter: metricsProvider.Counter(observability.MUsecaseRequests),
		durHist:    metricsProvider.Histogram(observability.MUsecaseDuration).Bind(observability.L("use_case", useCasePaymentProcess)),
		decisions:  metricsProvider.Counter(observability.MPaymentDecisions),
	}
}

// Execute validates the amount and asks the approver for a decision. A decline
// is a successful execution; only invalid input and approver failures are errors.
func (uc *ProcessPaymentUseCase) Execute(ctx context.Context, cmd ProcessPaymentInput) (_ *ProcessPaymentResult, err error) {
	logger := logctx.FromOr(ctx, uc.log).With(
		observability.F("use_case", useCasePaymentProcess),
		observability.F("amount", cmd.Amount),
	)

	tracer := observability.NopTracer()
	if uc.tel != nil {
		tracer = uc.tel.Tracer()
	}

	ctx, span := tracer.StartServer(ctx, SpanName,
		attribute.String("use_case", useCasePaymentProcess),
		attribute.Float64("payment.amount", cmd.Amount),
	)
	start := time.Now()
	outcome, statusText := "success", "OK"
	result := &ProcessPaymentResult{}

	defer func() {
		if result.Status != "" {
			span.SetAttributes(attribute.String("payment.status", string(result.Status)))
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, statusText)
		} else {
			span.SetStatus(codes.Ok, statusText)
		}
		span.End()

		latency := time.Since(start).Seconds()
		uc.reqCounter.Add(1,
			observability.L("use_case", useCasePaymentProcess),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(latency)
		if result.Status != "" {
			uc.decisions.Add(1, observability.L("status", string(result.Status)))
		}

		fields := []observability.Field{
			observability.F("outcome", outcome),
			observability.F("status", statusText),
			observability.F("latency_seconds", latency),
		}
		if result.Status != "" {
			fields = append(fields, observability.F("payment_status", string(result.Status)))
		}
		if sc := span.SpanContext(); sc.IsValid() {
			fields = append(fields,
				observability.F("trace_id", sc.TraceID().String()),
				observability.F("span_id", sc.SpanID().String()),
			)
		}
		if err != nil {
			fields = append(fields, observability.F("error", err.Error()))
		}
		logger.Info("use_case_done", fields...)
	}()

	if err = dompay.ValidateAmount(cmd.Amount); err != nil {
		outcome, statusText = "error", "AMOUNT_INVALID"
		return nil, err
	}
	if uc.approver == nil {
		outcome, statusText = "error", "APPROVER_MISSING"
		return nil, errors.New("payment: no approver configured")
	}

	approved, err := uc.approver.Decide(ctx, cmd.Amount)
	if err != nil {
		outcome, statusText = "error", "APPROVAL_FAILED"
		return nil, fmt.Errorf("payment: approval: %w", err)
	}
	span.AddEvent("approval_decided", attribute.Bool("payment.approved", approved))

	result.Status = dompay.StatusFor(approved)
	if result.Status == dompay.StatusDeclined {
		statusText = "DECLINED"
	}
	return result, nil
}
