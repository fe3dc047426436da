package greeting

import (
	"context"
	"errors"
	"time"

	"github.com/flcdrg/aspire-non-dotnet/internal/application"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	useCaseGreet = "greeting.hello"
	SpanName     = "hello"
)

var ErrNameRequired = errors.New("greeting: name is required")

type GreetInput struct {
	Name string
}

type GreetResult struct {
	Message string
}

type GreetUseCase struct {
	tel        observability.Observability
	log        observability.Logger
	reqCounter observability.Counter
	durHist    observability.BoundHistogram
}

var _ application.UseCase[GreetInput, *GreetResult] = (*GreetUseCase)(nil)

func NewGreetUseCase(tel observability.Observability) *GreetUseCase {
	logger := observability.NopLogger()
	metrics := observability.NopMetrics()
	if tel != nil {
		logger = tel.Logger()
		metrics = tel.Metrics()
	}
	return &GreetUseCase{
		tel:        tel,
		log:        logger,
		reqCounter: metrics.Counter(observability.MUsecaseRequests),
		durHist:    metrics.Histogram(observability.MUsecaseDuration).Bind(observability.L("use_case", useCaseGreet)),
	}
}

// Execute builds the greeting for cmd.Name inside a server span named hello.
func (uc *GreetUseCase) Execute(ctx context.Context, cmd GreetInput) (_ *GreetResult, err error) {
	tracer := observability.NopTracer()
	if uc.tel != nil {
		tracer = uc.tel.Tracer()
	}

	ctx, span := tracer.StartServer(ctx, SpanName,
		attribute.String("use_case", useCaseGreet),
		attribute.String("greeting.name", cmd.Name),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()

		uc.reqCounter.Add(1,
			observability.L("use_case", useCaseGreet),
			observability.L("outcome", outcome),
		)
		uc.durHist.Observe(time.Since(start).Seconds())
		logctx.FromOr(ctx, uc.log).Debug("use_case_done",
			observability.F("use_case", useCaseGreet),
			observability.F("outcome", outcome),
		)
	}()

	if cmd.Name == "" {
		return nil, ErrNameRequired
	}
	return &GreetResult{Message: "Hello " + cmd.Name + "!"}, nil
}
