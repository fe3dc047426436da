package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/go-logr/zapr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/flcdrg/aspire-non-dotnet/internal/application/greeting"
	appPayment "github.com/flcdrg/aspire-non-dotnet/internal/application/payment"
	"github.com/flcdrg/aspire-non-dotnet/internal/config"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/approval"
	infraobs "github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/oteltrace"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/prometrics"
	"github.com/flcdrg/aspire-non-dotnet/internal/infrastructure/observability/zaplogger"
	"github.com/flcdrg/aspire-non-dotnet/internal/observability"
	"github.com/flcdrg/aspire-non-dotnet/internal/pkg/logging"
	httppresentation "github.com/flcdrg/aspire-non-dotnet/internal/presentation/http"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

var rootCmd = &cobra.Command{
	Use:           "paymentapi",
	Short:         "Payment API with OpenTelemetry tracing",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return serve(cmd.Context())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the paymentapi version",
	Run: func(cmd *cobra.Command, _ []string) {
		version := Version
		if info, ok := debug.ReadBuildInfo(); ok && version == "dev" && info.Main.Version != "" {
			version = info.Main.Version
		}
		cmd.Println(version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "paymentapi:", err)
		stop()
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, warnings := config.Load(os.LookupEnv)

	baseLogger, err := logging.NewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Environment,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)
	logger := zaplogger.New(systemLogger)
	reportConfigWarnings(logger, warnings)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := infraobs.NewMetrics(prometrics.Standard(prometrics.New(reg, "", "")))

	pipeline, err := oteltrace.Setup(ctx, oteltrace.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		Endpoint:    cfg.OTLPEndpoint,
	}, logger, metrics)
	if err != nil {
		return fmt.Errorf("set up tracing: %w", err)
	}
	defer func() {
		// The serve context is already cancelled here.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := pipeline.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing_shutdown_error", observability.F("error", err))
		}
	}()
	pipeline.InstallGlobal(zapr.NewLogger(baseLogger))

	tracer := pipeline.Tracer("")
	tel := infraobs.New(tracer, logger, metrics)

	handler := httppresentation.NewHandler(
		greeting.NewGreetUseCase(tel),
		appPayment.NewProcessPaymentUseCase(approval.NewRandom(cfg.ApprovalRate), tel),
		pipeline.Propagator(),
		tel,
	)

	listener, err := net.Listen("tcp", cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Addr(), err)
	}

	server := &http.Server{
		Handler:           handler.Router(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
		ReadHeaderTimeout: 10 * time.Second,
	}

	_, _ = observability.InSpan(ctx, tracer, "startup", func(context.Context) (struct{}, error) {
		logger.Info("http_server_start",
			observability.F("addr", listener.Addr().String()),
			observability.F("tracing_enabled", pipeline.Enabled()),
		)
		return struct{}{}, nil
	})

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			logger.Error("http_server_error", observability.F("error", err))
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", observability.F("error", err))
	} else {
		logger.Info("http_server_stopped")
	}
	return nil
}

func reportConfigWarnings(logger observability.Logger, warnings []string) {
	for _, w := range warnings {
		logger.Warn("config_invalid_value", observability.F("detail", w))
	}
}
