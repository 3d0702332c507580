package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/ledgerdash-backend/internal/adapter/grpc"
	"github.com/simaogato/ledgerdash-backend/internal/adapter/identity"
	"github.com/simaogato/ledgerdash-backend/internal/config"
	"github.com/simaogato/ledgerdash-backend/internal/logger"
	"github.com/simaogato/ledgerdash-backend/internal/metrics"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/dashboard"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/scheduler"
	"github.com/simaogato/ledgerdash-backend/internal/usecase/session"
)

func main() {
	// 1. Load configuration and logger
	cfg, err := config.Load()
	if err != nil {
		// Logger config is not known yet
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("Failed to load config")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited")
	}
}

// run wires and serves the dashboard until a shutdown signal arrives
// Errors are returned rather than fatal so deferred connection closes always run.
func run(cfg *config.Config, log zerolog.Logger) error {
	// 2. Setup metrics registry
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)

	// 3. Initialize adapters (ledgers, oracle, alert rule)
	ctx := context.Background()

	ledgers, closeLedgers, err := buildLedgers(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize ledgers: %w", err)
	}
	defer closeLedgers()

	oracle, closeOracle, err := buildOracle(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize price oracle: %w", err)
	}
	defer closeOracle()

	evaluator := buildEvaluator(cfg)

	// 4. Initialize Services (Use Cases)
	sessionService := session.NewSessionService(identity.NewKeypairProvider(), ledgers, cfg.QueryTimeout, log)

	dashboardService := dashboard.NewDashboardService(sessionService, oracle, evaluator, m, dashboard.Options{
		PriceInterval:    cfg.PriceInterval,
		PulseInterval:    cfg.PulseInterval,
		HistoryCapacity:  cfg.HistoryCapacity,
		StickyAlerts:     cfg.StickyAlerts,
		FailureThreshold: cfg.FailureThreshold,
		Overlap:          scheduler.OverlapPolicy(cfg.TickOverlap),
	}, log)

	if err := dashboardService.Activate(); err != nil {
		return fmt.Errorf("failed to activate dashboard: %w", err)
	}
	defer dashboardService.Deactivate()

	// 5. Start metrics endpoint
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.MetricsAddr).Msg("Metrics server listening")
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	// 6. Start gRPC Server
	grpcServer := grpclib.NewServer(
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(cfg.APIToken)),
		grpclib.StreamInterceptor(grpcadapter.StreamAuthInterceptor(cfg.APIToken)),
	)

	grpcadapter.RegisterDashboardServiceServer(grpcServer, grpcadapter.NewServer(dashboardService, log))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		_ = metricsServer.Close()
		return fmt.Errorf("failed to listen on %s: %w", cfg.GRPCAddr, err)
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.GRPCAddr).Msg("gRPC server listening")
		serveErr <- grpcServer.Serve(lis)
	}()

	// Graceful shutdown
	return waitForShutdown(log, serveErr, grpcServer, metricsServer, dashboardService)
}

// waitForShutdown waits for SIGTERM, SIGINT or a serve failure and gracefully shuts down the server
func waitForShutdown(log zerolog.Logger, serveErr <-chan error, grpcServer *grpclib.Server, metricsServer *http.Server, dashboardService *dashboard.DashboardService) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sigChan)

	var result error
	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully")
	case err := <-serveErr:
		result = fmt.Errorf("failed to serve gRPC server: %w", err)
	}

	// Stop ticks first so no state changes race the drain
	dashboardService.Deactivate()

	grpcServer.GracefulStop()
	log.Info().Msg("gRPC server stopped")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Metrics server shutdown failed")
	}

	return result
}
