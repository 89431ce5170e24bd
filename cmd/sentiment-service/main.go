// sentiment-service is the HTTP API server for text sentiment classification.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"sentiment/internal/api"
	"sentiment/internal/classifier"
	"sentiment/internal/config"
	"sentiment/internal/dispatcher"
	"sentiment/internal/health"
	"sentiment/internal/history"
	"sentiment/internal/job"
	"sentiment/internal/observability"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := run(); err != nil {
		slog.Error("Service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	// Load configuration (.env is optional, env vars win)
	_ = godotenv.Load()
	svcCfg := config.LoadServiceConfig()
	executorCfg := job.LoadExecutorConfigFromEnv()
	dispatcherCfg := dispatcher.LoadConfigFromEnv()

	// Setup metrics
	metrics, metricsHandler, err := observability.NewMetrics(ctx)
	if err != nil {
		return err
	}

	// Pick the classifier backend
	var cls classifier.Classifier
	var readiness health.ReadinessChecker
	if svcCfg.ModelURL != "" {
		remote := classifier.NewRemote(svcCfg.ModelURL, svcCfg.ModelTimeout)
		cls = remote
		readiness = remote
		slog.Info("Using remote classifier", "url", svcCfg.ModelURL)
	} else {
		cls = classifier.NewLexicon()
		slog.Info("Using in-process lexicon classifier")
	}

	// History recording: always keep a queryable ring in memory, ship to
	// the sink asynchronously when one is configured.
	recorders := history.MultiRecorder{history.NewMemoryRecorder(svcCfg.HistorySize)}
	var historyDispatcher *dispatcher.MemoryDispatcher
	if svcCfg.HistorySinkURL != "" {
		historyDispatcher = dispatcher.NewMemory(dispatcherCfg, metrics)
		recorders = append(recorders, historyDispatcher.Recorder(svcCfg.HistorySinkURL, svcCfg.HistoryKey))
		slog.Info("History sink enabled", "url", svcCfg.HistorySinkURL)
	}

	// Job lifecycle: store, executor, service
	store := job.NewMemoryStore()
	executor := job.NewExecutor(store, cls, metrics, executorCfg)
	service := job.NewService(store, executor, cls, recorders, metrics)

	// Create health checker
	healthChecker := health.NewChecker(readiness)

	// Create API router
	router := api.NewRouter(api.RouterConfig{
		Service:       service,
		Metrics:       metrics,
		HealthChecker: healthChecker,
		APIKey:        svcCfg.APIKey,
	})

	if svcCfg.APIKey != "" {
		slog.Info("API authentication enabled")
	} else {
		slog.Warn("API authentication disabled - no API_KEY configured")
	}

	// Create API server
	apiServer := &http.Server{
		Addr:         ":" + svcCfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Create metrics server
	metricsMux := http.NewServeMux()
	metricsMux.Handle("GET /metrics", metricsHandler)
	metricsServer := &http.Server{
		Addr:         ":" + svcCfg.MetricsPort,
		Handler:      metricsMux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	// Channel to capture server errors
	serverErr := make(chan error, 1)

	// Start API server
	go func() {
		slog.Info("Starting API server", "port", svcCfg.Port)
		if err := apiServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Start metrics server
	go func() {
		slog.Info("Starting metrics server", "port", svcCfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// shutdown closes both servers gracefully
	shutdown := func(timeout time.Duration) {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := apiServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("API server shutdown error", "error", err)
		}
		if err := metricsServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Metrics server shutdown error", "error", err)
		}
	}

	// Wait for interrupt signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		slog.Info("Received shutdown signal", "signal", sig)
	case err := <-serverErr:
		slog.Error("Server failed to start", "error", err)
		shutdown(5 * time.Second)
		return err
	}

	// Phase 1: Mark service as unhealthy for load balancer draining
	healthChecker.SetShuttingDown()

	if svcCfg.ShutdownDrainWait > 0 {
		slog.Info("Waiting for traffic to drain", "duration", svcCfg.ShutdownDrainWait)
		time.Sleep(svcCfg.ShutdownDrainWait)
	}

	// Phase 2: Graceful shutdown - stop accepting new connections, finish in-flight requests
	slog.Info("Starting graceful shutdown")
	shutdown(25 * time.Second)

	// Phase 3: Drain the executor so accepted jobs reach a terminal state
	slog.Info("Draining job executor")
	executorCtx, executorCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer executorCancel()
	if err := executor.Close(executorCtx); err != nil {
		slog.Warn("Executor shutdown error", "error", err)
	}

	// Phase 4: Drain the history dispatcher
	if historyDispatcher != nil {
		slog.Info("Draining history dispatcher")
		dispatcherCtx, dispatcherCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer dispatcherCancel()
		if err := historyDispatcher.Close(dispatcherCtx); err != nil {
			slog.Warn("Dispatcher shutdown error", "error", err)
		}

		stats := historyDispatcher.Stats()
		slog.Info("Dispatcher stats",
			"delivered", stats.Delivered,
			"failed", stats.Failed,
			"dropped", stats.Dropped,
		)
	}

	slog.Info("Shutdown complete")
	return nil
}
