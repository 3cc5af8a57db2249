package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/YEJIN-DEV/yejingram-sub001/pkg/config"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/di"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/health"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/logger"
	"github.com/YEJIN-DEV/yejingram-sub001/pkg/router"
	"github.com/YEJIN-DEV/yejingram-sub001/shared/observability"
)

func main() {
	// Load configuration, including .env when present
	cfg := config.New()

	log := logger.New(logger.ConfigFromEnv(cfg.Logging.Level, cfg.Logging.Format))
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Observability.TracingEnabled {
		shutdownTracing, err := observability.SetupTracing(cfg.Observability.ServiceName)
		if err != nil {
			log.LogError(err, "Failed to initialize tracing")
		} else {
			defer func() { _ = shutdownTracing(context.Background()) }()
		}
	}

	metrics, err := observability.SetupPrometheusMetrics(cfg.Observability.ServiceName, cfg.Observability.MetricsAddr, log)
	if err != nil {
		log.LogError(err, "Failed to initialize metrics")
	} else {
		metrics.Start()
	}

	container, err := di.New(ctx, cfg, nil, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	r := router.New(container)
	r.AddOpenAPIValidation(cfg.OpenAPISchemaPath)
	r.SetupRoutes()
	r.Start(ctx)
	container.Health.Start(ctx)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r.Engine,
		ReadHeaderTimeout: cfg.Server.Timeout,
	}
	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.LogError(err, "Server failed to start")
			stop()
		}
	}()

	grpcServer, _ := health.NewGRPCServer(container.Health)
	go func() {
		lis, err := net.Listen("tcp", ":"+cfg.Server.GRPCPort)
		if err != nil {
			log.LogError(err, "Failed to listen for gRPC health", "port", cfg.Server.GRPCPort)
			return
		}
		log.Info("gRPC health server starting", "port", cfg.Server.GRPCPort)
		if err := grpcServer.Serve(lis); err != nil {
			log.LogError(err, "gRPC health server stopped")
		}
	}()

	// Block until we receive a signal
	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}
	grpcServer.GracefulStop()
	container.Close()
	if metrics != nil {
		if err := metrics.Shutdown(shutdownCtx); err != nil {
			log.LogError(err, "Metrics server forced to shutdown")
		}
	}

	log.Info("Server exited gracefully")
}
