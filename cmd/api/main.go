package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ixp-grapher/infrastructure/config"
	"ixp-grapher/infrastructure/di"
	"ixp-grapher/pkg/observability"

	"go.uber.org/zap"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	logger := container.Logger

	if cfg.Features.EnableTracing {
		tp, err := observability.InitTracing(ctx, observability.TracingConfig{
			Environment: cfg.Environment,
			Endpoint:    cfg.Tracing.Endpoint,
			SampleRate:  cfg.Tracing.SampleRate,
		})
		if err != nil {
			logger.Warn("Tracing disabled", zap.Error(err))
		} else {
			defer func() {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(shutdownCtx); err != nil {
					logger.Error("Failed to flush traces", zap.Error(err))
				}
			}()
		}
	}

	if cfg.Inventory.Watch {
		watcher, err := container.WatchFiles(ctx)
		if err != nil {
			logger.Warn("File watching disabled", zap.Error(err))
		} else {
			defer watcher.Stop()
		}
	}

	if container.Limiter != nil {
		go container.Limiter.Cleanup(ctx, 5*time.Minute)
	}

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      container.Router.Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Starting server",
			zap.String("address", cfg.Server.Address),
			zap.Strings("backends", cfg.Grapher.Backends),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown error", zap.Error(err))
	}
	cancel()

	_ = logger.Sync()
	log.Println("Server stopped")
}
