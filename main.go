package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/yorukot/apikeys/internal/config"
	"github.com/yorukot/apikeys/internal/obs"
	"github.com/yorukot/apikeys/internal/router"
	"github.com/yorukot/apikeys/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := obs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	if !cfg.EnvFileLoaded {
		logger.Warn(".env file not found, using system environment variables")
	}

	// Initialize credential store
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	store, err := storage.Open(ctx, cfg)
	cancel()
	if err != nil {
		logger.Fatal("failed to open credential store",
			zap.String("backend", cfg.StoreBackend), zap.Error(err))
	}
	defer store.Close()

	metrics := obs.NewMetrics()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.New(store, logger, metrics),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("starting server",
			zap.String("addr", srv.Addr),
			zap.String("backend", cfg.StoreBackend))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
	logger.Info("stopped")
}
