package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/barstock/backend/config"
	"github.com/barstock/backend/internal/bootstrap"
	httpDelivery "github.com/barstock/backend/internal/delivery/http"
	"github.com/barstock/backend/internal/infrastructure/logger"
	"github.com/barstock/backend/internal/infrastructure/metrics"
	"github.com/barstock/backend/internal/infrastructure/tabular"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	zapLogger.Info("starting BarStock backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("catalog_driver", cfg.Catalog.Driver),
		zap.String("reports", cfg.Reports.Type))

	startupCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	provider, closeCatalog, err := bootstrap.NewCatalogProvider(startupCtx, cfg.Catalog, zapLogger)
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	defer closeCatalog()

	reports, closeReports, err := bootstrap.NewReportRepository(startupCtx, cfg.Reports)
	if err != nil {
		return fmt.Errorf("reports: %w", err)
	}
	defer closeReports()

	service := bootstrap.NewReconciliationService(cfg, provider, reports, metrics.NewImportRecorder(nil), zapLogger)

	zapLogger.Info("matching configured",
		zap.Float64("min_confidence", cfg.Matching.MinConfidence),
		zap.Bool("fuzzy", cfg.Matching.EnableFuzzy),
		zap.Bool("debug", cfg.Matching.Debug),
		zap.Int("batch_size", cfg.Import.BatchSize),
		zap.Bool("dedupe_within_run", cfg.Import.DedupeWithinRun))

	handler := httpDelivery.NewHandler(service, httpDelivery.HandlerConfig{
		Reader:         tabular.NewFileReader(),
		Reports:        reports,
		Logger:         zapLogger,
		MaxUploadBytes: cfg.Import.MaxUploadMB << 20,
	})
	router := httpDelivery.SetupRouter(cfg, handler, zapLogger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return err
	case sig := <-quit:
		zapLogger.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	zapLogger.Info("server stopped")
	return nil
}
