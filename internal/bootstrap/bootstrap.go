// Package bootstrap builds the import pipeline from configuration. It is
// shared by the HTTP server and the importer CLI.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/barstock/backend/config"
	"github.com/barstock/backend/internal/domain"
	"github.com/barstock/backend/internal/infrastructure/catalog"
	"github.com/barstock/backend/internal/infrastructure/catalogapi"
	"github.com/barstock/backend/internal/infrastructure/reportstore"
	"github.com/barstock/backend/internal/usecase"
	"go.uber.org/zap"
)

// CloseFunc releases a resource opened by this package
type CloseFunc func() error

func noopClose() error { return nil }

// NewCatalogProvider opens the catalog selected by cfg.Driver.
// SQL catalogs are pinged and their schema created if missing.
func NewCatalogProvider(ctx context.Context, cfg config.CatalogConfig, logger *zap.Logger) (domain.CatalogProvider, CloseFunc, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("using in-memory catalog; changes are lost on exit")
		return catalog.NewMemoryCatalog(), noopClose, nil

	case catalog.DriverSQLite, catalog.DriverPostgres:
		sqlCatalog, err := catalog.Open(cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		if err := sqlCatalog.Ping(ctx); err != nil {
			_ = sqlCatalog.Close()
			return nil, nil, fmt.Errorf("failed to reach %s catalog: %w", cfg.Driver, err)
		}
		if err := sqlCatalog.EnsureSchema(ctx); err != nil {
			_ = sqlCatalog.Close()
			return nil, nil, err
		}
		logger.Info("catalog connected", zap.String("driver", cfg.Driver))
		return sqlCatalog, sqlCatalog.Close, nil

	case "api":
		client := catalogapi.NewClient(catalogapi.Config{
			BaseURL:           cfg.API.BaseURL,
			APIKey:            cfg.API.APIKey,
			Timeout:           cfg.API.Timeout,
			RequestsPerSecond: cfg.API.RequestsPerSecond,
			Burst:             cfg.API.Burst,
			MaxRetries:        cfg.API.MaxRetries,
			Logger:            logger,
		})
		logger.Info("catalog API configured", zap.String("base_url", cfg.API.BaseURL))
		return client, noopClose, nil

	default:
		return nil, nil, fmt.Errorf("unsupported catalog driver %q", cfg.Driver)
	}
}

// NewReportRepository opens the report store selected by cfg.Type
func NewReportRepository(ctx context.Context, cfg config.ReportsConfig) (domain.ReportRepository, CloseFunc, error) {
	switch cfg.Type {
	case "memory":
		store := reportstore.NewMemoryStore(cfg.TTL)
		return store, store.Close, nil

	case "redis":
		client, err := reportstore.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		store := reportstore.NewRedisStore(client, cfg.TTL)
		return store, store.Close, nil

	default:
		return nil, nil, fmt.Errorf("unsupported reports type %q", cfg.Type)
	}
}

// NewReconciliationService wires the matcher and engine with cfg's tuning
func NewReconciliationService(
	cfg *config.Config,
	provider domain.CatalogProvider,
	reports domain.ReportRepository,
	recorder usecase.ImportRecorder,
	logger *zap.Logger,
) *usecase.ReconciliationService {
	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		MinConfidence:        cfg.Matching.MinConfidence,
		DisableFuzzyMatching: !cfg.Matching.EnableFuzzy,
		EnableDebugLogging:   cfg.Matching.Debug,
		Logger:               logger,
	})

	return usecase.NewReconciliationService(provider, matcher, usecase.ReconciliationConfig{
		BatchSize:           cfg.Import.BatchSize,
		DedupeWithinRun:     cfg.Import.DedupeWithinRun,
		DefaultUnit:         cfg.Import.DefaultUnit,
		DefaultMinThreshold: cfg.Import.DefaultMinThreshold,
		UpdatedBy:           cfg.Import.UpdatedBy,
		Logger:              logger,
		Recorder:            recorder,
		Reports:             reports,
	})
}
