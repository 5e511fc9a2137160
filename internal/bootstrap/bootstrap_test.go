package bootstrap

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/barstock/backend/config"
	"github.com/barstock/backend/internal/domain"
	"github.com/barstock/backend/internal/infrastructure/catalog"
	"github.com/barstock/backend/internal/infrastructure/catalogapi"
	"github.com/barstock/backend/internal/infrastructure/reportstore"
	"github.com/barstock/backend/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNewCatalogProvider(t *testing.T) {
	ctx := context.Background()
	logger := zaptest.NewLogger(t)

	t.Run("memory", func(t *testing.T) {
		provider, closeFn, err := NewCatalogProvider(ctx, config.CatalogConfig{Driver: "memory"}, logger)
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &catalog.MemoryCatalog{}, provider)
	})

	t.Run("sqlite creates schema", func(t *testing.T) {
		dsn := filepath.Join(t.TempDir(), "catalog.db")
		provider, closeFn, err := NewCatalogProvider(ctx, config.CatalogConfig{Driver: "sqlite", DSN: dsn}, logger)
		require.NoError(t, err)
		defer closeFn()

		products, err := provider.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, products)
	})

	t.Run("api", func(t *testing.T) {
		provider, closeFn, err := NewCatalogProvider(ctx, config.CatalogConfig{
			Driver: "api",
			API:    config.APIConfig{BaseURL: "https://catalog.example.com", APIKey: "key"},
		}, logger)
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &catalogapi.Client{}, provider)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, _, err := NewCatalogProvider(ctx, config.CatalogConfig{Driver: "mongo"}, logger)
		assert.Error(t, err)
	})
}

func TestNewReportRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		reports, closeFn, err := NewReportRepository(ctx, config.ReportsConfig{Type: "memory", TTL: time.Hour})
		require.NoError(t, err)
		defer closeFn()

		assert.IsType(t, &reportstore.MemoryStore{}, reports)
	})

	t.Run("redis", func(t *testing.T) {
		mr := miniredis.RunT(t)

		reports, closeFn, err := NewReportRepository(ctx, config.ReportsConfig{Type: "redis", RedisAddr: mr.Addr(), TTL: time.Hour})
		require.NoError(t, err)
		defer closeFn()

		require.NoError(t, reports.Save(ctx, &domain.ImportResult{ID: "run-1"}))
		assert.True(t, mr.Exists("barstock:import:run-1"))
	})

	t.Run("unreachable redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		addr := mr.Addr()
		mr.Close()

		_, _, err := NewReportRepository(ctx, config.ReportsConfig{Type: "redis", RedisAddr: addr})
		assert.True(t, errors.Is(err, domain.ErrReportStoreUnavailable))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, _, err := NewReportRepository(ctx, config.ReportsConfig{Type: "disk"})
		assert.Error(t, err)
	})
}

func TestNewReconciliationService(t *testing.T) {
	ctx := context.Background()
	cfg := &config.Config{
		Import: config.ImportConfig{
			BatchSize:           1,
			DefaultUnit:         "fût",
			DefaultMinThreshold: 2,
			UpdatedBy:           "nightly",
		},
		Matching: config.MatchingConfig{MinConfidence: 0.3, EnableFuzzy: false},
	}

	memCatalog := catalog.NewMemoryCatalog(domain.CatalogProduct{ID: "p-1", Name: "Leffe Blonde", Category: domain.CategoryBeer, Quantity: 30})
	reports := reportstore.NewMemoryStore(time.Hour)
	defer reports.Close()

	service := NewReconciliationService(cfg, memCatalog, reports, nil, zaptest.NewLogger(t))

	result, err := service.Reconcile(ctx, []*domain.ImportCandidate{
		{RowNumber: 2, OriginName: "Leffe Blonde", OfficialName: "Leffe Blonde", Category: domain.CategoryBeer, Quantity: 12},
		{RowNumber: 3, OriginName: "Leffe Ruby", OfficialName: "Leffe Ruby", Category: domain.CategoryBeer, Quantity: 6},
	}, usecase.ImportOptions{Source: "test"})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.Created)
	assert.Equal(t, 2, result.Flushes)

	products, err := memCatalog.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "nightly", products[0].UpdatedBy)
	assert.Equal(t, "fût", products[1].Unit)
	assert.Equal(t, float64(2), products[1].MinThreshold)

	stored, err := reports.Get(ctx, result.ID)
	require.NoError(t, err)
	assert.Equal(t, result.ID, stored.ID)
}
