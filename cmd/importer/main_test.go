package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/barstock/backend/internal/domain"
	"github.com/barstock/backend/internal/infrastructure/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture creates a sqlite catalog seeded with products, a config file
// pointing at it, and returns the config path and database path.
func writeFixture(t *testing.T, products ...domain.CatalogProduct) (string, string) {
	t.Helper()
	ctx := context.Background()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "catalog.db")

	db, err := catalog.Open(catalog.DriverSQLite, dbPath)
	require.NoError(t, err)
	require.NoError(t, db.EnsureSchema(ctx))
	if len(products) > 0 {
		ops := make([]domain.WriteOperation, 0, len(products))
		for _, p := range products {
			ops = append(ops, domain.NewCreateOperation(p))
		}
		require.NoError(t, db.BatchWrite(ctx, ops))
	}
	require.NoError(t, db.Close())

	configPath := filepath.Join(dir, "barstock.yaml")
	content := fmt.Sprintf(`
log:
  level: error
catalog:
  driver: sqlite
  dsn: %s
matching:
  enable_fuzzy: false
`, dbPath)
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	return configPath, dbPath
}

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stock.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func loadCatalog(t *testing.T, dbPath string) []domain.CatalogProduct {
	t.Helper()
	db, err := catalog.Open(catalog.DriverSQLite, dbPath)
	require.NoError(t, err)
	defer db.Close()

	products, err := db.GetAll(context.Background())
	require.NoError(t, err)
	return products
}

func TestRun(t *testing.T) {
	ctx := context.Background()
	ricard := domain.CatalogProduct{ID: "p-1", Name: "Ricard", Category: domain.CategorySpirits, Quantity: 10, Active: true}
	csv := "Nom;Quantité\nRicard;4\nSuze;3\n"

	t.Run("imports and prints summary", func(t *testing.T) {
		configPath, dbPath := writeFixture(t, ricard)
		var stdout, stderr bytes.Buffer

		code := run(ctx, []string{"--config", configPath, "--file", writeCSV(t, csv)}, &stdout, &stderr)

		require.Equal(t, exitOK, code, stderr.String())
		assert.Contains(t, stdout.String(), "stock.csv")
		assert.Contains(t, stdout.String(), "updated:   1")
		assert.Contains(t, stdout.String(), "created:   1")

		products := loadCatalog(t, dbPath)
		require.Len(t, products, 2)
		assert.Equal(t, float64(4), products[0].Quantity)
		assert.Equal(t, "Suze", products[1].Name)
	})

	t.Run("dry run with json output", func(t *testing.T) {
		configPath, dbPath := writeFixture(t, ricard)
		var stdout, stderr bytes.Buffer

		code := run(ctx, []string{"-c", configPath, "-f", writeCSV(t, csv), "--dry-run", "--json"}, &stdout, &stderr)
		require.Equal(t, exitOK, code, stderr.String())

		var result domain.ImportResult
		require.NoError(t, json.Unmarshal(stdout.Bytes(), &result))
		assert.True(t, result.DryRun)
		assert.Equal(t, domain.RunCompleted, result.Status)
		assert.Equal(t, 2, result.Processed)

		products := loadCatalog(t, dbPath)
		require.Len(t, products, 1)
		assert.Equal(t, float64(10), products[0].Quantity)
	})

	t.Run("unreadable file fails the run", func(t *testing.T) {
		configPath, _ := writeFixture(t)
		var stdout, stderr bytes.Buffer

		missing := filepath.Join(t.TempDir(), "absent.csv")
		code := run(ctx, []string{"--config", configPath, "--file", missing}, &stdout, &stderr)

		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stdout.String(), "failed")
		assert.Contains(t, stdout.String(), "failure:")
	})

	t.Run("missing file flag is a usage error", func(t *testing.T) {
		var stdout, stderr bytes.Buffer

		code := run(ctx, []string{"--dry-run"}, &stdout, &stderr)

		assert.Equal(t, exitUsage, code)
		assert.Contains(t, stderr.String(), "--file is required")
	})

	t.Run("invalid config fails", func(t *testing.T) {
		var stdout, stderr bytes.Buffer

		code := run(ctx, []string{"--config", filepath.Join(t.TempDir(), "absent.yaml"), "--file", "stock.csv"}, &stdout, &stderr)

		assert.Equal(t, exitFailure, code)
		assert.Contains(t, stderr.String(), "importer:")
	})
}

func TestParseFlags(t *testing.T) {
	var stderr bytes.Buffer

	opts, fs, err := parseFlags([]string{"-f", "stock.xlsx", "--sheet", "Cave", "--dedupe"}, &stderr)
	require.NoError(t, err)

	assert.Equal(t, "stock.xlsx", opts.file)
	assert.Equal(t, "Cave", opts.sheet)
	assert.True(t, opts.dedupe)
	assert.True(t, fs.Changed("dedupe"))
	assert.False(t, fs.Changed("dry-run"))
}
