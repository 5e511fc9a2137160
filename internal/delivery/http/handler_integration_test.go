package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/barstock/backend/config"
	"github.com/barstock/backend/internal/domain"
	"github.com/barstock/backend/internal/infrastructure/catalog"
	"github.com/barstock/backend/internal/infrastructure/reportstore"
	"github.com/barstock/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// TestMain sets up test environment before running tests
func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:           "8080",
			Environment:    "test",
			AllowedOrigins: []string{"https://backoffice.barstock.app", "http://localhost:*"},
		},
		RateLimit: config.RateLimitConfig{PerIP: 1000},
	}
}

// setupTestRouter creates a router without an import service
func setupTestRouter() *gin.Engine {
	handler := NewHandler(nil, HandlerConfig{})
	return SetupRouter(testConfig(), handler, nil)
}

// stubImporter returns a canned run outcome
type stubImporter struct {
	result *domain.ImportResult
	err    error
	rows   []domain.Row
	opts   usecase.ImportOptions
}

func (s *stubImporter) ImportReader(ctx context.Context, reader domain.TabularReader, src io.Reader, format string, opts usecase.ImportOptions) (*domain.ImportResult, error) {
	s.opts = opts
	rows, err := reader.ReadFrom(ctx, src, format)
	if err != nil {
		return nil, err
	}
	s.rows = rows
	return s.result, s.err
}

// stubReports serves Get from a fixed error or result
type stubReports struct {
	result *domain.ImportResult
	err    error
}

func (s *stubReports) Save(ctx context.Context, result *domain.ImportResult) error { return nil }

func (s *stubReports) Get(ctx context.Context, id string) (*domain.ImportResult, error) {
	return s.result, s.err
}

type testServer struct {
	router  *gin.Engine
	catalog *catalog.MemoryCatalog
	reports *reportstore.MemoryStore
}

// setupTestServer wires a real reconciliation service over an in-memory catalog
func setupTestServer(t *testing.T, products ...domain.CatalogProduct) *testServer {
	t.Helper()

	logger := zaptest.NewLogger(t)
	memCatalog := catalog.NewMemoryCatalog(products...)
	reports := reportstore.NewMemoryStore(time.Hour)
	t.Cleanup(func() { reports.Close() })

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		DisableFuzzyMatching: true,
		Logger:               logger,
	})
	service := usecase.NewReconciliationService(memCatalog, matcher, usecase.ReconciliationConfig{
		Logger:  logger,
		Reports: reports,
	})

	handler := NewHandler(service, HandlerConfig{Reports: reports, Logger: logger})
	return &testServer{
		router:  SetupRouter(testConfig(), handler, logger),
		catalog: memCatalog,
		reports: reports,
	}
}

// newUploadRequest builds a multipart import request
func newUploadRequest(t *testing.T, filename, content string, fields map[string]string) *http.Request {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decodeResult(t *testing.T, w *httptest.ResponseRecorder) domain.ImportResult {
	t.Helper()
	var result domain.ImportResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

const stockCSV = "Nom;Quantité;Catégorie\nRicard;4;pastis\nChartreuse verte;2;liqueur\n;3;\n"

// TestHealthCheckEndpoint tests the health check endpoint
func TestHealthCheckEndpoint(t *testing.T) {
	t.Run("returns healthy status", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}

		var response map[string]interface{}
		if err := json.Unmarshal(w.Body.Bytes(), &response); err != nil {
			t.Fatalf("Failed to unmarshal response: %v", err)
		}

		if response["status"] != "healthy" {
			t.Errorf("status = %v, want healthy", response["status"])
		}
		if response["service"] != "barstock-backend" {
			t.Errorf("service = %v, want barstock-backend", response["service"])
		}
		version, ok := response["version"].(string)
		if !ok || strings.TrimSpace(version) == "" {
			t.Errorf("version = %v, want non-empty string", response["version"])
		}
	})

	t.Run("accepts GET requests only", func(t *testing.T) {
		router := setupTestRouter()

		for _, method := range []string{"POST", "PUT", "DELETE", "PATCH"} {
			req, _ := http.NewRequest(method, "/health", nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Method %s: Status = %d, want %d", method, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestMetricsEndpoint(t *testing.T) {
	router := setupTestRouter()

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestCreateImportEndpoint(t *testing.T) {
	ricard := domain.CatalogProduct{ID: "p-1", Name: "Ricard", Category: domain.CategorySpirits, Quantity: 10, Active: true}

	t.Run("reconciles uploaded csv", func(t *testing.T) {
		server := setupTestServer(t, ricard)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, nil))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		result := decodeResult(t, w)
		assert.Equal(t, domain.RunCompleted, result.Status)
		assert.Equal(t, "stock.csv", result.Source)
		assert.Equal(t, 3, result.Processed)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 1, result.Created)
		assert.Equal(t, 1, result.Skipped)
		require.Len(t, result.Logs, 3)
		assert.True(t, result.Logs[0].Committed)

		updated, err := server.catalog.Get(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, float64(4), updated.Quantity)
		assert.Equal(t, 2, server.catalog.Len())
	})

	t.Run("dry run leaves catalog untouched", func(t *testing.T) {
		server := setupTestServer(t, ricard)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, map[string]string{"dry_run": "true"}))

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		result := decodeResult(t, w)
		assert.True(t, result.DryRun)
		assert.Equal(t, 1, result.Updated)
		assert.Equal(t, 0, result.Flushes)

		unchanged, err := server.catalog.Get(context.Background(), "p-1")
		require.NoError(t, err)
		assert.Equal(t, float64(10), unchanged.Quantity)
		assert.Equal(t, 1, server.catalog.Len())
	})

	t.Run("stored report is retrievable", func(t *testing.T) {
		server := setupTestServer(t, ricard)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, nil))
		require.Equal(t, http.StatusCreated, w.Code)
		created := decodeResult(t, w)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+created.ID, nil)
		w = httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		stored := decodeResult(t, w)
		assert.Equal(t, created.ID, stored.ID)
		assert.Equal(t, created.Updated, stored.Updated)
		assert.Len(t, stored.Logs, len(created.Logs))
	})

	t.Run("returns 503 when service not configured", func(t *testing.T) {
		router := setupTestRouter()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, nil))

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "not configured")
	})

	t.Run("returns 400 without file", func(t *testing.T) {
		server := setupTestServer(t)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for unsupported extension", func(t *testing.T) {
		server := setupTestServer(t)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.pdf", "%PDF-1.4", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Unsupported file type")
	})

	t.Run("returns 400 for invalid dry_run", func(t *testing.T) {
		server := setupTestServer(t)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, map[string]string{"dry_run": "maybe"}))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("returns 400 for unreadable workbook", func(t *testing.T) {
		server := setupTestServer(t)

		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, newUploadRequest(t, "stock.xlsx", "not a zip archive", nil))

		require.Equal(t, http.StatusBadRequest, w.Code)

		var response struct {
			Error string              `json:"error"`
			Data  domain.ImportResult `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "Uploaded file could not be read", response.Error)
		assert.Equal(t, domain.RunFailed, response.Data.Status)
		assert.Equal(t, "stock.xlsx", response.Data.Source)
		assert.Equal(t, 0, response.Data.Processed)
		assert.NotEmpty(t, response.Data.FailureReason)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/"+response.Data.ID, nil)
		w = httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		stored := decodeResult(t, w)
		assert.Equal(t, domain.RunFailed, stored.Status)
		assert.Equal(t, 0, server.catalog.Len())
	})

	t.Run("returns 413 for oversized upload", func(t *testing.T) {
		importer := &stubImporter{}
		handler := NewHandler(importer, HandlerConfig{MaxUploadBytes: 128})
		router := SetupRouter(testConfig(), handler, nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUploadRequest(t, "stock.csv", strings.Repeat("Ricard;1\n", 500), nil))

		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Nil(t, importer.rows)
	})
}

func TestCreateImportErrorMapping(t *testing.T) {
	partial := &domain.ImportResult{ID: "run-1", Status: domain.RunFailed, Processed: 500}

	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{
			name:       "flush failure",
			err:        fmt.Errorf("%w: connection reset", domain.ErrPersistence),
			wantStatus: http.StatusBadGateway,
			wantError:  "Catalog write failed - import partially applied",
		},
		{
			name:       "catalog read failure",
			err:        fmt.Errorf("%w: timeout", domain.ErrCatalogRead),
			wantStatus: http.StatusBadGateway,
			wantError:  "Catalog temporarily unavailable",
		},
		{
			name:       "cancelled run",
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
			wantError:  "Import interrupted",
		},
		{
			name:       "unexpected failure",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Internal server error",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			importer := &stubImporter{result: partial, err: tc.err}
			router := SetupRouter(testConfig(), NewHandler(importer, HandlerConfig{}), nil)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, newUploadRequest(t, "stock.csv", stockCSV, nil))

			assert.Equal(t, tc.wantStatus, w.Code)

			var response map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
			assert.Equal(t, tc.wantError, response["error"])

			data, ok := response["data"].(map[string]interface{})
			require.True(t, ok, "expected partial report in data")
			assert.Equal(t, "run-1", data["id"])
		})
	}

	t.Run("passes filename and dry run to importer", func(t *testing.T) {
		importer := &stubImporter{result: &domain.ImportResult{ID: "run-2", Status: domain.RunCompleted}}
		router := SetupRouter(testConfig(), NewHandler(importer, HandlerConfig{}), nil)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, newUploadRequest(t, "cave.csv", stockCSV, map[string]string{"dry_run": "1"}))

		require.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, usecase.ImportOptions{Source: "cave.csv", DryRun: true}, importer.opts)
		assert.Len(t, importer.rows, 3)
	})
}

func TestGetImportEndpoint(t *testing.T) {
	t.Run("returns 404 for unknown id", func(t *testing.T) {
		server := setupTestServer(t)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/missing", nil)
		w := httptest.NewRecorder()
		server.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 503 when store unavailable", func(t *testing.T) {
		reports := &stubReports{err: fmt.Errorf("%w: dial tcp", domain.ErrReportStoreUnavailable)}
		router := SetupRouter(testConfig(), NewHandler(nil, HandlerConfig{Reports: reports}), nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/run-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("returns 503 when storage not configured", func(t *testing.T) {
		router := setupTestRouter()

		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/run-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})
}

// TestCORSIntegration tests CORS headers work end-to-end with full router
func TestCORSIntegration(t *testing.T) {
	t.Run("health endpoint has CORS for back office", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("GET", "/health", nil)
		req.Header.Set("Origin", "https://backoffice.barstock.app")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusOK)
		}
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://backoffice.barstock.app" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "https://backoffice.barstock.app")
		}
		if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
			t.Errorf("Access-Control-Allow-Credentials = %q, want %q", got, "true")
		}
	})

	t.Run("import endpoint has CORS for localhost", func(t *testing.T) {
		router := setupTestRouter()

		req, _ := http.NewRequest("POST", "/api/v1/imports", nil)
		req.Header.Set("Origin", "http://localhost:3000")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
			t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, "http://localhost:3000")
		}
	})
}

// TestRecoveryMiddleware tests panic recovery
func TestRecoveryMiddleware(t *testing.T) {
	t.Run("recovers from panic without crashing server", func(t *testing.T) {
		router := setupTestRouter()

		router.GET("/panic", func(c *gin.Context) {
			panic("test panic")
		})

		req, _ := http.NewRequest("GET", "/panic", nil)
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		if w.Code != http.StatusInternalServerError {
			t.Errorf("Status = %d, want %d", w.Code, http.StatusInternalServerError)
		}
	})
}

// TestAPIVersioning tests that API v1 routes are correctly versioned
func TestAPIVersioning(t *testing.T) {
	t.Run("non-versioned routes return 404", func(t *testing.T) {
		router := setupTestRouter()

		for _, path := range []string{"/api/imports", "/imports", "/api/v2/imports"} {
			req, _ := http.NewRequest("POST", path, nil)
			w := httptest.NewRecorder()

			router.ServeHTTP(w, req)

			if w.Code != http.StatusNotFound {
				t.Errorf("Path %s: Status = %d, want %d", path, w.Code, http.StatusNotFound)
			}
		}
	})
}

func TestRateLimitIntegration(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.PerIP = 2
	router := SetupRouter(cfg, NewHandler(nil, HandlerConfig{}), nil)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/imports/run-1", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}

	assert.Equal(t, []int{http.StatusServiceUnavailable, http.StatusServiceUnavailable, http.StatusTooManyRequests}, codes)

	// health is outside the limited group
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
