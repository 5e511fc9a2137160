package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/barstock/backend/internal/domain"
	"github.com/barstock/backend/internal/infrastructure/tabular"
	"github.com/barstock/backend/internal/usecase"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// defaultMaxUploadBytes caps multipart uploads when no limit is configured
const defaultMaxUploadBytes = 10 << 20

// Importer parses an uploaded sheet and reconciles it against the catalog
type Importer interface {
	ImportReader(ctx context.Context, reader domain.TabularReader, src io.Reader, format string, opts usecase.ImportOptions) (*domain.ImportResult, error)
}

// HandlerConfig holds optional handler dependencies
type HandlerConfig struct {
	Reader         domain.TabularReader
	Reports        domain.ReportRepository
	Logger         *zap.Logger
	MaxUploadBytes int64
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	importer       Importer
	reader         domain.TabularReader
	reports        domain.ReportRepository
	logger         *zap.Logger
	maxUploadBytes int64
}

// NewHandler creates a new HTTP handler. A nil importer makes the import
// endpoints answer 503.
func NewHandler(importer Importer, config HandlerConfig) *Handler {
	reader := config.Reader
	if reader == nil {
		reader = tabular.NewFileReader()
	}

	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	maxUpload := config.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}

	return &Handler{
		importer:       importer,
		reader:         reader,
		reports:        config.Reports,
		logger:         logger,
		maxUploadBytes: maxUpload,
	}
}

// HealthCheck returns the health status of the API
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "barstock-backend",
		"version": "1.0.0",
	})
}

// CreateImport handles spreadsheet uploads.
// Form fields: file (required, .xlsx/.xlsm/.csv/.txt), dry_run (optional bool).
func (h *Handler) CreateImport(c *gin.Context) {
	if h.importer == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Import service not configured",
		})
		return
	}

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes)

	upload, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{
				"error": "Uploaded file is too large",
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: file is required",
		})
		return
	}

	dryRun := false
	if raw := c.DefaultPostForm("dry_run", c.Query("dry_run")); raw != "" {
		dryRun, err = strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: dry_run must be a boolean",
			})
			return
		}
	}

	format, err := tabular.FormatFromPath(upload.Filename)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Unsupported file type - upload .xlsx or .csv",
		})
		return
	}

	src, err := upload.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Uploaded file could not be opened",
		})
		return
	}
	defer src.Close()

	result, err := h.importer.ImportReader(c.Request.Context(), h.reader, src, format, usecase.ImportOptions{
		Source: upload.Filename,
		DryRun: dryRun,
	})
	if err != nil {
		h.handleImportError(c, result, err)
		return
	}

	h.logger.Info("import finished",
		zap.String("import_id", result.ID),
		zap.String("summary", usecase.FormatSummary(result)))

	c.JSON(http.StatusCreated, result)
}

// GetImport returns a stored import report by id
func (h *Handler) GetImport(c *gin.Context) {
	if h.reports == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Report storage not configured",
		})
		return
	}

	result, err := h.reports.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrReportNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Import report not found",
			})
		case errors.Is(err, domain.ErrReportStoreUnavailable):
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "Report storage temporarily unavailable",
			})
		default:
			h.logger.Error("failed to load import report", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "Internal server error",
			})
		}
		return
	}

	c.JSON(http.StatusOK, result)
}

// handleImportError maps run-level failures to HTTP responses. The partial
// report is returned alongside the error when available.
func (h *Handler) handleImportError(c *gin.Context, result *domain.ImportResult, err error) {
	h.logger.Error("import failed", zap.Error(err))

	status := http.StatusInternalServerError
	message := "Internal server error"

	switch {
	case errors.Is(err, domain.ErrPersistence):
		status = http.StatusBadGateway
		message = "Catalog write failed - import partially applied"
	case errors.Is(err, domain.ErrCatalogRead):
		status = http.StatusBadGateway
		message = "Catalog temporarily unavailable"
	case errors.Is(err, domain.ErrSourceRead), errors.Is(err, domain.ErrUnsupportedFormat):
		status = http.StatusBadRequest
		message = "Uploaded file could not be read"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
		message = "Import interrupted"
	}

	body := gin.H{"error": message}
	if result != nil {
		body["data"] = result
	}
	c.JSON(status, body)
}
