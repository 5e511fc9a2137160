package tabular

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/barstock/backend/internal/domain"
)

// Supported source formats
const (
	FormatXLSX = "xlsx"
	FormatCSV  = "csv"
)

// FileReader parses spreadsheet exports into rows. The first row of a sheet
// is the header; each following non-blank row becomes a domain.Row whose
// cells keep the header order.
type FileReader struct {
	sheet string
}

// Option configures a FileReader
type Option func(*FileReader)

// WithSheet selects a workbook sheet by name instead of the first non-empty one
func WithSheet(name string) Option {
	return func(r *FileReader) {
		r.sheet = name
	}
}

// NewFileReader creates a reader for .xlsx and .csv sources
func NewFileReader(opts ...Option) *FileReader {
	r := &FileReader{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Read opens path and parses it according to its extension
func (r *FileReader) Read(ctx context.Context, path string) ([]domain.Row, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
	}
	defer f.Close()

	return r.ReadFrom(ctx, f, format)
}

// ReadFrom parses an already opened source, e.g. an HTTP upload
func (r *FileReader) ReadFrom(ctx context.Context, src io.Reader, format string) ([]domain.Row, error) {
	var (
		records [][]string
		err     error
	)

	switch normalizeFormat(format) {
	case FormatXLSX:
		records, err = readXLSX(src, r.sheet)
	case FormatCSV:
		records, err = readCSV(src)
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrSourceRead, err)
	}

	return toRows(ctx, records)
}

// FormatFromPath returns the source format implied by a file extension
func FormatFromPath(path string) (string, error) {
	format := normalizeFormat(filepath.Ext(path))
	if format == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}
	return format, nil
}

// normalizeFormat maps extensions and format names to a supported format, or ""
func normalizeFormat(format string) string {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), ".")) {
	case "xlsx", "xlsm":
		return FormatXLSX
	case "csv", "txt":
		return FormatCSV
	default:
		return ""
	}
}

// toRows turns header + records into domain rows, dropping blank lines.
// Short records are padded so every row carries every header column.
func toRows(ctx context.Context, records [][]string) ([]domain.Row, error) {
	if len(records) == 0 {
		return []domain.Row{}, nil
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]domain.Row, 0, len(records)-1)
	for i, record := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if isBlank(record) {
			continue
		}

		cells := make([]domain.Cell, len(header))
		for col, name := range header {
			value := ""
			if col < len(record) {
				value = record[col]
			}
			cells[col] = domain.Cell{Column: name, Value: value}
		}
		// Source line number: header is line 1
		rows = append(rows, domain.Row{Number: i + 2, Cells: cells})
	}

	return rows, nil
}

func isBlank(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
