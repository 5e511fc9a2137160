package domain

import (
	"context"
	"io"
)

// CatalogProvider defines the interface to the product catalog backing store
type CatalogProvider interface {
	// GetAll returns a snapshot of every product
	GetAll(ctx context.Context) ([]CatalogProduct, error)
	// BatchWrite applies all operations atomically, in order
	BatchWrite(ctx context.Context, ops []WriteOperation) error
}

// TabularReader defines the interface for parsing a spreadsheet into rows
type TabularReader interface {
	Read(ctx context.Context, path string) ([]Row, error)
	ReadFrom(ctx context.Context, r io.Reader, format string) ([]Row, error)
}

// ReportRepository defines the interface for storing finished import reports
type ReportRepository interface {
	Save(ctx context.Context, result *ImportResult) error
	Get(ctx context.Context, id string) (*ImportResult, error)
}
