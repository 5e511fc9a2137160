package domain

import "time"

// CatalogProduct represents an existing inventory record
type CatalogProduct struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      Category  `json:"category"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit,omitempty"`
	PurchasePrice float64   `json:"purchasePrice"`
	SalePrice     float64   `json:"salePrice"`
	MinThreshold  float64   `json:"minThreshold"`
	Active        bool      `json:"active"`
	CreatedAt     time.Time `json:"createdAt,omitempty"`
	UpdatedAt     time.Time `json:"updatedAt,omitempty"`
	UpdatedBy     string    `json:"updatedBy,omitempty"`
	LastImportID  string    `json:"lastImportId,omitempty"`
}

// ImportCandidate is one row extracted from an external tabular source.
// It is never persisted directly: it either updates an existing product
// or seeds a new one.
type ImportCandidate struct {
	RowNumber     int      `json:"rowNumber"`
	OriginName    string   `json:"originName"`
	OfficialName  string   `json:"officialName"`
	Category      Category `json:"category"`
	Quantity      float64  `json:"quantity"`
	PurchasePrice float64  `json:"purchasePrice,omitempty"`
	SalePrice     float64  `json:"salePrice,omitempty"`
}

// Cell is a single column/value pair of a source row
type Cell struct {
	Column string
	Value  interface{}
}

// Row is a raw source row. Cells keep the column order of the source header.
type Row struct {
	Number int
	Cells  []Cell
}

// Get returns the value of the first cell named column
func (r Row) Get(column string) (interface{}, bool) {
	for _, cell := range r.Cells {
		if cell.Column == column {
			return cell.Value, true
		}
	}
	return nil, false
}
