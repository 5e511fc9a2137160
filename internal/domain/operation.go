package domain

import "time"

// OperationKind distinguishes the two write intents
type OperationKind string

const (
	OperationUpdate OperationKind = "update"
	OperationCreate OperationKind = "create"
)

// ProductUpdate holds the fields an import changes on an existing product
type ProductUpdate struct {
	Quantity     float64   `json:"quantity"`
	UpdatedAt    time.Time `json:"updatedAt"`
	UpdatedBy    string    `json:"updatedBy"`
	LastImportID string    `json:"lastImportId"`
}

// WriteOperation is one buffered intent sent to CatalogProvider.BatchWrite
type WriteOperation struct {
	Kind    OperationKind   `json:"kind"`
	ID      string          `json:"id,omitempty"`
	Fields  *ProductUpdate  `json:"fields,omitempty"`
	Product *CatalogProduct `json:"product,omitempty"`
}

// NewUpdateOperation builds an update intent
func NewUpdateOperation(id string, fields ProductUpdate) WriteOperation {
	return WriteOperation{Kind: OperationUpdate, ID: id, Fields: &fields}
}

// NewCreateOperation builds a create intent
func NewCreateOperation(product CatalogProduct) WriteOperation {
	return WriteOperation{Kind: OperationCreate, ID: product.ID, Product: &product}
}
