package catalogapi

import (
	"time"

	"github.com/barstock/backend/internal/domain"
)

// apiProduct is the product document exposed by the inventory API
type apiProduct struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Quantity      float64   `json:"quantity"`
	Unit          string    `json:"unit,omitempty"`
	PurchasePrice float64   `json:"purchase_price"`
	SalePrice     float64   `json:"sale_price"`
	MinThreshold  float64   `json:"min_threshold"`
	Active        *bool     `json:"active,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	UpdatedBy     string    `json:"updated_by,omitempty"`
	LastImportID  string    `json:"last_import_id,omitempty"`
}

// productPage is one page of GET /products
type productPage struct {
	Products      []apiProduct `json:"products"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// apiUpdate carries the fields an update op changes
type apiUpdate struct {
	Quantity     float64   `json:"quantity"`
	UpdatedAt    time.Time `json:"updated_at"`
	UpdatedBy    string    `json:"updated_by"`
	LastImportID string    `json:"last_import_id"`
}

// apiOperation is one entry of POST /products/batch
type apiOperation struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Fields  *apiUpdate  `json:"fields,omitempty"`
	Product *apiProduct `json:"product,omitempty"`
}

// batchRequest is the body of POST /products/batch
type batchRequest struct {
	Operations []apiOperation `json:"operations"`
}

// toDomainProduct converts an API document to our domain model.
// Unknown categories become other; a missing active flag means active.
func toDomainProduct(p apiProduct) domain.CatalogProduct {
	category := domain.Category(p.Category)
	if !category.Valid() {
		category = domain.CategoryOther
	}

	active := true
	if p.Active != nil {
		active = *p.Active
	}

	return domain.CatalogProduct{
		ID:            p.ID,
		Name:          p.Name,
		Category:      category,
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		MinThreshold:  p.MinThreshold,
		Active:        active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		UpdatedBy:     p.UpdatedBy,
		LastImportID:  p.LastImportID,
	}
}

// toAPIProduct converts a domain product to the API document
func toAPIProduct(p domain.CatalogProduct) apiProduct {
	active := p.Active
	return apiProduct{
		ID:            p.ID,
		Name:          p.Name,
		Category:      string(p.Category),
		Quantity:      p.Quantity,
		Unit:          p.Unit,
		PurchasePrice: p.PurchasePrice,
		SalePrice:     p.SalePrice,
		MinThreshold:  p.MinThreshold,
		Active:        &active,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
		UpdatedBy:     p.UpdatedBy,
		LastImportID:  p.LastImportID,
	}
}

// toBatchRequest converts write intents to the batch body, keeping their order
func toBatchRequest(ops []domain.WriteOperation) batchRequest {
	req := batchRequest{Operations: make([]apiOperation, 0, len(ops))}
	for _, op := range ops {
		entry := apiOperation{Type: string(op.Kind), ID: op.ID}
		if op.Fields != nil {
			entry.Fields = &apiUpdate{
				Quantity:     op.Fields.Quantity,
				UpdatedAt:    op.Fields.UpdatedAt,
				UpdatedBy:    op.Fields.UpdatedBy,
				LastImportID: op.Fields.LastImportID,
			}
		}
		if op.Product != nil {
			product := toAPIProduct(*op.Product)
			entry.Product = &product
		}
		req.Operations = append(req.Operations, entry)
	}
	return req
}
