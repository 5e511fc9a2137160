package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/barstock/backend/internal/domain"
)

// MemoryCatalog is an in-memory catalog provider. Products keep insertion order.
type MemoryCatalog struct {
	mu       sync.RWMutex
	products []domain.CatalogProduct
	index    map[string]int
}

// NewMemoryCatalog creates a catalog seeded with products
func NewMemoryCatalog(products ...domain.CatalogProduct) *MemoryCatalog {
	c := &MemoryCatalog{index: make(map[string]int)}
	for _, p := range products {
		if _, exists := c.index[p.ID]; exists {
			continue
		}
		c.index[p.ID] = len(c.products)
		c.products = append(c.products, p)
	}
	return c
}

// GetAll returns a copy of every product
func (c *MemoryCatalog) GetAll(ctx context.Context) ([]domain.CatalogProduct, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]domain.CatalogProduct, len(c.products))
	copy(out, c.products)
	return out, nil
}

// Get returns one product by id
func (c *MemoryCatalog) Get(ctx context.Context, id string) (domain.CatalogProduct, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	idx, ok := c.index[id]
	if !ok {
		return domain.CatalogProduct{}, domain.ErrProductNotFound
	}
	return c.products[idx], nil
}

// BatchWrite applies ops in order. Either every op applies or none does.
func (c *MemoryCatalog) BatchWrite(ctx context.Context, ops []domain.WriteOperation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Work on copies so a failing op leaves the catalog untouched
	products := make([]domain.CatalogProduct, len(c.products), len(c.products)+len(ops))
	copy(products, c.products)
	index := make(map[string]int, len(c.index)+len(ops))
	for id, i := range c.index {
		index[id] = i
	}

	for i, op := range ops {
		switch op.Kind {
		case domain.OperationUpdate:
			idx, ok := index[op.ID]
			if !ok {
				return fmt.Errorf("op %d: update %q: %w", i, op.ID, domain.ErrProductNotFound)
			}
			if op.Fields == nil {
				return fmt.Errorf("op %d: update %q without fields: %w", i, op.ID, domain.ErrInvalidRequest)
			}
			applyUpdate(&products[idx], *op.Fields)

		case domain.OperationCreate:
			if op.Product == nil || op.Product.ID == "" {
				return fmt.Errorf("op %d: create without product: %w", i, domain.ErrInvalidRequest)
			}
			if _, exists := index[op.Product.ID]; exists {
				return fmt.Errorf("op %d: product %q already exists: %w", i, op.Product.ID, domain.ErrInvalidRequest)
			}
			index[op.Product.ID] = len(products)
			products = append(products, *op.Product)

		default:
			return fmt.Errorf("op %d: unknown kind %q: %w", i, op.Kind, domain.ErrInvalidRequest)
		}
	}

	c.products = products
	c.index = index
	return nil
}

// Len returns the number of products
func (c *MemoryCatalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.products)
}

func applyUpdate(p *domain.CatalogProduct, fields domain.ProductUpdate) {
	p.Quantity = fields.Quantity
	p.UpdatedAt = fields.UpdatedAt
	p.UpdatedBy = fields.UpdatedBy
	p.LastImportID = fields.LastImportID
}
