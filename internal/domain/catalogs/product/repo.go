package product

import (
	"context"

	"lotix/internal/core/id"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	// Create inserts a new product
	Create(ctx context.Context, p *Product) error

	// GetByID retrieves a product by ID
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetByCode retrieves a product by SKU
	GetByCode(ctx context.Context, code string) (*Product, error)

	// Update modifies an existing product (with optimistic locking)
	Update(ctx context.Context, p *Product) error

	// List retrieves products, optionally filtered by a search term
	List(ctx context.Context, filter ListFilter) ([]*Product, error)
}

// Reader is the read-only subset consumed by the ledger engines.
type Reader interface {
	GetByID(ctx context.Context, productID id.ID) (*Product, error)
}

// ListFilter contains filtering options for product listings.
type ListFilter struct {
	// Search matches against code and name
	Search string

	// IDs filters by specific IDs
	IDs []id.ID

	Limit  int
	Offset int
}
