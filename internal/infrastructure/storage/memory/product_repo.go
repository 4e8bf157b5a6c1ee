package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/catalogs/product"
)

// ProductRepo is the in-memory product.Repository.
type ProductRepo struct {
	mu     sync.RWMutex
	byID   map[id.ID]*product.Product
	byCode map[string]id.ID
}

// NewProductRepo creates an empty product repository.
func NewProductRepo() *ProductRepo {
	return &ProductRepo{
		byID:   make(map[id.ID]*product.Product),
		byCode: make(map[string]id.ID),
	}
}

var _ product.Repository = (*ProductRepo)(nil)

// Create inserts a new product, enforcing SKU uniqueness.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byCode[p.Code]; exists {
		return apperror.NewDuplicate("product", "code", p.Code)
	}

	cp := *p
	r.byID[p.ID] = &cp
	r.byCode[p.Code] = p.ID
	return nil
}

// GetByID returns a copy of the product.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[productID]
	if !ok {
		return nil, apperror.NewNotFound("product", productID.String())
	}
	cp := *p
	return &cp, nil
}

// GetByCode returns a copy of the product by SKU.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productID, ok := r.byCode[code]
	if !ok {
		return nil, apperror.NewNotFound("product", code)
	}
	cp := *r.byID[productID]
	return &cp, nil
}

// Update replaces the stored product, checking the optimistic version.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[p.ID]
	if !ok {
		return apperror.NewNotFound("product", p.ID.String())
	}
	if current.Version != p.Version {
		return apperror.NewConcurrentModification("product", p.ID.String())
	}

	cp := *p
	cp.Version++
	delete(r.byCode, current.Code)
	r.byID[p.ID] = &cp
	r.byCode[cp.Code] = p.ID

	p.Version = cp.Version
	return nil
}

// List returns products matching the filter, ordered by code.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := make(map[id.ID]bool, len(filter.IDs))
	for _, productID := range filter.IDs {
		wanted[productID] = true
	}
	search := strings.ToLower(filter.Search)

	out := make([]*product.Product, 0, len(r.byID))
	for _, p := range r.byID {
		if len(wanted) > 0 && !wanted[p.ID] {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Code), search) &&
			!strings.Contains(strings.ToLower(p.Name), search) {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })

	return paginate(out, filter.Offset, filter.Limit), nil
}

// paginate applies offset/limit to an already sorted slice.
func paginate[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
