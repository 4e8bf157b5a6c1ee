package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/purchase"
)

// PurchaseRepo is the in-memory purchase.Repository.
type PurchaseRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*purchase.Purchase
}

// NewPurchaseRepo creates an empty purchase repository.
func NewPurchaseRepo() *PurchaseRepo {
	return &PurchaseRepo{byID: make(map[id.ID]*purchase.Purchase)}
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

func copyPurchase(p *purchase.Purchase) *purchase.Purchase {
	cp := *p
	cp.Lines = make([]purchase.Line, len(p.Lines))
	copy(cp.Lines, p.Lines)
	return &cp
}

// Create inserts a new purchase.
func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[p.ID]; exists {
		return apperror.NewDuplicate("purchase", "id", p.ID.String())
	}
	r.byID[p.ID] = copyPurchase(p)
	return nil
}

// GetByID returns a deep copy of the purchase.
func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.byID[purchaseID]
	if !ok {
		return nil, apperror.NewNotFound("purchase", purchaseID.String())
	}
	return copyPurchase(p), nil
}

// Update replaces the stored purchase, checking the optimistic version.
func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[p.ID]
	if !ok {
		return apperror.NewNotFound("purchase", p.ID.String())
	}
	if current.Version != p.Version {
		return apperror.NewConcurrentModification("purchase", p.ID.String())
	}

	cp := copyPurchase(p)
	cp.Version++
	r.byID[p.ID] = cp

	p.Version = cp.Version
	return nil
}

// List returns purchases matching the filter, newest first.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Purchase, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*purchase.Purchase, 0, len(r.byID))
	for _, p := range r.byID {
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.Supplier != "" &&
			!strings.Contains(strings.ToLower(p.SupplierName), strings.ToLower(filter.Supplier)) {
			continue
		}
		if filter.FromDate != nil && p.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && p.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, copyPurchase(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	return paginate(out, filter.Offset, filter.Limit), nil
}
