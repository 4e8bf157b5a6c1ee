package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/sale"
)

// SaleRepo is the in-memory sale.Repository.
type SaleRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*sale.Sale
}

// NewSaleRepo creates an empty sale repository.
func NewSaleRepo() *SaleRepo {
	return &SaleRepo{byID: make(map[id.ID]*sale.Sale)}
}

var _ sale.Repository = (*SaleRepo)(nil)

// copySale deep-copies the document including the per-line allocations,
// which the services mutate in place.
func copySale(s *sale.Sale) *sale.Sale {
	cp := *s
	cp.Lines = make([]sale.Line, len(s.Lines))
	for i := range s.Lines {
		cp.Lines[i] = s.Lines[i]
		cp.Lines[i].Allocation = s.Lines[i].Allocation.Clone()
	}
	return &cp
}

// Create inserts a new sale.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[s.ID]; exists {
		return apperror.NewDuplicate("sale", "id", s.ID.String())
	}
	r.byID[s.ID] = copySale(s)
	return nil
}

// GetByID returns a deep copy of the sale.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[saleID]
	if !ok {
		return nil, apperror.NewNotFound("sale", saleID.String())
	}
	return copySale(s), nil
}

// Update replaces the stored sale, checking the optimistic version.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[s.ID]
	if !ok {
		return apperror.NewNotFound("sale", s.ID.String())
	}
	if current.Version != s.Version {
		return apperror.NewConcurrentModification("sale", s.ID.String())
	}

	cp := copySale(s)
	cp.Version++
	r.byID[s.ID] = cp

	s.Version = cp.Version
	return nil
}

// List returns sales matching the filter, newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*sale.Sale, 0, len(r.byID))
	for _, s := range r.byID {
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		if filter.Customer != "" &&
			!strings.Contains(strings.ToLower(s.CustomerName), strings.ToLower(filter.Customer)) {
			continue
		}
		if filter.FromDate != nil && s.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && s.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, copySale(s))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	return paginate(out, filter.Offset, filter.Limit), nil
}
