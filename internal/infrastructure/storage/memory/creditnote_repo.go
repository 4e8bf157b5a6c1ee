package memory

import (
	"context"
	"sort"
	"sync"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/creditnote"
)

// CreditNoteRepo is the in-memory creditnote.Repository.
type CreditNoteRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*creditnote.CreditNote
}

// NewCreditNoteRepo creates an empty credit note repository.
func NewCreditNoteRepo() *CreditNoteRepo {
	return &CreditNoteRepo{byID: make(map[id.ID]*creditnote.CreditNote)}
}

var _ creditnote.Repository = (*CreditNoteRepo)(nil)

func copyCreditNote(cn *creditnote.CreditNote) *creditnote.CreditNote {
	cp := *cn
	cp.Lines = make([]creditnote.Line, len(cn.Lines))
	for i := range cn.Lines {
		cp.Lines[i] = cn.Lines[i]
		cp.Lines[i].Credits = cn.Lines[i].Credits.Clone()
	}
	return &cp
}

// Create inserts a new credit note.
func (r *CreditNoteRepo) Create(ctx context.Context, cn *creditnote.CreditNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[cn.ID]; exists {
		return apperror.NewDuplicate("credit note", "id", cn.ID.String())
	}
	r.byID[cn.ID] = copyCreditNote(cn)
	return nil
}

// GetByID returns a deep copy of the credit note.
func (r *CreditNoteRepo) GetByID(ctx context.Context, creditNoteID id.ID) (*creditnote.CreditNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cn, ok := r.byID[creditNoteID]
	if !ok {
		return nil, apperror.NewNotFound("credit note", creditNoteID.String())
	}
	return copyCreditNote(cn), nil
}

// Update replaces the stored credit note, checking the optimistic version.
func (r *CreditNoteRepo) Update(ctx context.Context, cn *creditnote.CreditNote) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[cn.ID]
	if !ok {
		return apperror.NewNotFound("credit note", cn.ID.String())
	}
	if current.Version != cn.Version {
		return apperror.NewConcurrentModification("credit note", cn.ID.String())
	}

	cp := copyCreditNote(cn)
	cp.Version++
	r.byID[cn.ID] = cp

	cn.Version = cp.Version
	return nil
}

// List returns credit notes matching the filter, newest first.
func (r *CreditNoteRepo) List(ctx context.Context, filter creditnote.ListFilter) ([]*creditnote.CreditNote, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*creditnote.CreditNote, 0, len(r.byID))
	for _, cn := range r.byID {
		if filter.Status != nil && cn.Status != *filter.Status {
			continue
		}
		if filter.SaleID != nil && cn.SaleID != *filter.SaleID {
			continue
		}
		if filter.FromDate != nil && cn.Date.Before(*filter.FromDate) {
			continue
		}
		if filter.ToDate != nil && cn.Date.After(*filter.ToDate) {
			continue
		}
		out = append(out, copyCreditNote(cn))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })

	return paginate(out, filter.Offset, filter.Limit), nil
}
