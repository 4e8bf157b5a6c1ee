package creditnote

import (
	"context"
	"time"

	"lotix/internal/core/entity"
	"lotix/internal/core/id"
)

// Repository persists credit notes with their lines.
type Repository interface {
	Create(ctx context.Context, cn *CreditNote) error
	GetByID(ctx context.Context, creditNoteID id.ID) (*CreditNote, error)
	Update(ctx context.Context, cn *CreditNote) error
	List(ctx context.Context, filter ListFilter) ([]*CreditNote, error)
}

// ListFilter narrows credit note listings.
type ListFilter struct {
	Status   *entity.Status
	SaleID   *id.ID
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
