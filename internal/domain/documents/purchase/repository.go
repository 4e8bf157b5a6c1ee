package purchase

import (
	"context"
	"time"

	"lotix/internal/core/entity"
	"lotix/internal/core/id"
)

// Repository persists purchases with their lines.
type Repository interface {
	Create(ctx context.Context, p *Purchase) error
	GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error)
	Update(ctx context.Context, p *Purchase) error
	List(ctx context.Context, filter ListFilter) ([]*Purchase, error)
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	Status   *entity.Status
	Supplier string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
