package sale

import (
	"context"
	"time"

	"lotix/internal/core/entity"
	"lotix/internal/core/id"
)

// Repository persists sales with their lines and stored allocations.
type Repository interface {
	Create(ctx context.Context, s *Sale) error
	GetByID(ctx context.Context, saleID id.ID) (*Sale, error)
	Update(ctx context.Context, s *Sale) error
	List(ctx context.Context, filter ListFilter) ([]*Sale, error)
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status   *entity.Status
	Customer string
	FromDate *time.Time
	ToDate   *time.Time
	Limit    int
	Offset   int
}
