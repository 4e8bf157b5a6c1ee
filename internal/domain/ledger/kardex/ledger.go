package kardex

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/pkg/logger"
)

// Ledger is the append-only store of movements.
type Ledger interface {
	// Record appends movements. Movements are immutable once recorded.
	Record(ctx context.Context, movements ...Movement) error

	// History returns movements matching the filter, oldest first.
	History(ctx context.Context, filter Filter) ([]Movement, error)
}

// Service validates and records movements on behalf of the document flows.
type Service struct {
	ledger Ledger
}

// NewService creates a kardex service.
func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger}
}

// Entry describes one movement to record.
type Entry struct {
	Date           time.Time
	Direction      Direction
	DocumentType   DocumentType
	DocumentNumber string
	DocumentID     id.ID
	ProductID      id.ID
	Quantity       types.Quantity
	UnitPrice      types.Money
	Counterparty   string
}

// Record validates and appends the given entries.
func (s *Service) Record(ctx context.Context, entries ...Entry) error {
	if len(entries) == 0 {
		return nil
	}

	movements := make([]Movement, 0, len(entries))
	for i, e := range entries {
		if !e.Quantity.IsPositive() {
			return apperror.NewInvalidQuantity("kardex record", e.Quantity.Int64()).
				WithDetail("entry", i)
		}
		if id.IsNil(e.ProductID) {
			return apperror.NewValidation("product is required").
				WithDetail("entry", i)
		}

		movements = append(movements, Movement{
			ID:             id.New(),
			Date:           e.Date,
			Direction:      e.Direction,
			DocumentType:   e.DocumentType,
			DocumentNumber: e.DocumentNumber,
			DocumentID:     e.DocumentID,
			ProductID:      e.ProductID,
			Quantity:       e.Quantity,
			UnitPrice:      e.UnitPrice,
			Total:          e.UnitPrice.Mul(decimal.NewFromInt(e.Quantity.Int64())),
			Counterparty:   e.Counterparty,
			CreatedAt:      time.Now().UTC(),
		})
	}

	if err := s.ledger.Record(ctx, movements...); err != nil {
		return err
	}

	logger.Debug(ctx, "recorded kardex movements",
		"count", len(movements),
		"document", movements[0].DocumentNumber,
	)
	return nil
}

// History returns movements matching the filter.
func (s *Service) History(ctx context.Context, filter Filter) ([]Movement, error) {
	return s.ledger.History(ctx, filter)
}
