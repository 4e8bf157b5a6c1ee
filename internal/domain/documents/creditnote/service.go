package creditnote

import (
	"context"
	"fmt"

	"lotix/internal/core/id"
	"lotix/internal/core/tx"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/kardex"
	"lotix/pkg/logger"
	"lotix/pkg/numerator"
)

// Service orchestrates customer returns. Committed credit notes are
// final: correcting one means issuing another, never editing.
type Service struct {
	repo    Repository
	sales   *sale.Service
	kardex  *kardex.Service
	numbers *numerator.Service
	txm     tx.Manager
}

// NewService creates a credit note service.
func NewService(
	repo Repository,
	sales *sale.Service,
	kardexSvc *kardex.Service,
	numbers *numerator.Service,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:    repo,
		sales:   sales,
		kardex:  kardexSvc,
		numbers: numbers,
		txm:     txm,
	}
}

// CreateDraft validates and stores a new draft credit note. Return
// quantities are only checked against the sale at commit.
func (s *Service) CreateDraft(ctx context.Context, cn *CreditNote) error {
	if err := cn.Validate(ctx); err != nil {
		return err
	}

	// The sale must exist and accept returns; committed-status and
	// quantity checks happen at commit.
	saleDoc, err := s.sales.GetByID(ctx, cn.SaleID)
	if err != nil {
		return err
	}
	cn.CustomerName = saleDoc.CustomerName

	for i := range cn.Lines {
		cn.Lines[i].ID = id.New()
		cn.Lines[i].CreditNoteID = cn.ID
	}
	if err := s.repo.Create(ctx, cn); err != nil {
		return fmt.Errorf("create credit note: %w", err)
	}

	logger.Info(ctx, "credit note draft created", "id", cn.ID, "sale_id", cn.SaleID)
	return nil
}

// GetByID retrieves a credit note with its lines.
func (s *Service) GetByID(ctx context.Context, creditNoteID id.ID) (*CreditNote, error) {
	return s.repo.GetByID(ctx, creditNoteID)
}

// List retrieves credit notes with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*CreditNote, error) {
	return s.repo.List(ctx, filter)
}

// Commit applies the return: stock goes back into the sale's original
// batches in draw order, the sale's returned counters advance, and the
// refund is recorded at the sale's prices. The sale moves to
// PARTIALLY_RETURNED.
func (s *Service) Commit(ctx context.Context, creditNoteID id.ID) (*CreditNote, error) {
	cn, err := s.repo.GetByID(ctx, creditNoteID)
	if err != nil {
		return nil, err
	}
	if err := cn.CanCommit(); err != nil {
		return nil, err
	}
	if err := cn.Validate(ctx); err != nil {
		return nil, err
	}

	requests := make([]sale.ReturnRequest, 0, len(cn.Lines))
	for i := range cn.Lines {
		requests = append(requests, sale.ReturnRequest{
			LineID:       cn.Lines[i].SaleLineID,
			QuantityBase: cn.Lines[i].QuantityBase,
		})
	}

	if cn.Number == "" {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("CN"), nil, cn.Date)
		if err != nil {
			return nil, fmt.Errorf("assign credit note number: %w", err)
		}
		cn.Number = number
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		saleDoc, applied, err := s.sales.ApplyReturns(ctx, cn.SaleID, requests)
		if err != nil {
			return err
		}
		cn.CustomerName = saleDoc.CustomerName

		entries := make([]kardex.Entry, 0, len(applied))
		for i, ar := range applied {
			cn.Lines[i].ProductID = ar.ProductID
			cn.Lines[i].UnitPriceBase = ar.UnitPriceBase
			cn.Lines[i].Credits = ar.Credits

			entries = append(entries, kardex.Entry{
				Date:           cn.Date,
				Direction:      kardex.DirectionIn,
				DocumentType:   kardex.DocCreditNote,
				DocumentNumber: cn.Number,
				DocumentID:     cn.ID,
				ProductID:      ar.ProductID,
				Quantity:       ar.QuantityBase,
				UnitPrice:      ar.UnitPriceBase,
				Counterparty:   cn.CustomerName,
			})
		}
		if err := s.kardex.Record(ctx, entries...); err != nil {
			return fmt.Errorf("record return movements: %w", err)
		}

		cn.MarkCommitted()
		return s.repo.Update(ctx, cn)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "credit note committed",
		"id", cn.ID,
		"number", cn.Number,
		"sale_id", cn.SaleID,
		"refund", cn.Refund(),
	)
	return cn, nil
}
