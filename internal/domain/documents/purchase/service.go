package purchase

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/pkg/logger"
	"lotix/pkg/numerator"
)

// Service orchestrates the purchase lifecycle: draft, commit (receive
// stock), edit (re-receive), void, and payment.
type Service struct {
	repo     Repository
	products *product.Service
	store    batch.Store
	reverser *reversal.Engine
	kardex   *kardex.Service
	numbers  *numerator.Service
	txm      tx.Manager
}

// NewService creates a purchase service.
func NewService(
	repo Repository,
	products *product.Service,
	store batch.Store,
	reverser *reversal.Engine,
	kardexSvc *kardex.Service,
	numbers *numerator.Service,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:     repo,
		products: products,
		store:    store,
		reverser: reverser,
		kardex:   kardexSvc,
		numbers:  numbers,
		txm:      txm,
	}
}

// CreateDraft validates and stores a new draft purchase. Drafts have no
// ledger effect.
func (s *Service) CreateDraft(ctx context.Context, p *Purchase) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	for i := range p.Lines {
		p.Lines[i].ID = id.New()
		p.Lines[i].PurchaseID = p.ID
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return fmt.Errorf("create purchase: %w", err)
	}

	logger.Info(ctx, "purchase draft created", "id", p.ID, "supplier", p.SupplierName)
	return nil
}

// GetByID retrieves a purchase with its lines.
func (s *Service) GetByID(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	return s.repo.GetByID(ctx, purchaseID)
}

// List retrieves purchases with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Purchase, error) {
	return s.repo.List(ctx, filter)
}

// UpdateDraft replaces a draft's header and lines. Committed documents go
// through Edit instead.
func (s *Service) UpdateDraft(ctx context.Context, p *Purchase) error {
	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if err := current.CanCommit(); err != nil {
		// Same guard as commit: anything past draft is not a draft.
		return err
	}
	if err := p.Validate(ctx); err != nil {
		return err
	}
	for i := range p.Lines {
		if id.IsNil(p.Lines[i].ID) {
			p.Lines[i].ID = id.New()
		}
		p.Lines[i].PurchaseID = p.ID
	}
	return s.repo.Update(ctx, p)
}

// Commit applies the purchase's stock effect: one batch per line, a
// kardex IN movement per line, and the product's last cost updated.
func (s *Service) Commit(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := p.CanCommit(); err != nil {
		return nil, err
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.resolveLines(ctx, p); err != nil {
		return nil, err
	}

	if p.Number == "" {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("PUR"), nil, p.Date)
		if err != nil {
			return nil, fmt.Errorf("assign purchase number: %w", err)
		}
		p.Number = number
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.receiveLines(ctx, p); err != nil {
			return err
		}
		p.MarkCommitted()
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase committed",
		"id", p.ID,
		"number", p.Number,
		"lines", len(p.Lines),
	)
	return p, nil
}

// Edit reverses a committed purchase's receipts and re-applies the new
// lines. Blocked when the purchase is paid (PURCHASE_CLOSED) or when any
// of its batches has been consumed by another document
// (BATCH_ALREADY_CONSUMED). The ledger shows the edit as two visible
// steps: an OUT adjustment per reversed batch, then fresh IN receipts.
func (s *Service) Edit(ctx context.Context, updated *Purchase) (*Purchase, error) {
	p, err := s.repo.GetByID(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if err := p.CanEdit(); err != nil {
		return nil, err
	}
	if err := p.CanModify(); err != nil {
		return nil, err
	}

	// Carry over header fields the editor may change; number and status
	// belong to the lifecycle, not the editor.
	p.SupplierName = updated.SupplierName
	p.InvoiceRef = updated.InvoiceRef
	p.Date = updated.Date
	p.Comment = updated.Comment
	p.Lines = updated.Lines
	for i := range p.Lines {
		if id.IsNil(p.Lines[i].ID) {
			p.Lines[i].ID = id.New()
		}
		p.Lines[i].PurchaseID = p.ID
		p.Lines[i].BatchID = id.Nil()
	}
	if err := p.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.resolveLines(ctx, p); err != nil {
		return nil, err
	}

	old, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reverseReceipts(ctx, old, kardex.DocAdjustment); err != nil {
			return err
		}
		if err := s.receiveLines(ctx, p); err != nil {
			return err
		}
		p.Touch()
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase edited", "id", p.ID, "number", p.Number)
	return p, nil
}

// Void reverses the purchase's receipts and moves it to the terminal
// voided state. Subject to the same paid and consumption guards as Edit.
func (s *Service) Void(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if err := p.CanVoid(); err != nil {
		return nil, err
	}
	if err := p.CanModify(); err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reverseReceipts(ctx, p, kardex.DocVoid); err != nil {
			return err
		}
		p.MarkVoided()
		return s.repo.Update(ctx, p)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "purchase voided", "id", p.ID, "number", p.Number)
	return p, nil
}

// MarkPaid settles the purchase, closing it for edits and voids.
func (s *Service) MarkPaid(ctx context.Context, purchaseID id.ID) (*Purchase, error) {
	p, err := s.repo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if !p.IsCommitted() {
		return nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only committed purchases can be paid",
		).WithDetail("status", string(p.Status))
	}
	if p.Paid {
		return p, nil
	}

	p.Paid = true
	p.Touch()
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// resolveLines normalizes entered quantities and costs to base units
// using each product's package content.
func (s *Service) resolveLines(ctx context.Context, p *Purchase) error {
	for i := range p.Lines {
		line := &p.Lines[i]
		prod, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}

		switch line.Unit {
		case types.UnitPackage:
			if !prod.HasPackage() {
				return apperror.NewValidation("product has no package presentation").
					WithDetail("product_id", prod.ID.String()).
					WithDetail("line", i)
			}
			line.QuantityBase = prod.ToBase(line.EnteredQty)
			line.UnitCostBase = line.UnitCost.Div(decimal.NewFromInt(prod.PackageContent))
		default:
			line.QuantityBase = types.Quantity(line.EnteredQty)
			line.UnitCostBase = line.UnitCost
		}
		if line.LotCode == "" {
			line.LotCode = batch.DefaultLotCode
		}
	}
	return nil
}

// receiveLines creates one batch per line and records the IN movements.
// On a mid-way failure the already-created batches are debited back to
// zero so no partial receipt survives.
func (s *Service) receiveLines(ctx context.Context, p *Purchase) error {
	created := make([]id.ID, 0, len(p.Lines))

	fail := func(err error) error {
		if len(created) > 0 {
			if _, cerr := s.reverser.ReversePurchaseReceipts(ctx, created); cerr != nil {
				logger.Error(ctx, "receipt rollback failed", "purchase_id", p.ID, "error", cerr)
			}
		}
		return err
	}

	entries := make([]kardex.Entry, 0, len(p.Lines))
	for i := range p.Lines {
		line := &p.Lines[i]

		b, err := s.store.CreateBatch(ctx, batch.NewBatch{
			ProductID:       line.ProductID,
			PurchaseID:      &p.ID,
			Code:            line.LotCode,
			QuantityInitial: line.QuantityBase,
			Cost:            line.UnitCostBase,
			Expiration:      line.Expiration,
		})
		if err != nil {
			return fail(fmt.Errorf("receive line %d: %w", i, err))
		}
		line.BatchID = b.ID
		created = append(created, b.ID)

		if err := s.products.RecordLastCost(ctx, line.ProductID, line.UnitCostBase); err != nil {
			return fail(err)
		}

		entries = append(entries, kardex.Entry{
			Date:           p.Date,
			Direction:      kardex.DirectionIn,
			DocumentType:   kardex.DocPurchase,
			DocumentNumber: p.Number,
			DocumentID:     p.ID,
			ProductID:      line.ProductID,
			Quantity:       line.QuantityBase,
			UnitPrice:      line.UnitCostBase,
			Counterparty:   p.SupplierName,
		})
	}

	if err := s.kardex.Record(ctx, entries...); err != nil {
		return fail(fmt.Errorf("record receipt movements: %w", err))
	}
	return nil
}

// reverseReceipts removes the stock the purchase received and records the
// compensating OUT movements.
func (s *Service) reverseReceipts(ctx context.Context, p *Purchase, docType kardex.DocumentType) error {
	reversed, err := s.reverser.ReversePurchaseReceipts(ctx, p.BatchIDs())
	if err != nil {
		return err
	}

	entries := make([]kardex.Entry, 0, len(reversed))
	for _, b := range reversed {
		if b.QuantityCurrent.IsZero() {
			continue
		}
		entries = append(entries, kardex.Entry{
			Date:           p.Date,
			Direction:      kardex.DirectionOut,
			DocumentType:   docType,
			DocumentNumber: p.Number,
			DocumentID:     p.ID,
			ProductID:      b.ProductID,
			Quantity:       b.QuantityCurrent,
			UnitPrice:      b.Cost,
			Counterparty:   p.SupplierName,
		})
	}
	return s.kardex.Record(ctx, entries...)
}
