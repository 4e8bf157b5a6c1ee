package sale

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/domain/promo"
	"lotix/pkg/logger"
	"lotix/pkg/numerator"
)

// Service orchestrates the sale lifecycle: draft, commit (allocate
// stock), edit (reverse and re-allocate), void, and partial returns on
// behalf of credit notes.
type Service struct {
	repo      Repository
	products  *product.Service
	allocator *allocation.Engine
	reverser  *reversal.Engine
	kardex    *kardex.Service
	promos    *promo.Service
	numbers   *numerator.Service
	txm       tx.Manager
}

// NewService creates a sale service. promos may be nil when the promo
// subsystem is disabled.
func NewService(
	repo Repository,
	products *product.Service,
	allocator *allocation.Engine,
	reverser *reversal.Engine,
	kardexSvc *kardex.Service,
	promos *promo.Service,
	numbers *numerator.Service,
	txm tx.Manager,
) *Service {
	return &Service{
		repo:      repo,
		products:  products,
		allocator: allocator,
		reverser:  reverser,
		kardex:    kardexSvc,
		promos:    promos,
		numbers:   numbers,
		txm:       txm,
	}
}

// CreateDraft validates and stores a new draft sale. Drafts have no
// ledger effect; stock is only checked at commit.
func (s *Service) CreateDraft(ctx context.Context, doc *Sale) error {
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	for i := range doc.Lines {
		doc.Lines[i].ID = id.New()
		doc.Lines[i].SaleID = doc.ID
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		return fmt.Errorf("create sale: %w", err)
	}

	logger.Info(ctx, "sale draft created", "id", doc.ID, "customer", doc.CustomerName)
	return nil
}

// GetByID retrieves a sale with its lines.
func (s *Service) GetByID(ctx context.Context, saleID id.ID) (*Sale, error) {
	return s.repo.GetByID(ctx, saleID)
}

// List retrieves sales with filtering.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Sale, error) {
	return s.repo.List(ctx, filter)
}

// UpdateDraft replaces a draft's header and lines. Committed documents
// go through Edit instead.
func (s *Service) UpdateDraft(ctx context.Context, doc *Sale) error {
	current, err := s.repo.GetByID(ctx, doc.ID)
	if err != nil {
		return err
	}
	if err := current.CanCommit(); err != nil {
		// Same guard as commit: anything past draft is not a draft.
		return err
	}
	if err := doc.Validate(ctx); err != nil {
		return err
	}
	for i := range doc.Lines {
		if id.IsNil(doc.Lines[i].ID) {
			doc.Lines[i].ID = id.New()
		}
		doc.Lines[i].SaleID = doc.ID
	}
	return s.repo.Update(ctx, doc)
}

// Commit applies the sale's stock effect. Allocation is all-or-nothing
// per line and per document: if any line cannot be fully satisfied, the
// whole commit fails and lines allocated so far are credited back.
func (s *Service) Commit(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := doc.CanCommit(); err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}

	if err := s.resolveLines(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.regeneratePromoLines(ctx, doc); err != nil {
		return nil, err
	}

	if doc.Number == "" {
		number, err := s.numbers.GetNextNumber(ctx, numerator.DefaultConfig("SAL"), nil, doc.Date)
		if err != nil {
			return nil, fmt.Errorf("assign sale number: %w", err)
		}
		doc.Number = number
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.allocateLines(ctx, doc); err != nil {
			return err
		}
		doc.MarkCommitted()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale committed",
		"id", doc.ID,
		"number", doc.Number,
		"lines", len(doc.Lines),
	)
	return doc, nil
}

// Edit reverses a committed sale's allocations and applies the new
// lines. The ledger shows the edit as two visible steps: an IN
// adjustment per line, then fresh OUT issues. Sales with partial returns
// refuse edits; the returns have pinned the original allocation.
func (s *Service) Edit(ctx context.Context, updated *Sale) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, updated.ID)
	if err != nil {
		return nil, err
	}
	if err := doc.CanEdit(); err != nil {
		return nil, err
	}

	old, err := s.repo.GetByID(ctx, doc.ID)
	if err != nil {
		return nil, err
	}

	doc.CustomerName = updated.CustomerName
	doc.Date = updated.Date
	doc.Comment = updated.Comment
	doc.Lines = updated.Lines
	for i := range doc.Lines {
		if id.IsNil(doc.Lines[i].ID) {
			doc.Lines[i].ID = id.New()
		}
		doc.Lines[i].SaleID = doc.ID
		doc.Lines[i].Allocation = nil
		doc.Lines[i].Returned = 0
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, err
	}
	if err := s.resolveLines(ctx, doc); err != nil {
		return nil, err
	}
	if err := s.regeneratePromoLines(ctx, doc); err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reverseLines(ctx, old, kardex.DocAdjustment); err != nil {
			return err
		}
		if err := s.allocateLines(ctx, doc); err != nil {
			// The old effect was already reversed; put it back so a
			// failed edit leaves the document untouched.
			s.restoreAllocations(ctx, old)
			return err
		}
		doc.Touch()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale edited", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// Void credits back the sale's remaining allocations and moves it to the
// terminal voided state. For partially returned sales only the residual
// is credited; the returned part already went back through credit notes.
func (s *Service) Void(ctx context.Context, saleID id.ID) (*Sale, error) {
	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, err
	}
	if err := doc.CanVoid(); err != nil {
		return nil, err
	}

	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.reverseLines(ctx, doc, kardex.DocVoid); err != nil {
			return err
		}
		doc.MarkVoided()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "sale voided", "id", doc.ID, "number", doc.Number)
	return doc, nil
}

// ReturnRequest asks for part of one line to be credited back.
type ReturnRequest struct {
	LineID       id.ID
	QuantityBase types.Quantity
}

// AppliedReturn reports the batches credited for one returned line.
type AppliedReturn struct {
	LineID        id.ID
	ProductID     id.ID
	Kind          LineKind
	QuantityBase  types.Quantity
	UnitPriceBase types.Money
	Credits       batch.Allocation
}

// ApplyReturns credits returned quantities back into the batches each
// line originally drew from, in draw order, and advances each line's
// returned counter. Called by the credit note flow; the caller records
// the ledger movements and the refund.
func (s *Service) ApplyReturns(ctx context.Context, saleID id.ID, requests []ReturnRequest) (*Sale, []AppliedReturn, error) {
	if len(requests) == 0 {
		return nil, nil, apperror.NewValidation("return must have at least one line")
	}

	doc, err := s.repo.GetByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}
	if !doc.IsCommitted() {
		return nil, nil, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only committed sales accept returns",
		).WithDetail("document_id", doc.ID.String()).WithDetail("status", string(doc.Status))
	}

	// Validate every request against the document before touching stock.
	for i, req := range requests {
		line, ok := doc.LineByID(req.LineID)
		if !ok {
			return nil, nil, apperror.NewNotFound("sale line", req.LineID.String())
		}
		if !req.QuantityBase.IsPositive() {
			return nil, nil, apperror.NewInvalidQuantity("return line", req.QuantityBase.Int64())
		}
		if req.QuantityBase > line.Returnable() {
			return nil, nil, apperror.NewValidation("returned quantity exceeds remaining returnable quantity").
				WithDetail("line", i).
				WithDetail("returned", req.QuantityBase.Int64()).
				WithDetail("returnable", line.Returnable().Int64())
		}
	}

	applied := make([]AppliedReturn, 0, len(requests))
	err = s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		for _, req := range requests {
			line, _ := doc.LineByID(req.LineID)

			credits, err := s.reverser.ApplyPartialReturn(ctx, line.ProductID, line.ResidualAllocation(), req.QuantityBase)
			if err != nil {
				s.compensateReturns(ctx, applied)
				return err
			}

			line.Returned += req.QuantityBase
			applied = append(applied, AppliedReturn{
				LineID:        line.ID,
				ProductID:     line.ProductID,
				Kind:          line.Kind,
				QuantityBase:  req.QuantityBase,
				UnitPriceBase: line.UnitPriceBase,
				Credits:       credits,
			})
		}

		doc.MarkPartiallyReturned()
		return s.repo.Update(ctx, doc)
	})
	if err != nil {
		return nil, nil, err
	}

	return doc, applied, nil
}

// resolveLines normalizes entered quantities and prices to base units.
// Free lines keep a zero price regardless of presentation.
func (s *Service) resolveLines(ctx context.Context, doc *Sale) error {
	for i := range doc.Lines {
		line := &doc.Lines[i]
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
			line.UnitPriceBase = line.UnitPrice.Div(decimal.NewFromInt(prod.PackageContent))
		default:
			line.QuantityBase = types.Quantity(line.EnteredQty)
			line.UnitPriceBase = line.UnitPrice
		}
		if line.IsFree() {
			line.UnitPriceBase = types.ZeroMoney()
		}
	}
	return nil
}

// regeneratePromoLines drops previously generated promo lines and
// re-evaluates the active rules against the regular lines.
func (s *Service) regeneratePromoLines(ctx context.Context, doc *Sale) error {
	kept := doc.Lines[:0]
	for _, line := range doc.Lines {
		if line.Kind != LineAutoPromo {
			kept = append(kept, line)
		}
	}
	doc.Lines = kept

	if s.promos == nil {
		return nil
	}

	for i := range doc.Lines {
		line := &doc.Lines[i]
		if line.Kind != LineRegular {
			continue
		}
		prod, err := s.products.GetByID(ctx, line.ProductID)
		if err != nil {
			return err
		}

		split := prod.Split(line.QuantityBase)
		amount, _ := line.Amount().Float64()
		grants, err := s.promos.GrantsFor(ctx, promo.LineContext{
			ProductID:   line.ProductID,
			ProductCode: prod.Code,
			QtyBase:     line.QuantityBase,
			Packages:    split.Packages,
			Loose:       split.Loose,
			Amount:      amount,
		})
		if err != nil {
			return err
		}

		for _, grant := range grants {
			ruleID := grant.RuleID
			doc.Lines = append(doc.Lines, Line{
				ID:            id.New(),
				SaleID:        doc.ID,
				ProductID:     grant.ProductID,
				Kind:          LineAutoPromo,
				SourceRuleID:  &ruleID,
				Unit:          types.UnitBase,
				EnteredQty:    grant.QuantityBase.Int64(),
				UnitPrice:     types.ZeroMoney(),
				QuantityBase:  grant.QuantityBase,
				UnitPriceBase: types.ZeroMoney(),
			})
		}
	}
	return nil
}

// allocateLines allocates every line and records the OUT movements. On
// failure, lines allocated so far are credited back so the document
// stays without ledger effect.
func (s *Service) allocateLines(ctx context.Context, doc *Sale) error {
	var done []reversal.ProductAllocation

	fail := func(err error) error {
		if len(done) > 0 {
			if rerr := s.reverser.ReverseAllocations(ctx, done); rerr != nil {
				logger.Error(ctx, "allocation rollback failed", "sale_id", doc.ID, "error", rerr)
			}
		}
		return err
	}

	entries := make([]kardex.Entry, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]

		alloc, err := s.allocator.Allocate(ctx, line.ProductID, line.QuantityBase)
		if err != nil {
			return fail(err)
		}
		line.Allocation = alloc
		done = append(done, reversal.ProductAllocation{
			ProductID:  line.ProductID,
			Allocation: alloc.Clone(),
		})

		entries = append(entries, kardex.Entry{
			Date:           doc.Date,
			Direction:      kardex.DirectionOut,
			DocumentType:   kardex.DocSale,
			DocumentNumber: doc.Number,
			DocumentID:     doc.ID,
			ProductID:      line.ProductID,
			Quantity:       line.QuantityBase,
			UnitPrice:      line.UnitPriceBase,
			Counterparty:   doc.CustomerName,
		})
	}

	if err := s.kardex.Record(ctx, entries...); err != nil {
		return fail(fmt.Errorf("record issue movements: %w", err))
	}
	return nil
}

// reverseLines credits back the residual allocation of every line and
// records the compensating IN movements.
func (s *Service) reverseLines(ctx context.Context, doc *Sale, docType kardex.DocumentType) error {
	pas := make([]reversal.ProductAllocation, 0, len(doc.Lines))
	entries := make([]kardex.Entry, 0, len(doc.Lines))
	for i := range doc.Lines {
		line := &doc.Lines[i]
		residual := line.ResidualAllocation()
		if residual.Total().IsZero() {
			continue
		}
		pas = append(pas, reversal.ProductAllocation{
			ProductID:  line.ProductID,
			Allocation: residual,
		})
		entries = append(entries, kardex.Entry{
			Date:           doc.Date,
			Direction:      kardex.DirectionIn,
			DocumentType:   docType,
			DocumentNumber: doc.Number,
			DocumentID:     doc.ID,
			ProductID:      line.ProductID,
			Quantity:       residual.Total(),
			UnitPrice:      line.UnitPriceBase,
			Counterparty:   doc.CustomerName,
		})
	}

	if err := s.reverser.ReverseAllocations(ctx, pas); err != nil {
		return err
	}
	return s.kardex.Record(ctx, entries...)
}

// restoreAllocations re-debits a reversed document's batches after a
// failed edit. The credits were applied moments ago under this flow, so
// the stock is normally still there; a concurrent taker makes this best
// effort, which is logged.
func (s *Service) restoreAllocations(ctx context.Context, doc *Sale) {
	for i := range doc.Lines {
		line := doc.Lines[i]
		residual := line.ResidualAllocation()
		if residual.Total().IsZero() {
			continue
		}
		err := s.allocator.Reapply(ctx, line.ProductID, residual)
		if err != nil {
			logger.Error(ctx, "edit rollback failed",
				"sale_id", doc.ID,
				"line_id", line.ID,
				"error", err,
			)
		}
	}
}

// compensateReturns debits back credits applied by earlier return lines
// after a later one failed.
func (s *Service) compensateReturns(ctx context.Context, applied []AppliedReturn) {
	for _, ar := range applied {
		err := s.allocator.Reapply(ctx, ar.ProductID, ar.Credits)
		if err != nil {
			logger.Error(ctx, "return rollback failed",
				"line_id", ar.LineID,
				"error", err,
			)
		}
	}
}
