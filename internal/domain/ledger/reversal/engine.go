// Package reversal undoes the stock effect of previously recorded
// allocations and receipts, enabling edit, void, and return workflows.
//
// All reversal failures are reported before any mutation is applied:
// every operation pre-validates the full set of affected batches under
// the product lock, so no partial reversal is ever committed.
package reversal

import (
	"context"
	"fmt"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
	"lotix/pkg/logger"
)

// Engine reverses batch mutations through the store's single choke point.
type Engine struct {
	store batch.Store
}

// NewEngine creates a reversal engine.
func NewEngine(store batch.Store) *Engine {
	return &Engine{store: store}
}

// ProductAllocation pairs a stored allocation with its product, the unit
// of work for sale-line reversals.
type ProductAllocation struct {
	ProductID  id.ID
	Allocation batch.Allocation
}

// ReverseSaleAllocation credits back every batch draw of one sale line's
// stored allocation. Must be called before applying a new allocation when
// editing a sale, so the product's stock reflects only the new line
// afterward.
func (e *Engine) ReverseSaleAllocation(ctx context.Context, pa ProductAllocation) error {
	if len(pa.Allocation) == 0 {
		return nil
	}

	return e.store.WithProduct(ctx, pa.ProductID, func(ctx context.Context) error {
		if err := e.preflightCredits(ctx, pa.Allocation); err != nil {
			return err
		}
		return e.applyCredits(ctx, pa.Allocation)
	})
}

// ReverseAllocations reverses a set of sale-line allocations, grouping by
// product so each product's credits are validated and applied atomically
// under its lock. If a later product group fails, already-applied groups
// are compensated by debiting the credits back.
func (e *Engine) ReverseAllocations(ctx context.Context, pas []ProductAllocation) error {
	applied := make([]ProductAllocation, 0, len(pas))

	for _, pa := range pas {
		if err := e.ReverseSaleAllocation(ctx, pa); err != nil {
			e.compensateCredits(ctx, applied)
			return err
		}
		applied = append(applied, pa)
	}
	return nil
}

// ReversePurchaseReceipts removes the stock received by the given batches
// so the originating purchase can be edited or voided. Only permitted if
// no batch has been consumed by a document outside the one being edited:
// reconstructing which sale lines depended on a now-changing batch cannot
// be done without ambiguity, so any external consumption fails the whole
// operation with BATCH_ALREADY_CONSUMED.
//
// Returns the reversed batches with their pre-reversal remainders, for
// ledger recording by the caller.
func (e *Engine) ReversePurchaseReceipts(ctx context.Context, batchIDs []id.ID) ([]*batch.Batch, error) {
	// Fast-fail pass outside the locks: surface consumed batches before
	// touching anything.
	for _, batchID := range batchIDs {
		b, err := e.store.GetBatch(ctx, batchID)
		if err != nil {
			return nil, err
		}
		if consumed := b.Consumed(); !consumed.IsZero() {
			return nil, apperror.NewBatchAlreadyConsumed(batchID.String(), consumed.Int64())
		}
	}

	reversed := make([]*batch.Batch, 0, len(batchIDs))
	for _, batchID := range batchIDs {
		b, err := e.reverseReceipt(ctx, batchID)
		if err != nil {
			e.compensateDebits(ctx, reversed)
			return nil, err
		}
		reversed = append(reversed, b)
	}

	logger.Info(ctx, "reversed purchase receipts", "batches", len(reversed))
	return reversed, nil
}

// reverseReceipt re-checks the consumption guard under the product lock
// and debits the batch to zero.
func (e *Engine) reverseReceipt(ctx context.Context, batchID id.ID) (*batch.Batch, error) {
	var snapshot *batch.Batch

	b, err := e.store.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	err = e.store.WithProduct(ctx, b.ProductID, func(ctx context.Context) error {
		current, err := e.store.GetBatch(ctx, batchID)
		if err != nil {
			return err
		}
		if consumed := current.Consumed(); !consumed.IsZero() {
			return apperror.NewBatchAlreadyConsumed(batchID.String(), consumed.Int64())
		}
		if current.QuantityCurrent.IsZero() {
			// Empty receipt; nothing to remove.
			snapshot = current
			return nil
		}
		if err := e.store.Debit(ctx, batchID, current.QuantityCurrent); err != nil {
			return fmt.Errorf("remove receipt quantity: %w", err)
		}
		snapshot = current
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}

// ApplyPartialReturn redistributes a returned base quantity across the
// batches of the original allocation, in the same order they were drawn,
// taking min(remaining_to_return, entry.Quantity) from each entry. The
// returned quantity is fully re-credited and no batch receives more than
// its entry in the original allocation.
//
// Returns the credited entries, for ledger recording by the caller.
func (e *Engine) ApplyPartialReturn(ctx context.Context, productID id.ID, original batch.Allocation, returned types.Quantity) (batch.Allocation, error) {
	if !returned.IsPositive() {
		return nil, apperror.NewInvalidQuantity("partial return", returned.Int64())
	}
	if total := original.Total(); returned > total {
		return nil, apperror.NewValidation("returned quantity exceeds original allocation").
			WithDetail("returned", returned.Int64()).
			WithDetail("allocated", total.Int64())
	}

	credits := make(batch.Allocation, 0, len(original))
	remaining := returned
	for _, entry := range original {
		if remaining.IsZero() {
			break
		}
		take := remaining.Min(entry.Quantity)
		credits = append(credits, batch.Entry{
			BatchID:   entry.BatchID,
			BatchCode: entry.BatchCode,
			Quantity:  take,
		})
		remaining -= take
	}

	err := e.store.WithProduct(ctx, productID, func(ctx context.Context) error {
		if err := e.preflightCredits(ctx, credits); err != nil {
			return err
		}
		return e.applyCredits(ctx, credits)
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "applied partial return",
		"product_id", productID,
		"returned", returned,
		"batches", len(credits),
	)
	return credits, nil
}

// preflightCredits verifies every credit fits below the batch's initial
// quantity. Runs under the product lock, so the check cannot go stale
// before applyCredits.
func (e *Engine) preflightCredits(ctx context.Context, credits batch.Allocation) error {
	for _, entry := range credits {
		b, err := e.store.GetBatch(ctx, entry.BatchID)
		if err != nil {
			return err
		}
		if b.QuantityCurrent+entry.Quantity > b.QuantityInitial {
			return apperror.NewOverCredit(
				entry.BatchID.String(),
				entry.Quantity.Int64(),
				b.QuantityCurrent.Int64(),
				b.QuantityInitial.Int64(),
			)
		}
	}
	return nil
}

func (e *Engine) applyCredits(ctx context.Context, credits batch.Allocation) error {
	for _, entry := range credits {
		if err := e.store.Credit(ctx, entry.BatchID, entry.Quantity); err != nil {
			return fmt.Errorf("credit batch %s: %w", entry.BatchID, err)
		}
	}
	return nil
}

// compensateCredits debits back credits that were applied before a later
// product group failed. Best effort: a concurrent consumer may have taken
// the re-credited stock, which is logged and surfaced as inconsistency.
func (e *Engine) compensateCredits(ctx context.Context, applied []ProductAllocation) {
	for _, pa := range applied {
		pa := pa
		err := e.store.WithProduct(ctx, pa.ProductID, func(ctx context.Context) error {
			for _, entry := range pa.Allocation {
				if err := e.store.Debit(ctx, entry.BatchID, entry.Quantity); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			logger.Error(ctx, "reversal compensation failed",
				"product_id", pa.ProductID,
				"error", err,
			)
		}
	}
}

// compensateDebits restores receipt quantities removed before a later
// batch failed. Credits are bounded by the just-removed amounts, so they
// cannot over-credit.
func (e *Engine) compensateDebits(ctx context.Context, reversed []*batch.Batch) {
	for _, b := range reversed {
		if b.QuantityCurrent.IsZero() {
			continue
		}
		if err := e.store.Credit(ctx, b.ID, b.QuantityCurrent); err != nil {
			logger.Error(ctx, "receipt reversal compensation failed",
				"batch_id", b.ID,
				"error", err,
			)
		}
	}
}
