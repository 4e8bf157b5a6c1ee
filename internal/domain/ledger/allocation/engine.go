// Package allocation converts a requested base-unit quantity for a product
// into a concrete, feasible set of batch debits.
package allocation

import (
	"fmt"

	"context"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
	"lotix/pkg/logger"
)

// Engine walks batches in priority order, taking
// min(remaining_required, batch.QuantityCurrent) from each until the
// request is satisfied. Allocation is all-or-nothing: if total available
// stock is below the request, no batch is debited.
type Engine struct {
	store  batch.Store
	policy batch.OrderPolicy
}

// NewEngine creates an allocation engine with the given priority policy.
// A nil policy defaults to OrderByExpirationAsc (FEFO).
func NewEngine(store batch.Store, policy batch.OrderPolicy) *Engine {
	if policy == nil {
		policy = batch.OrderByExpirationAsc
	}
	return &Engine{store: store, policy: policy}
}

// Allocate satisfies requiredBase from the product's batches and debits
// the store. The availability check and the debits run under the
// product's lock, so concurrent allocators cannot both validate against a
// stale snapshot and oversell.
func (e *Engine) Allocate(ctx context.Context, productID id.ID, requiredBase types.Quantity) (batch.Allocation, error) {
	if !requiredBase.IsPositive() {
		return nil, apperror.NewInvalidQuantity("allocate", requiredBase.Int64())
	}

	var alloc batch.Allocation
	err := e.store.WithProduct(ctx, productID, func(ctx context.Context) error {
		plan, err := e.plan(ctx, productID, requiredBase)
		if err != nil {
			return err
		}

		for _, entry := range plan {
			if err := e.store.Debit(ctx, entry.BatchID, entry.Quantity); err != nil {
				// The plan was validated against batch remainders under
				// the product lock; a debit failure here is a store bug.
				return fmt.Errorf("debit batch %s: %w", entry.BatchID, err)
			}
		}

		alloc = plan
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Debug(ctx, "allocated stock",
		"product_id", productID,
		"required", requiredBase,
		"batches", len(alloc),
	)
	return alloc, nil
}

// Plan computes the batch draws for the request without debiting the
// store. Used for availability previews; the result is only valid while
// the product's batch set is unchanged.
func (e *Engine) Plan(ctx context.Context, productID id.ID, requiredBase types.Quantity) (batch.Allocation, error) {
	if !requiredBase.IsPositive() {
		return nil, apperror.NewInvalidQuantity("allocate", requiredBase.Int64())
	}

	var plan batch.Allocation
	err := e.store.WithProduct(ctx, productID, func(ctx context.Context) error {
		var err error
		plan, err = e.plan(ctx, productID, requiredBase)
		return err
	})
	return plan, err
}

// Reapply debits an exact, previously computed allocation instead of
// planning a new one. Used to restore a reversed allocation when a
// follow-up step fails; the draws target the same batches the original
// allocation used.
func (e *Engine) Reapply(ctx context.Context, productID id.ID, alloc batch.Allocation) error {
	if alloc.Total().IsZero() {
		return nil
	}

	return e.store.WithProduct(ctx, productID, func(ctx context.Context) error {
		for _, entry := range alloc {
			if err := e.store.Debit(ctx, entry.BatchID, entry.Quantity); err != nil {
				return fmt.Errorf("reapply debit to batch %s: %w", entry.BatchID, err)
			}
		}
		return nil
	})
}

func (e *Engine) plan(ctx context.Context, productID id.ID, requiredBase types.Quantity) (batch.Allocation, error) {
	batches, err := e.store.BatchesFor(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("load batches: %w", err)
	}

	var available types.Quantity
	for _, b := range batches {
		available += b.QuantityCurrent
	}
	if available < requiredBase {
		return nil, apperror.NewInsufficientStock(productID.String(), requiredBase.Int64(), available.Int64())
	}

	e.policy(batches)

	plan := make(batch.Allocation, 0, 2)
	remaining := requiredBase
	for _, b := range batches {
		if remaining.IsZero() {
			break
		}
		if !b.HasStock() {
			continue
		}
		take := remaining.Min(b.QuantityCurrent)
		plan = append(plan, batch.Entry{
			BatchID:   b.ID,
			BatchCode: b.Code,
			Quantity:  take,
		})
		remaining -= take
	}

	// available >= required guarantees the walk completes.
	if !remaining.IsZero() {
		return nil, apperror.NewInternal(fmt.Errorf("allocation underflow: %d base units unassigned", remaining))
	}

	return plan, nil
}
