package batch

import (
	"context"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
)

// Store owns the set of stock batches per product.
//
// Contract (enforced by every implementation):
//   - CreateBatch rejects non-positive initial quantities (INVALID_QUANTITY).
//   - Debit rejects amounts above the batch remainder (INSUFFICIENT_BATCH_STOCK).
//   - Credit rejects amounts that would push the batch above its initial
//     quantity (OVER_CREDIT); reversal-bounded credits are tracked by the
//     caller, not by the store.
//   - Batches are never deleted, even at zero quantity.
type Store interface {
	// CreateBatch records a stock-receiving event. The new batch starts
	// with QuantityCurrent == QuantityInitial.
	CreateBatch(ctx context.Context, nb NewBatch) (*Batch, error)

	// GetBatch retrieves one batch by ID.
	GetBatch(ctx context.Context, batchID id.ID) (*Batch, error)

	// Debit decrements a batch's current quantity.
	Debit(ctx context.Context, batchID id.ID, qty types.Quantity) error

	// Credit increments a batch's current quantity.
	Credit(ctx context.Context, batchID id.ID, qty types.Quantity) error

	// TotalStock sums QuantityCurrent over all batches of the product.
	TotalStock(ctx context.Context, productID id.ID) (types.Quantity, error)

	// BatchesFor returns every batch of the product, including
	// zero-quantity batches for history lookups. Callers apply an
	// OrderPolicy for allocation priority.
	BatchesFor(ctx context.Context, productID id.ID) ([]*Batch, error)

	// WithProduct serializes fn against all other mutations of the same
	// product's batch set. Operations on different products proceed in
	// parallel. Every validate-then-mutate sequence (an allocation, a
	// reversal) must run inside WithProduct so availability checks cannot
	// go stale between validation and mutation.
	WithProduct(ctx context.Context, productID id.ID, fn func(ctx context.Context) error) error
}

// Entry records that Quantity base units of an allocation were drawn from
// one batch.
type Entry struct {
	BatchID   id.ID          `db:"batch_id" json:"batchId"`
	BatchCode string         `db:"batch_code" json:"batchCode"`
	Quantity  types.Quantity `db:"quantity" json:"quantity"`
}

// Allocation is the ordered set of batch draws that satisfied one sale
// line. It is stored verbatim on the line so it can be reversed exactly.
type Allocation []Entry

// Total sums the allocated base units.
func (a Allocation) Total() types.Quantity {
	var total types.Quantity
	for _, e := range a {
		total += e.Quantity
	}
	return total
}

// DropFirst removes the first q base units in draw order, returning the
// residual allocation. Used to compute what remains returnable after
// earlier partial returns, which are always credited in draw order.
func (a Allocation) DropFirst(q types.Quantity) Allocation {
	out := make(Allocation, 0, len(a))
	remaining := q
	for _, e := range a {
		if remaining >= e.Quantity {
			remaining -= e.Quantity
			continue
		}
		out = append(out, Entry{
			BatchID:   e.BatchID,
			BatchCode: e.BatchCode,
			Quantity:  e.Quantity - remaining,
		})
		remaining = 0
	}
	return out
}

// Clone returns a deep copy. Allocations are stored on documents and must
// not alias engine-internal slices.
func (a Allocation) Clone() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	copy(out, a)
	return out
}
