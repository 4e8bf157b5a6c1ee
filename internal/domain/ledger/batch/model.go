// Package batch provides the stock batch model and the batch store
// contract. The store is the only component allowed to mutate batch
// quantities; engines read batches and request debits/credits, keeping a
// single choke point for invariant enforcement.
package batch

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
)

// DefaultLotCode labels batches received without a supplier lot number.
const DefaultLotCode = "SIN LOTE"

// Batch represents one stock-receiving event for one product.
//
// Invariant: 0 <= QuantityCurrent <= QuantityInitial at all times.
// Batches are never deleted; fully consumed batches stay at zero for audit.
type Batch struct {
	ID id.ID `db:"id" json:"id"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// PurchaseID back-references the receiving document, enabling reversal.
	// Nil for opening balances and manual adjustments.
	PurchaseID *id.ID `db:"purchase_id" json:"purchaseId,omitempty"`

	// Code is the lot label, user-entered or "SIN LOTE"
	Code string `db:"code" json:"code"`

	// QuantityInitial is the base units received, fixed at creation
	QuantityInitial types.Quantity `db:"quantity_initial" json:"quantityInitial"`

	// QuantityCurrent is the base units remaining
	QuantityCurrent types.Quantity `db:"quantity_current" json:"quantityCurrent"`

	// Cost is the per-base-unit cost at receipt
	Cost types.Money `db:"cost" json:"cost"`

	// Expiration is the lot expiration date, nil when untracked
	Expiration *time.Time `db:"expiration" json:"expiration,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Consumed returns how many base units have left the batch.
func (b *Batch) Consumed() types.Quantity {
	return b.QuantityInitial - b.QuantityCurrent
}

// HasStock reports whether the batch still holds base units.
func (b *Batch) HasStock() bool {
	return b.QuantityCurrent.IsPositive()
}

// Value returns the remaining valuation of the batch.
func (b *Batch) Value() types.Money {
	return b.Cost.Mul(decimal.NewFromInt(b.QuantityCurrent.Int64()))
}

// NewBatch holds the creation parameters for a batch.
type NewBatch struct {
	ProductID       id.ID
	PurchaseID      *id.ID
	Code            string
	QuantityInitial types.Quantity
	Cost            types.Money
	Expiration      *time.Time
}

// OrderPolicy sorts batches into allocation priority order. The policy is
// explicit and named so it can be tested and swapped (FEFO vs. strict
// receipt-order FIFO) without touching allocation logic.
type OrderPolicy func(batches []*Batch)

// OrderByExpirationAsc is the default policy: earliest-expiring stock is
// allocated first (FEFO, the practical corollary of FIFO for dated goods).
// Batches without an expiration sort after dated ones; ties break by
// receipt time.
func OrderByExpirationAsc(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.Expiration == nil && b.Expiration == nil:
			return a.CreatedAt.Before(b.CreatedAt)
		case a.Expiration == nil:
			return false
		case b.Expiration == nil:
			return true
		case a.Expiration.Equal(*b.Expiration):
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.Expiration.Before(*b.Expiration)
		}
	})
}

// OrderByReceiptAsc is the strict-FIFO alternative: oldest receipt first,
// regardless of expiration.
func OrderByReceiptAsc(batches []*Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		return batches[i].CreatedAt.Before(batches[j].CreatedAt)
	})
}
