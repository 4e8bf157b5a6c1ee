// Package cost derives weighted-average cost and valuation from current
// batch state. Stateless and read-only.
package cost

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/batch"
)

// Engine computes valuation figures over the batch store.
type Engine struct {
	store    batch.Store
	products product.Reader
}

// NewEngine creates a cost engine.
func NewEngine(store batch.Store, products product.Reader) *Engine {
	return &Engine{store: store, products: products}
}

// WeightedAverageCost returns
// sum(quantity_current * cost) / sum(quantity_current) over the product's
// batches. With zero stock it falls back to the product's last cost, which
// also avoids the division by zero.
func (e *Engine) WeightedAverageCost(ctx context.Context, productID id.ID) (types.Money, error) {
	batches, err := e.store.BatchesFor(ctx, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load batches: %w", err)
	}

	total, value := totals(batches)
	if total.IsZero() {
		p, err := e.products.GetByID(ctx, productID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("load product for last cost: %w", err)
		}
		return p.LastCost, nil
	}

	return value.Div(decimal.NewFromInt(total.Int64())), nil
}

// TotalValuation returns sum(quantity_current * cost) over the product's
// batches.
func (e *Engine) TotalValuation(ctx context.Context, productID id.ID) (types.Money, error) {
	batches, err := e.store.BatchesFor(ctx, productID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load batches: %w", err)
	}

	_, value := totals(batches)
	return value, nil
}

func totals(batches []*batch.Batch) (types.Quantity, types.Money) {
	var total types.Quantity
	value := decimal.Zero
	for _, b := range batches {
		if !b.HasStock() {
			continue
		}
		total += b.QuantityCurrent
		value = value.Add(b.Value())
	}
	return total, value
}
