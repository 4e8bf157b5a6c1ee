package cost_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/cost"
	"lotix/internal/infrastructure/storage/memory"
)

type readerStub struct {
	products map[id.ID]*product.Product
}

func (r *readerStub) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.products[productID], nil
}

func seedBatch(t *testing.T, store batch.Store, productID id.ID, qty int64, costStr string) *batch.Batch {
	t.Helper()
	b, err := store.CreateBatch(context.Background(), batch.NewBatch{
		ProductID:       productID,
		Code:            "LOT",
		QuantityInitial: types.Quantity(qty),
		Cost:            types.MustMoney(costStr),
	})
	require.NoError(t, err)
	return b
}

func TestWeightedAverageCost(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	productID := id.New()
	engine := cost.NewEngine(store, &readerStub{})

	seedBatch(t, store, productID, 50, "10.00")
	seedBatch(t, store, productID, 100, "11.00")

	// (50*10 + 100*11) / 150
	wac, err := engine.WeightedAverageCost(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, "10.6667", wac.StringFixed(4))
}

func TestWeightedAverageCost_IgnoresDrainedBatches(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	productID := id.New()
	engine := cost.NewEngine(store, &readerStub{})

	cheap := seedBatch(t, store, productID, 50, "10.00")
	seedBatch(t, store, productID, 100, "11.00")

	// Drain the cheap batch entirely; only the 11.00 stock remains.
	alloc := allocation.NewEngine(store, nil)
	_, err := alloc.Allocate(ctx, productID, 50)
	require.NoError(t, err)

	drained, err := store.GetBatch(ctx, cheap.ID)
	require.NoError(t, err)
	require.True(t, drained.QuantityCurrent.IsZero())

	wac, err := engine.WeightedAverageCost(ctx, productID)
	require.NoError(t, err)
	assert.True(t, wac.Equal(types.MustMoney("11.00")), "got %s", wac)
}

func TestWeightedAverageCost_ZeroStockFallsBackToLastCost(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	productID := id.New()

	reader := &readerStub{products: map[id.ID]*product.Product{
		productID: {Code: "X", Name: "X", LastCost: types.MustMoney("9.50")},
	}}
	engine := cost.NewEngine(store, reader)

	wac, err := engine.WeightedAverageCost(ctx, productID)
	require.NoError(t, err)
	assert.True(t, wac.Equal(types.MustMoney("9.50")), "got %s", wac)
}

func TestTotalValuation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	productID := id.New()
	engine := cost.NewEngine(store, &readerStub{})

	seedBatch(t, store, productID, 50, "10.00")
	seedBatch(t, store, productID, 100, "11.00")

	value, err := engine.TotalValuation(ctx, productID)
	require.NoError(t, err)
	assert.True(t, value.Equal(types.MustMoney("1600.00")), "got %s", value)
}
