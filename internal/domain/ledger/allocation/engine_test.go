package allocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/infrastructure/storage/memory"
)

func receive(t *testing.T, store batch.Store, productID id.ID, code string, qty int64, cost string, exp *time.Time) *batch.Batch {
	t.Helper()
	b, err := store.CreateBatch(context.Background(), batch.NewBatch{
		ProductID:       productID,
		Code:            code,
		QuantityInitial: types.Quantity(qty),
		Cost:            types.MustMoney(cost),
		Expiration:      exp,
	})
	require.NoError(t, err)
	return b
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestAllocate_DrainsEarliestExpirationFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	a := receive(t, store, productID, "LOT-A", 50, "10.00", datePtr(2024, 1, 10))
	b := receive(t, store, productID, "LOT-B", 100, "11.00", datePtr(2024, 2, 10))

	alloc, err := engine.Allocate(ctx, productID, 70)
	require.NoError(t, err)

	require.Len(t, alloc, 2)
	assert.Equal(t, a.ID, alloc[0].BatchID)
	assert.Equal(t, types.Quantity(50), alloc[0].Quantity)
	assert.Equal(t, b.ID, alloc[1].BatchID)
	assert.Equal(t, types.Quantity(20), alloc[1].Quantity)
	assert.Equal(t, types.Quantity(70), alloc.Total())

	total, err := store.TotalStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(80), total)

	drained, err := store.GetBatch(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, drained.QuantityCurrent.IsZero())
}

func TestAllocate_UndatedBatchesDrawLast(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	undated := receive(t, store, productID, "LOT-N", 40, "10.00", nil)
	dated := receive(t, store, productID, "LOT-D", 40, "10.00", datePtr(2024, 6, 1))

	alloc, err := engine.Allocate(ctx, productID, 50)
	require.NoError(t, err)

	require.Len(t, alloc, 2)
	assert.Equal(t, dated.ID, alloc[0].BatchID)
	assert.Equal(t, types.Quantity(40), alloc[0].Quantity)
	assert.Equal(t, undated.ID, alloc[1].BatchID)
	assert.Equal(t, types.Quantity(10), alloc[1].Quantity)
}

func TestAllocate_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	receive(t, store, productID, "LOT-A", 30, "10.00", nil)
	receive(t, store, productID, "LOT-B", 20, "10.00", nil)

	_, err := engine.Allocate(ctx, productID, 51)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientStock))

	// Nothing was debited.
	total, err := store.TotalStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(50), total)
}

func TestAllocate_RejectsNonPositiveQuantity(t *testing.T) {
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)

	for _, qty := range []types.Quantity{0, -5} {
		_, err := engine.Allocate(context.Background(), id.New(), qty)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))
	}
}

func TestPlan_DoesNotDebit(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	receive(t, store, productID, "LOT-A", 50, "10.00", datePtr(2024, 1, 10))
	receive(t, store, productID, "LOT-B", 100, "11.00", datePtr(2024, 2, 10))

	plan, err := engine.Plan(ctx, productID, 70)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(70), plan.Total())

	total, err := store.TotalStock(ctx, productID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(150), total)
}

func TestReapply_DebitsExactEntries(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	a := receive(t, store, productID, "LOT-A", 50, "10.00", nil)
	b := receive(t, store, productID, "LOT-B", 50, "10.00", nil)

	alloc := batch.Allocation{
		{BatchID: a.ID, BatchCode: a.Code, Quantity: 30},
		{BatchID: b.ID, BatchCode: b.Code, Quantity: 5},
	}
	require.NoError(t, engine.Reapply(ctx, productID, alloc))

	got, err := store.GetBatch(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(20), got.QuantityCurrent)

	got, err = store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(45), got.QuantityCurrent)
}

func TestAllocate_ExpirationTieBreaksByReceipt(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	exp := datePtr(2024, 3, 1)
	first := receive(t, store, productID, "LOT-1", 10, "10.00", exp)
	time.Sleep(time.Millisecond)
	receive(t, store, productID, "LOT-2", 10, "10.00", exp)

	alloc, err := engine.Allocate(ctx, productID, 5)
	require.NoError(t, err)
	require.Len(t, alloc, 1)
	assert.Equal(t, first.ID, alloc[0].BatchID)
}
