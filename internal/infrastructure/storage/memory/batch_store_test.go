package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/infrastructure/storage/memory"
)

func newBatch(t *testing.T, store *memory.BatchStore, productID id.ID, qty int64) *batch.Batch {
	t.Helper()
	b, err := store.CreateBatch(context.Background(), batch.NewBatch{
		ProductID:       productID,
		QuantityInitial: types.Quantity(qty),
		Cost:            types.MustMoney("1.00"),
	})
	require.NoError(t, err)
	return b
}

func TestBatchStore_CreateBatch(t *testing.T) {
	store := memory.NewBatchStore()

	b := newBatch(t, store, id.New(), 25)
	assert.Equal(t, b.QuantityInitial, b.QuantityCurrent)
	assert.Equal(t, batch.DefaultLotCode, b.Code)

	_, err := store.CreateBatch(context.Background(), batch.NewBatch{
		ProductID:       id.New(),
		QuantityInitial: 0,
	})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidQuantity))

	_, err = store.CreateBatch(context.Background(), batch.NewBatch{QuantityInitial: 5})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestBatchStore_DebitGuards(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	b := newBatch(t, store, id.New(), 10)

	err := store.Debit(ctx, b.ID, 11)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeInsufficientBatchStock))

	err = store.Debit(ctx, id.New(), 1)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))

	require.NoError(t, store.Debit(ctx, b.ID, 10))
	got, err := store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityCurrent.IsZero())

	// Drained batches survive for history.
	batches, err := store.BatchesFor(ctx, b.ProductID)
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestBatchStore_CreditBoundedByInitial(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	b := newBatch(t, store, id.New(), 10)

	require.NoError(t, store.Debit(ctx, b.ID, 4))
	require.NoError(t, store.Credit(ctx, b.ID, 4))

	err := store.Credit(ctx, b.ID, 1)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeOverCredit))
}

func TestBatchStore_ReadsReturnCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	b := newBatch(t, store, id.New(), 10)

	got, err := store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	got.QuantityCurrent = 0

	again, err := store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(10), again.QuantityCurrent)
}

// Concurrent allocators racing for the same product must never oversell:
// the availability check and the debits run under the product lock.
func TestBatchStore_ConcurrentAllocationNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBatchStore()
	engine := allocation.NewEngine(store, nil)
	productID := id.New()

	newBatch(t, store, productID, 100)

	const workers = 20
	var wg sync.WaitGroup
	var mu sync.Mutex
	var allocated types.Quantity

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := engine.Allocate(ctx, productID, 7)
			if err != nil {
				return
			}
			mu.Lock()
			allocated += alloc.Total()
			mu.Unlock()
		}()
	}
	wg.Wait()

	remaining, err := store.TotalStock(ctx, productID)
	require.NoError(t, err)

	// 20 workers * 7 units = 140 requested against 100 available: exactly
	// 14 allocations of 7 can succeed.
	assert.Equal(t, types.Quantity(98), allocated)
	assert.Equal(t, types.Quantity(2), remaining)
	assert.Equal(t, types.Quantity(100), allocated+remaining)
}
