package batch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
)

func expires(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestOrderByExpirationAsc(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := &Batch{Code: "late", Expiration: expires(2024, 6, 1), CreatedAt: base}
	early := &Batch{Code: "early", Expiration: expires(2024, 2, 1), CreatedAt: base.Add(time.Hour)}
	undatedOld := &Batch{Code: "undated-old", CreatedAt: base}
	undatedNew := &Batch{Code: "undated-new", CreatedAt: base.Add(2 * time.Hour)}
	tie := &Batch{Code: "tie", Expiration: expires(2024, 2, 1), CreatedAt: base}

	batches := []*Batch{undatedNew, late, early, undatedOld, tie}
	OrderByExpirationAsc(batches)

	got := make([]string, len(batches))
	for i, b := range batches {
		got[i] = b.Code
	}
	// Dated first by expiration (receipt time breaks the tie), undated
	// last by receipt time.
	assert.Equal(t, []string{"tie", "early", "late", "undated-old", "undated-new"}, got)
}

func TestOrderByReceiptAsc(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := &Batch{Code: "second", CreatedAt: base.Add(time.Hour), Expiration: expires(2024, 2, 1)}
	first := &Batch{Code: "first", CreatedAt: base, Expiration: expires(2024, 6, 1)}

	batches := []*Batch{second, first}
	OrderByReceiptAsc(batches)

	assert.Equal(t, "first", batches[0].Code)
	assert.Equal(t, "second", batches[1].Code)
}

func TestAllocationDropFirst(t *testing.T) {
	a, b := id.New(), id.New()
	alloc := Allocation{
		{BatchID: a, BatchCode: "A", Quantity: 50},
		{BatchID: b, BatchCode: "B", Quantity: 20},
	}

	t.Run("drops whole leading entry", func(t *testing.T) {
		out := alloc.DropFirst(50)
		assert.Equal(t, Allocation{{BatchID: b, BatchCode: "B", Quantity: 20}}, out)
	})

	t.Run("splits a partially dropped entry", func(t *testing.T) {
		out := alloc.DropFirst(55)
		assert.Equal(t, Allocation{{BatchID: b, BatchCode: "B", Quantity: 15}}, out)
	})

	t.Run("zero drops nothing", func(t *testing.T) {
		assert.Equal(t, types.Quantity(70), alloc.DropFirst(0).Total())
	})

	t.Run("dropping everything leaves an empty allocation", func(t *testing.T) {
		assert.Empty(t, alloc.DropFirst(70))
	})
}

func TestBatchConsumedAndValue(t *testing.T) {
	b := &Batch{
		QuantityInitial: 100,
		QuantityCurrent: 60,
		Cost:            types.MustMoney("2.50"),
	}
	assert.Equal(t, types.Quantity(40), b.Consumed())
	assert.True(t, b.HasStock())
	assert.True(t, b.Value().Equal(types.MustMoney("150.00")))
}
