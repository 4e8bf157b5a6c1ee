package dispatch_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/dispatch"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/infrastructure/storage/memory"
	"lotix/pkg/numerator"
)

type fixture struct {
	service  *dispatch.Service
	sales    *sale.Service
	products *product.Service
	store    *memory.BatchStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewBatchStore()
	products := product.NewService(memory.NewProductRepo())
	saleRepo := memory.NewSaleRepo()

	sales := sale.NewService(
		saleRepo,
		products,
		allocation.NewEngine(store, nil),
		reversal.NewEngine(store),
		kardex.NewService(memory.NewKardexLedger()),
		nil,
		numerator.New(memory.NewSequenceStore()),
		tx.Nop{},
	)
	return &fixture{
		service:  dispatch.NewService(saleRepo, products),
		sales:    sales,
		products: products,
		store:    store,
	}
}

func (f *fixture) product(t *testing.T, code string, packageContent int64) *product.Product {
	t.Helper()
	p := product.New(code, "Product "+code, packageContent)
	if packageContent > 1 {
		p.PackageUnit = "CJA"
	}
	require.NoError(t, f.products.Create(context.Background(), p))
	return p
}

func (f *fixture) receive(t *testing.T, p *product.Product, code string, qty int64) *batch.Batch {
	t.Helper()
	b, err := f.store.CreateBatch(context.Background(), batch.NewBatch{
		ProductID:       p.ID,
		Code:            code,
		QuantityInitial: types.Quantity(qty),
		Cost:            types.MustMoney("1.00"),
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) sell(t *testing.T, date time.Time, customer string, lines ...sale.Line) *sale.Sale {
	t.Helper()
	ctx := context.Background()
	s := sale.New(customer)
	s.Date = date
	s.Lines = lines
	require.NoError(t, f.sales.CreateDraft(ctx, s))
	s, err := f.sales.Commit(ctx, s.ID)
	require.NoError(t, err)
	return s
}

func TestBuildList_AggregatesPerProductAndLot(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC)

	water := f.product(t, "AGUA", 15)
	oil := f.product(t, "ACEITE", 1)
	lotA := f.receive(t, water, "LOT-A", 300)
	f.receive(t, oil, "LOT-O", 50)

	f.sell(t, date, "Bodega Carmen", sale.Line{
		ProductID: water.ID, Kind: sale.LineRegular,
		Unit: types.UnitPackage, EnteredQty: 2, UnitPrice: types.MustMoney("22.50"),
	})
	f.sell(t, date, "Minimarket Sol",
		sale.Line{
			ProductID: water.ID, Kind: sale.LineRegular,
			Unit: types.UnitBase, EnteredQty: 7, UnitPrice: types.MustMoney("1.60"),
		},
		sale.Line{
			ProductID: oil.ID, Kind: sale.LineRegular,
			Unit: types.UnitBase, EnteredQty: 6, UnitPrice: types.MustMoney("11.90"),
		},
	)

	list, err := f.service.BuildList(ctx, date)
	require.NoError(t, err)

	assert.Equal(t, 2, list.Documents)
	require.Len(t, list.Items, 2)

	// Items sort by product code.
	oilItem := list.Items[0]
	assert.Equal(t, "ACEITE", oilItem.ProductCode)
	assert.Equal(t, types.Quantity(6), oilItem.TotalBase)

	waterItem := list.Items[1]
	assert.Equal(t, "AGUA", waterItem.ProductCode)
	assert.Equal(t, types.Quantity(37), waterItem.TotalBase)
	assert.Equal(t, int64(2), waterItem.Split.Packages)
	assert.Equal(t, int64(7), waterItem.Split.Loose)
	assert.Equal(t, "CJA", waterItem.PackageUnit)

	// Both sales drew from the same lot; the picks merge.
	require.Len(t, waterItem.Lots, 1)
	assert.Equal(t, lotA.ID, waterItem.Lots[0].BatchID)
	assert.Equal(t, "LOT-A", waterItem.Lots[0].BatchCode)
	assert.Equal(t, types.Quantity(37), waterItem.Lots[0].Quantity)
}

func TestBuildList_OnlyThatBusinessDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := f.product(t, "SKU", 1)
	f.receive(t, prod, "LOT-A", 100)

	day := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	f.sell(t, day.Add(23*time.Hour), "Bodega Carmen", sale.Line{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 10, UnitPrice: types.MustMoney("2.00"),
	})
	f.sell(t, day.AddDate(0, 0, 1), "Bodega Carmen", sale.Line{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 20, UnitPrice: types.MustMoney("2.00"),
	})

	// A draft on the same day contributes nothing.
	draft := sale.New("Bodega Carmen")
	draft.Date = day
	draft.Lines = []sale.Line{{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 99, UnitPrice: types.MustMoney("2.00"),
	}}
	require.NoError(t, f.sales.CreateDraft(ctx, draft))

	list, err := f.service.BuildList(ctx, day)
	require.NoError(t, err)

	assert.Equal(t, 1, list.Documents)
	require.Len(t, list.Items, 1)
	assert.Equal(t, types.Quantity(10), list.Items[0].TotalBase)
	assert.Equal(t, day, list.Date)
}

func TestBuildList_IncludesPartiallyReturnedSales(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	date := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

	prod := f.product(t, "SKU", 1)
	f.receive(t, prod, "LOT-A", 100)

	s := f.sell(t, date, "Bodega Carmen", sale.Line{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 40, UnitPrice: types.MustMoney("2.00"),
	})

	_, _, err := f.sales.ApplyReturns(ctx, s.ID, []sale.ReturnRequest{
		{LineID: s.Lines[0].ID, QuantityBase: 15},
	})
	require.NoError(t, err)

	// The picking list shows what was dispatched; the return is a
	// separate inbound document.
	list, err := f.service.BuildList(ctx, date)
	require.NoError(t, err)
	assert.Equal(t, 1, list.Documents)
	require.Len(t, list.Items, 1)
	assert.Equal(t, types.Quantity(40), list.Items[0].TotalBase)
}

func TestBuildList_EmptyDay(t *testing.T) {
	f := newFixture(t)

	list, err := f.service.BuildList(context.Background(), time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Zero(t, list.Documents)
	assert.Empty(t, list.Items)
}
