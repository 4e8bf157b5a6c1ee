package creditnote_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/infrastructure/storage/memory"
	"lotix/pkg/numerator"
)

type fixture struct {
	service  *creditnote.Service
	sales    *sale.Service
	products *product.Service
	store    *memory.BatchStore
	kardex   *kardex.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewBatchStore()
	products := product.NewService(memory.NewProductRepo())
	kardexSvc := kardex.NewService(memory.NewKardexLedger())
	numbers := numerator.New(memory.NewSequenceStore())

	sales := sale.NewService(
		memory.NewSaleRepo(),
		products,
		allocation.NewEngine(store, nil),
		reversal.NewEngine(store),
		kardexSvc,
		nil,
		numbers,
		tx.Nop{},
	)
	service := creditnote.NewService(memory.NewCreditNoteRepo(), sales, kardexSvc, numbers, tx.Nop{})
	return &fixture{service: service, sales: sales, products: products, store: store, kardex: kardexSvc}
}

// soldSale commits a sale drawing from two dated batches so the credit
// path has a draw order to unwind.
func (f *fixture) soldSale(t *testing.T) (*sale.Sale, *batch.Batch, *batch.Batch) {
	t.Helper()
	ctx := context.Background()

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))

	early := time.Now().AddDate(0, 2, 0)
	late := time.Now().AddDate(0, 8, 0)
	a, err := f.store.CreateBatch(ctx, batch.NewBatch{
		ProductID: prod.ID, Code: "LOT-A", QuantityInitial: 50,
		Cost: types.MustMoney("1.00"), Expiration: &early,
	})
	require.NoError(t, err)
	b, err := f.store.CreateBatch(ctx, batch.NewBatch{
		ProductID: prod.ID, Code: "LOT-B", QuantityInitial: 100,
		Cost: types.MustMoney("1.00"), Expiration: &late,
	})
	require.NoError(t, err)

	s := sale.New("Bodega Carmen")
	s.Lines = []sale.Line{{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 70, UnitPrice: types.MustMoney("1.50"),
	}}
	require.NoError(t, f.sales.CreateDraft(ctx, s))
	s, err = f.sales.Commit(ctx, s.ID)
	require.NoError(t, err)
	return s, a, b
}

func TestCommit_ReturnsStockInDrawOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, a, b := f.soldSale(t)

	// Sold 70: 50 from A, 20 from B. Returning 55 credits A in full and
	// then 5 to B.
	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 55}}
	require.NoError(t, f.service.CreateDraft(ctx, cn))
	assert.Equal(t, "Bodega Carmen", cn.CustomerName)

	cn, err := f.service.Commit(ctx, cn.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCommitted, cn.Status)
	assert.Contains(t, cn.Number, "CN-")

	credits := cn.Lines[0].Credits
	require.Len(t, credits, 2)
	assert.Equal(t, a.ID, credits[0].BatchID)
	assert.Equal(t, types.Quantity(50), credits[0].Quantity)
	assert.Equal(t, b.ID, credits[1].BatchID)
	assert.Equal(t, types.Quantity(5), credits[1].Quantity)

	// Refund at the sale's own price.
	assert.True(t, cn.Refund().Equal(types.MustMoney("82.50")))

	got, err := f.store.GetBatch(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(50), got.QuantityCurrent)
	got, err = f.store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(85), got.QuantityCurrent)

	// The sale advanced its returned counter and changed status.
	saleDoc, err := f.sales.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPartiallyReturned, saleDoc.Status)
	assert.Equal(t, types.Quantity(55), saleDoc.Lines[0].Returned)
	assert.Equal(t, types.Quantity(15), saleDoc.Lines[0].Returnable())

	moves, err := f.kardex.History(ctx, kardex.Filter{})
	require.NoError(t, err)
	require.Len(t, moves, 2) // sale OUT, credit note IN
	assert.Equal(t, kardex.DocCreditNote, moves[1].DocumentType)
	assert.Equal(t, kardex.DirectionIn, moves[1].Direction)
	assert.Equal(t, types.Quantity(55), moves[1].Quantity)
}

func TestCommit_SecondReturnConsumesResidual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _, b := f.soldSale(t)

	first := creditnote.New(s.ID)
	first.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 55}}
	require.NoError(t, f.service.CreateDraft(ctx, first))
	_, err := f.service.Commit(ctx, first.ID)
	require.NoError(t, err)

	// 15 remain returnable, all of them drawn from B.
	second := creditnote.New(s.ID)
	second.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 15}}
	require.NoError(t, f.service.CreateDraft(ctx, second))
	second, err = f.service.Commit(ctx, second.ID)
	require.NoError(t, err)

	credits := second.Lines[0].Credits
	require.Len(t, credits, 1)
	assert.Equal(t, b.ID, credits[0].BatchID)
	assert.Equal(t, types.Quantity(15), credits[0].Quantity)

	saleDoc, err := f.sales.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, saleDoc.FullyReturned())

	got, err := f.store.GetBatch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(100), got.QuantityCurrent)
}

func TestCommit_OverReturnRejected(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, a, _ := f.soldSale(t)

	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 71}}
	require.NoError(t, f.service.CreateDraft(ctx, cn))

	_, err := f.service.Commit(ctx, cn.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	// Nothing moved; the note is still a draft.
	got, err := f.store.GetBatch(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, got.QuantityCurrent.IsZero())

	cn, err = f.service.GetByID(ctx, cn.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDraft, cn.Status)
}

func TestCommit_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _, _ := f.soldSale(t)

	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 10}}
	require.NoError(t, f.service.CreateDraft(ctx, cn))
	_, err := f.service.Commit(ctx, cn.ID)
	require.NoError(t, err)

	_, err = f.service.Commit(ctx, cn.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentCommitted))
}

func TestCreateDraft_Validation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _, _ := f.soldSale(t)

	tests := []struct {
		name string
		cn   *creditnote.CreditNote
	}{
		{
			name: "no lines",
			cn:   creditnote.New(s.ID),
		},
		{
			name: "zero quantity",
			cn: func() *creditnote.CreditNote {
				cn := creditnote.New(s.ID)
				cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 0}}
				return cn
			}(),
		},
		{
			name: "missing sale line reference",
			cn: func() *creditnote.CreditNote {
				cn := creditnote.New(s.ID)
				cn.Lines = []creditnote.Line{{QuantityBase: 5}}
				return cn
			}(),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.service.CreateDraft(ctx, tt.cn)
			require.Error(t, err)
		})
	}

	t.Run("unknown sale", func(t *testing.T) {
		cn := creditnote.New(id.New())
		cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 5}}
		err := f.service.CreateDraft(ctx, cn)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
	})
}

func TestCommit_DraftSaleRefusesReturns(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("SKU", "Product", 1)
	require.NoError(t, f.products.Create(ctx, prod))

	s := sale.New("Bodega Carmen")
	s.Lines = []sale.Line{{
		ProductID: prod.ID, Kind: sale.LineRegular,
		Unit: types.UnitBase, EnteredQty: 5, UnitPrice: types.MustMoney("1.00"),
	}}
	require.NoError(t, f.sales.CreateDraft(ctx, s))

	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 1}}
	require.NoError(t, f.service.CreateDraft(ctx, cn))

	_, err := f.service.Commit(ctx, cn.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))
}

func TestList_FiltersBySale(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _, _ := f.soldSale(t)

	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{{SaleLineID: s.Lines[0].ID, QuantityBase: 10}}
	require.NoError(t, f.service.CreateDraft(ctx, cn))

	list, err := f.service.List(ctx, creditnote.ListFilter{SaleID: &s.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, cn.ID, list[0].ID)

	other := id.New()
	list, err = f.service.List(ctx, creditnote.ListFilter{SaleID: &other})
	require.NoError(t, err)
	assert.Empty(t, list)
}
