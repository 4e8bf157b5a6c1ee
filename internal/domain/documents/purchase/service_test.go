package purchase_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/infrastructure/storage/memory"
	"lotix/pkg/numerator"
)

type fixture struct {
	service  *purchase.Service
	products *product.Service
	store    *memory.BatchStore
	kardex   *kardex.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewBatchStore()
	products := product.NewService(memory.NewProductRepo())
	kardexSvc := kardex.NewService(memory.NewKardexLedger())

	service := purchase.NewService(
		memory.NewPurchaseRepo(),
		products,
		store,
		reversal.NewEngine(store),
		kardexSvc,
		numerator.New(memory.NewSequenceStore()),
		tx.Nop{},
	)
	return &fixture{service: service, products: products, store: store, kardex: kardexSvc}
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

func draft(t *testing.T, f *fixture, lines ...purchase.Line) *purchase.Purchase {
	t.Helper()
	p := purchase.New("Distribuidora Norte")
	p.Lines = lines
	require.NoError(t, f.service.CreateDraft(context.Background(), p))
	return p
}

func TestCommit_ReceivesOneBatchPerLine(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	cased := f.product(t, "AGUA", 15)
	loose := f.product(t, "ACEITE", 1)

	exp := time.Now().AddDate(0, 6, 0)
	p := draft(t, f,
		purchase.Line{ProductID: cased.ID, Unit: types.UnitPackage, EnteredQty: 10, UnitCost: types.MustMoney("18.00"), LotCode: "L-01", Expiration: &exp},
		purchase.Line{ProductID: loose.ID, Unit: types.UnitBase, EnteredQty: 48, UnitCost: types.MustMoney("9.80")},
	)

	p, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCommitted, p.Status)
	assert.Contains(t, p.Number, "PUR-")

	// Package line normalized: 10 cases of 15 at 18.00/case = 150 units at 1.20.
	assert.Equal(t, types.Quantity(150), p.Lines[0].QuantityBase)
	assert.True(t, p.Lines[0].UnitCostBase.Equal(types.MustMoney("1.20")))

	total, err := f.store.TotalStock(ctx, cased.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(150), total)

	b, err := f.store.GetBatch(ctx, p.Lines[0].BatchID)
	require.NoError(t, err)
	assert.Equal(t, "L-01", b.Code)
	require.NotNil(t, b.Expiration)
	assert.Equal(t, &p.ID, b.PurchaseID)

	// Last cost tracks the receipt.
	got, err := f.products.GetByID(ctx, cased.ID)
	require.NoError(t, err)
	assert.True(t, got.LastCost.Equal(types.MustMoney("1.20")))

	// One IN movement per line.
	moves, err := f.kardex.History(ctx, kardex.Filter{})
	require.NoError(t, err)
	require.Len(t, moves, 2)
	for _, m := range moves {
		assert.Equal(t, kardex.DirectionIn, m.Direction)
		assert.Equal(t, kardex.DocPurchase, m.DocumentType)
		assert.Equal(t, p.Number, m.DocumentNumber)
	}
}

func TestCommit_DefaultsMissingLotCode(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 5, UnitCost: types.MustMoney("1.00")})
	p, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	b, err := f.store.GetBatch(ctx, p.Lines[0].BatchID)
	require.NoError(t, err)
	assert.Equal(t, batch.DefaultLotCode, b.Code)
}

func TestCommit_PackageUnitRequiresPackagePresentation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	loose := f.product(t, "LOOSE", 1)

	p := draft(t, f, purchase.Line{ProductID: loose.ID, Unit: types.UnitPackage, EnteredQty: 2, UnitCost: types.MustMoney("5.00")})
	_, err := f.service.Commit(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCommit_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 5, UnitCost: types.MustMoney("1.00")})
	_, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	_, err = f.service.Commit(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentCommitted))
}

func TestEdit_ReversesAndReceivesAgain(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 100, UnitCost: types.MustMoney("2.00")})
	p, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)
	oldBatch := p.Lines[0].BatchID

	updated := *p
	updated.Lines = []purchase.Line{
		{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 60, UnitCost: types.MustMoney("2.10")},
	}
	edited, err := f.service.Edit(ctx, &updated)
	require.NoError(t, err)

	assert.Equal(t, entity.StatusCommitted, edited.Status)
	assert.NotEqual(t, oldBatch, edited.Lines[0].BatchID)

	total, err := f.store.TotalStock(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(60), total)

	// Old batch stays drained for audit.
	old, err := f.store.GetBatch(ctx, oldBatch)
	require.NoError(t, err)
	assert.True(t, old.QuantityCurrent.IsZero())

	// Visible trail: IN receipt, OUT adjustment, IN receipt.
	moves, err := f.kardex.History(ctx, kardex.Filter{})
	require.NoError(t, err)
	require.Len(t, moves, 3)
	assert.Equal(t, kardex.DocAdjustment, moves[1].DocumentType)
	assert.Equal(t, kardex.DirectionOut, moves[1].Direction)
}

func TestEdit_BlockedWhenBatchConsumed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 100, UnitCost: types.MustMoney("2.00")})
	p, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	// A sale consumed part of the received batch.
	require.NoError(t, f.store.Debit(ctx, p.Lines[0].BatchID, 1))

	updated := *p
	updated.Lines = []purchase.Line{
		{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 60, UnitCost: types.MustMoney("2.00")},
	}
	_, err = f.service.Edit(ctx, &updated)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeBatchAlreadyConsumed))

	// Stock untouched by the failed edit.
	total, err := f.store.TotalStock(ctx, prod.ID)
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(99), total)
}

func TestVoid_RemovesReceipts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 40, UnitCost: types.MustMoney("3.00")})
	p, err := f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	p, err = f.service.Void(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusVoided, p.Status)

	total, err := f.store.TotalStock(ctx, prod.ID)
	require.NoError(t, err)
	assert.True(t, total.IsZero())

	// Voided is terminal.
	_, err = f.service.Void(ctx, p.ID)
	require.Error(t, err)

	_, err = f.service.Edit(ctx, p)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDocumentVoided))
}

func TestMarkPaid_ClosesPurchase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	p := draft(t, f, purchase.Line{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 40, UnitCost: types.MustMoney("3.00")})

	// Drafts cannot be paid.
	_, err := f.service.MarkPaid(ctx, p.ID)
	require.Error(t, err)

	p, err = f.service.Commit(ctx, p.ID)
	require.NoError(t, err)

	p, err = f.service.MarkPaid(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.Paid)

	// Paying again is idempotent.
	p, err = f.service.MarkPaid(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, p.Paid)

	// Paid purchases refuse edits and voids.
	_, err = f.service.Edit(ctx, p)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodePurchaseClosed))

	_, err = f.service.Void(ctx, p.ID)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodePurchaseClosed))
}

func TestCreateDraft_Validation(t *testing.T) {
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	cases := []struct {
		name string
		doc  *purchase.Purchase
	}{
		{"missing supplier", func() *purchase.Purchase {
			p := purchase.New("")
			p.Lines = []purchase.Line{{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 1, UnitCost: types.MustMoney("1.00")}}
			return p
		}()},
		{"no lines", purchase.New("Acme")},
		{"zero quantity", func() *purchase.Purchase {
			p := purchase.New("Acme")
			p.Lines = []purchase.Line{{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 0, UnitCost: types.MustMoney("1.00")}}
			return p
		}()},
		{"negative cost", func() *purchase.Purchase {
			p := purchase.New("Acme")
			p.Lines = []purchase.Line{{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 1, UnitCost: types.MustMoney("-1.00")}}
			return p
		}()},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := f.service.CreateDraft(context.Background(), tc.doc)
			require.Error(t, err)
		})
	}
}

func TestList_Filters(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	prod := f.product(t, "SKU", 1)

	for i := 0; i < 3; i++ {
		p := purchase.New(fmt.Sprintf("Supplier %d", i))
		p.Lines = []purchase.Line{{ProductID: prod.ID, Unit: types.UnitBase, EnteredQty: 1, UnitCost: types.MustMoney("1.00")}}
		require.NoError(t, f.service.CreateDraft(ctx, p))
		if i == 0 {
			_, err := f.service.Commit(ctx, p.ID)
			require.NoError(t, err)
		}
	}

	committed := entity.StatusCommitted
	out, err := f.service.List(ctx, purchase.ListFilter{Status: &committed})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = f.service.List(ctx, purchase.ListFilter{Supplier: "Supplier 1"})
	require.NoError(t, err)
	assert.Len(t, out, 1)

	out, err = f.service.List(ctx, purchase.ListFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, out, 2)
}
