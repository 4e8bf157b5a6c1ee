// Package main seeds an in-memory stack with a demo trading day and
// prints the resulting reports. Useful for exercising the full document
// flow without a database.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"lotix/internal/core/entity"
	coretx "lotix/internal/core/tx"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/dispatch"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/domain/ledger/allocation"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/cost"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/ledger/reversal"
	"lotix/internal/domain/promo"
	"lotix/internal/domain/reports"
	"lotix/internal/infrastructure/storage/memory"
	"lotix/pkg/numerator"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "seed failed:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	store := memory.NewBatchStore()
	products := product.NewService(memory.NewProductRepo())
	kardexSvc := kardex.NewService(memory.NewKardexLedger())
	allocator := allocation.NewEngine(store, batch.OrderByExpirationAsc)
	reverser := reversal.NewEngine(store)
	costEngine := cost.NewEngine(store, products)
	numbers := numerator.New(memory.NewSequenceStore())
	txm := coretx.Nop{}

	eval, err := promo.NewEvaluator()
	if err != nil {
		return err
	}
	promos := promo.NewService(memory.NewPromoRepo(), eval)

	saleRepo := memory.NewSaleRepo()
	purchases := purchase.NewService(memory.NewPurchaseRepo(), products, store, reverser, kardexSvc, numbers, txm)
	sales := sale.NewService(saleRepo, products, allocator, reverser, kardexSvc, promos, numbers, txm)
	creditNotes := creditnote.NewService(memory.NewCreditNoteRepo(), sales, kardexSvc, numbers, txm)
	reportsSvc := reports.NewService(kardexSvc, costEngine, store, products)
	dispatchSvc := dispatch.NewService(saleRepo, products)

	// Catalog: a cased product and a loose one.
	water := product.New("AGUA-625", "Agua San Luis 625ml", 15)
	water.PackageUnit = "CJA"
	water.MinStock = 30
	if err := products.Create(ctx, water); err != nil {
		return err
	}

	oil := product.New("ACEITE-1L", "Aceite Primor 1L", 1)
	if err := products.Create(ctx, oil); err != nil {
		return err
	}

	// Promo: one free bottle per full case of water.
	rule := &promo.Rule{
		BaseEntity:     entity.NewBaseEntity(),
		Name:           "1 free per case of water",
		ProductID:      &water.ID,
		BonusProductID: water.ID,
		Expression:     "packages >= 1 ? packages : 0",
		Active:         true,
	}
	if err := promos.Create(ctx, rule); err != nil {
		return err
	}

	// Receive stock: two dated lots of water, one of oil.
	exp1 := time.Now().AddDate(0, 6, 0)
	exp2 := time.Now().AddDate(1, 0, 0)
	p := purchase.New("Distribuidora Norte SAC")
	p.InvoiceRef = "F001-002341"
	p.Lines = []purchase.Line{
		{ProductID: water.ID, Unit: types.UnitPackage, EnteredQty: 10, UnitCost: types.MustMoney("18.00"), LotCode: "L-2406", Expiration: &exp1},
		{ProductID: water.ID, Unit: types.UnitPackage, EnteredQty: 20, UnitCost: types.MustMoney("18.50"), LotCode: "L-2412", Expiration: &exp2},
		{ProductID: oil.ID, Unit: types.UnitBase, EnteredQty: 48, UnitCost: types.MustMoney("9.80")},
	}
	if err := purchases.CreateDraft(ctx, p); err != nil {
		return err
	}
	p, err = purchases.Commit(ctx, p.ID)
	if err != nil {
		return err
	}
	fmt.Printf("purchase %s committed: %d lines, total %s\n", p.Number, len(p.Lines), p.Total())

	// Sell: two cases of water (promo grants two free bottles) plus oil.
	s := sale.New("Bodega Carmen")
	s.Lines = []sale.Line{
		{ProductID: water.ID, Kind: sale.LineRegular, Unit: types.UnitPackage, EnteredQty: 2, UnitPrice: types.MustMoney("22.50")},
		{ProductID: oil.ID, Kind: sale.LineRegular, Unit: types.UnitBase, EnteredQty: 6, UnitPrice: types.MustMoney("11.90")},
	}
	if err := sales.CreateDraft(ctx, s); err != nil {
		return err
	}
	s, err = sales.Commit(ctx, s.ID)
	if err != nil {
		return err
	}
	fmt.Printf("sale %s committed: %d lines (incl. promo), total %s\n", s.Number, len(s.Lines), s.Total())

	// Return three bottles from the first line.
	cn := creditnote.New(s.ID)
	cn.Lines = []creditnote.Line{
		{SaleLineID: s.Lines[0].ID, QuantityBase: 3},
	}
	if err := creditNotes.CreateDraft(ctx, cn); err != nil {
		return err
	}
	cn, err = creditNotes.Commit(ctx, cn.ID)
	if err != nil {
		return err
	}
	fmt.Printf("credit note %s committed: refund %s\n", cn.Number, cn.Refund())

	// Reports.
	valuation, err := reportsSvc.Valuation(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\nvaluation (%d products, total %s):\n", len(valuation.Rows), valuation.TotalValue)
	for _, row := range valuation.Rows {
		fmt.Printf("  %-10s stock=%d (%d pkg + %d) wac=%s value=%s\n",
			row.ProductCode, row.Stock.Int64(), row.Split.Packages, row.Split.Loose,
			row.WeightedAverageCost.StringFixed(4), row.Value.StringFixed(2))
	}

	kdx, err := reportsSvc.Kardex(ctx, water.ID, time.Now().AddDate(0, 0, -1), time.Now().AddDate(0, 0, 1))
	if err != nil {
		return err
	}
	fmt.Printf("\nkardex %s: opening=%d closing=%d movements=%d\n",
		kdx.ProductCode, kdx.OpeningBalance.Int64(), kdx.ClosingBalance.Int64(), len(kdx.Rows))
	for _, row := range kdx.Rows {
		fmt.Printf("  %-3s %-12s %-14s qty=%-5d balance=%d\n",
			row.Movement.Direction, row.Movement.DocumentType, row.Movement.DocumentNumber,
			row.Movement.Quantity.Int64(), row.Balance.Int64())
	}

	picking, err := dispatchSvc.BuildList(ctx, time.Now().UTC())
	if err != nil {
		return err
	}
	fmt.Printf("\npicking list: %d documents, %d items\n", picking.Documents, len(picking.Items))
	for _, item := range picking.Items {
		fmt.Printf("  %-10s total=%d (%d pkg + %d), %d lots\n",
			item.ProductCode, item.TotalBase.Int64(), item.Split.Packages, item.Split.Loose, len(item.Lots))
	}

	return nil
}
