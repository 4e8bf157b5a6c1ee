package reports_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/domain/ledger/batch"
	"lotix/internal/domain/ledger/cost"
	"lotix/internal/domain/ledger/kardex"
	"lotix/internal/domain/reports"
	"lotix/internal/infrastructure/storage/memory"
)

type fixture struct {
	service  *reports.Service
	products *product.Service
	store    *memory.BatchStore
	kardex   *kardex.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewBatchStore()
	products := product.NewService(memory.NewProductRepo())
	kardexSvc := kardex.NewService(memory.NewKardexLedger())
	service := reports.NewService(kardexSvc, cost.NewEngine(store, products), store, products)
	return &fixture{service: service, products: products, store: store, kardex: kardexSvc}
}

func day(d int) time.Time {
	return time.Date(2024, 3, d, 0, 0, 0, 0, time.UTC)
}

func (f *fixture) record(t *testing.T, productID id.ID, date time.Time, dir kardex.Direction, qty int64) {
	t.Helper()
	err := f.kardex.Record(context.Background(), kardex.Entry{
		Date:         date,
		Direction:    dir,
		DocumentType: kardex.DocAdjustment,
		DocumentID:   id.New(),
		ProductID:    productID,
		Quantity:     types.Quantity(qty),
		UnitPrice:    types.MustMoney("1.00"),
	})
	require.NoError(t, err)
}

func TestKardex_RunningBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))

	f.record(t, prod.ID, day(1), kardex.DirectionIn, 100)
	f.record(t, prod.ID, day(2), kardex.DirectionOut, 30)
	f.record(t, prod.ID, day(3), kardex.DirectionIn, 10)

	report, err := f.service.Kardex(ctx, prod.ID, day(2), day(3))
	require.NoError(t, err)

	assert.Equal(t, "AGUA", report.ProductCode)
	assert.Equal(t, types.Quantity(100), report.OpeningBalance)
	require.Len(t, report.Rows, 2)
	assert.Equal(t, types.Quantity(70), report.Rows[0].Balance)
	assert.Equal(t, types.Quantity(80), report.Rows[1].Balance)
	assert.Equal(t, types.Quantity(80), report.ClosingBalance)
}

func TestKardex_EmptyPeriodCarriesBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))

	f.record(t, prod.ID, day(1), kardex.DirectionIn, 100)
	f.record(t, prod.ID, day(2), kardex.DirectionOut, 30)

	report, err := f.service.Kardex(ctx, prod.ID, day(10), day(20))
	require.NoError(t, err)

	assert.Empty(t, report.Rows)
	assert.Equal(t, types.Quantity(70), report.OpeningBalance)
	assert.Equal(t, types.Quantity(70), report.ClosingBalance)
}

func TestKardex_IgnoresOtherProducts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))

	f.record(t, prod.ID, day(1), kardex.DirectionIn, 10)
	f.record(t, id.New(), day(1), kardex.DirectionIn, 999)

	report, err := f.service.Kardex(ctx, prod.ID, day(1), day(2))
	require.NoError(t, err)
	require.Len(t, report.Rows, 1)
	assert.Equal(t, types.Quantity(10), report.ClosingBalance)
}

func TestValuation_RowsAndTotal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	water := product.New("AGUA", "Agua 625ml", 15)
	water.MinStock = 50
	require.NoError(t, f.products.Create(ctx, water))

	oil := product.New("ACEITE", "Aceite 1L", 1)
	require.NoError(t, f.products.Create(ctx, oil))

	_, err := f.store.CreateBatch(ctx, batch.NewBatch{
		ProductID: water.ID, QuantityInitial: 32, Cost: types.MustMoney("1.20"),
	})
	require.NoError(t, err)
	_, err = f.store.CreateBatch(ctx, batch.NewBatch{
		ProductID: oil.ID, QuantityInitial: 10, Cost: types.MustMoney("9.80"),
	})
	require.NoError(t, err)

	report, err := f.service.Valuation(ctx)
	require.NoError(t, err)
	require.Len(t, report.Rows, 2)

	byCode := make(map[string]reports.ValuationRow, 2)
	for _, row := range report.Rows {
		byCode[row.ProductCode] = row
	}

	waterRow := byCode["AGUA"]
	assert.Equal(t, types.Quantity(32), waterRow.Stock)
	assert.Equal(t, int64(2), waterRow.Split.Packages)
	assert.Equal(t, int64(2), waterRow.Split.Loose)
	assert.True(t, waterRow.WeightedAverageCost.Equal(types.MustMoney("1.20")))
	assert.True(t, waterRow.Value.Equal(types.MustMoney("38.40")))
	assert.True(t, waterRow.BelowMin)

	oilRow := byCode["ACEITE"]
	assert.False(t, oilRow.BelowMin)
	assert.True(t, oilRow.Value.Equal(types.MustMoney("98.00")))

	assert.True(t, report.TotalValue.Equal(types.MustMoney("136.40")))
}

func TestExportKardexNDJSON(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))
	f.record(t, prod.ID, day(1), kardex.DirectionIn, 100)
	f.record(t, prod.ID, day(2), kardex.DirectionOut, 30)

	report, err := f.service.Kardex(ctx, prod.ID, day(1), day(2))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, reports.ExportKardexNDJSON(&buf, report))

	zr, err := zstd.NewReader(&buf)
	require.NoError(t, err)
	defer zr.Close()

	var rows []reports.KardexRow
	scanner := bufio.NewScanner(zr)
	for scanner.Scan() {
		var row reports.KardexRow
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
		rows = append(rows, row)
	}
	require.NoError(t, scanner.Err())

	require.Len(t, rows, 2)
	assert.Equal(t, types.Quantity(100), rows[0].Balance)
	assert.Equal(t, types.Quantity(70), rows[1].Balance)
}

func TestExportValuationXLSX(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	prod := product.New("AGUA", "Agua 625ml", 1)
	require.NoError(t, f.products.Create(ctx, prod))
	_, err := f.store.CreateBatch(ctx, batch.NewBatch{
		ProductID: prod.ID, QuantityInitial: 10, Cost: types.MustMoney("1.20"),
	})
	require.NoError(t, err)

	report, err := f.service.Valuation(ctx)
	require.NoError(t, err)

	buf, err := reports.ExportValuationXLSX(report)
	require.NoError(t, err)

	wb, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer wb.Close()

	header, err := wb.GetCellValue("Valuation", "A1")
	require.NoError(t, err)
	assert.Equal(t, "Code", header)

	code, err := wb.GetCellValue("Valuation", "A2")
	require.NoError(t, err)
	assert.Equal(t, "AGUA", code)
}
