package reports

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"
	"github.com/xuri/excelize/v2"
)

// ExportValuationXLSX renders the valuation report as an Excel workbook.
func ExportValuationXLSX(report *ValuationReport) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Valuation"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Code", "Product", "Stock", "Packages", "Loose", "Avg Cost", "Value", "Below Min"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDDDDD"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheet, "A1", "H1", headerStyle); err != nil {
		return nil, err
	}

	for i, row := range report.Rows {
		r := i + 2
		values := []any{
			row.ProductCode,
			row.ProductName,
			row.Stock.Int64(),
			row.Split.Packages,
			row.Split.Loose,
			row.WeightedAverageCost.InexactFloat64(),
			row.Value.InexactFloat64(),
			row.BelowMin,
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	totalRow := len(report.Rows) + 2
	totalCell, err := excelize.CoordinatesToCellName(7, totalRow)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellValue(sheet, totalCell, report.TotalValue.InexactFloat64()); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

// ExportKardexNDJSON streams the kardex report rows as zstd-compressed
// NDJSON, one row per line. Intended for archive dumps and downstream
// analytics loads, where the ledger can run to millions of rows.
func ExportKardexNDJSON(w io.Writer, report *KardexReport) error {
	zw, err := zstd.NewWriter(w)
	if err != nil {
		return fmt.Errorf("create zstd writer: %w", err)
	}

	enc := json.NewEncoder(zw)
	for i := range report.Rows {
		if err := enc.Encode(&report.Rows[i]); err != nil {
			zw.Close()
			return fmt.Errorf("encode kardex row: %w", err)
		}
	}
	return zw.Close()
}
