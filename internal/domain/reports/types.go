// Package reports builds the operational views read off the ledger: the
// per-product kardex with running balance, and the stock valuation.
package reports

import (
	"time"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/kardex"
)

// KardexRow is one movement with the running balance after it.
type KardexRow struct {
	Movement kardex.Movement `json:"movement"`

	// Balance is the base-unit stock after this movement
	Balance types.Quantity `json:"balance"`
}

// KardexReport is the movement history of one product over a period.
type KardexReport struct {
	ProductID   id.ID  `json:"productId"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`

	From time.Time `json:"from"`
	To   time.Time `json:"to"`

	// OpeningBalance is the base-unit stock before the first row
	OpeningBalance types.Quantity `json:"openingBalance"`

	Rows []KardexRow `json:"rows"`

	// ClosingBalance equals the last row's balance, or the opening
	// balance when the period has no movements
	ClosingBalance types.Quantity `json:"closingBalance"`
}

// ValuationRow is one product's stock position.
type ValuationRow struct {
	ProductID   id.ID  `json:"productId"`
	ProductCode string `json:"productCode"`
	ProductName string `json:"productName"`

	Stock types.Quantity  `json:"stock"`
	Split types.PackSplit `json:"split"`

	// WeightedAverageCost is per base unit; last cost when stock is zero
	WeightedAverageCost types.Money `json:"weightedAverageCost"`

	Value types.Money `json:"value"`

	// BelowMin flags products at or under their replenishment threshold
	BelowMin bool `json:"belowMin"`
}

// ValuationReport is the stock valuation across the catalog.
type ValuationReport struct {
	GeneratedAt time.Time      `json:"generatedAt"`
	Rows        []ValuationRow `json:"rows"`
	TotalValue  types.Money    `json:"totalValue"`
}
