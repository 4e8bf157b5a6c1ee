// Package types provides common type aliases and quantity/money utilities.
package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
// This is the preferred constructor for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// ZeroMoney returns zero Money value.
func ZeroMoney() Money {
	return decimal.Zero
}

// Quantity is a whole number of base units (bottles, cans, sachets).
//
// The ledger operates exclusively on base units: package quantities are
// converted via the product's package content before they reach the batch
// store, and converted back only for display. Integer arithmetic means
// allocations split across batches without rounding loss.
type Quantity int64

func (q Quantity) Int64() int64 { return int64(q) }

func (q Quantity) IsZero() bool { return q == 0 }

func (q Quantity) IsPositive() bool { return q > 0 }

func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) String() string { return fmt.Sprintf("%d", int64(q)) }

// Min returns the smaller of two quantities.
func (q Quantity) Min(other Quantity) Quantity {
	if other < q {
		return other
	}
	return q
}

// Unit is the presentation a document line was entered in.
type Unit string

const (
	// UnitBase means the entered quantity is already in base units.
	UnitBase Unit = "BASE"
	// UnitPackage means the entered quantity counts packages and must be
	// multiplied by the product's package content.
	UnitPackage Unit = "PACKAGE"
)

// Valid reports whether the unit is a known presentation.
func (u Unit) Valid() bool {
	return u == UnitBase || u == UnitPackage
}

// FromPackages converts a package-unit count to base units using the
// product's package content (e.g. a case of 12).
func FromPackages(packages int64, packageContent int64) Quantity {
	return Quantity(packages * packageContent)
}

// PackSplit is the display decomposition of a base quantity into full
// packages plus loose base units.
type PackSplit struct {
	Packages int64 `json:"packages"`
	Loose    int64 `json:"loose"`
}

// SplitPackages decomposes base units into full packages and loose units.
// A non-positive package content means the product has no package unit;
// everything is loose.
func SplitPackages(q Quantity, packageContent int64) PackSplit {
	if packageContent <= 1 {
		return PackSplit{Loose: int64(q)}
	}
	return PackSplit{
		Packages: int64(q) / packageContent,
		Loose:    int64(q) % packageContent,
	}
}
