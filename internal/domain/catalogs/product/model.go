// Package product provides the product master catalog.
// Products are external master data to the ledger: the allocation engine
// consumes them read-only and never mutates them mid-operation.
package product

import (
	"context"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/types"
)

// Product represents an item sold in base units, optionally grouped into
// packages (a case of 12, a pack of 6).
type Product struct {
	entity.BaseEntity

	// Code is a human-readable identifier (SKU)
	Code string `db:"code" json:"code"`

	// Name is the display name
	Name string `db:"name" json:"name"`

	// BaseUnit names the smallest tracked unit ("UND")
	BaseUnit string `db:"base_unit" json:"baseUnit"`

	// PackageUnit names the package presentation ("CJA"), empty when the
	// product is only sold loose
	PackageUnit string `db:"package_unit" json:"packageUnit,omitempty"`

	// PackageContent is the conversion factor from package to base units.
	// 1 means no package presentation.
	PackageContent int64 `db:"package_content" json:"packageContent"`

	// LastCost is the most recent gross unit cost (per base unit),
	// updated on every purchase receipt
	LastCost types.Money `db:"last_cost" json:"lastCost"`

	// MinStock is the replenishment threshold in base units
	MinStock types.Quantity `db:"min_stock" json:"minStock"`
}

// New creates a product with the given SKU and name.
func New(code, name string, packageContent int64) *Product {
	if packageContent < 1 {
		packageContent = 1
	}
	return &Product{
		BaseEntity:     entity.NewBaseEntity(),
		Code:           code,
		Name:           name,
		BaseUnit:       "UND",
		PackageContent: packageContent,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if p.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if p.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}
	if p.PackageContent < 1 {
		return apperror.NewValidation("package content must be at least 1").
			WithDetail("field", "packageContent")
	}
	if p.MinStock.IsNegative() {
		return apperror.NewValidation("min stock cannot be negative").
			WithDetail("field", "minStock")
	}
	if p.LastCost.IsNegative() {
		return apperror.NewValidation("last cost cannot be negative").
			WithDetail("field", "lastCost")
	}
	return nil
}

// HasPackage reports whether the product has a package presentation.
func (p *Product) HasPackage() bool {
	return p.PackageContent > 1
}

// ToBase converts a quantity entered in package units to base units.
func (p *Product) ToBase(packages int64) types.Quantity {
	return types.FromPackages(packages, p.PackageContent)
}

// Split decomposes a base quantity into full packages plus loose units
// for picking and kardex display.
func (p *Product) Split(q types.Quantity) types.PackSplit {
	return types.SplitPackages(q, p.PackageContent)
}
