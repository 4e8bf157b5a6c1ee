// Package dto defines the request payloads of API v1. Responses are the
// domain types themselves, which carry JSON tags.
package dto

import (
	"github.com/shopspring/decimal"

	"lotix/internal/core/types"
	"lotix/internal/domain/catalogs/product"
)

// CreateProductRequest is the payload for creating a product.
type CreateProductRequest struct {
	Code           string          `json:"code" binding:"required"`
	Name           string          `json:"name" binding:"required"`
	PackageUnit    string          `json:"packageUnit"`
	PackageContent int64           `json:"packageContent"`
	LastCost       decimal.Decimal `json:"lastCost"`
	MinStock       int64           `json:"minStock"`
}

// ToEntity converts the request to a product.
func (r *CreateProductRequest) ToEntity() *product.Product {
	p := product.New(r.Code, r.Name, r.PackageContent)
	p.PackageUnit = r.PackageUnit
	p.LastCost = r.LastCost
	p.MinStock = types.Quantity(r.MinStock)
	return p
}

// UpdateProductRequest is the payload for updating a product.
type UpdateProductRequest struct {
	Name           *string          `json:"name"`
	PackageUnit    *string          `json:"packageUnit"`
	PackageContent *int64           `json:"packageContent"`
	MinStock       *int64           `json:"minStock"`
	LastCost       *decimal.Decimal `json:"lastCost"`
}

// ApplyTo applies non-nil fields to the product.
func (r *UpdateProductRequest) ApplyTo(p *product.Product) {
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.PackageUnit != nil {
		p.PackageUnit = *r.PackageUnit
	}
	if r.PackageContent != nil {
		p.PackageContent = *r.PackageContent
	}
	if r.MinStock != nil {
		p.MinStock = types.Quantity(*r.MinStock)
	}
	if r.LastCost != nil {
		p.LastCost = *r.LastCost
	}
}
