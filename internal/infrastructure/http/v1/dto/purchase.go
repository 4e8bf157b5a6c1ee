package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/documents/purchase"
)

// PurchaseLineRequest is one received item.
type PurchaseLineRequest struct {
	ProductID  id.ID           `json:"productId" binding:"required"`
	Unit       string          `json:"unit" binding:"required"`
	Quantity   int64           `json:"quantity" binding:"required"`
	UnitCost   decimal.Decimal `json:"unitCost"`
	LotCode    string          `json:"lotCode"`
	Expiration *time.Time      `json:"expiration"`
}

// CreatePurchaseRequest is the payload for creating a purchase draft.
type CreatePurchaseRequest struct {
	SupplierName string                `json:"supplierName" binding:"required"`
	InvoiceRef   string                `json:"invoiceRef"`
	Date         *time.Time            `json:"date"`
	Comment      string                `json:"comment"`
	Lines        []PurchaseLineRequest `json:"lines" binding:"required"`
}

// ToEntity converts the request to a purchase.
func (r *CreatePurchaseRequest) ToEntity() *purchase.Purchase {
	p := purchase.New(r.SupplierName)
	p.InvoiceRef = r.InvoiceRef
	p.Comment = r.Comment
	if r.Date != nil {
		p.Date = *r.Date
	}
	p.Lines = toPurchaseLines(r.Lines)
	return p
}

// UpdatePurchaseRequest is the payload for draft updates and edits.
type UpdatePurchaseRequest struct {
	SupplierName string                `json:"supplierName" binding:"required"`
	InvoiceRef   string                `json:"invoiceRef"`
	Date         *time.Time            `json:"date"`
	Comment      string                `json:"comment"`
	Lines        []PurchaseLineRequest `json:"lines" binding:"required"`
}

// ApplyTo applies the request to the purchase.
func (r *UpdatePurchaseRequest) ApplyTo(p *purchase.Purchase) {
	p.SupplierName = r.SupplierName
	p.InvoiceRef = r.InvoiceRef
	p.Comment = r.Comment
	if r.Date != nil {
		p.Date = *r.Date
	}
	p.Lines = toPurchaseLines(r.Lines)
}

func toPurchaseLines(in []PurchaseLineRequest) []purchase.Line {
	out := make([]purchase.Line, 0, len(in))
	for _, l := range in {
		out = append(out, purchase.Line{
			ProductID:  l.ProductID,
			Unit:       types.Unit(l.Unit),
			EnteredQty: l.Quantity,
			UnitCost:   l.UnitCost,
			LotCode:    l.LotCode,
			Expiration: l.Expiration,
		})
	}
	return out
}
