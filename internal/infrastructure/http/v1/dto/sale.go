package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/documents/sale"
)

// SaleLineRequest is one issued item. Kind defaults to REGULAR;
// submitted AUTO_PROMO lines are discarded and regenerated server-side.
type SaleLineRequest struct {
	ProductID id.ID           `json:"productId" binding:"required"`
	Kind      string          `json:"kind"`
	Unit      string          `json:"unit" binding:"required"`
	Quantity  int64           `json:"quantity" binding:"required"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// CreateSaleRequest is the payload for creating a sale draft.
type CreateSaleRequest struct {
	CustomerName string            `json:"customerName" binding:"required"`
	Date         *time.Time        `json:"date"`
	Comment      string            `json:"comment"`
	Lines        []SaleLineRequest `json:"lines" binding:"required"`
}

// ToEntity converts the request to a sale.
func (r *CreateSaleRequest) ToEntity() *sale.Sale {
	s := sale.New(r.CustomerName)
	s.Comment = r.Comment
	if r.Date != nil {
		s.Date = *r.Date
	}
	s.Lines = toSaleLines(r.Lines)
	return s
}

// UpdateSaleRequest is the payload for draft updates and edits.
type UpdateSaleRequest struct {
	CustomerName string            `json:"customerName" binding:"required"`
	Date         *time.Time        `json:"date"`
	Comment      string            `json:"comment"`
	Lines        []SaleLineRequest `json:"lines" binding:"required"`
}

// ApplyTo applies the request to the sale.
func (r *UpdateSaleRequest) ApplyTo(s *sale.Sale) {
	s.CustomerName = r.CustomerName
	s.Comment = r.Comment
	if r.Date != nil {
		s.Date = *r.Date
	}
	s.Lines = toSaleLines(r.Lines)
}

func toSaleLines(in []SaleLineRequest) []sale.Line {
	out := make([]sale.Line, 0, len(in))
	for _, l := range in {
		kind := sale.LineKind(l.Kind)
		if l.Kind == "" {
			kind = sale.LineRegular
		}
		out = append(out, sale.Line{
			ProductID:  l.ProductID,
			Kind:       kind,
			Unit:       types.Unit(l.Unit),
			EnteredQty: l.Quantity,
			UnitPrice:  l.UnitPrice,
		})
	}
	return out
}
