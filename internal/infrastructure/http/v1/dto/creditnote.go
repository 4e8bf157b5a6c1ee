package dto

import (
	"time"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/documents/creditnote"
)

// CreditNoteLineRequest returns part of one sale line, in base units.
type CreditNoteLineRequest struct {
	SaleLineID id.ID `json:"saleLineId" binding:"required"`
	Quantity   int64 `json:"quantity" binding:"required"`
}

// CreateCreditNoteRequest is the payload for creating a credit note
// draft against a sale.
type CreateCreditNoteRequest struct {
	SaleID  id.ID                   `json:"saleId" binding:"required"`
	Date    *time.Time              `json:"date"`
	Comment string                  `json:"comment"`
	Lines   []CreditNoteLineRequest `json:"lines" binding:"required"`
}

// ToEntity converts the request to a credit note.
func (r *CreateCreditNoteRequest) ToEntity() *creditnote.CreditNote {
	cn := creditnote.New(r.SaleID)
	cn.Comment = r.Comment
	if r.Date != nil {
		cn.Date = *r.Date
	}
	cn.Lines = make([]creditnote.Line, 0, len(r.Lines))
	for _, l := range r.Lines {
		cn.Lines = append(cn.Lines, creditnote.Line{
			SaleLineID:   l.SaleLineID,
			QuantityBase: types.Quantity(l.Quantity),
		})
	}
	return cn
}
