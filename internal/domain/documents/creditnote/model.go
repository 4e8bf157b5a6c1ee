// Package creditnote provides customer returns against committed sales.
// A credit note returns part of a sale; the stock goes back into the
// exact batches the sale drew from, and the refund is priced at the
// sale's own unit prices.
package creditnote

import (
	"context"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
)

// CreditNote is one return document against a sale.
type CreditNote struct {
	entity.Document

	// SaleID references the sale being returned against
	SaleID id.ID `db:"sale_id" json:"saleId"`

	// CustomerName is copied from the sale for display
	CustomerName string `db:"customer_name" json:"customerName"`

	Lines []Line `db:"-" json:"lines"`
}

// Line returns part of one sale line. Returned quantities are entered in
// base units; loose units come back from opened cases.
type Line struct {
	ID           id.ID `db:"id" json:"id"`
	CreditNoteID id.ID `db:"credit_note_id" json:"creditNoteId"`

	// SaleLineID references the sale line being returned
	SaleLineID id.ID `db:"sale_line_id" json:"saleLineId"`

	ProductID id.ID `db:"product_id" json:"productId"`

	QuantityBase types.Quantity `db:"quantity_base" json:"quantityBase"`

	// UnitPriceBase is the sale line's price; free lines refund zero
	UnitPriceBase types.Money `db:"unit_price_base" json:"unitPriceBase"`

	// Credits records which batches received the returned stock, set on
	// commit
	Credits batch.Allocation `db:"credits" json:"credits,omitempty"`
}

// Amount is the refund for this line.
func (l *Line) Amount() types.Money {
	return l.UnitPriceBase.Mul(decimal.NewFromInt(l.QuantityBase.Int64()))
}

// New creates a draft credit note against a sale.
func New(saleID id.ID) *CreditNote {
	return &CreditNote{
		Document: entity.NewDocument(),
		SaleID:   saleID,
	}
}

// Validate implements entity.Validatable.
func (cn *CreditNote) Validate(ctx context.Context) error {
	if err := cn.Document.Validate(ctx); err != nil {
		return err
	}
	if id.IsNil(cn.SaleID) {
		return apperror.NewValidation("sale is required").
			WithDetail("field", "saleId")
	}
	if len(cn.Lines) == 0 {
		return apperror.NewValidation("credit note must have at least one line")
	}
	for i := range cn.Lines {
		line := &cn.Lines[i]
		if id.IsNil(line.SaleLineID) {
			return apperror.NewValidation("sale line is required").
				WithDetail("line", i)
		}
		if !line.QuantityBase.IsPositive() {
			return apperror.NewInvalidQuantity("credit note line", line.QuantityBase.Int64()).
				WithDetail("line", i)
		}
	}
	return nil
}

// Refund is the total amount credited back to the customer.
func (cn *CreditNote) Refund() types.Money {
	total := types.ZeroMoney()
	for i := range cn.Lines {
		total = total.Add(cn.Lines[i].Amount())
	}
	return total
}
