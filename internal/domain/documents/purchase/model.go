// Package purchase provides the goods-receipt document: supplier invoices
// that bring stock in as new batches.
package purchase

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
)

// Purchase is a supplier invoice. Committing it creates one batch per
// line; each line remembers its batch so the receipt can be reversed.
type Purchase struct {
	entity.Document

	// SupplierName is the supplier display name (external master data)
	SupplierName string `db:"supplier_name" json:"supplierName"`

	// InvoiceRef is the supplier's own document reference
	InvoiceRef string `db:"invoice_ref" json:"invoiceRef,omitempty"`

	// Paid marks the purchase as settled. Paid purchases are closed: no
	// edit or void can touch their batches.
	Paid bool `db:"paid" json:"paid"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one received item.
type Line struct {
	ID         id.ID `db:"id" json:"id"`
	PurchaseID id.ID `db:"purchase_id" json:"purchaseId"`

	ProductID id.ID `db:"product_id" json:"productId"`

	// Unit is the presentation the quantity and cost were entered in
	Unit types.Unit `db:"unit" json:"unit"`

	// EnteredQty is the quantity in the entered unit
	EnteredQty int64 `db:"entered_qty" json:"enteredQty"`

	// UnitCost is the gross cost per entered unit
	UnitCost types.Money `db:"unit_cost" json:"unitCost"`

	// QuantityBase and UnitCostBase are the normalized values the ledger
	// operates on, resolved against the product's package content
	QuantityBase types.Quantity `db:"quantity_base" json:"quantityBase"`
	UnitCostBase types.Money    `db:"unit_cost_base" json:"unitCostBase"`

	// LotCode is the supplier lot identifier; defaults to the sentinel
	// lot code when the supplier ships unlotted goods
	LotCode string `db:"lot_code" json:"lotCode"`

	// Expiration is the batch expiration date, nil for non-perishables
	Expiration *time.Time `db:"expiration" json:"expiration,omitempty"`

	// BatchID references the batch created on commit
	BatchID id.ID `db:"batch_id" json:"batchId"`
}

// Amount is the line total in the entered presentation.
func (l *Line) Amount() types.Money {
	return l.UnitCost.Mul(decimal.NewFromInt(l.EnteredQty))
}

// New creates a draft purchase.
func New(supplierName string) *Purchase {
	return &Purchase{
		Document:     entity.NewDocument(),
		SupplierName: supplierName,
	}
}

// Validate implements entity.Validatable.
func (p *Purchase) Validate(ctx context.Context) error {
	if err := p.Document.Validate(ctx); err != nil {
		return err
	}
	if p.SupplierName == "" {
		return apperror.NewValidation("supplier is required").
			WithDetail("field", "supplierName")
	}
	if len(p.Lines) == 0 {
		return apperror.NewValidation("purchase must have at least one line")
	}
	for i := range p.Lines {
		if err := p.Lines[i].validate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				return appErr.WithDetail("line", i)
			}
			return err
		}
	}
	return nil
}

func (l *Line) validate() error {
	if id.IsNil(l.ProductID) {
		return apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}
	if !l.Unit.Valid() {
		return apperror.NewValidation("unknown unit").
			WithDetail("field", "unit").
			WithDetail("unit", string(l.Unit))
	}
	if l.EnteredQty <= 0 {
		return apperror.NewInvalidQuantity("purchase line", l.EnteredQty)
	}
	if l.UnitCost.IsNegative() {
		return apperror.NewValidation("unit cost cannot be negative").
			WithDetail("field", "unitCost")
	}
	return nil
}

// Total is the document total in the entered presentations.
func (p *Purchase) Total() types.Money {
	total := types.ZeroMoney()
	for i := range p.Lines {
		total = total.Add(p.Lines[i].Amount())
	}
	return total
}

// BatchIDs collects the batches created by the last commit.
func (p *Purchase) BatchIDs() []id.ID {
	out := make([]id.ID, 0, len(p.Lines))
	for i := range p.Lines {
		if !id.IsNil(p.Lines[i].BatchID) {
			out = append(out, p.Lines[i].BatchID)
		}
	}
	return out
}

// CanModify checks edit and void preconditions specific to purchases:
// the lifecycle rules of Document plus the paid guard.
func (p *Purchase) CanModify() error {
	if p.Paid {
		return apperror.NewBusinessRule(
			apperror.CodePurchaseClosed,
			"paid purchases are closed for modification",
		).WithDetail("document_id", p.ID.String())
	}
	return nil
}
