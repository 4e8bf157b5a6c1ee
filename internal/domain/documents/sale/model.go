// Package sale provides the customer invoice document: the stock-issuing
// side of the ledger. Committing a sale allocates batches line by line
// and stores the allocation on each line for later reversal.
package sale

import (
	"context"

	"github.com/shopspring/decimal"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/ledger/batch"
)

// LineKind distinguishes billed lines from free goods.
type LineKind string

const (
	// LineRegular is a billed line
	LineRegular LineKind = "REGULAR"
	// LineBonus is a manually added free-goods line, priced at zero
	LineBonus LineKind = "BONUS"
	// LineAutoPromo is a free-goods line generated by a promo rule.
	// Regenerated on every commit and edit; never entered by hand.
	LineAutoPromo LineKind = "AUTO_PROMO"
)

// Sale is a customer invoice.
type Sale struct {
	entity.Document

	// CustomerName is the customer display name (external master data)
	CustomerName string `db:"customer_name" json:"customerName"`

	Lines []Line `db:"-" json:"lines"`
}

// Line is one issued item. Bonus and promo lines move stock exactly like
// regular lines; only their price is zero.
type Line struct {
	ID     id.ID `db:"id" json:"id"`
	SaleID id.ID `db:"sale_id" json:"saleId"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Kind LineKind `db:"kind" json:"kind"`

	// SourceRuleID references the promo rule that generated an
	// AUTO_PROMO line
	SourceRuleID *id.ID `db:"source_rule_id" json:"sourceRuleId,omitempty"`

	// Unit is the presentation the quantity and price were entered in
	Unit types.Unit `db:"unit" json:"unit"`

	// EnteredQty is the quantity in the entered unit
	EnteredQty int64 `db:"entered_qty" json:"enteredQty"`

	// UnitPrice is the price per entered unit
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// QuantityBase and UnitPriceBase are the normalized values the
	// ledger operates on
	QuantityBase  types.Quantity `db:"quantity_base" json:"quantityBase"`
	UnitPriceBase types.Money    `db:"unit_price_base" json:"unitPriceBase"`

	// Allocation records which batches satisfied this line, in draw
	// order. Set on commit, replaced on edit, consumed by returns.
	Allocation batch.Allocation `db:"allocation" json:"allocation,omitempty"`

	// Returned is the cumulative base quantity credited back through
	// credit notes
	Returned types.Quantity `db:"returned" json:"returned"`
}

// Amount is the line total.
func (l *Line) Amount() types.Money {
	return l.UnitPriceBase.Mul(decimal.NewFromInt(l.QuantityBase.Int64()))
}

// Returnable is the base quantity still eligible for return.
func (l *Line) Returnable() types.Quantity {
	return l.QuantityBase - l.Returned
}

// ResidualAllocation is what remains of the line's allocation after the
// already-returned quantity, which is always credited in draw order.
func (l *Line) ResidualAllocation() batch.Allocation {
	return l.Allocation.DropFirst(l.Returned)
}

// IsFree reports whether the line is unbilled.
func (l *Line) IsFree() bool {
	return l.Kind == LineBonus || l.Kind == LineAutoPromo
}

// New creates a draft sale.
func New(customerName string) *Sale {
	return &Sale{
		Document:     entity.NewDocument(),
		CustomerName: customerName,
	}
}

// Validate implements entity.Validatable.
func (s *Sale) Validate(ctx context.Context) error {
	if err := s.Document.Validate(ctx); err != nil {
		return err
	}
	if s.CustomerName == "" {
		return apperror.NewValidation("customer is required").
			WithDetail("field", "customerName")
	}
	if len(s.Lines) == 0 {
		return apperror.NewValidation("sale must have at least one line")
	}
	for i := range s.Lines {
		if err := s.Lines[i].validate(); err != nil {
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
	switch l.Kind {
	case LineRegular, LineBonus, LineAutoPromo:
	default:
		return apperror.NewValidation("unknown line kind").
			WithDetail("field", "kind").
			WithDetail("kind", string(l.Kind))
	}
	if !l.Unit.Valid() {
		return apperror.NewValidation("unknown unit").
			WithDetail("field", "unit").
			WithDetail("unit", string(l.Unit))
	}
	if l.EnteredQty <= 0 {
		return apperror.NewInvalidQuantity("sale line", l.EnteredQty)
	}
	if l.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}
	if l.IsFree() && !l.UnitPrice.IsZero() {
		return apperror.NewValidation("free lines must be priced at zero").
			WithDetail("field", "unitPrice").
			WithDetail("kind", string(l.Kind))
	}
	return nil
}

// Total is the billed document total. Free lines contribute nothing.
func (s *Sale) Total() types.Money {
	total := types.ZeroMoney()
	for i := range s.Lines {
		total = total.Add(s.Lines[i].Amount())
	}
	return total
}

// LineByID finds a line.
func (s *Sale) LineByID(lineID id.ID) (*Line, bool) {
	for i := range s.Lines {
		if s.Lines[i].ID == lineID {
			return &s.Lines[i], true
		}
	}
	return nil, false
}

// FullyReturned reports whether every line has been returned in full.
func (s *Sale) FullyReturned() bool {
	for i := range s.Lines {
		if !s.Lines[i].Returnable().IsZero() {
			return false
		}
	}
	return true
}
