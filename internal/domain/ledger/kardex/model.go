// Package kardex provides the append-only movement ledger. Movements are
// not a separate source of truth: they are recorded from the effects the
// other components apply, so the visible ledger always matches batch state.
package kardex

import (
	"time"

	"lotix/internal/core/id"
	"lotix/internal/core/types"
)

// Direction of a movement relative to stock.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// DocumentType identifies the kind of document that produced a movement.
type DocumentType string

const (
	DocPurchase   DocumentType = "PURCHASE"
	DocSale       DocumentType = "SALE"
	DocCreditNote DocumentType = "CREDIT_NOTE"
	DocVoid       DocumentType = "VOID"
	DocAdjustment DocumentType = "ADJUSTMENT"
)

// Movement is one kardex entry: a normalized view of a stock-affecting
// event. Quantities are base units; sign is carried by Direction.
type Movement struct {
	ID id.ID `db:"id" json:"id"`

	// Date is the business date of the originating document
	Date time.Time `db:"date" json:"date"`

	Direction Direction `db:"direction" json:"direction"`

	DocumentType   DocumentType `db:"document_type" json:"documentType"`
	DocumentNumber string       `db:"document_number" json:"documentNumber"`

	// DocumentID back-references the originating document
	DocumentID id.ID `db:"document_id" json:"documentId"`

	ProductID id.ID `db:"product_id" json:"productId"`

	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// UnitPrice is the per-base-unit price (sale) or cost (purchase)
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`

	// Total is UnitPrice * Quantity, denormalized for reporting
	Total types.Money `db:"total" json:"total"`

	// Counterparty is the supplier or customer display name
	Counterparty string `db:"counterparty" json:"counterparty,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// SignedQuantity returns the quantity with direction applied.
func (m *Movement) SignedQuantity() types.Quantity {
	if m.Direction == DirectionOut {
		return -m.Quantity
	}
	return m.Quantity
}

// Filter narrows movement history queries.
type Filter struct {
	ProductID    *id.ID
	Direction    *Direction
	DocumentType *DocumentType
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}
