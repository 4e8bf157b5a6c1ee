package entity

import (
	"context"
	"time"

	"lotix/internal/core/apperror"
)

// Status is the lifecycle state of a stock-affecting document.
//
// Draft documents have no ledger effect. Committing applies the stock
// effect; editing reverses and re-applies it, so a document loops through
// committed as many times as needed until a blocking condition is hit.
// Voided is terminal.
type Status string

const (
	StatusDraft             Status = "DRAFT"
	StatusCommitted         Status = "COMMITTED"
	StatusVoided            Status = "VOIDED"
	StatusPartiallyReturned Status = "PARTIALLY_RETURNED"
)

// Document is the base type for business transactions (purchases, sales,
// credit notes).
type Document struct {
	BaseDocument

	// Number is the document number (auto-generated, unique within type+period)
	Number string `db:"number" json:"number"`

	// Date is the business date of the document
	Date time.Time `db:"date" json:"date"`

	// Status tracks the ledger lifecycle
	Status Status `db:"status" json:"status"`

	// Comment is an optional user comment
	Comment string `db:"comment" json:"comment,omitempty"`
}

// NewDocument creates a new draft Document with generated ID.
func NewDocument() Document {
	return Document{
		BaseDocument: NewBaseDocument(),
		Date:         time.Now().UTC(),
		Status:       StatusDraft,
	}
}

// Validate implements Validatable interface.
func (d *Document) Validate(ctx context.Context) error {
	if d.Date.IsZero() {
		return apperror.NewValidation("date is required").
			WithDetail("field", "date")
	}
	return nil
}

// IsCommitted reports whether the document's stock effect is applied.
func (d *Document) IsCommitted() bool {
	return d.Status == StatusCommitted || d.Status == StatusPartiallyReturned
}

// CanCommit checks the draft→committed transition.
func (d *Document) CanCommit() error {
	if d.Status != StatusDraft {
		return apperror.NewBusinessRule(
			apperror.CodeDocumentCommitted,
			"document is already committed",
		).WithDetail("document_id", d.ID.String()).WithDetail("status", string(d.Status))
	}
	return nil
}

// CanEdit checks whether the document's stock effect may be reversed and
// re-applied. Partial returns pin the original allocation, so returned
// documents refuse edits.
func (d *Document) CanEdit() error {
	switch d.Status {
	case StatusCommitted:
		return nil
	case StatusVoided:
		return apperror.NewBusinessRule(
			apperror.CodeDocumentVoided,
			"voided documents cannot be edited",
		).WithDetail("document_id", d.ID.String())
	default:
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only committed documents can be edited",
		).WithDetail("document_id", d.ID.String()).WithDetail("status", string(d.Status))
	}
}

// CanVoid checks the committed→voided transition.
func (d *Document) CanVoid() error {
	if d.Status != StatusCommitted && d.Status != StatusPartiallyReturned {
		return apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"only committed documents can be voided",
		).WithDetail("document_id", d.ID.String()).WithDetail("status", string(d.Status))
	}
	return nil
}

// MarkCommitted moves the document to committed.
func (d *Document) MarkCommitted() {
	d.Status = StatusCommitted
	d.Touch()
}

// MarkVoided moves the document to the terminal voided state.
func (d *Document) MarkVoided() {
	d.Status = StatusVoided
	d.Touch()
}

// MarkPartiallyReturned records that part of the document's stock effect
// was re-credited via a credit note.
func (d *Document) MarkPartiallyReturned() {
	d.Status = StatusPartiallyReturned
	d.Touch()
}
