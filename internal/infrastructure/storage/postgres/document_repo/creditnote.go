package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/creditnote"
	"lotix/internal/infrastructure/storage/postgres"
)

const (
	creditNoteTable     = "doc_credit_notes"
	creditNoteLineTable = "doc_credit_note_lines"
)

// CreditNoteRepo is the PostgreSQL creditnote.Repository. Batch credits
// are stored as JSONB, same as sale allocations.
type CreditNoteRepo struct {
	txm *postgres.TxManager
}

// NewCreditNoteRepo creates a credit note repository.
func NewCreditNoteRepo(txm *postgres.TxManager) *CreditNoteRepo {
	return &CreditNoteRepo{txm: txm}
}

var _ creditnote.Repository = (*CreditNoteRepo)(nil)

// Create inserts the credit note with its lines.
func (r *CreditNoteRepo) Create(ctx context.Context, cn *creditnote.CreditNote) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Insert(creditNoteTable).
			Columns("id", "version", "number", "date", "status", "comment",
				"sale_id", "customer_name", "created_at", "updated_at").
			Values(cn.ID, cn.Version, cn.Number, cn.Date, cn.Status, cn.Comment,
				cn.SaleID, cn.CustomerName, cn.CreatedAt, cn.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert credit note: %w", err)
		}
		return r.insertLines(ctx, cn)
	})
}

func (r *CreditNoteRepo) insertLines(ctx context.Context, cn *creditnote.CreditNote) error {
	if len(cn.Lines) == 0 {
		return nil
	}

	q := builder().
		Insert(creditNoteLineTable).
		Columns("id", "credit_note_id", "sale_line_id", "product_id",
			"quantity_base", "unit_price_base", "credits")
	for i := range cn.Lines {
		l := &cn.Lines[i]
		q = q.Values(l.ID, l.CreditNoteID, l.SaleLineID, l.ProductID,
			l.QuantityBase, l.UnitPriceBase, l.Credits)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert credit note lines: %w", err)
	}
	return nil
}

// GetByID retrieves the credit note with its lines.
func (r *CreditNoteRepo) GetByID(ctx context.Context, creditNoteID id.ID) (*creditnote.CreditNote, error) {
	sql, args, err := builder().
		Select("*").
		From(creditNoteTable).
		Where(squirrel.Eq{"id": creditNoteID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var cn creditnote.CreditNote
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &cn, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("credit note", creditNoteID.String())
		}
		return nil, fmt.Errorf("select credit note: %w", err)
	}

	if err := r.loadLines(ctx, &cn); err != nil {
		return nil, err
	}
	return &cn, nil
}

func (r *CreditNoteRepo) loadLines(ctx context.Context, cn *creditnote.CreditNote) error {
	sql, args, err := builder().
		Select("*").
		From(creditNoteLineTable).
		Where(squirrel.Eq{"credit_note_id": cn.ID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select lines: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &cn.Lines, sql, args...); err != nil {
		return fmt.Errorf("select credit note lines: %w", err)
	}
	return nil
}

// Update replaces the header and the full line set, with optimistic
// locking on the header version.
func (r *CreditNoteRepo) Update(ctx context.Context, cn *creditnote.CreditNote) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Update(creditNoteTable).
			Set("version", cn.Version+1).
			Set("number", cn.Number).
			Set("date", cn.Date).
			Set("status", cn.Status).
			Set("comment", cn.Comment).
			Set("customer_name", cn.CustomerName).
			Set("updated_at", cn.UpdatedAt).
			Where(squirrel.Eq{"id": cn.ID, "version": cn.Version}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update credit note: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := r.GetByID(ctx, cn.ID); err != nil {
				return err
			}
			return apperror.NewConcurrentModification("credit note", cn.ID.String())
		}

		del, delArgs, err := builder().
			Delete(creditNoteLineTable).
			Where(squirrel.Eq{"credit_note_id": cn.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete lines: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete credit note lines: %w", err)
		}
		if err := r.insertLines(ctx, cn); err != nil {
			return err
		}

		cn.Version++
		return nil
	})
}

// List retrieves credit notes matching the filter, newest first.
func (r *CreditNoteRepo) List(ctx context.Context, filter creditnote.ListFilter) ([]*creditnote.CreditNote, error) {
	q := builder().
		Select("*").
		From(creditNoteTable).
		OrderBy("date DESC", "created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.SaleID != nil {
		q = q.Where(squirrel.Eq{"sale_id": *filter.SaleID})
	}
	if filter.FromDate != nil {
		q = q.Where(squirrel.GtOrEq{"date": *filter.FromDate})
	}
	if filter.ToDate != nil {
		q = q.Where(squirrel.LtOrEq{"date": *filter.ToDate})
	}
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*creditnote.CreditNote
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select credit notes: %w", err)
	}
	for _, cn := range out {
		if err := r.loadLines(ctx, cn); err != nil {
			return nil, err
		}
	}
	return out, nil
}
