// Package document_repo provides PostgreSQL repositories for the business
// documents. Headers and lines live in separate tables; updates replace
// the line set wholesale, since lines have no identity outside their
// document.
package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/purchase"
	"lotix/internal/infrastructure/storage/postgres"
)

const (
	purchaseTable     = "doc_purchases"
	purchaseLineTable = "doc_purchase_lines"
)

// PurchaseRepo is the PostgreSQL purchase.Repository.
type PurchaseRepo struct {
	txm *postgres.TxManager
}

// NewPurchaseRepo creates a purchase repository.
func NewPurchaseRepo(txm *postgres.TxManager) *PurchaseRepo {
	return &PurchaseRepo{txm: txm}
}

var _ purchase.Repository = (*PurchaseRepo)(nil)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// Create inserts the purchase with its lines.
func (r *PurchaseRepo) Create(ctx context.Context, p *purchase.Purchase) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Insert(purchaseTable).
			Columns("id", "version", "number", "date", "status", "comment",
				"supplier_name", "invoice_ref", "paid", "created_at", "updated_at").
			Values(p.ID, p.Version, p.Number, p.Date, p.Status, p.Comment,
				p.SupplierName, p.InvoiceRef, p.Paid, p.CreatedAt, p.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert purchase: %w", err)
		}
		return r.insertLines(ctx, p)
	})
}

func (r *PurchaseRepo) insertLines(ctx context.Context, p *purchase.Purchase) error {
	if len(p.Lines) == 0 {
		return nil
	}

	q := builder().
		Insert(purchaseLineTable).
		Columns("id", "purchase_id", "product_id", "unit", "entered_qty", "unit_cost",
			"quantity_base", "unit_cost_base", "lot_code", "expiration", "batch_id")
	for i := range p.Lines {
		l := &p.Lines[i]
		q = q.Values(l.ID, l.PurchaseID, l.ProductID, l.Unit, l.EnteredQty, l.UnitCost,
			l.QuantityBase, l.UnitCostBase, l.LotCode, l.Expiration, l.BatchID)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert purchase lines: %w", err)
	}
	return nil
}

// GetByID retrieves the purchase with its lines.
func (r *PurchaseRepo) GetByID(ctx context.Context, purchaseID id.ID) (*purchase.Purchase, error) {
	sql, args, err := builder().
		Select("*").
		From(purchaseTable).
		Where(squirrel.Eq{"id": purchaseID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p purchase.Purchase
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("purchase", purchaseID.String())
		}
		return nil, fmt.Errorf("select purchase: %w", err)
	}

	if err := r.loadLines(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PurchaseRepo) loadLines(ctx context.Context, p *purchase.Purchase) error {
	sql, args, err := builder().
		Select("*").
		From(purchaseLineTable).
		Where(squirrel.Eq{"purchase_id": p.ID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select lines: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &p.Lines, sql, args...); err != nil {
		return fmt.Errorf("select purchase lines: %w", err)
	}
	return nil
}

// Update replaces the header and the full line set, with optimistic
// locking on the header version.
func (r *PurchaseRepo) Update(ctx context.Context, p *purchase.Purchase) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Update(purchaseTable).
			Set("version", p.Version+1).
			Set("number", p.Number).
			Set("date", p.Date).
			Set("status", p.Status).
			Set("comment", p.Comment).
			Set("supplier_name", p.SupplierName).
			Set("invoice_ref", p.InvoiceRef).
			Set("paid", p.Paid).
			Set("updated_at", p.UpdatedAt).
			Where(squirrel.Eq{"id": p.ID, "version": p.Version}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update purchase: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := r.GetByID(ctx, p.ID); err != nil {
				return err
			}
			return apperror.NewConcurrentModification("purchase", p.ID.String())
		}

		del, delArgs, err := builder().
			Delete(purchaseLineTable).
			Where(squirrel.Eq{"purchase_id": p.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete lines: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete purchase lines: %w", err)
		}
		if err := r.insertLines(ctx, p); err != nil {
			return err
		}

		p.Version++
		return nil
	})
}

// List retrieves purchases matching the filter, newest first.
func (r *PurchaseRepo) List(ctx context.Context, filter purchase.ListFilter) ([]*purchase.Purchase, error) {
	q := builder().
		Select("*").
		From(purchaseTable).
		OrderBy("date DESC", "created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Supplier != "" {
		q = q.Where(squirrel.ILike{"supplier_name": "%" + filter.Supplier + "%"})
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

	var out []*purchase.Purchase
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select purchases: %w", err)
	}
	for _, p := range out {
		if err := r.loadLines(ctx, p); err != nil {
			return nil, err
		}
	}
	return out, nil
}
