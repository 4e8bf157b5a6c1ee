package document_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/documents/sale"
	"lotix/internal/infrastructure/storage/postgres"
)

const (
	saleTable     = "doc_sales"
	saleLineTable = "doc_sale_lines"
)

// SaleRepo is the PostgreSQL sale.Repository. Line allocations are
// stored as JSONB: they are opaque to SQL and always read and written
// whole.
type SaleRepo struct {
	txm *postgres.TxManager
}

// NewSaleRepo creates a sale repository.
func NewSaleRepo(txm *postgres.TxManager) *SaleRepo {
	return &SaleRepo{txm: txm}
}

var _ sale.Repository = (*SaleRepo)(nil)

// Create inserts the sale with its lines.
func (r *SaleRepo) Create(ctx context.Context, s *sale.Sale) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Insert(saleTable).
			Columns("id", "version", "number", "date", "status", "comment",
				"customer_name", "created_at", "updated_at").
			Values(s.ID, s.Version, s.Number, s.Date, s.Status, s.Comment,
				s.CustomerName, s.CreatedAt, s.UpdatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		return r.insertLines(ctx, s)
	})
}

func (r *SaleRepo) insertLines(ctx context.Context, s *sale.Sale) error {
	if len(s.Lines) == 0 {
		return nil
	}

	q := builder().
		Insert(saleLineTable).
		Columns("id", "sale_id", "product_id", "kind", "source_rule_id", "unit", "entered_qty",
			"unit_price", "quantity_base", "unit_price_base", "allocation", "returned")
	for i := range s.Lines {
		l := &s.Lines[i]
		q = q.Values(l.ID, l.SaleID, l.ProductID, l.Kind, l.SourceRuleID, l.Unit, l.EnteredQty,
			l.UnitPrice, l.QuantityBase, l.UnitPriceBase, l.Allocation, l.Returned)
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert sale lines: %w", err)
	}
	return nil
}

// GetByID retrieves the sale with its lines.
func (r *SaleRepo) GetByID(ctx context.Context, saleID id.ID) (*sale.Sale, error) {
	sql, args, err := builder().
		Select("*").
		From(saleTable).
		Where(squirrel.Eq{"id": saleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var s sale.Sale
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &s, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("sale", saleID.String())
		}
		return nil, fmt.Errorf("select sale: %w", err)
	}

	if err := r.loadLines(ctx, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SaleRepo) loadLines(ctx context.Context, s *sale.Sale) error {
	sql, args, err := builder().
		Select("*").
		From(saleLineTable).
		Where(squirrel.Eq{"sale_id": s.ID}).
		OrderBy("id ASC").
		ToSql()
	if err != nil {
		return fmt.Errorf("build select lines: %w", err)
	}
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &s.Lines, sql, args...); err != nil {
		return fmt.Errorf("select sale lines: %w", err)
	}
	return nil
}

// Update replaces the header and the full line set, with optimistic
// locking on the header version.
func (r *SaleRepo) Update(ctx context.Context, s *sale.Sale) error {
	return r.txm.RunInTransaction(ctx, func(ctx context.Context) error {
		sql, args, err := builder().
			Update(saleTable).
			Set("version", s.Version+1).
			Set("number", s.Number).
			Set("date", s.Date).
			Set("status", s.Status).
			Set("comment", s.Comment).
			Set("customer_name", s.CustomerName).
			Set("updated_at", s.UpdatedAt).
			Where(squirrel.Eq{"id": s.ID, "version": s.Version}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update: %w", err)
		}

		tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
		if err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		if tag.RowsAffected() == 0 {
			if _, err := r.GetByID(ctx, s.ID); err != nil {
				return err
			}
			return apperror.NewConcurrentModification("sale", s.ID.String())
		}

		del, delArgs, err := builder().
			Delete(saleLineTable).
			Where(squirrel.Eq{"sale_id": s.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build delete lines: %w", err)
		}
		if _, err := r.txm.GetQuerier(ctx).Exec(ctx, del, delArgs...); err != nil {
			return fmt.Errorf("delete sale lines: %w", err)
		}
		if err := r.insertLines(ctx, s); err != nil {
			return err
		}

		s.Version++
		return nil
	})
}

// List retrieves sales matching the filter, newest first.
func (r *SaleRepo) List(ctx context.Context, filter sale.ListFilter) ([]*sale.Sale, error) {
	q := builder().
		Select("*").
		From(saleTable).
		OrderBy("date DESC", "created_at DESC")

	if filter.Status != nil {
		q = q.Where(squirrel.Eq{"status": *filter.Status})
	}
	if filter.Customer != "" {
		q = q.Where(squirrel.ILike{"customer_name": "%" + filter.Customer + "%"})
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

	var out []*sale.Sale
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select sales: %w", err)
	}
	for _, s := range out {
		if err := r.loadLines(ctx, s); err != nil {
			return nil, err
		}
	}
	return out, nil
}
