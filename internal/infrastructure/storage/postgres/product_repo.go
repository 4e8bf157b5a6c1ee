package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/catalogs/product"
)

const productTable = "cat_products"

// ProductRepo is the PostgreSQL product.Repository.
type ProductRepo struct {
	txm *TxManager
}

// NewProductRepo creates a product repository.
func NewProductRepo(txm *TxManager) *ProductRepo {
	return &ProductRepo{txm: txm}
}

var _ product.Repository = (*ProductRepo)(nil)

// Create inserts a new product, enforcing SKU uniqueness.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	sql, args, err := builder().
		Insert(productTable).
		Columns("id", "version", "code", "name", "base_unit", "package_unit", "package_content", "last_cost", "min_stock").
		Values(p.ID, p.Version, p.Code, p.Name, p.BaseUnit, p.PackageUnit, p.PackageContent, p.LastCost, p.MinStock).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		if isUniqueViolation(err) {
			return apperror.NewDuplicate("product", "code", p.Code)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by ID.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"id": productID}, productID.String())
}

// GetByCode retrieves a product by SKU.
func (r *ProductRepo) GetByCode(ctx context.Context, code string) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *ProductRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*product.Product, error) {
	sql, args, err := builder().
		Select("*").
		From(productTable).
		Where(where).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var p product.Product
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, fmt.Errorf("select product: %w", err)
	}
	return &p, nil
}

// Update modifies a product with optimistic locking.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	sql, args, err := builder().
		Update(productTable).
		Set("version", p.Version+1).
		Set("code", p.Code).
		Set("name", p.Name).
		Set("base_unit", p.BaseUnit).
		Set("package_unit", p.PackageUnit).
		Set("package_content", p.PackageContent).
		Set("last_cost", p.LastCost).
		Set("min_stock", p.MinStock).
		Where(squirrel.Eq{"id": p.ID, "version": p.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, p.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("product", p.ID.String())
	}

	p.Version++
	return nil
}

// List retrieves products with filtering, ordered by code.
func (r *ProductRepo) List(ctx context.Context, filter product.ListFilter) ([]*product.Product, error) {
	q := builder().
		Select("*").
		From(productTable).
		OrderBy("code ASC")

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"code": pattern},
			squirrel.ILike{"name": pattern},
		})
	}
	if len(filter.IDs) > 0 {
		q = q.Where(squirrel.Eq{"id": filter.IDs})
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

	var out []*product.Product
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	return out, nil
}

// isUniqueViolation checks for PostgreSQL error 23505.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
