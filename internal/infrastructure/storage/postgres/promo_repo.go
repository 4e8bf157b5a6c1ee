package postgres

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/promo"
)

const promoTable = "cat_promo_rules"

// PromoRepo is the PostgreSQL promo.Repository.
type PromoRepo struct {
	txm *TxManager
}

// NewPromoRepo creates a promo rule repository.
func NewPromoRepo(txm *TxManager) *PromoRepo {
	return &PromoRepo{txm: txm}
}

var _ promo.Repository = (*PromoRepo)(nil)

// Create inserts a new rule.
func (r *PromoRepo) Create(ctx context.Context, rule *promo.Rule) error {
	sql, args, err := builder().
		Insert(promoTable).
		Columns("id", "version", "name", "product_id", "bonus_product_id", "expression", "active").
		Values(rule.ID, rule.Version, rule.Name, rule.ProductID, rule.BonusProductID, rule.Expression, rule.Active).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}
	if _, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert promo rule: %w", err)
	}
	return nil
}

// GetByID retrieves a rule.
func (r *PromoRepo) GetByID(ctx context.Context, ruleID id.ID) (*promo.Rule, error) {
	sql, args, err := builder().
		Select("*").
		From(promoTable).
		Where(squirrel.Eq{"id": ruleID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var rule promo.Rule
	if err := pgxscan.Get(ctx, r.txm.GetQuerier(ctx), &rule, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("promo rule", ruleID.String())
		}
		return nil, fmt.Errorf("select promo rule: %w", err)
	}
	return &rule, nil
}

// Update persists rule changes with optimistic locking.
func (r *PromoRepo) Update(ctx context.Context, rule *promo.Rule) error {
	sql, args, err := builder().
		Update(promoTable).
		Set("version", rule.Version+1).
		Set("name", rule.Name).
		Set("product_id", rule.ProductID).
		Set("bonus_product_id", rule.BonusProductID).
		Set("expression", rule.Expression).
		Set("active", rule.Active).
		Where(squirrel.Eq{"id": rule.ID, "version": rule.Version}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	tag, err := r.txm.GetQuerier(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update promo rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := r.GetByID(ctx, rule.ID); err != nil {
			return err
		}
		return apperror.NewConcurrentModification("promo rule", rule.ID.String())
	}

	rule.Version++
	return nil
}

// ListActive returns active rules ordered by name.
func (r *PromoRepo) ListActive(ctx context.Context) ([]*promo.Rule, error) {
	sql, args, err := builder().
		Select("*").
		From(promoTable).
		Where(squirrel.Eq{"active": true}).
		OrderBy("name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	var out []*promo.Rule
	if err := pgxscan.Select(ctx, r.txm.GetQuerier(ctx), &out, sql, args...); err != nil {
		return nil, fmt.Errorf("select promo rules: %w", err)
	}
	return out, nil
}
