// Package promo evaluates promotional bonus rules against sale lines.
// Rules are CEL expressions producing a bonus quantity in base units;
// matching rules add bonus lines priced at zero to the sale.
package promo

import (
	"context"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
)

// Rule is one promotional rule. The expression sees the regular line it
// is evaluated against and returns how many base units to grant; zero
// means the rule does not fire.
//
// Example: grant one bottle per full case bought
//
//	packages >= 1 ? packages : 0
type Rule struct {
	entity.BaseEntity

	Name string `db:"name" json:"name"`

	// ProductID restricts the rule to one product; nil applies to all
	ProductID *id.ID `db:"product_id" json:"productId,omitempty"`

	// BonusProductID is the product granted. Usually the line's own
	// product, but cross-product grants are allowed.
	BonusProductID id.ID `db:"bonus_product_id" json:"bonusProductId"`

	// Expression is a CEL expression returning the bonus base quantity
	Expression string `db:"expression" json:"expression"`

	Active bool `db:"active" json:"active"`
}

// Validate implements entity.Validatable.
func (r *Rule) Validate(ctx context.Context) error {
	if r.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	if r.Expression == "" {
		return apperror.NewValidation("expression is required").
			WithDetail("field", "expression")
	}
	if id.IsNil(r.BonusProductID) {
		return apperror.NewValidation("bonus product is required").
			WithDetail("field", "bonusProductId")
	}
	return nil
}

// AppliesTo reports whether the rule is in scope for a product.
func (r *Rule) AppliesTo(productID id.ID) bool {
	return r.Active && (r.ProductID == nil || *r.ProductID == productID)
}

// Repository persists promo rules.
type Repository interface {
	Create(ctx context.Context, r *Rule) error
	GetByID(ctx context.Context, ruleID id.ID) (*Rule, error)
	Update(ctx context.Context, r *Rule) error
	ListActive(ctx context.Context) ([]*Rule, error)
}
