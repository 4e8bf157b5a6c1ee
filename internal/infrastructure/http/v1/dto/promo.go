package dto

import (
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/domain/promo"
)

// CreatePromoRuleRequest is the payload for creating a promo rule.
type CreatePromoRuleRequest struct {
	Name           string `json:"name" binding:"required"`
	ProductID      *id.ID `json:"productId"`
	BonusProductID id.ID  `json:"bonusProductId" binding:"required"`
	Expression     string `json:"expression" binding:"required"`
	Active         bool   `json:"active"`
}

// ToEntity converts the request to a rule.
func (r *CreatePromoRuleRequest) ToEntity() *promo.Rule {
	return &promo.Rule{
		BaseEntity:     entity.NewBaseEntity(),
		Name:           r.Name,
		ProductID:      r.ProductID,
		BonusProductID: r.BonusProductID,
		Expression:     r.Expression,
		Active:         r.Active,
	}
}

// UpdatePromoRuleRequest is the payload for updating a promo rule.
type UpdatePromoRuleRequest struct {
	Name       *string `json:"name"`
	Expression *string `json:"expression"`
	Active     *bool   `json:"active"`
}

// ApplyTo applies non-nil fields to the rule.
func (r *UpdatePromoRuleRequest) ApplyTo(rule *promo.Rule) {
	if r.Name != nil {
		rule.Name = *r.Name
	}
	if r.Expression != nil {
		rule.Expression = *r.Expression
	}
	if r.Active != nil {
		rule.Active = *r.Active
	}
}
