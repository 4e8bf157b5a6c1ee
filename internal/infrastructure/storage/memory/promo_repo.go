package memory

import (
	"context"
	"sort"
	"sync"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/domain/promo"
)

// PromoRepo is the in-memory promo.Repository.
type PromoRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*promo.Rule
}

// NewPromoRepo creates an empty promo rule repository.
func NewPromoRepo() *PromoRepo {
	return &PromoRepo{byID: make(map[id.ID]*promo.Rule)}
}

var _ promo.Repository = (*PromoRepo)(nil)

// Create inserts a new rule.
func (r *PromoRepo) Create(ctx context.Context, rule *promo.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[rule.ID]; exists {
		return apperror.NewDuplicate("promo rule", "id", rule.ID.String())
	}
	cp := *rule
	r.byID[rule.ID] = &cp
	return nil
}

// GetByID returns a copy of the rule.
func (r *PromoRepo) GetByID(ctx context.Context, ruleID id.ID) (*promo.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rule, ok := r.byID[ruleID]
	if !ok {
		return nil, apperror.NewNotFound("promo rule", ruleID.String())
	}
	cp := *rule
	return &cp, nil
}

// Update replaces the stored rule, checking the optimistic version.
func (r *PromoRepo) Update(ctx context.Context, rule *promo.Rule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[rule.ID]
	if !ok {
		return apperror.NewNotFound("promo rule", rule.ID.String())
	}
	if current.Version != rule.Version {
		return apperror.NewConcurrentModification("promo rule", rule.ID.String())
	}

	cp := *rule
	cp.Version++
	r.byID[rule.ID] = &cp

	rule.Version = cp.Version
	return nil
}

// ListActive returns active rules, ordered by name.
func (r *PromoRepo) ListActive(ctx context.Context) ([]*promo.Rule, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*promo.Rule, 0, len(r.byID))
	for _, rule := range r.byID {
		if !rule.Active {
			continue
		}
		cp := *rule
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}
