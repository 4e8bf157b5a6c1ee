package promo

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"lotix/internal/core/apperror"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/pkg/logger"
)

// LineContext is what a rule expression can see about the regular line
// it is evaluated against.
type LineContext struct {
	ProductID   id.ID
	ProductCode string

	// QtyBase is the line quantity in base units
	QtyBase types.Quantity

	// Packages and Loose are the package split of QtyBase
	Packages int64
	Loose    int64

	// Amount is the line amount, exposed as a float for CEL comparison
	Amount float64
}

// Grant is a bonus produced by a fired rule.
type Grant struct {
	RuleID       id.ID
	ProductID    id.ID
	QuantityBase types.Quantity
}

// Evaluator compiles and runs rule expressions. Compiled programs are
// cached per expression; rules change rarely, lines do not.
type Evaluator struct {
	env *cel.Env

	mu    sync.RWMutex
	progs map[string]cel.Program
}

// NewEvaluator creates an evaluator with the sale-line variable set.
func NewEvaluator() (*Evaluator, error) {
	env, err := cel.NewEnv(
		cel.Variable("qty_base", cel.IntType),
		cel.Variable("packages", cel.IntType),
		cel.Variable("loose", cel.IntType),
		cel.Variable("product_code", cel.StringType),
		cel.Variable("amount", cel.DoubleType),
	)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}
	return &Evaluator{
		env:   env,
		progs: make(map[string]cel.Program),
	}, nil
}

// Check compiles the expression, reporting errors without running it.
// Used when rules are created or updated.
func (e *Evaluator) Check(expression string) error {
	_, err := e.program(expression)
	return err
}

// Evaluate runs one rule against a line context and returns the granted
// base quantity. Zero or negative results mean the rule did not fire.
func (e *Evaluator) Evaluate(ctx context.Context, rule *Rule, lc LineContext) (types.Quantity, error) {
	prog, err := e.program(rule.Expression)
	if err != nil {
		return 0, err
	}

	out, _, err := prog.Eval(map[string]any{
		"qty_base":     lc.QtyBase.Int64(),
		"packages":     lc.Packages,
		"loose":        lc.Loose,
		"product_code": lc.ProductCode,
		"amount":       lc.Amount,
	})
	if err != nil {
		return 0, apperror.NewBusinessRule(
			apperror.CodeBusinessRule,
			"promo rule evaluation failed",
		).WithDetail("rule_id", rule.ID.String()).WithCause(err)
	}

	granted, ok := out.Value().(int64)
	if !ok {
		return 0, apperror.NewValidation("promo rule must return an integer quantity").
			WithDetail("rule_id", rule.ID.String()).
			WithDetail("result_type", fmt.Sprintf("%T", out.Value()))
	}
	if granted < 0 {
		granted = 0
	}
	return types.Quantity(granted), nil
}

func (e *Evaluator) program(expression string) (cel.Program, error) {
	e.mu.RLock()
	prog, ok := e.progs[expression]
	e.mu.RUnlock()
	if ok {
		return prog, nil
	}

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, apperror.NewValidation("invalid promo rule expression").
			WithDetail("expression", expression).
			WithCause(issues.Err())
	}
	prog, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build CEL program: %w", err)
	}

	e.mu.Lock()
	e.progs[expression] = prog
	e.mu.Unlock()
	return prog, nil
}

// Service matches active rules against sale lines.
type Service struct {
	repo Repository
	eval *Evaluator
}

// NewService creates a promo service.
func NewService(repo Repository, eval *Evaluator) *Service {
	return &Service{repo: repo, eval: eval}
}

// Create validates, compiles, and stores a rule.
func (s *Service) Create(ctx context.Context, r *Rule) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	if err := s.eval.Check(r.Expression); err != nil {
		return err
	}
	if err := s.repo.Create(ctx, r); err != nil {
		return fmt.Errorf("create promo rule: %w", err)
	}

	logger.Info(ctx, "promo rule created", "id", r.ID, "name", r.Name)
	return nil
}

// GetByID retrieves a rule.
func (s *Service) GetByID(ctx context.Context, ruleID id.ID) (*Rule, error) {
	return s.repo.GetByID(ctx, ruleID)
}

// Update validates, compiles, and persists rule changes.
func (s *Service) Update(ctx context.Context, r *Rule) error {
	if err := r.Validate(ctx); err != nil {
		return err
	}
	if err := s.eval.Check(r.Expression); err != nil {
		return err
	}
	return s.repo.Update(ctx, r)
}

// ListActive returns the active rules.
func (s *Service) ListActive(ctx context.Context) ([]*Rule, error) {
	return s.repo.ListActive(ctx)
}

// GrantsFor evaluates every active in-scope rule against the line and
// returns the granted bonuses.
func (s *Service) GrantsFor(ctx context.Context, lc LineContext) ([]Grant, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list promo rules: %w", err)
	}

	var grants []Grant
	for _, rule := range rules {
		if !rule.AppliesTo(lc.ProductID) {
			continue
		}
		granted, err := s.eval.Evaluate(ctx, rule, lc)
		if err != nil {
			return nil, err
		}
		if !granted.IsPositive() {
			continue
		}
		grants = append(grants, Grant{
			RuleID:       rule.ID,
			ProductID:    rule.BonusProductID,
			QuantityBase: granted,
		})
	}
	return grants, nil
}
