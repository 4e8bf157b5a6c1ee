package promo_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/core/entity"
	"lotix/internal/core/id"
	"lotix/internal/core/types"
	"lotix/internal/domain/promo"
	"lotix/internal/infrastructure/storage/memory"
)

func newEvaluator(t *testing.T) *promo.Evaluator {
	t.Helper()
	eval, err := promo.NewEvaluator()
	require.NoError(t, err)
	return eval
}

func rule(expr string) *promo.Rule {
	return &promo.Rule{
		BaseEntity:     entity.NewBaseEntity(),
		Name:           "test rule",
		BonusProductID: id.New(),
		Expression:     expr,
		Active:         true,
	}
}

func TestEvaluate_GrantsPerPackage(t *testing.T) {
	eval := newEvaluator(t)

	granted, err := eval.Evaluate(context.Background(), rule("packages >= 1 ? packages : 0"), promo.LineContext{
		QtyBase:  32,
		Packages: 2,
		Loose:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(2), granted)
}

func TestEvaluate_SeesCodeAndAmount(t *testing.T) {
	eval := newEvaluator(t)
	ctx := context.Background()

	r := rule(`product_code == "AGUA-625" && amount >= 100.0 ? 3 : 0`)

	granted, err := eval.Evaluate(ctx, r, promo.LineContext{
		ProductCode: "AGUA-625",
		Amount:      150.0,
	})
	require.NoError(t, err)
	assert.Equal(t, types.Quantity(3), granted)

	granted, err = eval.Evaluate(ctx, r, promo.LineContext{
		ProductCode: "AGUA-625",
		Amount:      99.0,
	})
	require.NoError(t, err)
	assert.True(t, granted.IsZero())
}

func TestEvaluate_ClampsNegativeResults(t *testing.T) {
	eval := newEvaluator(t)

	granted, err := eval.Evaluate(context.Background(), rule("qty_base - 100"), promo.LineContext{
		QtyBase: 40,
	})
	require.NoError(t, err)
	assert.True(t, granted.IsZero())
}

func TestEvaluate_NonIntegerResultRejected(t *testing.T) {
	eval := newEvaluator(t)

	_, err := eval.Evaluate(context.Background(), rule(`"not a quantity"`), promo.LineContext{})
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestCheck_RejectsBrokenExpressions(t *testing.T) {
	eval := newEvaluator(t)

	err := eval.Check("packages >=")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	err = eval.Check("no_such_variable > 0 ? 1 : 0")
	require.Error(t, err)

	require.NoError(t, eval.Check("loose > 5 ? 1 : 0"))
}

func TestRule_AppliesTo(t *testing.T) {
	productID := id.New()

	scoped := rule("1")
	scoped.ProductID = &productID
	assert.True(t, scoped.AppliesTo(productID))
	assert.False(t, scoped.AppliesTo(id.New()))

	global := rule("1")
	assert.True(t, global.AppliesTo(id.New()))

	inactive := rule("1")
	inactive.Active = false
	assert.False(t, inactive.AppliesTo(id.New()))
}

func TestService_CreateCompilesExpression(t *testing.T) {
	ctx := context.Background()
	svc := promo.NewService(memory.NewPromoRepo(), newEvaluator(t))

	bad := rule("packages >=")
	err := svc.Create(ctx, bad)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	good := rule("packages")
	require.NoError(t, svc.Create(ctx, good))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, good.ID, active[0].ID)
}

func TestService_GrantsFor(t *testing.T) {
	ctx := context.Background()
	svc := promo.NewService(memory.NewPromoRepo(), newEvaluator(t))

	waterID, oilID := id.New(), id.New()

	scoped := rule("packages")
	scoped.ProductID = &waterID
	scoped.BonusProductID = waterID
	require.NoError(t, svc.Create(ctx, scoped))

	dormant := rule("1000")
	dormant.Active = false
	require.NoError(t, svc.Create(ctx, dormant))

	grants, err := svc.GrantsFor(ctx, promo.LineContext{
		ProductID: waterID,
		QtyBase:   30,
		Packages:  2,
	})
	require.NoError(t, err)
	require.Len(t, grants, 1)
	assert.Equal(t, scoped.ID, grants[0].RuleID)
	assert.Equal(t, waterID, grants[0].ProductID)
	assert.Equal(t, types.Quantity(2), grants[0].QuantityBase)

	// Out-of-scope product fires nothing.
	grants, err = svc.GrantsFor(ctx, promo.LineContext{ProductID: oilID, Packages: 5})
	require.NoError(t, err)
	assert.Empty(t, grants)
}
