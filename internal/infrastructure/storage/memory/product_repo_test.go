package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lotix/internal/core/apperror"
	"lotix/internal/domain/catalogs/product"
	"lotix/internal/infrastructure/storage/memory"
)

func TestProductRepo_CodeUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()

	first := product.New("AGUA-625", "Agua 625ml", 15)
	require.NoError(t, repo.Create(ctx, first))

	dup := product.New("AGUA-625", "Another water", 1)
	err := repo.Create(ctx, dup)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeDuplicate))

	got, err := repo.GetByCode(ctx, "AGUA-625")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}

func TestProductRepo_OptimisticLocking(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()

	p := product.New("AGUA-625", "Agua 625ml", 15)
	require.NoError(t, repo.Create(ctx, p))

	// Two readers load the same version.
	a, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	b, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)

	a.Name = "Agua 625ml (new label)"
	require.NoError(t, repo.Update(ctx, a))

	// The stale writer loses.
	b.Name = "Agua 625ml (stale)"
	err = repo.Update(ctx, b)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeConcurrentModification))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Agua 625ml (new label)", got.Name)
}

func TestProductRepo_UpdateReindexesCode(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()

	p := product.New("OLD-CODE", "Product", 1)
	require.NoError(t, repo.Create(ctx, p))

	p.Code = "NEW-CODE"
	require.NoError(t, repo.Update(ctx, p))

	_, err := repo.GetByCode(ctx, "OLD-CODE")
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))

	got, err := repo.GetByCode(ctx, "NEW-CODE")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
}

func TestProductRepo_ListSearchAndPagination(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()

	for _, code := range []string{"AGUA-625", "AGUA-2L", "ACEITE-1L"} {
		require.NoError(t, repo.Create(ctx, product.New(code, "Product "+code, 1)))
	}

	found, err := repo.List(ctx, product.ListFilter{Search: "agua"})
	require.NoError(t, err)
	assert.Len(t, found, 2)

	// Ordered by code; the second page holds the last item.
	page, err := repo.List(ctx, product.ListFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "AGUA-625", page[0].Code)
}
