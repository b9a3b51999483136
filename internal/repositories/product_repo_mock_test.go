package repositories

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

func newProduct(name string, created time.Time) *models.Product {
	return &models.Product{
		Name:        name,
		Description: "description of " + name,
		Price:       1,
		Category:    models.CategoryOther,
		CreatedAt:   created,
	}
}

func TestMockProductRepository_ListPagingAndOrder(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Create(ctx, newProduct(fmt.Sprintf("p%02d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	page, total, err := repo.List(ctx, ProductFilter{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page, 10)
	assert.Equal(t, "p11", page[0].Name)

	page, _, err = repo.List(ctx, ProductFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "p00", page[1].Name)

	page, total, err = repo.List(ctx, ProductFilter{Offset: 20, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)
	assert.Equal(t, int64(12), total)
}

func TestMockProductRepository_KeywordIsLiteral(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("Shirt (blue)", time.Now())))
	require.NoError(t, repo.Create(ctx, newProduct("Shirt blue", time.Now())))

	_, total, err := repo.List(ctx, ProductFilter{Keyword: "(BLUE)", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = repo.List(ctx, ProductFilter{Keyword: "DESCRIPTION OF", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestMockProductRepository_UniqueName(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("Widget", time.Now())))
	err := repo.Create(ctx, newProduct("Widget", time.Now()))

	var dup *apperror.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Field)

	other := newProduct("Other", time.Now())
	require.NoError(t, repo.Create(ctx, other))
	other.Name = "Widget"
	assert.ErrorAs(t, repo.Update(ctx, other), &dup)
}

func TestMockProductRepository_ReturnsCopies(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()
	p := newProduct("Widget", time.Now())
	p.Images = []models.Image{{URL: "a"}}
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	got.Images[0].URL = "changed"

	again, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "a", again.Images[0].URL)
}

func TestMockProductRepository_Errors(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "nope")
	assert.True(t, errors.Is(err, apperror.ErrMalformedID))

	missing := "7d2b0c1e-8b59-4b8e-9f0a-2f1f1f7b9e10"
	_, err = repo.GetByID(ctx, missing)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, missing), ErrProductNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Product{ID: missing}), ErrProductNotFound)
	_, err = repo.AddReview(ctx, missing, models.Review{User: "u"})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestMockProductRepository_AddReview(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()
	p := newProduct("Widget", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	got, err := repo.AddReview(ctx, p.ID, models.Review{User: "u1", Rating: 5})
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 5, Count: 1}, got.Rating)
	assert.NotEmpty(t, got.Reviews[0].ID)
	assert.False(t, got.Reviews[0].CreatedAt.IsZero())

	_, err = repo.AddReview(ctx, p.ID, models.Review{User: "u1", Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
}

func TestMockProductRepository_TopRated(t *testing.T) {
	repo := NewMockProductRepository()
	ctx := context.Background()
	base := time.Now()

	older := newProduct("older", base)
	newer := newProduct("newer", base.Add(time.Minute))
	many := newProduct("many", base)
	for _, p := range []*models.Product{older, newer, many} {
		require.NoError(t, repo.Create(ctx, p))
	}
	for _, id := range []string{older.ID, newer.ID} {
		_, err := repo.AddReview(ctx, id, models.Review{User: "a", Rating: 4})
		require.NoError(t, err)
	}
	for _, u := range []string{"a", "b"} {
		_, err := repo.AddReview(ctx, many.ID, models.Review{User: u, Rating: 4})
		require.NoError(t, err)
	}

	top, err := repo.TopRated(ctx, 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "many", top[0].Name)
	assert.Equal(t, "newer", top[1].Name)
}

func TestMockUserRepository(t *testing.T) {
	repo := NewMockUserRepository()
	ctx := context.Background()

	u := &models.User{Name: "Jane", Email: "jane@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))
	assert.NotEmpty(t, u.ID)

	got, err := repo.GetByEmail(ctx, "JANE@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Jane", got.Name)

	var dup *apperror.DuplicateKeyError
	assert.ErrorAs(t, repo.Create(ctx, &models.User{Email: "jane@example.com"}), &dup)

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
