package repositories

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

// newTestDB opens a private in-memory SQLite database with the schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}))
	return db
}

func TestGORMProductRepository_CreateAndGet(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()

	p := newProduct("Widget", time.Time{})
	p.Images = []models.Image{{URL: "http://img/1", Alt: "front"}}
	p.Stock = 2
	p.RefreshStock()
	p.EnsureCollections()
	require.NoError(t, repo.Create(ctx, p))
	_, err := uuid.Parse(p.ID)
	require.NoError(t, err)
	assert.False(t, p.CreatedAt.IsZero())

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Widget", got.Name)
	assert.Equal(t, []models.Image{{URL: "http://img/1", Alt: "front"}}, got.Images)
	assert.True(t, got.InStock)
	assert.Empty(t, got.Reviews)

	exists, err := repo.ExistsByName(ctx, "Widget")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = repo.ExistsByName(ctx, "widget")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGORMProductRepository_UniqueName(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newProduct("Widget", time.Now())))
	err := repo.Create(ctx, newProduct("Widget", time.Now()))

	var dup *apperror.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "name", dup.Field)
	assert.Equal(t, "name already exists", apperror.Classify(err, 200).Message)
}

func TestGORMProductRepository_ListFiltersLiterally(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	names := []string{"50% off shirt", "500 shirts", "snake_case mug", "snakecase mug", `back\slash`}
	for i, n := range names {
		require.NoError(t, repo.Create(ctx, newProduct(n, base.Add(time.Duration(i)*time.Hour))))
	}

	cases := map[string][]string{
		"0% o":    {"50% off shirt"},
		"E_C":     {"snake_case mug"},
		`k\s`:     {`back\slash`},
		"SHIRT":   {"500 shirts", "50% off shirt"},
		"nothing": {},
	}
	for kw, want := range cases {
		got, total, err := repo.List(ctx, ProductFilter{Keyword: kw, Limit: 10})
		require.NoError(t, err, kw)
		assert.Equal(t, int64(len(want)), total, kw)
		gotNames := make([]string, 0, len(got))
		for _, p := range got {
			gotNames = append(gotNames, p.Name)
		}
		assert.Equal(t, want, gotNames, kw)
	}
}

func TestGORMProductRepository_ListPaging(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 12; i++ {
		require.NoError(t, repo.Create(ctx, newProduct(fmt.Sprintf("p%02d", i), base.Add(time.Duration(i)*time.Minute))))
	}

	page, total, err := repo.List(ctx, ProductFilter{Offset: 10, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(12), total)
	require.Len(t, page, 2)
	assert.Equal(t, "p01", page[0].Name)
	assert.Equal(t, "p00", page[1].Name)
}

func TestGORMProductRepository_TopRated(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	ratings := map[string][]int{"a": {5}, "b": {3, 5}, "c": {4, 4, 4}, "d": {}, "e": {2}, "f": {1}}
	i := 0
	for name, rs := range ratings {
		p := newProduct(name, base.Add(time.Duration(i)*time.Minute))
		i++
		require.NoError(t, repo.Create(ctx, p))
		for j, r := range rs {
			_, err := repo.AddReview(ctx, p.ID, models.Review{User: fmt.Sprintf("u%d", j), Rating: r})
			require.NoError(t, err)
		}
	}

	top, err := repo.TopRated(ctx, 5)
	require.NoError(t, err)
	require.Len(t, top, 5)
	got := make([]string, 0, 5)
	for _, p := range top {
		got = append(got, p.Name)
	}
	assert.Equal(t, []string{"a", "c", "b", "e", "f"}, got)
}

func TestGORMProductRepository_UpdateAndDelete(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()

	p := newProduct("Widget", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	p.Stock = 0
	p.Price = 0
	p.Images = []models.Image{}
	p.RefreshStock()
	require.NoError(t, repo.Update(ctx, p))

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got.Price)
	assert.False(t, got.InStock)

	missing := uuid.NewString()
	assert.ErrorIs(t, repo.Update(ctx, &models.Product{ID: missing, Name: "x"}), ErrProductNotFound)
	assert.ErrorIs(t, repo.Update(ctx, &models.Product{ID: "bad"}), apperror.ErrMalformedID)

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrProductNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, "bad"), apperror.ErrMalformedID)
}

func TestGORMProductRepository_AddReview(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()

	p := newProduct("Widget", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	_, err := repo.AddReview(ctx, p.ID, models.Review{User: "u1", Name: "Alice", Rating: 4})
	require.NoError(t, err)
	got, err := repo.AddReview(ctx, p.ID, models.Review{User: "u2", Name: "Bob", Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 3, Count: 2}, got.Rating)

	_, err = repo.AddReview(ctx, p.ID, models.Review{User: "u1", Rating: 1})
	assert.ErrorIs(t, err, ErrAlreadyReviewed)

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 3, Count: 2}, stored.Rating)
	require.Len(t, stored.Reviews, 2)
	assert.Equal(t, "Alice", stored.Reviews[0].Name)

	_, err = repo.AddReview(ctx, uuid.NewString(), models.Review{User: "u1", Rating: 1})
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestGORMProductRepository_ConcurrentReviewsAreNotLost(t *testing.T) {
	repo := NewGORMProductRepository(newTestDB(t))
	ctx := context.Background()

	p := newProduct("Widget", time.Now())
	require.NoError(t, repo.Create(ctx, p))

	var wg sync.WaitGroup
	var mu sync.Mutex
	accepted := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := repo.AddReview(ctx, p.ID, models.Review{User: fmt.Sprintf("u%d", i), Rating: 5}); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, accepted, stored.Rating.Count)
	assert.Len(t, stored.Reviews, accepted)
}

func TestGORMUserRepository(t *testing.T) {
	repo := NewGORMUserRepository(newTestDB(t))
	ctx := context.Background()

	u := &models.User{Name: "Jane", Email: "jane@example.com", Password: "hash"}
	require.NoError(t, repo.Create(ctx, u))

	got, err := repo.GetByEmail(ctx, "jane@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, "hash", got.Password)

	got, err = repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "jane@example.com", got.Email)

	err = repo.Create(ctx, &models.User{Name: "Other", Email: "jane@example.com", Password: "x"})
	var dup *apperror.DuplicateKeyError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "email", dup.Field)

	_, err = repo.GetByEmail(ctx, "ghost@example.com")
	assert.ErrorIs(t, err, ErrUserNotFound)
}
