package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"katalog/internal/models"
)

// newMockGorm returns a postgres-dialect gorm.DB backed by sqlmock.
func newMockGorm(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *gorm.DB) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err, "Failed to create sqlmock")

	gdb, err := gorm.Open(postgres.New(postgres.Config{Conn: db}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock, gdb
}

func productRow(id string, ratingCount int) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows([]string{
		"id", "name", "description", "price", "category", "brand", "stock", "images",
		"rating_average", "rating_count", "in_stock", "reviews", "created_at", "updated_at",
	}).AddRow(id, "Widget", "A thing", 9.99, "other", "", 3, "[]", 0.0, ratingCount, true, "[]", now, now)
}

func TestGORMProductRepository_List_StorageError(t *testing.T) {
	db, mock, gdb := newMockGorm(t)
	defer db.Close()
	repo := NewGORMProductRepository(gdb)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "products"`).
		WillReturnError(errors.New("connection reset by peer"))

	_, _, err := repo.List(context.Background(), ProductFilter{Keyword: "x", Limit: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset by peer")
	assert.NotErrorIs(t, err, ErrProductNotFound)

	require.NoError(t, mock.ExpectationsWereMet(), "SQLmock expectations were not met")
}

func TestGORMProductRepository_GetByID_StorageError(t *testing.T) {
	db, mock, gdb := newMockGorm(t)
	defer db.Close()
	repo := NewGORMProductRepository(gdb)

	id := "9b2e6f4a-1c3d-4e5f-8a7b-6c5d4e3f2a1b"
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
		WillReturnError(sql.ErrConnDone)

	_, err := repo.GetByID(context.Background(), id)
	assert.ErrorIs(t, err, sql.ErrConnDone)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGORMProductRepository_AddReview_GivesUpAfterLostRaces(t *testing.T) {
	db, mock, gdb := newMockGorm(t)
	defer db.Close()
	repo := NewGORMProductRepository(gdb)

	id := "9b2e6f4a-1c3d-4e5f-8a7b-6c5d4e3f2a1b"
	for i := 0; i < maxReviewAttempts; i++ {
		mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).
			WillReturnRows(productRow(id, i))
		mock.ExpectExec(`UPDATE "products" SET .*rating_count = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))
	}

	_, err := repo.AddReview(context.Background(), id, models.Review{User: "u1", Rating: 4})
	assert.ErrorIs(t, err, ErrConcurrentUpdate)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGORMProductRepository_AddReview_WinsOnRetry(t *testing.T) {
	db, mock, gdb := newMockGorm(t)
	defer db.Close()
	repo := NewGORMProductRepository(gdb)

	id := "9b2e6f4a-1c3d-4e5f-8a7b-6c5d4e3f2a1b"
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).WillReturnRows(productRow(id, 0))
	mock.ExpectExec(`UPDATE "products" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT \* FROM "products" WHERE id = \$1`).WillReturnRows(productRow(id, 0))
	mock.ExpectExec(`UPDATE "products" SET`).WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.AddReview(context.Background(), id, models.Review{User: "u1", Rating: 4})
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Average: 4, Count: 1}, got.Rating)
	require.NoError(t, mock.ExpectationsWereMet())
}
