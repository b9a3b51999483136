package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type widget struct {
	ID   uint
	Name string `gorm:"uniqueIndex"`
}

func TestOpenSQLite_InMemory(t *testing.T) {
	db, err := OpenSQLite(context.Background(), "file::memory:")
	require.NoError(t, err)

	require.NoError(t, Migrate(db, &widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestOpenRejectsEmptyTargets(t *testing.T) {
	_, err := OpenPostgres(context.Background(), "")
	assert.EqualError(t, err, "DATABASE_DSN is empty")

	_, err = OpenSQLite(context.Background(), "")
	assert.EqualError(t, err, "SQLITE_PATH is empty")

	_, _, err = OpenMongo(context.Background(), "", "catalog")
	assert.EqualError(t, err, "MONGO_URI is empty")
}
