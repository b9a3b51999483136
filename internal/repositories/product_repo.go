package repositories

import (
	"context"
	"errors"

	"katalog/internal/models"
)

var (
	ErrProductNotFound  = errors.New("product not found")
	ErrAlreadyReviewed  = errors.New("product already reviewed by this user")
	ErrConcurrentUpdate = errors.New("product was modified concurrently")
)

// ProductFilter selects one page of products.
type ProductFilter struct {
	Keyword string
	Offset  int
	Limit   int
}

// ProductRepository defines the interface for product data access.
//
// Identifiers that the store cannot parse yield apperror.ErrMalformedID,
// unique name violations yield *apperror.DuplicateKeyError.
type ProductRepository interface {
	// List returns one page matching the filter, newest first, plus the
	// total number of matches.
	List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error)
	TopRated(ctx context.Context, limit int) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	Delete(ctx context.Context, id string) error
	// AddReview atomically appends review unless its user already
	// reviewed the product, and returns the product with its rating
	// recomputed.
	AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error)
}
