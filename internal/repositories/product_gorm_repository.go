package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

const maxReviewAttempts = 3

// GORMProductRepository is a GORM implementation of ProductRepository.
// Images and reviews are stored as JSON columns on the product row.
type GORMProductRepository struct {
	db *gorm.DB
}

// NewGORMProductRepository creates a new instance of GORMProductRepository.
func NewGORMProductRepository(db *gorm.DB) *GORMProductRepository {
	return &GORMProductRepository{
		db: db,
	}
}

// isUniqueViolation recognises unique index errors. gorm translates them
// to ErrDuplicatedKey when TranslateError is on; the message check covers
// connections opened without it.
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}

func likePattern(keyword string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(keyword)) + "%"
}

func (r *GORMProductRepository) filtered(ctx context.Context, keyword string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Product{})
	if keyword != "" {
		pattern := likePattern(keyword)
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`, pattern, pattern)
	}
	return q
}

// List retrieves a page of products from the database.
func (r *GORMProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	var total int64
	if err := r.filtered(ctx, filter.Keyword).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	products := make([]models.Product, 0, filter.Limit)
	if total == 0 {
		return products, 0, nil
	}
	q := r.filtered(ctx, filter.Keyword).Order("created_at DESC").Offset(filter.Offset)
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if err := q.Find(&products).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	return products, total, nil
}

// TopRated retrieves the best rated products.
func (r *GORMProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	var products []models.Product
	err := r.db.WithContext(ctx).
		Order("rating_average DESC").
		Order("rating_count DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get top rated products: %w", err)
	}
	return products, nil
}

// GetByID retrieves a single product by its ID from the database.
func (r *GORMProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	if err := parseUUID(id); err != nil {
		return nil, err
	}
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	return &product, nil
}

// ExistsByName reports whether a product already uses name.
func (r *GORMProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Where("name = ?", name).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to look up product name: %w", err)
	}
	return count > 0, nil
}

// Create creates a new product in the database.
func (r *GORMProductRepository) Create(ctx context.Context, product *models.Product) error {
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if isUniqueViolation(err) {
			return &apperror.DuplicateKeyError{Field: "name", Err: err}
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	return nil
}

// Update writes every column of an existing product.
func (r *GORMProductRepository) Update(ctx context.Context, product *models.Product) error {
	if err := parseUUID(product.ID); err != nil {
		return err
	}
	product.UpdatedAt = time.Now()
	res := r.db.WithContext(ctx).Model(product).Select("*").Omit("id", "created_at").Updates(product)
	if res.Error != nil {
		if isUniqueViolation(res.Error) {
			return &apperror.DuplicateKeyError{Field: "name", Err: res.Error}
		}
		return fmt.Errorf("failed to update product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
	}
	return nil
}

// Delete deletes a product by its ID from the database.
func (r *GORMProductRepository) Delete(ctx context.Context, id string) error {
	if err := parseUUID(id); err != nil {
		return err
	}
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("failed to delete product: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil
}

// AddReview appends a review using compare-and-swap on the review count,
// reloading the product when another writer got there first.
func (r *GORMProductRepository) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}

	for attempt := 0; attempt < maxReviewAttempts; attempt++ {
		product, err := r.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if product.HasReviewFrom(review.User) {
			return nil, ErrAlreadyReviewed
		}

		seen := product.Rating.Count
		product.AddReview(review)
		product.UpdatedAt = time.Now()

		res := r.db.WithContext(ctx).Model(product).
			Where("rating_count = ?", seen).
			Select("reviews", "rating_average", "rating_count", "updated_at").
			Updates(product)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to add review to product %s: %w", id, res.Error)
		}
		if res.RowsAffected == 1 {
			return product, nil
		}
	}
	return nil, fmt.Errorf("product with ID %s: %w", id, ErrConcurrentUpdate)
}
