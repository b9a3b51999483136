package repositories

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

// MockProductRepository is an in-memory implementation of ProductRepository.
type MockProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
	now      func() time.Time
}

// NewMockProductRepository creates a new instance of MockProductRepository.
func NewMockProductRepository() *MockProductRepository {
	return &MockProductRepository{
		products: make(map[string]models.Product),
		now:      time.Now,
	}
}

func parseUUID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", apperror.ErrMalformedID, id)
	}
	return nil
}

func matchesKeyword(p models.Product, keyword string) bool {
	if keyword == "" {
		return true
	}
	kw := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(p.Name), kw) ||
		strings.Contains(strings.ToLower(p.Description), kw)
}

func sortNewestFirst(products []models.Product) {
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].CreatedAt.After(products[j].CreatedAt)
	})
}

// List returns a page of products matching the keyword.
func (r *MockProductRepository) List(_ context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if matchesKeyword(p, filter.Keyword) {
			matched = append(matched, p.Clone())
		}
	}
	sortNewestFirst(matched)

	total := int64(len(matched))
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	if filter.Offset >= len(matched) {
		return []models.Product{}, total, nil
	}
	end := len(matched)
	if filter.Limit > 0 && filter.Limit < end-filter.Offset {
		end = filter.Offset + filter.Limit
	}
	return matched[filter.Offset:end], total, nil
}

// TopRated returns the best rated products.
func (r *MockProductRepository) TopRated(_ context.Context, limit int) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		all = append(all, p.Clone())
	}
	sort.SliceStable(all, func(i, j int) bool {
		a, b := all[i], all[j]
		if a.Rating.Average != b.Rating.Average {
			return a.Rating.Average > b.Rating.Average
		}
		if a.Rating.Count != b.Rating.Count {
			return a.Rating.Count > b.Rating.Count
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// GetByID returns a product by its ID.
func (r *MockProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	if err := parseUUID(id); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	out := product.Clone()
	return &out, nil
}

// ExistsByName reports whether a product already uses name.
func (r *MockProductRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nameTaken(name, ""), nil
}

func (r *MockProductRepository) nameTaken(name, exceptID string) bool {
	for id, p := range r.products {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

// Create adds a new product.
func (r *MockProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.nameTaken(product.Name, "") {
		return &apperror.DuplicateKeyError{Field: "name", Err: fmt.Errorf("name %q taken", product.Name)}
	}
	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	now := r.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now
	r.products[product.ID] = product.Clone()
	return nil
}

// Update replaces an existing product.
func (r *MockProductRepository) Update(_ context.Context, product *models.Product) error {
	if err := parseUUID(product.ID); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[product.ID]; !ok {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
	}
	if r.nameTaken(product.Name, product.ID) {
		return &apperror.DuplicateKeyError{Field: "name", Err: fmt.Errorf("name %q taken", product.Name)}
	}
	product.UpdatedAt = r.now()
	r.products[product.ID] = product.Clone()
	return nil
}

// Delete removes a product by its ID.
func (r *MockProductRepository) Delete(_ context.Context, id string) error {
	if err := parseUUID(id); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	delete(r.products, id)
	return nil
}

// AddReview appends a review under the write lock.
func (r *MockProductRepository) AddReview(_ context.Context, id string, review models.Review) (*models.Product, error) {
	if err := parseUUID(id); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	if product.HasReviewFrom(review.User) {
		return nil, ErrAlreadyReviewed
	}
	product = product.Clone()
	if review.ID == "" {
		review.ID = uuid.New().String()
	}
	now := r.now()
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}
	product.AddReview(review)
	product.UpdatedAt = now
	r.products[id] = product

	out := product.Clone()
	return &out, nil
}
