package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"katalog/internal/apperror"
	"katalog/internal/models"
	"katalog/internal/repositories"
)

const (
	// PageSize is the number of products returned per list page.
	PageSize = 10
	// TopRatedLimit is the number of products returned by TopProducts.
	TopRatedLimit = 5

	maxPage = (math.MaxInt-1)/PageSize + 1
)

// CreateProductInput is the client-supplied part of a new product.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"required,max=100"`
	Description string          `json:"description" validate:"required,max=1000"`
	Price       *float64        `json:"price" validate:"required,gte=0"`
	Category    models.Category `json:"category" validate:"required,category"`
	Brand       string          `json:"brand"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Images      []models.Image  `json:"images" validate:"dive"`
}

func (in *CreateProductInput) normalize() {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Category = models.Category(strings.TrimSpace(string(in.Category)))
	in.Brand = strings.TrimSpace(in.Brand)
}

// ReviewInput is the body of a review submission. Rating accepts a JSON
// number or a numeric string.
type ReviewInput struct {
	Rating  json.Number `json:"rating"`
	Title   string      `json:"title"`
	Comment string      `json:"comment"`
}

// Reviewer identifies the authenticated user submitting a review.
type Reviewer struct {
	ID   string
	Name string
}

// ProductPage is one page of a product listing.
type ProductPage struct {
	Products []models.Product
	Count    int64
	Page     int
	Pages    int
}

// ProductServiceConfig carries the optional collaborators of ProductService.
type ProductServiceConfig struct {
	Events    EventPublisher
	Logger    *slog.Logger
	PatchMode models.PatchMode
	Timeout   time.Duration
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	validate  *validator.Validate
	events    EventPublisher
	log       *slog.Logger
	patchMode models.PatchMode
	timeout   time.Duration
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository, cfg ProductServiceConfig) *ProductService {
	s := &ProductService{
		repo:      repo,
		validate:  newValidator(),
		events:    cfg.Events,
		log:       cfg.Logger,
		patchMode: cfg.PatchMode,
		timeout:   cfg.Timeout,
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	if s.patchMode == "" {
		s.patchMode = models.PatchTruthy
	}
	return s
}

func (s *ProductService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

func translateProductError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrProductNotFound):
		return apperror.NewNotFoundError("Product not found")
	case errors.Is(err, repositories.ErrAlreadyReviewed):
		return apperror.NewConflictError("Product already reviewed")
	case errors.Is(err, repositories.ErrConcurrentUpdate):
		return apperror.NewConcurrentModificationError("Product was modified concurrently, please retry", err)
	}
	return err
}

// ListProducts returns one page of products whose name or description
// contains keyword. Pages start at 1; anything lower is treated as 1.
func (s *ProductService) ListProducts(ctx context.Context, keyword string, page int) (*ProductPage, error) {
	if page < 1 {
		page = 1
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	// Pages past maxPage would overflow the offset; they are past the end
	// of any real result set, so only the count is kept.
	offset := math.MaxInt
	if page <= maxPage {
		offset = (page - 1) * PageSize
	}
	products, count, err := s.repo.List(ctx, repositories.ProductFilter{
		Keyword: keyword,
		Offset:  offset,
		Limit:   PageSize,
	})
	if err != nil {
		return nil, err
	}
	if page > maxPage || products == nil {
		products = []models.Product{}
	}
	for i := range products {
		products[i].EnsureCollections()
	}
	return &ProductPage{
		Products: products,
		Count:    count,
		Page:     page,
		Pages:    int(math.Ceil(float64(count) / PageSize)),
	}, nil
}

// TopProducts returns the best rated products.
func (s *ProductService) TopProducts(ctx context.Context) ([]models.Product, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	products, err := s.repo.TopRated(ctx, TopRatedLimit)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	for i := range products {
		products[i].EnsureCollections()
	}
	return products, nil
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateProductError(err)
	}
	product.EnsureCollections()
	return product, nil
}

// CreateProduct stores a new product. A taken name is reported before
// any field validation errors.
func (s *ProductService) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	in.normalize()

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if in.Name != "" {
		exists, err := s.repo.ExistsByName(ctx, in.Name)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, apperror.NewConflictError("Product already exists")
		}
	}
	if err := validateStruct(s.validate, in, productMessages); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       *in.Price,
		Category:    in.Category,
		Brand:       in.Brand,
		Stock:       in.Stock,
		Images:      in.Images,
	}
	product.Normalize()
	product.RefreshStock()
	product.EnsureCollections()

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, err
	}
	s.log.Info("product created", "product_id", product.ID, "name", product.Name)
	publishEvent(ctx, s.events, s.log, EventProductCreated, product.ID, product)
	return product, nil
}

// UpdateProduct merges patch into the stored product according to the
// configured patch mode.
func (s *ProductService) UpdateProduct(ctx context.Context, id string, patch models.ProductPatch) (*models.Product, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, translateProductError(err)
	}

	patch.ApplyTo(product, s.patchMode)
	if err := validateStruct(s.validate, product, productMessages); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, translateProductError(err)
	}
	product.EnsureCollections()
	publishEvent(ctx, s.events, s.log, EventProductUpdated, product.ID, product)
	return product, nil
}

// DeleteProduct deletes a product and its reviews.
func (s *ProductService) DeleteProduct(ctx context.Context, id string) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, id); err != nil {
		return translateProductError(err)
	}
	s.log.Info("product deleted", "product_id", id)
	publishEvent(ctx, s.events, s.log, EventProductDeleted, id, map[string]string{"_id": id})
	return nil
}

// parseRating accepts whole numbers from 1 to 5.
func parseRating(n json.Number) (int, error) {
	raw := strings.TrimSpace(n.String())
	if raw == "" {
		return 0, apperror.NewValidationError("Rating is required")
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f < 1 || f > 5 {
		return 0, apperror.NewValidationError("Rating must be an integer between 1 and 5")
	}
	return int(f), nil
}

// AddReview records reviewer's review of a product and returns the
// product with its recomputed rating.
func (s *ProductService) AddReview(ctx context.Context, productID string, reviewer Reviewer, in ReviewInput) (*models.Product, error) {
	rating, err := parseRating(in.Rating)
	if err != nil {
		return nil, err
	}
	if reviewer.ID == "" {
		return nil, apperror.NewAuthError("Not authorized", nil)
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	review := models.Review{
		User:    reviewer.ID,
		Name:    reviewer.Name,
		Rating:  rating,
		Title:   strings.TrimSpace(in.Title),
		Comment: strings.TrimSpace(in.Comment),
	}
	product, err := s.repo.AddReview(ctx, productID, review)
	if err != nil {
		return nil, translateProductError(err)
	}
	product.EnsureCollections()

	s.log.Info("review added", "product_id", productID, "user_id", reviewer.ID, "rating", rating)
	publishEvent(ctx, s.events, s.log, EventProductReviewed, productID, map[string]interface{}{
		"_id":    productID,
		"user":   reviewer.ID,
		"rating": product.Rating,
	})
	return product, nil
}
