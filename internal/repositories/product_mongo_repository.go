package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"katalog/internal/apperror"
	"katalog/internal/models"
)

const productsCollection = "products"

// productDocument is the stored shape of a product.
type productDocument struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"name"`
	Description string             `bson:"description"`
	Price       float64            `bson:"price"`
	Category    models.Category    `bson:"category"`
	Brand       string             `bson:"brand,omitempty"`
	Stock       int                `bson:"stock"`
	Images      []models.Image     `bson:"images"`
	Rating      models.Rating      `bson:"rating"`
	InStock     bool               `bson:"inStock"`
	Reviews     []models.Review    `bson:"reviews"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

func toProductDocument(p *models.Product) (productDocument, error) {
	doc := productDocument{
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Brand:       p.Brand,
		Stock:       p.Stock,
		Images:      p.Images,
		Rating:      p.Rating,
		InStock:     p.InStock,
		Reviews:     p.Reviews,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
	if doc.Images == nil {
		doc.Images = []models.Image{}
	}
	if doc.Reviews == nil {
		doc.Reviews = []models.Review{}
	}
	if p.ID != "" {
		oid, err := parseObjectID(p.ID)
		if err != nil {
			return productDocument{}, err
		}
		doc.ID = oid
	}
	return doc, nil
}

func (d productDocument) toModel() models.Product {
	return models.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Price:       d.Price,
		Category:    d.Category,
		Brand:       d.Brand,
		Stock:       d.Stock,
		Images:      d.Images,
		Rating:      d.Rating,
		InStock:     d.InStock,
		Reviews:     d.Reviews,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", apperror.ErrMalformedID, id)
	}
	return oid, nil
}

// keywordFilter matches the keyword literally and case-insensitively in
// the name or the description.
func keywordFilter(keyword string) bson.M {
	if keyword == "" {
		return bson.M{}
	}
	re := primitive.Regex{Pattern: regexp.QuoteMeta(keyword), Options: "i"}
	return bson.M{"$or": bson.A{
		bson.M{"name": re},
		bson.M{"description": re},
	}}
}

// MongoProductRepository stores products as documents with their reviews
// embedded.
type MongoProductRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

// NewMongoProductRepository creates a repository over db's products collection.
func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{
		coll: db.Collection(productsCollection),
		now:  time.Now,
	}
}

// EnsureIndexes creates the unique name index and the lookup indexes.
func (r *MongoProductRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "price", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "rating.average", Value: -1}, {Key: "rating.count", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}
	return nil
}

func (r *MongoProductRepository) decodeAll(ctx context.Context, cur *mongo.Cursor) ([]models.Product, error) {
	defer cur.Close(ctx)
	products := []models.Product{}
	for cur.Next(ctx) {
		var doc productDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode product: %w", err)
		}
		products = append(products, doc.toModel())
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate products: %w", err)
	}
	return products, nil
}

// List returns a page of products matching the keyword.
func (r *MongoProductRepository) List(ctx context.Context, filter ProductFilter) ([]models.Product, int64, error) {
	query := keywordFilter(filter.Keyword)

	total, err := r.coll.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count products: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetSkip(int64(filter.Offset))
	if filter.Limit > 0 {
		opts.SetLimit(int64(filter.Limit))
	}
	cur, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}
	products, err := r.decodeAll(ctx, cur)
	if err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// TopRated returns the best rated products.
func (r *MongoProductRepository) TopRated(ctx context.Context, limit int) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{
			{Key: "rating.average", Value: -1},
			{Key: "rating.count", Value: -1},
			{Key: "createdAt", Value: -1},
		}).
		SetLimit(int64(limit))
	cur, err := r.coll.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get top rated products: %w", err)
	}
	return r.decodeAll(ctx, cur)
}

// GetByID returns the product document with the given ObjectID.
func (r *MongoProductRepository) GetByID(ctx context.Context, id string) (*models.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
		}
		return nil, fmt.Errorf("failed to get product by ID %s: %w", id, err)
	}
	product := doc.toModel()
	return &product, nil
}

// ExistsByName reports whether a product already uses name.
func (r *MongoProductRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"name": name}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to look up product name: %w", err)
	}
	return n > 0, nil
}

// Create inserts a new product document.
func (r *MongoProductRepository) Create(ctx context.Context, product *models.Product) error {
	now := r.now()
	if product.CreatedAt.IsZero() {
		product.CreatedAt = now
	}
	product.UpdatedAt = now

	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}
	if doc.ID.IsZero() {
		doc.ID = primitive.NewObjectID()
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &apperror.DuplicateKeyError{Field: "name", Err: err}
		}
		return fmt.Errorf("failed to create product: %w", err)
	}
	product.ID = doc.ID.Hex()
	return nil
}

// Update replaces the stored document.
func (r *MongoProductRepository) Update(ctx context.Context, product *models.Product) error {
	product.UpdatedAt = r.now()
	doc, err := toProductDocument(product)
	if err != nil {
		return err
	}
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return &apperror.DuplicateKeyError{Field: "name", Err: err}
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("product with ID %s: %w", product.ID, ErrProductNotFound)
	}
	return nil
}

// Delete removes the product document and its embedded reviews.
func (r *MongoProductRepository) Delete(ctx context.Context, id string) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil
}

// reviewPipeline appends review and recomputes the rating server-side.
func reviewPipeline(review models.Review, now time.Time) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: review}}},
			}}}},
		}}},
		{{Key: "$set", Value: bson.D{
			{Key: "rating.average", Value: bson.D{{Key: "$avg", Value: "$reviews.rating"}}},
			{Key: "rating.count", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
			{Key: "updatedAt", Value: now},
		}}},
	}
}

// AddReview appends a review in a single conditional update. The filter
// excludes products the user already reviewed.
func (r *MongoProductRepository) AddReview(ctx context.Context, id string, review models.Review) (*models.Product, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	now := r.now()
	if review.ID == "" {
		review.ID = primitive.NewObjectIDFromTimestamp(now).Hex()
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = now
	}

	filter := bson.M{"_id": oid, "reviews.user": bson.M{"$ne": review.User}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc productDocument
	err = r.coll.FindOneAndUpdate(ctx, filter, reviewPipeline(review, now), opts).Decode(&doc)
	if err == nil {
		product := doc.toModel()
		return &product, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to add review to product %s: %w", id, err)
	}

	n, countErr := r.coll.CountDocuments(ctx, bson.M{"_id": oid}, options.Count().SetLimit(1))
	if countErr != nil {
		return nil, fmt.Errorf("failed to look up product %s: %w", id, countErr)
	}
	if n == 0 {
		return nil, fmt.Errorf("product with ID %s: %w", id, ErrProductNotFound)
	}
	return nil, ErrAlreadyReviewed
}
