package models

import (
	"strings"
	"time"
)

// Category is the fixed set of product categories.
type Category string

const (
	CategoryElectronics Category = "electronics"
	CategoryClothing    Category = "clothing"
	CategoryBooks       Category = "books"
	CategoryHome        Category = "home"
	CategoryBeauty      Category = "beauty"
	CategorySports      Category = "sports"
	CategoryOther       Category = "other"
)

// Image is a picture attached to a product.
type Image struct {
	URL string `json:"url" bson:"url" validate:"required"`
	Alt string `json:"alt,omitempty" bson:"alt,omitempty"`
}

// Rating holds the review statistics derived from Product.Reviews.
type Rating struct {
	Average float64 `json:"average" bson:"average" gorm:"column:average;not null;default:0;index"`
	Count   int     `json:"count" bson:"count" gorm:"column:count;not null;default:0"`
}

// Product represents a product in the catalog.
//
// Rating and InStock are derived and never taken from client input.
type Product struct {
	ID          string    `json:"_id" gorm:"primaryKey;type:varchar(36)"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null;uniqueIndex" validate:"required,max=100"`
	Description string    `json:"description" gorm:"type:text;not null" validate:"required,max=1000"`
	Price       float64   `json:"price" gorm:"not null;index" validate:"gte=0"`
	Category    Category  `json:"category" gorm:"type:varchar(32);not null;index" validate:"required,category"`
	Brand       string    `json:"brand,omitempty" gorm:"type:varchar(255)"`
	Stock       int       `json:"stock" gorm:"not null;default:0" validate:"gte=0"`
	Images      []Image   `json:"images" gorm:"type:text;serializer:json" validate:"dive"`
	Rating      Rating    `json:"rating" gorm:"embedded;embeddedPrefix:rating_"`
	InStock     bool      `json:"inStock" gorm:"not null;default:false"`
	Reviews     []Review  `json:"reviews" gorm:"type:text;serializer:json"`
	CreatedAt   time.Time `json:"createdAt" gorm:"index"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Categories lists every accepted category value.
func Categories() []Category {
	return []Category{
		CategoryElectronics,
		CategoryClothing,
		CategoryBooks,
		CategoryHome,
		CategoryBeauty,
		CategorySports,
		CategoryOther,
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Normalize trims the free-text fields the way they are stored.
func (p *Product) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	p.Category = Category(strings.TrimSpace(string(p.Category)))
	p.Brand = strings.TrimSpace(p.Brand)
	for i := range p.Images {
		p.Images[i].Alt = strings.TrimSpace(p.Images[i].Alt)
	}
}

// RefreshStock recomputes InStock from Stock.
func (p *Product) RefreshStock() {
	p.InStock = p.Stock > 0
}

// EnsureCollections replaces nil slices with empty ones so that the JSON
// output always carries arrays.
func (p *Product) EnsureCollections() {
	if p.Images == nil {
		p.Images = []Image{}
	}
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
}

// Clone returns a deep copy of p.
func (p Product) Clone() Product {
	out := p
	if p.Images != nil {
		out.Images = append([]Image(nil), p.Images...)
	}
	if p.Reviews != nil {
		out.Reviews = append([]Review(nil), p.Reviews...)
	}
	return out
}
