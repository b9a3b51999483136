package models

import "time"

// Review is a rating left by a user. Reviews only exist embedded in a Product.
type Review struct {
	ID        string    `json:"_id" bson:"_id"`
	User      string    `json:"user" bson:"user"`
	Name      string    `json:"name" bson:"name"`
	Rating    int       `json:"rating" bson:"rating"`
	Title     string    `json:"title,omitempty" bson:"title,omitempty"`
	Comment   string    `json:"comment,omitempty" bson:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// HasReviewFrom reports whether userID already reviewed the product.
func (p *Product) HasReviewFrom(userID string) bool {
	for _, r := range p.Reviews {
		if r.User == userID {
			return true
		}
	}
	return false
}

// AddReview appends r and recomputes the rating over every review.
func (p *Product) AddReview(r Review) {
	p.Reviews = append(p.Reviews, r)
	p.RecalculateRating()
}

// RecalculateRating sets Rating from the full review collection.
func (p *Product) RecalculateRating() {
	if len(p.Reviews) == 0 {
		p.Rating = Rating{}
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = Rating{
		Average: float64(sum) / float64(len(p.Reviews)),
		Count:   len(p.Reviews),
	}
}
