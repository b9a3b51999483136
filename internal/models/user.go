package models

import "time"

// User is an account allowed to submit reviews.
type User struct {
	ID        string    `json:"_id" gorm:"primaryKey;type:varchar(36)" bson:"-"`
	Name      string    `json:"name" gorm:"type:varchar(100);not null" bson:"name" validate:"required,min=2,max=100"`
	Email     string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex" bson:"email" validate:"required,email"`
	Password  string    `json:"-" gorm:"type:varchar(255);not null" bson:"password"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}
