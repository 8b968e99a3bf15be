package models

import "time"

// Favorite links a user to a product they saved. Unique per pair.
type Favorite struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	CreatedAt time.Time `json:"createdAt"`
}
