package models

import "time"

// BlockedProduct hides a product from a user's view.
type BlockedProduct struct {
	UserID    string    `json:"userId"`
	ProductID string    `json:"productId"`
	BlockedAt time.Time `json:"blockedAt"`
}

// BlockedUser hides a counterpart user and suppresses chat in both
// directions.
type BlockedUser struct {
	UserID        string    `json:"userId"`
	BlockedUserID string    `json:"blockedUserId"`
	BlockedAt     time.Time `json:"blockedAt"`
}

// BlockStatus describes the block relation between a viewer and another user.
type BlockStatus struct {
	Blocked   bool `json:"blocked"`
	BlockedBy bool `json:"blockedBy"`
}

// Any reports whether either direction of the relation is blocked.
func (s BlockStatus) Any() bool {
	return s.Blocked || s.BlockedBy
}
