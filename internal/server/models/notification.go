package models

import "time"

// Notification records an offer received by a seller. Read only ever moves
// from false to true.
type Notification struct {
	ID              string    `json:"id"`
	RecipientUserID string    `json:"recipientUserId"`
	SenderID        string    `json:"senderId"`
	SenderName      string    `json:"senderName"`
	ProductID       string    `json:"productId"`
	ProductTitle    string    `json:"productTitle"`
	OfferAmount     float64   `json:"offerAmount"`
	Read            bool      `json:"read"`
	CreatedAt       time.Time `json:"createdAt"`
}
