package models

import "time"

// Order is created exactly once per payment session by the webhook handler.
type Order struct {
	ID              string    `json:"id"`
	StripeSessionID string    `json:"stripeSessionId"`
	PaymentIntentID string    `json:"paymentIntentId"`
	ProductID       string    `json:"productId"`
	SellerID        string    `json:"sellerId"`
	BuyerID         string    `json:"buyerId"`
	Amount          float64   `json:"amount"`
	Currency        string    `json:"currency"`
	PaymentStatus   string    `json:"paymentStatus"`
	OrderStatus     string    `json:"orderStatus"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}
