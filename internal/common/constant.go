// Package common contains shared constants and sentinel errors used across
// Bazaar components.
package common

// AuthorizationHeaderName carries the bearer session token on API requests.
const AuthorizationHeaderName = "Authorization"

// TokenQueryParam carries the session token on WebSocket upgrades, where
// browsers cannot set headers.
const TokenQueryParam = "token"

// StripeSignatureHeaderName is the header Stripe signs webhook deliveries with.
const StripeSignatureHeaderName = "Stripe-Signature"

// Product statuses.
const (
	ProductStatusAvailable = "available"
	ProductStatusSold      = "sold"
)

// OrderStatusCompleted is the only status a webhook-created order starts in.
const OrderStatusCompleted = "completed"
