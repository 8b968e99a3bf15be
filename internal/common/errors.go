package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("forbidden")
	ErrorValidation   = errors.New("validation error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Marketplace-specific errors.
	ErrorSelfPurchase = errors.New("cannot purchase your own listing")
	ErrorSelfOffer    = errors.New("cannot make an offer on your own listing")
	ErrorSelfBlock    = errors.New("cannot block yourself")
	ErrorProductSold  = errors.New("product already sold")
	ErrorBlocked      = errors.New("conversation is blocked")

	// Payment webhook errors.
	ErrorInvalidSignature   = errors.New("invalid webhook signature")
	ErrorIncompleteMetadata = errors.New("incomplete session metadata")
)
