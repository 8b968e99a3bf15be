package users

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	// Ensure inserts the user if no row with the same ClerkID exists and
	// returns the stored row either way.
	Ensure(ctx context.Context, user *models.User) (*models.User, error)
	GetByClerkID(ctx context.Context, clerkID string) (*models.User, error)
	UpdateProfile(ctx context.Context, clerkID, name, phone string) (*models.User, error)
}
