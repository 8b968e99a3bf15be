package favorites

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	Add(ctx context.Context, userID, productID string) (*models.Favorite, error)
	Remove(ctx context.Context, userID, productID string) error
	Exists(ctx context.Context, userID, productID string) (bool, error)
	ListProducts(ctx context.Context, userID string) ([]*models.Product, error)
}
