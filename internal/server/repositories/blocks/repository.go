package blocks

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	BlockProduct(ctx context.Context, userID, productID string) (*models.BlockedProduct, error)
	UnblockProduct(ctx context.Context, userID, productID string) error
	ListBlockedProducts(ctx context.Context, userID string) ([]*models.BlockedProduct, error)

	BlockUser(ctx context.Context, userID, blockedUserID string) (*models.BlockedUser, error)
	UnblockUser(ctx context.Context, userID, blockedUserID string) error
	ListBlockedUsers(ctx context.Context, userID string) ([]*models.BlockedUser, error)

	// Status looks the pair up in both directions with one query.
	Status(ctx context.Context, userID, otherID string) (models.BlockStatus, error)
}
