package orders

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	GetBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	// Create inserts the order unless one already exists for the session, in
	// which case ErrorAlreadyExists is returned and nothing changes.
	Create(ctx context.Context, o *models.Order) (*models.Order, error)
	ListByBuyer(ctx context.Context, buyerID string) ([]*models.Order, error)
	ListBySeller(ctx context.Context, sellerID string) ([]*models.Order, error)
}
