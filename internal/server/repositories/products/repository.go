package products

import (
	"context"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, p *models.Product) (*models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Update(ctx context.Context, p *models.Product) (*models.Product, error)
	Delete(ctx context.Context, id, sellerID string) error
	// List returns the requested page and the number of rows matching the
	// filter across all pages.
	List(ctx context.Context, f models.ProductFilter) ([]*models.Product, int, error)
	MarkSold(ctx context.Context, id string) error
}
