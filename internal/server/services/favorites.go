package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

type FavoriteService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewFavoriteService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *FavoriteService {
	return &FavoriteService{db: db, repomanager: repomanager, logger: logger.With("module", "favorites")}
}

func (s *FavoriteService) Add(ctx context.Context, userID, productID string) (*models.Favorite, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID("product", productID); err != nil {
		return nil, err
	}
	return s.repomanager.Favorites(s.db).Add(ctx, userID, productID)
}

func (s *FavoriteService) Remove(ctx context.Context, userID, productID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := requireID("favorite", productID); err != nil {
		return err
	}
	return s.repomanager.Favorites(s.db).Remove(ctx, userID, productID)
}

func (s *FavoriteService) IsFavorite(ctx context.Context, userID, productID string) (bool, error) {
	if err := requireUser(userID); err != nil {
		return false, err
	}
	if !validID(productID) {
		return false, nil
	}
	return s.repomanager.Favorites(s.db).Exists(ctx, userID, productID)
}

func (s *FavoriteService) List(ctx context.Context, userID string) ([]*models.Product, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.repomanager.Favorites(s.db).ListProducts(ctx, userID)
}
