package services

import (
	"context"
	"database/sql"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

type BlockService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewBlockService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *BlockService {
	return &BlockService{db: db, repomanager: repomanager, logger: logger.With("module", "blocks")}
}

func (s *BlockService) BlockProduct(ctx context.Context, userID, productID string) (*models.BlockedProduct, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID("product", productID); err != nil {
		return nil, err
	}
	return s.repomanager.Blocks(s.db).BlockProduct(ctx, userID, productID)
}

func (s *BlockService) UnblockProduct(ctx context.Context, userID, productID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if err := requireID("blocked product", productID); err != nil {
		return err
	}
	return s.repomanager.Blocks(s.db).UnblockProduct(ctx, userID, productID)
}

func (s *BlockService) ListBlockedProducts(ctx context.Context, userID string) ([]*models.BlockedProduct, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.repomanager.Blocks(s.db).ListBlockedProducts(ctx, userID)
}

func (s *BlockService) BlockUser(ctx context.Context, userID, otherID string) (*models.BlockedUser, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	otherID = strings.TrimSpace(otherID)
	if otherID == "" {
		return nil, validationError("user id is required")
	}
	if otherID == userID {
		return nil, common.ErrorSelfBlock
	}

	b, err := s.repomanager.Blocks(s.db).BlockUser(ctx, userID, otherID)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "user blocked", "user_id", userID, "blocked_user_id", otherID)
	return b, nil
}

func (s *BlockService) UnblockUser(ctx context.Context, userID, otherID string) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	return s.repomanager.Blocks(s.db).UnblockUser(ctx, userID, otherID)
}

func (s *BlockService) ListBlockedUsers(ctx context.Context, userID string) ([]*models.BlockedUser, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	return s.repomanager.Blocks(s.db).ListBlockedUsers(ctx, userID)
}

// Status reports whether userID blocked otherID and whether otherID blocked
// userID.
func (s *BlockService) Status(ctx context.Context, userID, otherID string) (models.BlockStatus, error) {
	if err := requireUser(userID); err != nil {
		return models.BlockStatus{}, err
	}
	if otherID == "" || otherID == userID {
		return models.BlockStatus{}, nil
	}
	return s.repomanager.Blocks(s.db).Status(ctx, userID, otherID)
}
