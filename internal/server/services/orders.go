package services

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

// Order roles accepted by List.
const (
	RoleBuyer  = "buyer"
	RoleSeller = "seller"
)

type OrderService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
}

func NewOrderService(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *OrderService {
	return &OrderService{db: db, repomanager: repomanager, logger: logger.With("module", "orders")}
}

// List returns the orders where userID is the buyer (default) or the seller.
func (s *OrderService) List(ctx context.Context, userID, role string) ([]*models.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	repo := s.repomanager.Orders(s.db)
	switch role {
	case "", RoleBuyer:
		return repo.ListByBuyer(ctx, userID)
	case RoleSeller:
		return repo.ListBySeller(ctx, userID)
	default:
		return nil, validationError("unknown role %q", role)
	}
}

// GetBySession returns the order created for a checkout session. It is not
// found until the payment webhook has been processed.
func (s *OrderService) GetBySession(ctx context.Context, userID, sessionID string) (*models.Order, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if sessionID == "" {
		return nil, validationError("session id is required")
	}

	o, err := s.repomanager.Orders(s.db).GetBySessionID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if o.BuyerID != userID && o.SellerID != userID {
		return nil, common.ErrorForbidden
	}
	return o, nil
}
