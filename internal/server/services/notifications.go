package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	"github.com/dmitrijs2005/bazaar/internal/server/cache"
	"github.com/dmitrijs2005/bazaar/internal/server/events"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/realtime"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

const (
	defaultNotificationLimit = 50
	maxNotificationLimit     = 200
)

// Offer is the event published when a buyer submits an offer.
type Offer struct {
	NotificationID string  `json:"notificationId"`
	ProductID      string  `json:"productId"`
	SellerID       string  `json:"sellerId"`
	BuyerID        string  `json:"buyerId"`
	Amount         float64 `json:"amount"`
}

type NotificationService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	unread      cache.Counter
	pusher      Pusher
	events      events.Publisher
	logger      logging.Logger
}

func NewNotificationService(db *sql.DB, repomanager repomanager.RepositoryManager, unread cache.Counter,
	pusher Pusher, publisher events.Publisher, logger logging.Logger) *NotificationService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &NotificationService{
		db:          db,
		repomanager: repomanager,
		unread:      unread,
		pusher:      pusher,
		events:      publisher,
		logger:      logger.With("module", "notifications"),
	}
}

// SubmitOffer records an offer from buyerID on productID as a notification
// for the seller.
func (s *NotificationService) SubmitOffer(ctx context.Context, buyerID, buyerName, productID string, amount float64) (*models.Notification, error) {
	if err := requireUser(buyerID); err != nil {
		return nil, err
	}
	if !validAmount(amount, 0, false) {
		return nil, validationError("offer amount must be positive and at most %.2f", MaxAmount)
	}
	if err := requireID("product", productID); err != nil {
		return nil, err
	}

	product, err := s.repomanager.Products(s.db).GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.SellerID == buyerID {
		return nil, common.ErrorSelfOffer
	}
	if product.Status == common.ProductStatusSold {
		return nil, common.ErrorProductSold
	}

	status, err := s.repomanager.Blocks(s.db).Status(ctx, buyerID, product.SellerID)
	if err != nil {
		return nil, err
	}
	if status.Any() {
		return nil, common.ErrorBlocked
	}

	n, err := s.repomanager.Notifications(s.db).Create(ctx, &models.Notification{
		RecipientUserID: product.SellerID,
		SenderID:        buyerID,
		SenderName:      buyerName,
		ProductID:       product.ID,
		ProductTitle:    product.Title,
		OfferAmount:     amount,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "offer submitted", "notification_id", n.ID, "product_id", product.ID, "buyer_id", buyerID)
	s.invalidate(ctx, product.SellerID)

	if s.pusher != nil {
		ev := realtime.Event{Type: realtime.EventNotification, From: buyerID, To: product.SellerID, Payload: n}
		if err := s.pusher.SendToUsers(ctx, ev, product.SellerID); err != nil {
			s.logger.Warn(ctx, "realtime push failed", "error", err)
		}
	}

	offer := Offer{NotificationID: n.ID, ProductID: product.ID, SellerID: product.SellerID, BuyerID: buyerID, Amount: amount}
	if err := s.events.Publish(ctx, events.TopicOfferSubmitted, product.ID, offer); err != nil {
		s.logger.Warn(ctx, "event publish failed", "topic", events.TopicOfferSubmitted, "error", err)
	}

	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	limit = common.ClampLimit(limit, defaultNotificationLimit, maxNotificationLimit)
	return s.repomanager.Notifications(s.db).ListByRecipient(ctx, userID, limit)
}

// UnreadCount is polled by clients, so it is served from the counter cache
// when possible. Cache failures fall through to the database. The generation
// is taken before counting so a concurrent invalidation wins over the load.
func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	cacheable := false
	var gen int64
	if s.unread != nil {
		n, ok, err := s.unread.Get(ctx, userID)
		switch {
		case err != nil:
			s.logger.Warn(ctx, "unread cache read failed", "error", err)
		case ok:
			return n, nil
		default:
			if gen, err = s.unread.Generation(ctx, userID); err != nil {
				s.logger.Warn(ctx, "unread cache read failed", "error", err)
			} else {
				cacheable = true
			}
		}
	}

	n, err := s.repomanager.Notifications(s.db).CountUnread(ctx, userID)
	if err != nil {
		return 0, err
	}

	if cacheable {
		if err := s.unread.Set(ctx, userID, n, gen); err != nil {
			s.logger.Warn(ctx, "unread cache write failed", "error", err)
		}
	}
	return n, nil
}

// recipientOf loads a notification owned by userID.
func (s *NotificationService) recipientOf(ctx context.Context, userID, id string) (*models.Notification, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	if err := requireID("notification", id); err != nil {
		return nil, err
	}
	n, err := s.repomanager.Notifications(s.db).GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.RecipientUserID != userID {
		return nil, common.ErrorForbidden
	}
	return n, nil
}

// MarkRead is idempotent; a read notification never becomes unread again.
func (s *NotificationService) MarkRead(ctx context.Context, userID, id string) error {
	n, err := s.recipientOf(ctx, userID, id)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}

	if err := s.repomanager.Notifications(s.db).MarkRead(ctx, id, userID); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	if err := requireUser(userID); err != nil {
		return 0, err
	}

	n, err := s.repomanager.Notifications(s.db).MarkAllRead(ctx, userID)
	if err != nil {
		return 0, err
	}
	s.invalidate(ctx, userID)
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.recipientOf(ctx, userID, id); err != nil {
		return err
	}

	err := s.repomanager.Notifications(s.db).Delete(ctx, id, userID)
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return err
	}
	s.invalidate(ctx, userID)
	return err
}

func (s *NotificationService) invalidate(ctx context.Context, userID string) {
	if s.unread == nil {
		return
	}
	if err := s.unread.Invalidate(ctx, userID); err != nil {
		s.logger.Warn(ctx, "unread cache invalidate failed", "error", err)
	}
}
