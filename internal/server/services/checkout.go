package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/dmitrijs2005/bazaar/internal/dbx"
	"github.com/dmitrijs2005/bazaar/internal/logging"
	sc "github.com/dmitrijs2005/bazaar/internal/server/config"
	"github.com/dmitrijs2005/bazaar/internal/server/events"
	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/dmitrijs2005/bazaar/internal/server/payments"
	"github.com/dmitrijs2005/bazaar/internal/server/repositories/repomanager"
)

// WebhookOutcome tells what HandleWebhook did with a verified event.
type WebhookOutcome string

const (
	WebhookIgnored   WebhookOutcome = "ignored"
	WebhookDuplicate WebhookOutcome = "duplicate"
	WebhookCreated   WebhookOutcome = "created"
)

type CheckoutService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	gateway     payments.Gateway
	events      events.Publisher
	config      *sc.Config
	logger      logging.Logger
}

func NewCheckoutService(db *sql.DB, repomanager repomanager.RepositoryManager, gateway payments.Gateway,
	publisher events.Publisher, config *sc.Config, logger logging.Logger) *CheckoutService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &CheckoutService{
		db:          db,
		repomanager: repomanager,
		gateway:     gateway,
		events:      publisher,
		config:      config,
		logger:      logger.With("module", "checkout"),
	}
}

func (s *CheckoutService) successURL() string {
	// Stripe substitutes the placeholder itself, so it must stay unescaped.
	return strings.TrimRight(s.config.PublicAppURL, "/") + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

func (s *CheckoutService) cancelURL(productID string) string {
	return strings.TrimRight(s.config.PublicAppURL, "/") + "/products/" + url.PathEscape(productID)
}

// CreateSession opens a hosted checkout for productID on behalf of buyerID.
func (s *CheckoutService) CreateSession(ctx context.Context, buyerID, productID string) (*payments.CheckoutSession, error) {
	if err := requireUser(buyerID); err != nil {
		return nil, err
	}
	if err := requireID("product", productID); err != nil {
		return nil, err
	}

	p, err := s.repomanager.Products(s.db).GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if p.SellerID == buyerID {
		return nil, common.ErrorSelfPurchase
	}
	if p.Status == common.ProductStatusSold {
		return nil, common.ErrorProductSold
	}

	cs, err := s.gateway.CreateCheckoutSession(ctx, payments.CheckoutRequest{
		ProductID:  p.ID,
		SellerID:   p.SellerID,
		BuyerID:    buyerID,
		Title:      p.Title,
		Price:      p.Price,
		Currency:   s.config.Currency,
		SuccessURL: s.successURL(),
		CancelURL:  s.cancelURL(p.ID),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "checkout session created", "session_id", cs.ID, "product_id", p.ID, "buyer_id", buyerID)
	return cs, nil
}

// HandleWebhook verifies a delivery and turns a completed checkout into an
// order exactly once. Redeliveries of the same session are no-ops.
func (s *CheckoutService) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookOutcome, error) {
	ev, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return "", err
	}
	if ev.Type != payments.EventCheckoutCompleted || ev.Session == nil {
		s.logger.Debug(ctx, "webhook event ignored", "event_id", ev.ID, "type", ev.Type)
		return WebhookIgnored, nil
	}

	order, err := s.orderFromSession(ev.Session)
	if err != nil {
		return "", err
	}

	existing, err := s.repomanager.Orders(s.db).GetBySessionID(ctx, order.StripeSessionID)
	if err == nil && existing != nil {
		s.logger.Info(ctx, "order already recorded", "session_id", order.StripeSessionID)
		return WebhookDuplicate, nil
	}
	if err != nil && !errors.Is(err, common.ErrorNotFound) {
		return "", err
	}

	var created *models.Order
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		o, err := s.repomanager.Orders(tx).Create(ctx, order)
		if err != nil {
			return err
		}
		if err := s.repomanager.Products(tx).MarkSold(ctx, o.ProductID); err != nil {
			return fmt.Errorf("mark product sold: %w", err)
		}
		created = o
		return nil
	})
	if errors.Is(err, common.ErrorAlreadyExists) {
		s.logger.Info(ctx, "concurrent delivery already recorded the order", "session_id", order.StripeSessionID)
		return WebhookDuplicate, nil
	}
	if err != nil {
		return "", fmt.Errorf("persist order: %w", err)
	}

	s.logger.Info(ctx, "order created", "order_id", created.ID, "session_id", created.StripeSessionID, "product_id", created.ProductID)
	if err := s.events.Publish(ctx, events.TopicOrderCompleted, created.ProductID, created); err != nil {
		s.logger.Warn(ctx, "event publish failed", "topic", events.TopicOrderCompleted, "error", err)
	}
	return WebhookCreated, nil
}

func (s *CheckoutService) orderFromSession(cs *payments.CompletedSession) (*models.Order, error) {
	md := cs.Metadata
	productID, sellerID, buyerID := md[payments.MetaProductID], md[payments.MetaSellerID], md[payments.MetaBuyerID]
	if cs.SessionID == "" || productID == "" || sellerID == "" || buyerID == "" {
		return nil, common.ErrorIncompleteMetadata
	}
	// the order row references the product by uuid
	if !validID(productID) {
		return nil, fmt.Errorf("product id %q: %w", productID, common.ErrorIncompleteMetadata)
	}

	amount := payments.FromMinorUnits(cs.AmountTotal)
	if amount == 0 {
		if v, err := strconv.ParseFloat(md[payments.MetaPrice], 64); err == nil {
			amount = v
		}
	}
	currency := cs.Currency
	if currency == "" {
		currency = s.config.Currency
	}

	return &models.Order{
		StripeSessionID: cs.SessionID,
		PaymentIntentID: cs.PaymentIntentID,
		ProductID:       productID,
		SellerID:        sellerID,
		BuyerID:         buyerID,
		Amount:          amount,
		Currency:        currency,
		PaymentStatus:   cs.PaymentStatus,
		OrderStatus:     common.OrderStatusCompleted,
	}, nil
}
