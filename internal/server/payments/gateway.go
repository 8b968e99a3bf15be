// Package payments talks to the hosted checkout provider (Stripe): it opens
// checkout sessions and verifies the webhooks that report their outcome.
package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

// EventCheckoutCompleted is the only webhook event type that creates orders.
const EventCheckoutCompleted = "checkout.session.completed"

// Metadata keys attached to every checkout session.
const (
	MetaProductID = "productId"
	MetaSellerID  = "sellerId"
	MetaBuyerID   = "buyerId"
	MetaTitle     = "title"
	MetaPrice     = "price"
)

type CheckoutRequest struct {
	ProductID  string
	SellerID   string
	BuyerID    string
	Title      string
	Price      float64
	Currency   string
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"url"`
}

// CompletedSession is the part of a completed checkout the order needs.
type CompletedSession struct {
	SessionID       string
	PaymentIntentID string
	AmountTotal     int64
	Currency        string
	PaymentStatus   string
	Metadata        map[string]string
}

// WebhookEvent is a verified webhook. Session is set only for
// EventCheckoutCompleted.
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CompletedSession
}

type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	// ParseWebhook verifies the signature header against the raw body.
	// Any verification failure is reported as common.ErrorInvalidSignature.
	ParseWebhook(payload []byte, signature string) (*WebhookEvent, error)
}

type StripeGateway struct {
	sessions      session.Client
	webhookSecret string
}

// NewStripeGateway builds a gateway. A nil backend means the live Stripe API.
func NewStripeGateway(secretKey, webhookSecret string, backend stripe.Backend) *StripeGateway {
	if backend == nil {
		backend = stripe.GetBackend(stripe.APIBackend)
	}
	return &StripeGateway{
		sessions:      session.Client{B: backend, Key: secretKey},
		webhookSecret: webhookSecret,
	}
}

// ToMinorUnits converts a decimal price into the integer amount Stripe
// expects (cents for usd).
func ToMinorUnits(price float64) int64 {
	return int64(math.Round(price * 100))
}

// FromMinorUnits is the inverse of ToMinorUnits.
func FromMinorUnits(amount int64) float64 {
	return float64(amount) / 100
}

func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	metadata := map[string]string{
		MetaProductID: req.ProductID,
		MetaSellerID:  req.SellerID,
		MetaBuyerID:   req.BuyerID,
		MetaTitle:     req.Title,
		MetaPrice:     fmt.Sprintf("%.2f", req.Price),
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{Context: ctx},
		Mode:   stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(req.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Title),
					},
					UnitAmount: stripe.Int64(ToMinorUnits(req.Price)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(req.SuccessURL),
		CancelURL:  stripe.String(req.CancelURL),
		Metadata:   metadata,
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	s, err := g.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: s.ID, URL: s.URL}, nil
}

func (g *StripeGateway) ParseWebhook(payload []byte, signature string) (*WebhookEvent, error) {
	if signature == "" {
		return nil, common.ErrorInvalidSignature
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInvalidSignature, err)
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if out.Type != EventCheckoutCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, errors.New("checkout event without data")
	}

	var s stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &s); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}

	out.Session = &CompletedSession{
		SessionID:     s.ID,
		AmountTotal:   s.AmountTotal,
		Currency:      string(s.Currency),
		PaymentStatus: string(s.PaymentStatus),
		Metadata:      s.Metadata,
	}
	if s.PaymentIntent != nil {
		out.Session.PaymentIntentID = s.PaymentIntent.ID
	}
	return out, nil
}
