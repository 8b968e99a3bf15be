package rest

import (
	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/gofiber/fiber/v2"
)

type checkoutRequest struct {
	ProductID string `json:"productId"`
}

// POST /api/checkout/sessions
func (s *Server) createCheckoutSession(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}
	if req.ProductID == "" {
		return badRequest("productId is required")
	}

	cs, err := s.svc.Checkout.CreateSession(c.UserContext(), userID(c), req.ProductID)
	if err != nil {
		return err
	}
	return c.JSON(cs)
}

// POST /api/webhooks/stripe
//
// The body must reach signature verification byte for byte. Answering 500
// makes the provider redeliver.
func (s *Server) stripeWebhook(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)
	sig := c.Get(common.StripeSignatureHeaderName)

	outcome, err := s.svc.Checkout.HandleWebhook(c.UserContext(), payload, sig)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"received": true, "outcome": outcome})
}

// GET /api/orders?role=buyer|seller
func (s *Server) listOrders(c *fiber.Ctx) error {
	items, err := s.svc.Orders.List(c.UserContext(), userID(c), c.Query("role"))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GET /api/orders/session/:sessionId
func (s *Server) getOrderBySession(c *fiber.Ctx) error {
	o, err := s.svc.Orders.GetBySession(c.UserContext(), userID(c), c.Params("sessionId"))
	if err != nil {
		return err
	}
	return c.JSON(o)
}
