package rest

import (
	"strconv"

	"github.com/dmitrijs2005/bazaar/internal/server/models"
	"github.com/gofiber/fiber/v2"
)

func queryFloat(c *fiber.Ctx, key string) (*float64, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, badRequest(key + " must be a number")
	}
	return &v, nil
}

// GET /api/products
func (s *Server) listProducts(c *fiber.Ctx) error {
	minPrice, err := queryFloat(c, "minPrice")
	if err != nil {
		return err
	}
	maxPrice, err := queryFloat(c, "maxPrice")
	if err != nil {
		return err
	}

	f := models.ProductFilter{
		Query:     c.Query("q"),
		Category:  c.Query("category"),
		Condition: c.Query("condition"),
		SellerID:  c.Query("seller"),
		Status:    c.Query("status"),
		Sort:      c.Query("sort"),
		MinPrice:  minPrice,
		MaxPrice:  maxPrice,
		Page:      c.QueryInt("page", 1),
		Limit:     c.QueryInt("limit", 0),
		ViewerID:  userID(c),
	}

	page, err := s.svc.Products.List(c.UserContext(), f)
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// GET /api/products/:id
func (s *Server) getProduct(c *fiber.Ctx) error {
	p, err := s.svc.Products.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// POST /api/products
func (s *Server) createProduct(c *fiber.Ctx) error {
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest("invalid payload")
	}

	p, err := s.svc.Products.Create(c.UserContext(), userID(c), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// PUT /api/products/:id
func (s *Server) updateProduct(c *fiber.Ctx) error {
	var in models.ProductInput
	if err := c.BodyParser(&in); err != nil {
		return badRequest("invalid payload")
	}

	p, err := s.svc.Products.Update(c.UserContext(), userID(c), c.Params("id"), in)
	if err != nil {
		return err
	}
	return c.JSON(p)
}

// DELETE /api/products/:id
func (s *Server) deleteProduct(c *fiber.Ctx) error {
	if err := s.svc.Products.Delete(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

type offerRequest struct {
	Amount float64 `json:"amount"`
}

// POST /api/products/:id/offers
func (s *Server) submitOffer(c *fiber.Ctx) error {
	var req offerRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}

	u := currentUser(c)
	n, err := s.svc.Notifications.SubmitOffer(c.UserContext(), u.ClerkID, u.Name, c.Params("id"), req.Amount)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(n)
}
