package rest

import "github.com/gofiber/fiber/v2"

// GET /api/me
func (s *Server) getMe(c *fiber.Ctx) error {
	return c.JSON(currentUser(c))
}

type profileRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// PUT /api/me
func (s *Server) updateMe(c *fiber.Ctx) error {
	var req profileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}

	u, err := s.svc.Users.UpdateProfile(c.UserContext(), userID(c), req.Name, req.Phone)
	if err != nil {
		return err
	}
	return c.JSON(u)
}
