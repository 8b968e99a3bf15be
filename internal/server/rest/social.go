package rest

import "github.com/gofiber/fiber/v2"

func (s *Server) listFavorites(c *fiber.Ctx) error {
	items, err := s.svc.Favorites.List(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (s *Server) isFavorite(c *fiber.Ctx) error {
	ok, err := s.svc.Favorites.IsFavorite(c.UserContext(), userID(c), c.Params("productId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"favorite": ok})
}

func (s *Server) addFavorite(c *fiber.Ctx) error {
	fav, err := s.svc.Favorites.Add(c.UserContext(), userID(c), c.Params("productId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fav)
}

func (s *Server) removeFavorite(c *fiber.Ctx) error {
	if err := s.svc.Favorites.Remove(c.UserContext(), userID(c), c.Params("productId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listBlockedProducts(c *fiber.Ctx) error {
	items, err := s.svc.Blocks.ListBlockedProducts(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (s *Server) blockProduct(c *fiber.Ctx) error {
	b, err := s.svc.Blocks.BlockProduct(c.UserContext(), userID(c), c.Params("productId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (s *Server) unblockProduct(c *fiber.Ctx) error {
	if err := s.svc.Blocks.UnblockProduct(c.UserContext(), userID(c), c.Params("productId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listBlockedUsers(c *fiber.Ctx) error {
	items, err := s.svc.Blocks.ListBlockedUsers(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (s *Server) blockUser(c *fiber.Ctx) error {
	b, err := s.svc.Blocks.BlockUser(c.UserContext(), userID(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(b)
}

func (s *Server) unblockUser(c *fiber.Ctx) error {
	if err := s.svc.Blocks.UnblockUser(c.UserContext(), userID(c), c.Params("userId")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) blockStatus(c *fiber.Ctx) error {
	st, err := s.svc.Blocks.Status(c.UserContext(), userID(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(st)
}
