package rest

import "github.com/gofiber/fiber/v2"

func (s *Server) listNotifications(c *fiber.Ctx) error {
	items, err := s.svc.Notifications.List(c.UserContext(), userID(c), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// unreadCount also tells clients how often to poll.
func (s *Server) unreadCount(c *fiber.Ctx) error {
	n, err := s.svc.Notifications.UnreadCount(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"count":               n,
		"pollIntervalSeconds": int(s.pollInterval.Seconds()),
	})
}

func (s *Server) markNotificationRead(c *fiber.Ctx) error {
	if err := s.svc.Notifications.MarkRead(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) markAllNotificationsRead(c *fiber.Ctx) error {
	n, err := s.svc.Notifications.MarkAllRead(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}

func (s *Server) deleteNotification(c *fiber.Ctx) error {
	if err := s.svc.Notifications.Delete(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}
