package rest

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

type sendMessageRequest struct {
	// RecipientID is omitted for broadcasts.
	RecipientID *string `json:"recipientId"`
	Text        string  `json:"text"`
}

type editMessageRequest struct {
	Text string `json:"text"`
}

func (s *Server) sendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}

	m, err := s.svc.Messages.Send(c.UserContext(), userID(c), req.RecipientID, req.Text)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(m)
}

func (s *Server) listBroadcasts(c *fiber.Ctx) error {
	items, err := s.svc.Messages.Broadcasts(c.UserContext(), c.QueryInt("limit", 0))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

func (s *Server) editMessage(c *fiber.Ctx) error {
	var req editMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}

	m, err := s.svc.Messages.Edit(c.UserContext(), userID(c), c.Params("id"), req.Text)
	if err != nil {
		return err
	}
	return c.JSON(m)
}

func (s *Server) deleteMessage(c *fiber.Ctx) error {
	if err := s.svc.Messages.Delete(c.UserContext(), userID(c), c.Params("id")); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) listConversations(c *fiber.Ctx) error {
	items, err := s.svc.Messages.Conversations(c.UserContext(), userID(c))
	if err != nil {
		return err
	}
	return c.JSON(items)
}

// GET /api/conversations/:userId?limit=&before=RFC3339
func (s *Server) getConversation(c *fiber.Ctx) error {
	var before *time.Time
	if raw := c.Query("before"); raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return badRequest("before must be an RFC 3339 timestamp")
		}
		before = &t
	}

	view, err := s.svc.Messages.Conversation(c.UserContext(), userID(c), c.Params("userId"), c.QueryInt("limit", 0), before)
	if err != nil {
		return err
	}
	return c.JSON(view)
}

func (s *Server) markConversationRead(c *fiber.Ctx) error {
	n, err := s.svc.Messages.MarkRead(c.UserContext(), userID(c), c.Params("userId"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"updated": n})
}
