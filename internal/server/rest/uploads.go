package rest

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// POST /api/uploads (multipart, field "file")
func (s *Server) uploadImage(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return badRequest("file is required")
	}

	f, err := fh.Open()
	if err != nil {
		return fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	res, err := s.svc.Uploads.Upload(c.UserContext(), userID(c), fh.Filename, fh.Header.Get("Content-Type"), f)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

type presignRequest struct {
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// POST /api/uploads/presign
func (s *Server) presignUpload(c *fiber.Ctx) error {
	var req presignRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest("invalid payload")
	}

	res, err := s.svc.Uploads.PresignUpload(c.UserContext(), userID(c), req.ContentType, req.Size)
	if err != nil {
		return err
	}
	return c.JSON(res)
}
