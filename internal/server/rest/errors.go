package rest

import (
	"errors"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/gofiber/fiber/v2"
)

// statusOf maps service errors onto HTTP status codes. Unknown errors are
// internal.
func statusOf(err error) int {
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		return fe.Code
	case errors.Is(err, common.ErrorValidation),
		errors.Is(err, common.ErrorSelfPurchase),
		errors.Is(err, common.ErrorSelfOffer),
		errors.Is(err, common.ErrorSelfBlock),
		errors.Is(err, common.ErrorInvalidSignature),
		errors.Is(err, common.ErrorIncompleteMetadata):
		return fiber.StatusBadRequest
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired):
		return fiber.StatusUnauthorized
	case errors.Is(err, common.ErrorForbidden),
		errors.Is(err, common.ErrorBlocked):
		return fiber.StatusForbidden
	case errors.Is(err, common.ErrorNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, common.ErrorAlreadyExists),
		errors.Is(err, common.ErrorProductSold):
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) errorHandler(c *fiber.Ctx, err error) error {
	code := statusOf(err)
	msg := err.Error()

	if code >= fiber.StatusInternalServerError {
		s.logger.Error(c.UserContext(), "request failed",
			"error", err, "method", c.Method(), "path", c.Path(), "request_id", c.Locals("requestid"))
		msg = common.ErrorInternal.Error()
	}

	return c.Status(code).JSON(fiber.Map{"error": msg})
}

func badRequest(msg string) error {
	return fiber.NewError(fiber.StatusBadRequest, msg)
}
