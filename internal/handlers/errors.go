package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/hopeforeverybody/chat-service/internal/apperr"
)

// respondError translates a domain error into an HTTP reply. Unknown errors
// hide their message behind a generic 500.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch apperr.CodeOf(err) {
	case apperr.CodeInvalidArgument:
		status = fiber.StatusBadRequest
	case apperr.CodeNotFound:
		status = fiber.StatusNotFound
	case apperr.CodeAlreadyExists:
		status = fiber.StatusConflict
	case apperr.CodeUnauthenticated:
		status = fiber.StatusUnauthorized
	case apperr.CodePermissionDenied:
		status = fiber.StatusForbidden
	case apperr.CodeUnavailable:
		status = fiber.StatusServiceUnavailable
	}

	message := "internal server error"
	var ae *apperr.AppError
	if errors.As(err, &ae) {
		message = ae.Message
	}
	return c.Status(status).JSON(fiber.Map{"error": message})
}
