// handlers/errors.go
package handlers

import (
	"errors"

	"identity-sync-service/services"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// ErrorHandler maps service errors to HTTP responses of the form
// {"error": <code>, "detail": <message>}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var (
		missing   *services.MissingCredentialError
		invalid   *services.InvalidTokenError
		malformed *services.MalformedPayloadError
		conflict  *services.StorageConflictError
		fiberErr  *fiber.Error
	)

	switch {
	case errors.As(err, &missing):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":  "missing_credential",
			"detail": missing.Error(),
		})
	case errors.As(err, &invalid):
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error":  "invalid_token",
			"detail": invalid.Error(),
		})
	case errors.As(err, &malformed):
		log.Error().Err(err).Str("path", c.Path()).Msg("❌ [SYNC] malformed identity payload")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":  "malformed_identity_payload",
			"detail": malformed.Error(),
		})
	case errors.As(err, &conflict):
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error":     "storage_conflict",
			"detail":    "identity sync raced with a concurrent update, retry the request",
			"retryable": conflict.Retryable(),
		})
	case errors.As(err, &fiberErr):
		return c.Status(fiberErr.Code).JSON(fiber.Map{
			"error":  "http_error",
			"detail": fiberErr.Message,
		})
	}

	log.Error().Err(err).Str("path", c.Path()).Msg("❌ [HTTP] unhandled error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error":  "internal_error",
		"detail": "internal server error",
	})
}
