package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/livegate/internal/domain"
)

// ErrorHandler renders every error as {"error":{"code","message"}}. Causes
// attached with WithError are logged for 5xx and never sent to the client.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			// Unmatched routes share the domain code for consistency
			if fiberErr.Code == fiber.StatusNotFound {
				return writeError(c, domain.ErrNotFound)
			}
			return c.Status(fiberErr.Code).JSON(errorBody("HTTP_ERROR", fiberErr.Message))
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.ErrorContext(c.UserContext(), "request failed",
					slog.String("code", appErr.Code),
					slog.String("path", c.Path()),
					slog.Any("error", appErr.Err),
				)
			}
			return writeError(c, appErr)
		}

		logger.ErrorContext(c.UserContext(), "unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
		)
		return writeError(c, domain.ErrInternal)
	}
}

func writeError(c *fiber.Ctx, e *domain.AppError) error {
	return c.Status(e.StatusCode).JSON(errorBody(e.Code, e.Message))
}

func errorBody(code, message string) fiber.Map {
	return fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	}
}
