package serverutils

import (
	"errors"

	"github.com/nitishgupta522/CampusConnect-sub000/internal/docstore"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware maps domain errors returned by downstream handlers to
// HTTP status codes so handlers can just return errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return ctx.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		if errors.Is(err, docstore.ErrPermissionDenied) {
			return ctx.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "permission denied"})
		}
		if docstore.IsRetryable(err) {
			return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "temporarily unavailable, retry"})
		}

		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
}
