package api

import (
	"github.com/example/civic-platform/modules/auth"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps an auth error kind to its HTTP status.
func statusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindConflict:
		return fiber.StatusBadRequest
	case auth.KindAuthentication:
		return fiber.StatusUnauthorized
	case auth.KindAuthorization:
		return fiber.StatusForbidden
	case auth.KindNotFound:
		return fiber.StatusNotFound
	default:
		return fiber.StatusInternalServerError
	}
}

// writeError renders err as an ErrorResponse. Unexpected errors are logged
// and reported with a generic message only.
func writeError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	e := auth.AsError(err)
	status := statusFor(e.Kind)

	message := e.Message
	if status == fiber.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals("requestid")),
			zap.Error(err))
		message = auth.MsgUnexpected
	}

	return c.Status(status).JSON(ErrorResponse{
		Error:   string(e.Kind),
		Message: message,
		Fields:  e.Fields,
	})
}

// errorHandler renders errors that escape handlers, such as unknown routes
// and recovered panics.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		if e, ok := err.(*fiber.Error); ok {
			return c.Status(e.Code).JSON(ErrorResponse{
				Error:   "http_error",
				Message: e.Message,
			})
		}
		return writeError(c, logger, err)
	}
}
