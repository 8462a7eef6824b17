package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/bazaar-chain/bazaar-auth/internal/validation"
)

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders every handler error as a JSON body. Field errors
// become 400, fiber errors keep their code and anything else is a 500
// whose cause is logged but not exposed.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		body := errorBody{RequestID: GetRequestID(c)}
		status := http.StatusInternalServerError

		var fieldErr *validation.FieldError
		var fiberErr *fiber.Error
		switch {
		case errors.As(err, &fieldErr):
			status = http.StatusBadRequest
			body.Error = fieldErr.Message
			body.Field = fieldErr.Field
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			body.Error = fiberErr.Message
		default:
			body.Error = http.StatusText(http.StatusInternalServerError)
			logger.Error("unhandled request error",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.String("request_id", body.RequestID),
				slog.Any("error", err),
			)
		}
		return c.Status(status).JSON(body)
	}
}
