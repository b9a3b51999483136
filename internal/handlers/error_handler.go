package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"katalog/internal/apperror"
)

// ErrorHandler renders every error returned by a handler as
// {success:false,status,message[,stack]}.
func ErrorHandler(log *slog.Logger, showStack bool) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var cl apperror.Classification
		var fe *fiber.Error
		if errors.As(err, &fe) {
			cl = apperror.Classification{Status: fe.Code, Message: fe.Message}
		} else {
			cl = apperror.Classify(err, c.Response().StatusCode())
		}

		attrs := []any{
			"status", cl.Status,
			"method", c.Method(),
			"path", c.Path(),
			"request_id", c.Locals("requestid"),
			"error", err,
		}
		if cl.Status >= fiber.StatusInternalServerError {
			log.Error("request failed", attrs...)
		} else {
			log.Debug("request rejected", attrs...)
		}

		body := fiber.Map{
			"success": false,
			"status":  cl.Status,
			"message": cl.Message,
		}
		if showStack {
			stack := cl.Stack
			if stack == "" {
				stack = fmt.Sprintf("%+v", err)
			}
			body["stack"] = stack
		}
		return c.Status(cl.Status).JSON(body)
	}
}

// notFoundRoute answers requests no route matched.
func notFoundRoute(c *fiber.Ctx) error {
	return apperror.NewNotFoundError("Route not found: " + c.OriginalURL())
}
