package apperr

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// Respond writes err as the standard error envelope:
// {"error": true, "message": ..., "errors": {...}}.
// Errors outside the taxonomy are reported as a generic 500.
func Respond(c *fiber.Ctx, err error) error {
	body := fiber.Map{
		"error":   true,
		"message": "Internal server error",
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != KindPersistence {
		body["message"] = e.Message
		if len(e.Fields) > 0 {
			body["errors"] = e.Fields
		}
	}

	return c.Status(HTTPStatus(err)).JSON(body)
}
