package constraints

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
)

// RequireUUID is a Fiber middleware that ensures a path parameter is a valid UUID.
// If the parameter is not a valid UUID, it returns 404 Not Found (route doesn't match).
//
// Static routes like /user/:userId must be registered BEFORE parameterized
// routes like /:postId to ensure correct route matching precedence.
func RequireUUID(params ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, param := range params {
			paramValue := c.Params(param)
			if paramValue == "" {
				continue
			}
			if _, err := uuid.FromString(paramValue); err != nil {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"code":    "NOT_FOUND",
					"message": "Not Found",
				})
			}
		}
		return c.Next()
	}
}
