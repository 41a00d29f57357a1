package middleware

import (
	"piefolio-backend/internal/auth"
	"piefolio-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

const userIDLocal = "user_id"

// RequireAuth extracts and verifies the bearer token and puts the user id in
// Locals. Returns 401 with the standard error format on any auth failure.
func RequireAuth(verifier *auth.Verifier) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token, err := auth.TokenFromHeader(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}
		userID, err := verifier.UserIDFromToken(token)
		if err != nil {
			return response.Unauthorized(c, err.Error())
		}
		c.Locals(userIDLocal, userID)
		return c.Next()
	}
}

// GetUserID returns the authenticated user id from Locals ("" if not set).
func GetUserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}
