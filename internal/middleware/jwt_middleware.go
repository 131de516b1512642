package middleware

import (
	"strings"

	"skillswap/internal/models"
	"skillswap/internal/services"
	appErr "skillswap/pkg/errors"

	"github.com/gofiber/fiber/v2"
)

const userKey = "user"

// AuthRequired is a Fiber middleware to check for a valid JWT token. The
// resolved user is stored in the request context for CurrentUser.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, err := bearerToken(c)
		if err != nil {
			return err
		}
		user, err := authService.Authenticate(c.UserContext(), tokenString)
		if err != nil {
			return err
		}
		c.Locals(userKey, user)
		return c.Next()
	}
}

// AuthOptional attaches the user when a valid token is present and otherwise
// continues anonymously.
func AuthOptional(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return c.Next()
		}
		tokenString, err := bearerToken(c)
		if err != nil {
			return c.Next()
		}
		if user, err := authService.Authenticate(c.UserContext(), tokenString); err == nil {
			c.Locals(userKey, user)
		}
		return c.Next()
	}
}

// AdminRequired must run after AuthRequired.
func AdminRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := CurrentUser(c)
		if user == nil || !user.IsAdmin {
			return appErr.New(appErr.CodeForbidden, "Admin access required")
		}
		return c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil on anonymous requests.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(userKey).(*models.User)
	return user
}

// Expected format: "Bearer <token>"
func bearerToken(c *fiber.Ctx) (string, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "No token, authorization denied")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" || strings.TrimSpace(parts[1]) == "" {
		return "", appErr.New(appErr.CodeUnauthorized, "Authorization header format must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}
