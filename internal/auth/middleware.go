package auth

import (
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"required-backend/internal/engine"
)

// UserContext is the authenticated caller, set by AuthMiddleware.
type UserContext struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

func (u *UserContext) HasRole(role string) bool {
	return slices.Contains(u.Roles, role)
}

func (u *UserContext) IsAdmin() bool {
	return u.HasRole("admin")
}

// AuthMiddleware validates the bearer token and stores the caller in the
// request locals.
func AuthMiddleware(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return engine.UnauthorizedError("Missing auth token")
		}

		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
			return engine.UnauthorizedError("Invalid auth header format")
		}

		claims, err := ParseAccessToken(token, secret)
		if err != nil {
			return engine.UnauthorizedError("Invalid or expired token")
		}

		c.Locals("user", &UserContext{
			Username: claims.Subject,
			Roles:    claims.Roles,
		})
		return c.Next()
	}
}

// RequireAdmin rejects callers without the admin role. It must run after
// AuthMiddleware.
func RequireAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user := GetUser(c)
		if user == nil {
			return engine.UnauthorizedError("Missing auth token")
		}
		if !user.IsAdmin() {
			return engine.ForbiddenError("Admin access required")
		}
		return c.Next()
	}
}

func GetUser(c *fiber.Ctx) *UserContext {
	user, _ := c.Locals("user").(*UserContext)
	return user
}
