package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

// Protected middleware validates JWT tokens and sets user context
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return utils.UnauthorizedResponse(c, "Missing authorization header")
		}

		token := utils.ExtractTokenFromHeader(authHeader)
		if token == "" {
			return utils.UnauthorizedResponse(c, "Invalid authorization header format")
		}

		userCtx, err := utils.ValidateTokenStringToUUID(token, jwtSecret)
		if err != nil {
			logger.Warn(logger.CategoryAuth, "token_rejected", "Token validation failed", map[string]interface{}{
				"path":  c.Path(),
				"error": err.Error(),
			})
			return utils.UnauthorizedResponse(c, tokenErrorMessage(err))
		}

		c.Locals("user", userCtx)
		return c.Next()
	}
}

func tokenErrorMessage(err error) string {
	switch {
	case errors.Is(err, utils.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, utils.ErrInvalidToken):
		return "Invalid token"
	case errors.Is(err, utils.ErrMissingToken):
		return "Missing token"
	default:
		return "Token validation failed"
	}
}

// RequireRole middleware checks if user has specific role
func RequireRole(role string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := utils.GetUserFromContext(c)
		if err != nil {
			return utils.UnauthorizedResponse(c, "User not authenticated")
		}

		if user.Role != role {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"success": false,
				"message": "Insufficient permissions",
				"error":   "Access denied",
			})
		}

		return c.Next()
	}
}

// AdminOnly middleware ensures only admin users can access
func AdminOnly() fiber.Handler {
	return RequireRole(utils.RoleAdmin)
}

// Optional middleware that doesn't require authentication but sets user context if token is present
func Optional(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.ExtractTokenFromHeader(c.Get("Authorization"))
		if token == "" {
			return c.Next()
		}

		if userCtx, err := utils.ValidateTokenStringToUUID(token, jwtSecret); err == nil {
			c.Locals("user", userCtx)
		}
		return c.Next()
	}
}

// OptionalWithQueryToken also accepts ?token=, for WebSocket connections where
// the Authorization header can't be sent.
func OptionalWithQueryToken(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := utils.ExtractTokenFromHeader(c.Get("Authorization"))
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.Next()
		}

		if userCtx, err := utils.ValidateTokenStringToUUID(token, jwtSecret); err == nil {
			c.Locals("user", userCtx)
		}
		return c.Next()
	}
}
