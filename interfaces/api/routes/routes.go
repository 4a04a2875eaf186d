package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
	"smart-gallery/interfaces/api/middleware"
	"smart-gallery/pkg/config"
)

func SetupRoutes(app *fiber.App, h *handlers.Handlers, cfg *config.Config) {
	SetupHealthRoutes(app, h)

	api := app.Group("/api/v1", middleware.RateLimiter(&cfg.RateLimit))

	secret := cfg.JWT.Secret
	SetupAuthRoutes(api, h, cfg)
	SetupPhotoRoutes(api, h, secret)
	SetupPeopleRoutes(api, h, secret)
	SetupGooglePhotosRoutes(api, h, cfg)
	SetupSettingsRoutes(api, h, secret)
	SetupLogRoutes(api, h)

	// WebSocket needs the app, not the api group
	SetupWebSocketRoutes(app, secret)
}

// admin chains token validation and the admin role check.
func admin(secret string) []fiber.Handler {
	return []fiber.Handler{middleware.Protected(secret), middleware.AdminOnly()}
}

func with(chain []fiber.Handler, h fiber.Handler) []fiber.Handler {
	out := make([]fiber.Handler, 0, len(chain)+1)
	return append(append(out, chain...), h)
}
