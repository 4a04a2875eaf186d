package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
	"smart-gallery/interfaces/api/middleware"
	"smart-gallery/pkg/config"
)

func SetupAuthRoutes(api fiber.Router, h *handlers.Handlers, cfg *config.Config) {
	auth := api.Group("/auth")

	auth.Post("/login", middleware.AuthRateLimiter(&cfg.RateLimit), h.Auth.Login)
	auth.Get("/me", middleware.Protected(cfg.JWT.Secret), h.Auth.Me)
}
