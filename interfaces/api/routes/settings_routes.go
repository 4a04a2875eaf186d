package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
)

func SetupSettingsRoutes(api fiber.Router, h *handlers.Handlers, secret string) {
	settings := api.Group("/settings", admin(secret)...)

	settings.Get("/", h.Settings.GetSettings)
	settings.Put("/", h.Settings.UpdateSettings)
}
