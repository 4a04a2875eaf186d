package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
)

// SetupLogRoutes sets up log-related routes
func SetupLogRoutes(router fiber.Router, h *handlers.Handlers) {
	logs := router.Group("/admin", h.Log.RequireAdminToken)

	logs.Get("/logs", h.Log.GetLogs)
	logs.Get("/logs/stats", h.Log.GetLogStats)
}
