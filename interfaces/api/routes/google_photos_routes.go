package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
	"smart-gallery/interfaces/api/middleware"
	"smart-gallery/pkg/config"
)

func SetupGooglePhotosRoutes(api fiber.Router, h *handlers.Handlers, cfg *config.Config) {
	// Google redirects the browser here without a bearer token; the signed state is checked instead.
	// Registered before the admin group so its middleware never runs for it.
	api.Get("/google-photos/callback", middleware.AuthRateLimiter(&cfg.RateLimit), h.GooglePhotos.Callback)

	gp := api.Group("/google-photos", admin(cfg.JWT.Secret)...)

	gp.Get("/status", h.GooglePhotos.Status)
	gp.Get("/connect", h.GooglePhotos.Connect)
	gp.Post("/disconnect", h.GooglePhotos.Disconnect)
	gp.Get("/albums", h.GooglePhotos.GetAlbums)
	gp.Post("/albums/sync", h.GooglePhotos.SyncAlbums)
	gp.Post("/albums/:albumId/import", h.GooglePhotos.ImportAlbum)
}
