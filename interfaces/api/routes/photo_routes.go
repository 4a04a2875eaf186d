package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
	"smart-gallery/interfaces/api/middleware"
)

func SetupPhotoRoutes(api fiber.Router, h *handlers.Handlers, secret string) {
	photos := api.Group("/photos")
	adminOnly := admin(secret)

	// Public, admins see unpublished photos too
	photos.Get("/", middleware.Optional(secret), h.Photo.List)
	photos.Get("/search", h.Photo.Search)
	photos.Get("/:id", middleware.Optional(secret), h.Photo.Get)
	photos.Post("/", middleware.Optional(secret), h.Photo.Upload)

	photos.Get("/:id/tags", h.Photo.GetTags)
	photos.Get("/:id/ai-tags", h.Photo.GetAITags)
	photos.Get("/:id/faces", h.Photo.GetFaces)
	photos.Get("/:id/related", h.Photo.Related)
	photos.Post("/:id/views", h.Photo.RecordView)
	photos.Get("/:id/views", h.Photo.GetViews)

	// Moderation and enrichment
	photos.Delete("/:id", with(adminOnly, h.Photo.Delete)...)
	photos.Post("/:id/approve", with(adminOnly, h.Photo.Approve)...)
	photos.Post("/:id/reject", with(adminOnly, h.Photo.Reject)...)
	photos.Post("/:id/tags", with(adminOnly, h.Photo.AddTag)...)
	photos.Post("/:id/enrich", with(adminOnly, h.Photo.Enrich)...)
	photos.Get("/:id/enrichment", with(adminOnly, h.Photo.EnrichmentStatus)...)
}
