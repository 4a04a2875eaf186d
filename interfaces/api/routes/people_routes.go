package routes

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/interfaces/api/handlers"
)

func SetupPeopleRoutes(api fiber.Router, h *handlers.Handlers, secret string) {
	api.Get("/people", h.People.GetPeople)
	api.Put("/faces/:id/person", with(admin(secret), h.People.SetPersonName)...)
}
