package handlers

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/domain/dto"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/utils"
)

type PeopleHandler struct {
	photoService services.PhotoService
}

func NewPeopleHandler(photoService services.PhotoService) *PeopleHandler {
	return &PeopleHandler{photoService: photoService}
}

// GetPeople lists named faces grouped by person
// @Summary List people
// @Tags Faces
// @Produce json
// @Success 200 {object} utils.Response
// @Router /api/v1/people [get]
func (h *PeopleHandler) GetPeople(c *fiber.Ctx) error {
	people, err := h.photoService.GetPeople(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to get people", err)
	}
	return utils.SuccessResponse(c, "People retrieved", fiber.Map{"people": people, "count": len(people)})
}

// SetPersonName names (or with an empty name, un-names) a detected face
// @Summary Name a face
// @Tags Faces
// @Security BearerAuth
// @Param id path string true "Face ID"
// @Param request body dto.SetPersonRequest true "Person"
// @Success 200 {object} utils.Response
// @Router /api/v1/faces/{id}/person [put]
func (h *PeopleHandler) SetPersonName(c *fiber.Ctx) error {
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid face ID", err)
	}

	var req dto.SetPersonRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	face, err := h.photoService.SetPersonName(c.UserContext(), id, req.Name)
	if err != nil {
		return serviceError(c, "Failed to update face", err)
	}
	return utils.SuccessResponse(c, "Face updated", face)
}
