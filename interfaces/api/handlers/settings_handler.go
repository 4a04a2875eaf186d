package handlers

import (
	"github.com/gofiber/fiber/v2"

	"smart-gallery/domain/dto"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

type SettingsHandler struct {
	settingsService services.SettingsService
}

func NewSettingsHandler(settingsService services.SettingsService) *SettingsHandler {
	return &SettingsHandler{settingsService: settingsService}
}

// GetSettings returns effective settings with secrets masked
// @Summary Get settings
// @Tags Settings
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Router /api/v1/settings [get]
func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	all, err := h.settingsService.All(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to get settings", err)
	}
	return utils.SuccessResponse(c, "Settings retrieved", dto.MaskSettings(all))
}

// @Summary Update settings
// @Tags Settings
// @Security BearerAuth
// @Param request body dto.UpdateSettingsRequest true "Settings to store"
// @Success 200 {object} utils.Response
// @Router /api/v1/settings [put]
func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req dto.UpdateSettingsRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	ctx := c.UserContext()
	keys := make([]string, 0, len(req.Settings))
	for key, value := range req.Settings {
		if err := h.settingsService.Set(ctx, key, value); err != nil {
			return serviceError(c, "Failed to save setting "+key, err)
		}
		keys = append(keys, key)
	}
	logger.Info(logger.CategoryAPI, "settings_updated", "Settings updated", map[string]interface{}{"keys": keys})

	return h.GetSettings(c)
}
