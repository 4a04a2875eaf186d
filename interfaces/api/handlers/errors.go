package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

var statusByError = []struct {
	err    error
	status int
}{
	{services.ErrPhotoNotFound, fiber.StatusNotFound},
	{services.ErrFaceNotFound, fiber.StatusNotFound},
	{services.ErrEmptyAlbum, fiber.StatusNotFound},
	{services.ErrMissingAsset, fiber.StatusNotFound},
	{services.ErrInvalidUpload, fiber.StatusBadRequest},
	{services.ErrInvalidTag, fiber.StatusBadRequest},
	{services.ErrEmptyImage, fiber.StatusBadRequest},
	{services.ErrInvalidState, fiber.StatusBadRequest},
	{services.ErrUnsupportedProvider, fiber.StatusBadRequest},
	{services.ErrInvalidLogin, fiber.StatusUnauthorized},
	{services.ErrUploadsDisabled, fiber.StatusForbidden},
	{services.ErrNotConnected, fiber.StatusConflict},
	{services.ErrAuthExpired, fiber.StatusConflict},
	{services.ErrMissingCredential, fiber.StatusPreconditionFailed},
	{services.ErrNotConfigured, fiber.StatusServiceUnavailable},
	{services.ErrNoAlbums, fiber.StatusBadGateway},
	{services.ErrMalformedResponse, fiber.StatusBadGateway},
	{services.ErrTimeout, fiber.StatusGatewayTimeout},
}

// statusFor maps a service error to its HTTP status, 500 when unknown.
func statusFor(err error) int {
	for _, s := range statusByError {
		if errors.Is(err, s.err) {
			return s.status
		}
	}
	return fiber.StatusInternalServerError
}

// serviceError writes the error envelope for err. Unexpected failures are logged.
func serviceError(c *fiber.Ctx, message string, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		logger.Error(logger.CategoryAPI, "request_failed", message, err, map[string]interface{}{
			"path":   c.Path(),
			"method": c.Method(),
			"kind":   string(services.KindOf(err)),
		})
	}
	return utils.ErrorResponse(c, status, message, err)
}

func parseUUIDParam(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func parseUUIDList(raw string) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := uuid.Parse(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// currentUser returns the authenticated user, or nil for anonymous requests.
func currentUser(c *fiber.Ctx) *utils.UserContext {
	if c.Locals("user") == nil {
		return nil
	}
	user, err := utils.GetUserFromContext(c)
	if err != nil {
		return nil
	}
	return user
}
