package handlers

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"smart-gallery/domain/dto"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

type GooglePhotosHandler struct {
	googlePhotosService services.GooglePhotosService
	stateSecret         string
	frontendURL         string
}

func NewGooglePhotosHandler(googlePhotosService services.GooglePhotosService, stateSecret, frontendURL string) *GooglePhotosHandler {
	return &GooglePhotosHandler{
		googlePhotosService: googlePhotosService,
		stateSecret:         stateSecret,
		frontendURL:         frontendURL,
	}
}

// @Summary Google Photos connection status
// @Tags GooglePhotos
// @Security BearerAuth
// @Success 200 {object} utils.Response{data=services.ConnectionStatus}
// @Router /api/v1/google-photos/status [get]
func (h *GooglePhotosHandler) Status(c *fiber.Ctx) error {
	status, err := h.googlePhotosService.Status(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to get connection status", err)
	}
	return utils.SuccessResponse(c, "Connection status retrieved", status)
}

// Connect returns the Google consent URL. With ?redirect=true the browser is sent there directly.
// @Summary Start Google Photos OAuth
// @Tags GooglePhotos
// @Security BearerAuth
// @Param redirect query bool false "Redirect instead of returning the URL"
// @Success 200 {object} utils.Response{data=dto.ConnectResponse}
// @Router /api/v1/google-photos/connect [get]
func (h *GooglePhotosHandler) Connect(c *fiber.Ctx) error {
	user, err := utils.GetUserFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "User not authenticated")
	}

	state, err := utils.CreateSignedState(user.ID.String(), h.stateSecret)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate state", err)
	}

	authURL, err := h.googlePhotosService.AuthURL(c.UserContext(), state)
	if err != nil {
		return serviceError(c, "Failed to build authorization URL", err)
	}

	logger.Auth("google_photos_connect", "Redirecting admin to Google consent", map[string]interface{}{"user_id": user.ID.String()})

	if c.QueryBool("redirect") {
		return c.Redirect(authURL)
	}
	return utils.SuccessResponse(c, "Authorization URL created", dto.ConnectResponse{URL: authURL})
}

// Callback receives the browser back from Google and redirects to the frontend settings page
// @Summary Google Photos OAuth callback
// @Tags GooglePhotos
// @Param code query string false "Authorization code"
// @Param state query string true "Signed state"
// @Param error query string false "Error returned by Google"
// @Success 302
// @Router /api/v1/google-photos/callback [get]
func (h *GooglePhotosHandler) Callback(c *fiber.Ctx) error {
	if googleErr := c.Query("error"); googleErr != "" {
		logger.AuthError("google_photos_callback", "Google returned an error", nil, map[string]interface{}{"google_error": googleErr})
		return c.Redirect(h.settingsURL("error", googleErr))
	}

	if _, err := utils.ParseSignedState(c.Query("state"), h.stateSecret); err != nil {
		logger.AuthError("google_photos_callback", "Invalid state parameter", err, nil)
		return c.Redirect(h.settingsURL("error", "invalid_state"))
	}

	code := c.Query("code")
	if code == "" {
		return c.Redirect(h.settingsURL("error", "missing_code"))
	}

	if err := h.googlePhotosService.HandleCallback(c.UserContext(), code); err != nil {
		logger.AuthError("google_photos_callback", "Token exchange failed", err, nil)
		return c.Redirect(h.settingsURL("error", services.ProviderMessage(err)))
	}

	logger.Auth("google_photos_connected", "Google Photos connected", nil)
	return c.Redirect(h.settingsURL("connected", ""))
}

func (h *GooglePhotosHandler) settingsURL(status, reason string) string {
	q := url.Values{}
	q.Set("google_photos", status)
	if reason != "" {
		q.Set("reason", reason)
	}
	return h.frontendURL + "/settings?" + q.Encode()
}

// @Summary Disconnect Google Photos
// @Tags GooglePhotos
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Router /api/v1/google-photos/disconnect [post]
func (h *GooglePhotosHandler) Disconnect(c *fiber.Ctx) error {
	if err := h.googlePhotosService.Disconnect(c.UserContext()); err != nil {
		return serviceError(c, "Failed to disconnect", err)
	}
	return utils.SuccessResponse(c, "Google Photos disconnected", nil)
}

// @Summary List known albums
// @Tags GooglePhotos
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Router /api/v1/google-photos/albums [get]
func (h *GooglePhotosHandler) GetAlbums(c *fiber.Ctx) error {
	albums, err := h.googlePhotosService.GetAlbums(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to get albums", err)
	}
	return utils.SuccessResponse(c, "Albums retrieved", fiber.Map{"albums": albums, "count": len(albums)})
}

// @Summary Refresh the album list from Google Photos
// @Tags GooglePhotos
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Router /api/v1/google-photos/albums/sync [post]
func (h *GooglePhotosHandler) SyncAlbums(c *fiber.Ctx) error {
	albums, err := h.googlePhotosService.SyncAlbums(c.UserContext())
	if err != nil {
		return serviceError(c, "Failed to sync albums", err)
	}
	return utils.SuccessResponse(c, "Albums synced", fiber.Map{"albums": albums, "count": len(albums)})
}

// ImportAlbum imports every photo of an album into a category
// @Summary Import an album
// @Tags GooglePhotos
// @Security BearerAuth
// @Param albumId path string true "Google Photos album ID"
// @Param request body dto.ImportAlbumRequest false "Import options"
// @Success 200 {object} utils.Response{data=services.ImportResult}
// @Router /api/v1/google-photos/albums/{albumId}/import [post]
func (h *GooglePhotosHandler) ImportAlbum(c *fiber.Ctx) error {
	var req dto.ImportAlbumRequest
	if len(c.Body()) > 0 {
		if err := utils.ParseAndValidate(c, &req); err != nil {
			return utils.ValidationErrorResponse(c, err)
		}
	}

	importReq := services.ImportRequest{
		AlbumID:    c.Params("albumId"),
		AlbumTitle: req.AlbumTitle,
	}
	if req.CategoryID != "" {
		id := uuid.MustParse(req.CategoryID)
		importReq.CategoryID = &id
	}

	result, err := h.googlePhotosService.ImportAlbum(c.UserContext(), importReq)
	if err != nil {
		return serviceError(c, "Failed to import album", err)
	}
	return utils.SuccessResponse(c, "Album imported", result)
}
