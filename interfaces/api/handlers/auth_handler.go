package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"smart-gallery/domain/dto"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

type AuthHandler struct {
	authService services.AuthService
	tokenTTL    time.Duration
}

func NewAuthHandler(authService services.AuthService, tokenTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		tokenTTL:    tokenTTL,
	}
}

// Login exchanges the administrator credentials for a JWT
// @Summary Admin login
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} utils.Response{data=dto.LoginResponse}
// @Router /api/v1/auth/login [post]
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := utils.ParseAndValidate(c, &req); err != nil {
		return utils.ValidationErrorResponse(c, err)
	}

	token, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		logger.AuthError("login_failed", "Admin login failed", err, map[string]interface{}{
			"username": req.Username,
			"ip":       c.IP(),
		})
		return serviceError(c, "Login failed", err)
	}

	logger.Auth("login_success", "Admin logged in", map[string]interface{}{"username": req.Username, "ip": c.IP()})

	return utils.SuccessResponse(c, "Login successful", dto.LoginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: time.Now().Add(h.tokenTTL),
	})
}

// Me returns the user behind the bearer token
// @Summary Current user
// @Tags Auth
// @Security BearerAuth
// @Success 200 {object} utils.Response
// @Router /api/v1/auth/me [get]
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := utils.GetUserFromContext(c)
	if err != nil {
		return utils.UnauthorizedResponse(c, "Not authenticated")
	}
	return utils.SuccessResponse(c, "User retrieved successfully", fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"role":     user.Role,
	})
}
