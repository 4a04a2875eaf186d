package serviceimpl

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/utils"
)

type AuthServiceImpl struct {
	admin config.AdminConfig
	jwt   config.JWTConfig
}

func NewAuthService(admin config.AdminConfig, jwt config.JWTConfig) services.AuthService {
	return &AuthServiceImpl{admin: admin, jwt: jwt}
}

func (s *AuthServiceImpl) Login(ctx context.Context, username, password string) (string, error) {
	if s.admin.PasswordHash == "" || username != s.admin.Username {
		logger.AuthError("login_failed", "Unknown administrator", services.ErrInvalidLogin, map[string]interface{}{"username": username})
		return "", services.ErrInvalidLogin
	}

	if err := bcrypt.CompareHashAndPassword([]byte(s.admin.PasswordHash), []byte(password)); err != nil {
		logger.AuthError("login_failed", "Password mismatch", services.ErrInvalidLogin, map[string]interface{}{"username": username})
		return "", services.ErrInvalidLogin
	}

	token, err := utils.GenerateToken(utils.AdminUserID(username), username, utils.RoleAdmin, s.jwt.Secret, s.jwt.TTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	logger.Auth("login_success", "Administrator logged in", map[string]interface{}{"username": username})
	return token, nil
}
