package repositories

import (
	"context"

	"smart-gallery/domain/models"
)

type SettingRepository interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) ([]models.Setting, error)
}

type OAuthCredentialRepository interface {
	// Get returns the stored credential, or an empty one when nothing is stored yet.
	Get(ctx context.Context) (*models.OAuthCredential, error)
	Save(ctx context.Context, cred *models.OAuthCredential) error
	ClearTokens(ctx context.Context) error
}
