package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type SettingRepositoryImpl struct {
	db *gorm.DB
}

func NewSettingRepository(db *gorm.DB) repositories.SettingRepository {
	return &SettingRepositoryImpl{db: db}
}

func (r *SettingRepositoryImpl) Get(ctx context.Context, key string) (string, bool, error) {
	var setting models.Setting
	err := r.db.WithContext(ctx).Where("key = ?", key).First(&setting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return setting.Value, true, nil
}

func (r *SettingRepositoryImpl) Set(ctx context.Context, key, value string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
}

func (r *SettingRepositoryImpl) All(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	err := r.db.WithContext(ctx).Order("key ASC").Find(&settings).Error
	return settings, err
}

type OAuthCredentialRepositoryImpl struct {
	db *gorm.DB
}

func NewOAuthCredentialRepository(db *gorm.DB) repositories.OAuthCredentialRepository {
	return &OAuthCredentialRepositoryImpl{db: db}
}

func (r *OAuthCredentialRepositoryImpl) Get(ctx context.Context) (*models.OAuthCredential, error) {
	var cred models.OAuthCredential
	err := r.db.WithContext(ctx).Where("id = ?", models.OAuthCredentialID).First(&cred).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &models.OAuthCredential{ID: models.OAuthCredentialID}, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

func (r *OAuthCredentialRepositoryImpl) Save(ctx context.Context, cred *models.OAuthCredential) error {
	cred.ID = models.OAuthCredentialID
	return r.db.WithContext(ctx).Save(cred).Error
}

func (r *OAuthCredentialRepositoryImpl) ClearTokens(ctx context.Context) error {
	return r.db.WithContext(ctx).Model(&models.OAuthCredential{}).
		Where("id = ?", models.OAuthCredentialID).
		Updates(map[string]interface{}{
			"access_token":  "",
			"refresh_token": "",
			"expiry":        nil,
		}).Error
}
