package serviceimpl

import (
	"context"
	"fmt"
	"strings"

	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
)

const featurePrefix = "enable_"

type SettingsServiceImpl struct {
	repo     repositories.SettingRepository
	defaults map[string]string
}

// NewSettingsService reads stored settings first and falls back to environment values.
func NewSettingsService(repo repositories.SettingRepository, visionCfg config.VisionConfig) services.SettingsService {
	return &SettingsServiceImpl{
		repo: repo,
		defaults: map[string]string{
			services.SettingAPIProvider:        visionCfg.Provider,
			services.SettingGoogleVisionAPIKey: visionCfg.GoogleAPIKey,
			services.SettingAWSAccessKey:       visionCfg.AWSAccessKey,
			services.SettingAWSSecretKey:       visionCfg.AWSSecretKey,
			services.SettingAWSRegion:          visionCfg.AWSRegion,
			services.SettingGeminiAPIKey:       visionCfg.GeminiAPIKey,
			services.SettingGeminiModel:        visionCfg.GeminiModel,
			services.SettingModerateUploads:    "1",
		},
	}
}

func (s *SettingsServiceImpl) GetSetting(ctx context.Context, key, defaultValue string) string {
	value, ok, err := s.repo.Get(ctx, key)
	if err != nil {
		logger.Error(logger.CategoryDB, "setting_read_failed", "Failed to read setting", err, map[string]interface{}{"key": key})
	}
	if ok {
		return value
	}
	if env := s.defaults[key]; env != "" {
		return env
	}
	return defaultValue
}

// IsFeatureEnabled reads enable_<name>; features are on unless switched off.
func (s *SettingsServiceImpl) IsFeatureEnabled(ctx context.Context, name string) bool {
	return isTruthy(s.GetSetting(ctx, featurePrefix+name, "1"))
}

func (s *SettingsServiceImpl) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("setting key is required")
	}
	if err := s.repo.Set(ctx, key, value); err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	logger.Info(logger.CategoryAPI, "setting_updated", "Setting updated", map[string]interface{}{"key": key})
	return nil
}

// All merges environment defaults with stored rows; stored rows win.
func (s *SettingsServiceImpl) All(ctx context.Context) (map[string]string, error) {
	result := make(map[string]string, len(s.defaults))
	for key, value := range s.defaults {
		result[key] = value
	}

	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.Key] = row.Value
	}

	for _, feature := range []string{services.FeatureAITagging, services.FeatureFaceDetection, services.FeatureUserUploads} {
		if _, ok := result[featurePrefix+feature]; !ok {
			result[featurePrefix+feature] = "1"
		}
	}
	return result, nil
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
