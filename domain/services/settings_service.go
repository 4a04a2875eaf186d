package services

import "context"

// Setting keys read by the core.
const (
	SettingAPIProvider        = "api_provider"
	SettingGoogleVisionAPIKey = "google_vision_api_key"
	SettingAWSAccessKey       = "aws_access_key"
	SettingAWSSecretKey       = "aws_secret_key"
	SettingAWSRegion          = "aws_region"
	SettingGeminiAPIKey       = "gemini_api_key"
	SettingGeminiModel        = "gemini_model"
	SettingModerateUploads    = "moderate_uploads"
)

// Feature names, stored as enable_<name>.
const (
	FeatureAITagging     = "ai_tagging"
	FeatureFaceDetection = "face_detection"
	FeatureUserUploads   = "user_uploads"
)

type SettingsService interface {
	GetSetting(ctx context.Context, key, defaultValue string) string
	IsFeatureEnabled(ctx context.Context, name string) bool
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}
