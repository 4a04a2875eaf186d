package handlers

import (
	"gorm.io/gorm"

	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/worker"
	"smart-gallery/pkg/config"
)

// Services contains all the services needed for handlers
type Services struct {
	AuthService           services.AuthService
	PhotoService          services.PhotoService
	EnrichmentService     services.EnrichmentService
	RecommendationService services.RecommendationService
	GooglePhotosService   services.GooglePhotosService
	SettingsService       services.SettingsService
}

// Infrastructure is what the health checks ping. Redis and Queue may be nil.
type Infrastructure struct {
	DB              *gorm.DB
	Redis           Pinger
	Store           Pinger
	Queue           worker.Queue
	PhotoRepository repositories.PhotoRepository
}

// Handlers contains all HTTP handlers
type Handlers struct {
	AuthHandler         *AuthHandler
	PhotoHandler        *PhotoHandler
	PeopleHandler       *PeopleHandler
	GooglePhotosHandler *GooglePhotosHandler
	SettingsHandler     *SettingsHandler
	HealthHandler       *HealthHandler
	LogHandler          *LogHandler

	// Short accessors for routes
	Auth         *AuthHandler
	Photo        *PhotoHandler
	People       *PeopleHandler
	GooglePhotos *GooglePhotosHandler
	Settings     *SettingsHandler
	Health       *HealthHandler
	Log          *LogHandler
}

// NewHandlers creates a new instance of Handlers with all dependencies
func NewHandlers(services *Services, infra *Infrastructure, cfg *config.Config) *Handlers {
	authHandler := NewAuthHandler(services.AuthService, cfg.JWT.TTL)
	photoHandler := NewPhotoHandler(services.PhotoService, services.EnrichmentService, services.RecommendationService)
	peopleHandler := NewPeopleHandler(services.PhotoService)
	googlePhotosHandler := NewGooglePhotosHandler(services.GooglePhotosService, cfg.JWT.Secret, cfg.App.FrontendURL)
	settingsHandler := NewSettingsHandler(services.SettingsService)
	healthHandler := NewHealthHandler(infra.DB, infra.Redis, infra.Store, infra.Queue, infra.PhotoRepository, cfg.Enrichment.StuckAfter)

	logToken := cfg.Admin.LogToken
	if logToken == "" {
		logToken = cfg.JWT.Secret
	}
	logHandler := NewLogHandler(logToken)

	return &Handlers{
		AuthHandler:         authHandler,
		PhotoHandler:        photoHandler,
		PeopleHandler:       peopleHandler,
		GooglePhotosHandler: googlePhotosHandler,
		SettingsHandler:     settingsHandler,
		HealthHandler:       healthHandler,
		LogHandler:          logHandler,

		// Short accessors
		Auth:         authHandler,
		Photo:        photoHandler,
		People:       peopleHandler,
		GooglePhotos: googlePhotosHandler,
		Settings:     settingsHandler,
		Health:       healthHandler,
		Log:          logHandler,
	}
}
