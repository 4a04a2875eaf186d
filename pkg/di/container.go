package di

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"smart-gallery/application/serviceimpl"
	"smart-gallery/domain/repositories"
	"smart-gallery/domain/services"
	"smart-gallery/infrastructure/googlephotos"
	"smart-gallery/infrastructure/postgres"
	"smart-gallery/infrastructure/redis"
	"smart-gallery/infrastructure/storage"
	"smart-gallery/infrastructure/vision"
	websocketManager "smart-gallery/infrastructure/websocket"
	"smart-gallery/infrastructure/worker"
	"smart-gallery/interfaces/api/handlers"
	"smart-gallery/pkg/config"
	"smart-gallery/pkg/logger"
	"smart-gallery/pkg/scheduler"
)

const (
	QueueBackendMemory = "memory"
	QueueBackendAsynq  = "asynq"
)

type Container struct {
	// Configuration
	Config *config.Config

	// Infrastructure
	DB           *gorm.DB
	RedisClient  *redis.RedisClient // nil when Redis is unreachable
	MediaStore   storage.MediaStore
	VisionClient *vision.Client
	Queue        worker.Queue
	Scheduler    scheduler.JobScheduler

	// Repositories
	AttachmentRepository   repositories.AttachmentRepository
	CategoryRepository     repositories.CategoryRepository
	PhotoRepository        repositories.PhotoRepository
	TagRepository          repositories.TagRepository
	KeywordRepository      repositories.KeywordRepository
	FaceRepository         repositories.FaceRepository
	ViewRepository         repositories.ViewRepository
	SettingRepository      repositories.SettingRepository
	OAuthCredentialRepo    repositories.OAuthCredentialRepository
	AlbumMappingRepository repositories.AlbumMappingRepository

	// Services
	AuthService           services.AuthService
	SettingsService       services.SettingsService
	EnrichmentService     services.EnrichmentService
	PhotoService          services.PhotoService
	RecommendationService services.RecommendationService
	GooglePhotosService   services.GooglePhotosService
}

func NewContainer() *Container {
	return &Container{}
}

func (c *Container) Initialize() error {
	if err := c.initConfig(); err != nil {
		return err
	}

	if err := c.initInfrastructure(); err != nil {
		return err
	}

	if err := c.initRepositories(); err != nil {
		return err
	}

	if err := c.initStorage(); err != nil {
		return err
	}

	if err := c.initServices(); err != nil {
		return err
	}

	if err := c.initWorkers(); err != nil {
		return err
	}

	if err := c.initScheduler(); err != nil {
		return err
	}

	return nil
}

func (c *Container) initConfig() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	c.Config = cfg
	logger.Startup("config_loaded", "Configuration loaded", map[string]interface{}{
		"env":     cfg.App.Env,
		"storage": cfg.Storage.Backend,
		"queue":   cfg.Queue.Backend,
	})
	return nil
}

func (c *Container) initInfrastructure() error {
	dbConfig := postgres.DatabaseConfig{
		Host:     c.Config.Database.Host,
		Port:     c.Config.Database.Port,
		User:     c.Config.Database.User,
		Password: c.Config.Database.Password,
		DBName:   c.Config.Database.DBName,
		SSLMode:  c.Config.Database.SSLMode,
	}

	db, err := postgres.NewDatabase(dbConfig)
	if err != nil {
		return err
	}
	c.DB = db
	logger.Startup("db_connected", "Database connected", nil)

	if err := postgres.Migrate(db); err != nil {
		return err
	}
	logger.Startup("db_migrated", "Database migrated", nil)

	redisClient, err := redis.NewRedisClient(c.Config.Redis)
	if err != nil {
		logger.StartupWarn("redis_connection_failed", "Redis connection failed, album cache disabled", map[string]interface{}{"error": err.Error()})
	} else {
		c.RedisClient = redisClient
		logger.Startup("redis_connected", "Redis connected", nil)
	}

	c.VisionClient = vision.NewClient(
		vision.WithGoogleBaseURL(c.Config.Vision.GoogleBaseURL),
		vision.WithTimeout(c.Config.Vision.Timeout),
	)
	logger.Startup("vision_client_initialized", "Vision client initialized", map[string]interface{}{"default_provider": c.Config.Vision.Provider})

	return nil
}

func (c *Container) initRepositories() error {
	c.AttachmentRepository = postgres.NewAttachmentRepository(c.DB)
	c.CategoryRepository = postgres.NewCategoryRepository(c.DB)
	c.PhotoRepository = postgres.NewPhotoRepository(c.DB)
	c.TagRepository = postgres.NewTagRepository(c.DB)
	c.KeywordRepository = postgres.NewKeywordRepository(c.DB)
	c.FaceRepository = postgres.NewFaceRepository(c.DB)
	c.ViewRepository = postgres.NewViewRepository(c.DB)
	c.SettingRepository = postgres.NewSettingRepository(c.DB)
	c.OAuthCredentialRepo = postgres.NewOAuthCredentialRepository(c.DB)
	c.AlbumMappingRepository = postgres.NewAlbumMappingRepository(c.DB)
	logger.Startup("repositories_initialized", "Repositories initialized", nil)
	return nil
}

func (c *Container) initStorage() error {
	store, err := storage.NewMediaStore(context.Background(), c.Config.Storage, c.AttachmentRepository)
	if err != nil {
		return fmt.Errorf("failed to initialize media store: %w", err)
	}
	c.MediaStore = store
	logger.Startup("media_store_initialized", "Media store initialized", map[string]interface{}{"backend": store.Backend()})
	return nil
}

func (c *Container) initServices() error {
	switch c.Config.Queue.Backend {
	case QueueBackendAsynq:
		c.Queue = worker.NewAsynqQueue(c.Config.Redis, c.Config.Enrichment)
	case "", QueueBackendMemory:
		c.Queue = worker.NewEnrichmentWorker(c.Config.Enrichment)
	default:
		return fmt.Errorf("unknown queue backend %q", c.Config.Queue.Backend)
	}

	events := websocketManager.Manager.Room(websocketManager.AdminRoom)

	c.AuthService = serviceimpl.NewAuthService(c.Config.Admin, c.Config.JWT)
	c.SettingsService = serviceimpl.NewSettingsService(c.SettingRepository, c.Config.Vision)

	c.EnrichmentService = serviceimpl.NewEnrichmentService(
		c.PhotoRepository,
		c.TagRepository,
		c.KeywordRepository,
		c.FaceRepository,
		c.CategoryRepository,
		c.SettingsService,
		c.MediaStore,
		c.VisionClient,
		c.Queue,
		events,
		c.Config.Enrichment.Delay,
	)

	c.PhotoService = serviceimpl.NewPhotoService(
		c.PhotoRepository,
		c.TagRepository,
		c.KeywordRepository,
		c.FaceRepository,
		c.ViewRepository,
		c.SettingsService,
		c.MediaStore,
		c.EnrichmentService,
	)

	c.RecommendationService = serviceimpl.NewRecommendationService(c.PhotoRepository, c.TagRepository)

	var albumCache serviceimpl.AlbumCache
	if c.RedisClient != nil {
		albumCache = redis.NewAlbumCache(c.RedisClient.Client(), c.Config.Redis.AlbumTTL)
	}

	c.GooglePhotosService = serviceimpl.NewGooglePhotosService(
		c.Config.GooglePhotos,
		googlephotos.NewOAuthClient(c.Config.GooglePhotos),
		googlephotos.NewLibraryClient(c.Config.GooglePhotos.LibraryURL, nil),
		c.OAuthCredentialRepo,
		c.AlbumMappingRepository,
		c.PhotoRepository,
		c.CategoryRepository,
		c.MediaStore,
		c.EnrichmentService,
		c.SettingsService,
		albumCache,
		events,
	)

	logger.Startup("services_initialized", "Services initialized", nil)
	return nil
}

// initWorkers starts the queue once the enrichment service it feeds exists.
func (c *Container) initWorkers() error {
	if c.Queue.Backend() == QueueBackendAsynq && c.RedisClient == nil {
		return fmt.Errorf("queue backend %q requires redis", QueueBackendAsynq)
	}
	if err := c.Queue.Start(c.EnrichmentService); err != nil {
		return fmt.Errorf("failed to start enrichment queue: %w", err)
	}
	logger.Startup("enrichment_queue_started", "Enrichment queue started", map[string]interface{}{"backend": c.Queue.Backend()})
	return nil
}

func (c *Container) initScheduler() error {
	c.Scheduler = scheduler.NewJobScheduler()

	if err := scheduler.RegisterGalleryJobs(c.Scheduler, c.Config, c.EnrichmentService, c.GooglePhotosService); err != nil {
		return fmt.Errorf("failed to register jobs: %w", err)
	}

	c.Scheduler.Start()
	logger.Startup("scheduler_started", "Job scheduler started", map[string]interface{}{"jobs": len(c.Scheduler.ListJobs())})
	return nil
}

func (c *Container) Cleanup() error {
	logger.Startup("cleanup_started", "Starting cleanup...", nil)

	if c.Scheduler != nil && c.Scheduler.IsRunning() {
		c.Scheduler.Stop()
	}

	if c.Queue != nil && c.Queue.IsRunning() {
		c.Queue.Stop()
		logger.Startup("enrichment_queue_stopped", "Enrichment queue stopped", nil)
	}

	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			logger.StartupWarn("redis_close_failed", "Failed to close Redis connection", map[string]interface{}{"error": err.Error()})
		} else {
			logger.Startup("redis_closed", "Redis connection closed", nil)
		}
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				logger.StartupWarn("db_close_failed", "Failed to close database connection", map[string]interface{}{"error": err.Error()})
			} else {
				logger.Startup("db_closed", "Database connection closed", nil)
			}
		}
	}

	logger.Startup("cleanup_completed", "Cleanup completed", nil)
	return nil
}

func (c *Container) GetConfig() *config.Config {
	return c.Config
}

func (c *Container) GetHandlerServices() *handlers.Services {
	return &handlers.Services{
		AuthService:           c.AuthService,
		PhotoService:          c.PhotoService,
		EnrichmentService:     c.EnrichmentService,
		RecommendationService: c.RecommendationService,
		GooglePhotosService:   c.GooglePhotosService,
		SettingsService:       c.SettingsService,
	}
}

func (c *Container) GetHandlerInfrastructure() *handlers.Infrastructure {
	infra := &handlers.Infrastructure{
		DB:              c.DB,
		Store:           c.MediaStore,
		Queue:           c.Queue,
		PhotoRepository: c.PhotoRepository,
	}
	if c.RedisClient != nil {
		infra.Redis = c.RedisClient
	}
	return infra
}
