package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Admin        AdminConfig
	RateLimit    RateLimitConfig
	Storage      StorageConfig
	Vision       VisionConfig
	GooglePhotos GooglePhotosConfig
	Enrichment   EnrichmentConfig
	Queue        QueueConfig
	Scheduler    SchedulerConfig
}

type AppConfig struct {
	Name        string
	Port        string
	Env         string
	LogDir      string
	FrontendURL string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	AlbumTTL time.Duration
}

type JWTConfig struct {
	Secret string
	TTL    time.Duration
}

// AdminConfig holds the single gallery administrator account.
type AdminConfig struct {
	Username     string
	PasswordHash string // bcrypt
	LogToken     string // falls back to the JWT secret when empty
}

type RateLimitConfig struct {
	Enabled           bool
	MaxRequests       int
	WindowSeconds     int
	AuthMaxRequests   int
	AuthWindowSeconds int
}

// StorageConfig selects the media store backend ("local" or "s3").
type StorageConfig struct {
	Backend   string
	LocalDir  string
	CacheDir  string
	S3Bucket  string
	S3Region  string
	S3Prefix  string
	AccessKey string
	SecretKey string
	Endpoint  string // optional S3-compatible endpoint
}

// VisionConfig seeds the settings store when no admin value has been saved yet.
type VisionConfig struct {
	Provider      string
	GoogleAPIKey  string
	GoogleBaseURL string
	AWSAccessKey  string
	AWSSecretKey  string
	AWSRegion     string
	GeminiAPIKey  string
	GeminiModel   string
	Timeout       time.Duration
}

type GooglePhotosConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	LibraryURL   string
	ResyncCron   string
}

type EnrichmentConfig struct {
	Delay          time.Duration
	Workers        int
	QueueSize      int
	MaxRetries     int
	BaseRetryDelay time.Duration
	StuckAfter     time.Duration
}

// QueueConfig selects the enrichment queue backend ("memory" or "asynq").
type QueueConfig struct {
	Backend string
}

type SchedulerConfig struct {
	StuckCheckCron string
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		App: AppConfig{
			Name:        getEnv("APP_NAME", "Smart Gallery"),
			Port:        getEnv("APP_PORT", "3000"),
			Env:         getEnv("APP_ENV", "development"),
			LogDir:      getEnv("LOG_DIR", "logs"),
			FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "smart_gallery"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			AlbumTTL: getEnvDuration("REDIS_ALBUM_TTL", time.Hour),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key"),
			TTL:    getEnvDuration("JWT_TTL", 24*time.Hour),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			LogToken:     getEnv("ADMIN_TOKEN", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:           getEnv("RATE_LIMIT_ENABLED", "true") == "true",
			MaxRequests:       getEnvInt("RATE_LIMIT_MAX", 120),
			WindowSeconds:     getEnvInt("RATE_LIMIT_WINDOW", 60),
			AuthMaxRequests:   getEnvInt("RATE_LIMIT_AUTH_MAX", 10),
			AuthWindowSeconds: getEnvInt("RATE_LIMIT_AUTH_WINDOW", 60),
		},
		Storage: StorageConfig{
			Backend:   getEnv("STORAGE_BACKEND", "local"),
			LocalDir:  getEnv("STORAGE_LOCAL_DIR", "uploads"),
			CacheDir:  getEnv("STORAGE_CACHE_DIR", "cache"),
			S3Bucket:  getEnv("S3_BUCKET", ""),
			S3Region:  getEnv("S3_REGION", "us-east-1"),
			S3Prefix:  getEnv("S3_PREFIX", "gallery"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
		},
		Vision: VisionConfig{
			Provider:      getEnv("VISION_PROVIDER", "google"),
			GoogleAPIKey:  getEnv("GOOGLE_VISION_API_KEY", ""),
			GoogleBaseURL: getEnv("GOOGLE_VISION_BASE_URL", "https://vision.googleapis.com"),
			AWSAccessKey:  getEnv("AWS_ACCESS_KEY", ""),
			AWSSecretKey:  getEnv("AWS_SECRET_KEY", ""),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
			GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
			GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout:       getEnvDuration("VISION_TIMEOUT", 30*time.Second),
		},
		GooglePhotos: GooglePhotosConfig{
			ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
			ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
			RedirectURL:  getEnv("GOOGLE_PHOTOS_REDIRECT_URL", "http://localhost:3000/api/v1/google-photos/callback"),
			AuthURL:      getEnv("GOOGLE_AUTH_URL", "https://accounts.google.com/o/oauth2/v2/auth"),
			TokenURL:     getEnv("GOOGLE_TOKEN_URL", "https://oauth2.googleapis.com/token"),
			LibraryURL:   getEnv("GOOGLE_PHOTOS_LIBRARY_URL", "https://photoslibrary.googleapis.com"),
			ResyncCron:   getEnvAllowEmpty("GOOGLE_PHOTOS_RESYNC_CRON", "0 */6 * * *"),
		},
		Enrichment: EnrichmentConfig{
			Delay:          getEnvDuration("ENRICHMENT_DELAY", 5*time.Second),
			Workers:        getEnvInt("ENRICHMENT_WORKERS", 2),
			QueueSize:      getEnvInt("ENRICHMENT_QUEUE_SIZE", 256),
			MaxRetries:     getEnvInt("ENRICHMENT_MAX_RETRIES", 0),
			BaseRetryDelay: getEnvDuration("ENRICHMENT_RETRY_DELAY", 2*time.Second),
			StuckAfter:     getEnvDuration("ENRICHMENT_STUCK_AFTER", 15*time.Minute),
		},
		Queue: QueueConfig{
			Backend: getEnv("QUEUE_BACKEND", "memory"),
		},
		Scheduler: SchedulerConfig{
			StuckCheckCron: getEnv("ENRICHMENT_STUCK_CRON", "*/10 * * * *"),
		},
	}

	return config, nil
}

// RedisAddr returns host:port for go-redis and asynq.
func (c RedisConfig) RedisAddr() string {
	return c.Host + ":" + c.Port
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAllowEmpty keeps an explicitly empty value, which switches a job off.
func getEnvAllowEmpty(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
