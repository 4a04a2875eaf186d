package postgres

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"smart-gallery/domain/models"
	"smart-gallery/domain/repositories"
)

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	LogLevel logger.LogLevel
}

func NewDatabase(config DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		config.Host, config.User, config.Password, config.DBName, config.Port, config.SSLMode)

	level := config.LogLevel
	if level == 0 {
		level = logger.Warn
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return db, nil
}

// Migrate creates or updates every gallery table. It only uses portable DDL so the
// same schema can be built on SQLite.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Attachment{},
		&models.Category{},
		&models.Keyword{},
		&models.Photo{},
		&models.EnrichmentTransition{},
		&models.Tag{},
		&models.Face{},
		&models.Setting{},
		&models.OAuthCredential{},
		&models.AlbumMapping{},
		&models.PhotoView{},
	); err != nil {
		return fmt.Errorf("failed to run auto migrations: %w", err)
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return repositories.ErrNotFound
	}
	return err
}
