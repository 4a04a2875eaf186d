package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"smart-gallery/domain/models"
)

type ConnectionState string

const (
	ConnectionDisconnected ConnectionState = "disconnected"
	ConnectionConnected    ConnectionState = "connected"
	ConnectionTokenExpired ConnectionState = "token_expired"
)

type ConnectionStatus struct {
	Configured bool            `json:"configured"`
	State      ConnectionState `json:"state"`
	ExpiresAt  *time.Time      `json:"expires_at,omitempty"`
}

type ImportRequest struct {
	AlbumID    string
	AlbumTitle string
	CategoryID *uuid.UUID
}

// ImportResult reports imported and skipped (already imported) items. Items that fail
// to download or store are counted in neither.
type ImportResult struct {
	AlbumID    string    `json:"album_id"`
	CategoryID uuid.UUID `json:"category_id"`
	Imported   int       `json:"imported"`
	Skipped    int       `json:"skipped"`
}

type GooglePhotosService interface {
	Status(ctx context.Context) (*ConnectionStatus, error)
	AuthURL(ctx context.Context, state string) (string, error)
	HandleCallback(ctx context.Context, code string) error
	Disconnect(ctx context.Context) error

	// AccessToken returns a usable access token, refreshing it when empty or expired.
	AccessToken(ctx context.Context) (string, error)

	SyncAlbums(ctx context.Context) ([]models.AlbumMapping, error)
	GetAlbums(ctx context.Context) ([]models.AlbumMapping, error)
	ImportAlbum(ctx context.Context, req ImportRequest) (*ImportResult, error)
	ResyncMappedAlbums(ctx context.Context) ([]ImportResult, error)
}
