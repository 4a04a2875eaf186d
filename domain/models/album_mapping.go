package models

import (
	"time"

	"github.com/google/uuid"
)

// AlbumMapping links an external Google Photos album to a local category and caches its listing.
type AlbumMapping struct {
	AlbumID           string     `gorm:"primaryKey" json:"album_id"`
	Title             string     `json:"title"`
	MediaItemsCount   int64      `json:"media_items_count"`
	CoverPhotoBaseURL string     `json:"cover_photo_base_url,omitempty"`
	CategoryID        *uuid.UUID `gorm:"type:uuid" json:"category_id,omitempty"`
	LastImportedAt    *time.Time `json:"last_imported_at,omitempty"`
	SyncedAt          time.Time  `json:"synced_at"`
}

func (AlbumMapping) TableName() string {
	return "album_mappings"
}
