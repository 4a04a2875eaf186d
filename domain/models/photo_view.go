package models

import (
	"time"

	"github.com/google/uuid"
)

type PhotoView struct {
	PhotoID    uuid.UUID `gorm:"primaryKey;type:uuid" json:"photo_id"`
	ViewCount  int64     `gorm:"not null;default:0" json:"view_count"`
	LastViewed time.Time `json:"last_viewed"`
}

func (PhotoView) TableName() string {
	return "photo_views"
}
