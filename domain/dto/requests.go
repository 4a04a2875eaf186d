package dto

import "time"

type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}

type ImportAlbumRequest struct {
	AlbumTitle string `json:"album_title" validate:"max=255"`
	CategoryID string `json:"category_id" validate:"omitempty,uuid"`
}

type ConnectResponse struct {
	URL string `json:"url"`
}

// UpdateSettingsRequest replaces the listed keys; keys not present are left untouched.
type UpdateSettingsRequest struct {
	Settings map[string]string `json:"settings" validate:"required,min=1,dive,keys,required,max=100,endkeys"`
}
