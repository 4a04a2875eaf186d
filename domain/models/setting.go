package models

import "time"

// Setting is one key of the installation-wide settings and credential store.
type Setting struct {
	Key       string    `gorm:"primaryKey;size:100" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// OAuthCredentialID is the primary key of the single Google Photos credential row.
const OAuthCredentialID = 1

type OAuthCredential struct {
	ID           uint       `gorm:"primaryKey"`
	ClientID     string
	ClientSecret string
	AccessToken  string
	RefreshToken string
	Expiry       *time.Time
	UpdatedAt    time.Time
}

func (OAuthCredential) TableName() string {
	return "oauth_credentials"
}

// Expired reports whether the stored access token is past its expiry.
func (c *OAuthCredential) Expired(now time.Time) bool {
	return c.Expiry != nil && !c.Expiry.IsZero() && now.After(*c.Expiry)
}
