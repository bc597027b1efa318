package models

import (
	"time"
)

// Credential holds the OAuth tokens obtained for a user's X account.
// There is at most one live credential per user; CompleteAuthorization
// replaces any existing row (upsert).
type Credential struct {
	ID           string `gorm:"primaryKey"                      json:"id"`
	UserID       string `gorm:"not null;uniqueIndex"            json:"userId"`
	AccessToken  string `gorm:"type:text;not null"              json:"-"`
	RefreshToken string `gorm:"type:text"                       json:"-"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Username     string     `json:"username"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"-"`
}

// IsExpired reports whether the access token can no longer be used.
// The expiry instant itself counts as expired.
func (c *Credential) IsExpired() bool {
	if c.ExpiresAt == nil {
		return false
	}
	return !time.Now().Before(*c.ExpiresAt)
}
