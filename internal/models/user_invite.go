package models

import "time"

// UserInvite is the single live credential-setup token of a user. Only the
// SHA-256 of the token is stored.
type UserInvite struct {
	BaseModel

	UserID    string     `gorm:"type:uuid;uniqueIndex;not null" json:"user_id"`
	TokenHash string     `gorm:"uniqueIndex;not null" json:"-"`
	ExpiresAt *time.Time `gorm:"index" json:"expires_at"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

// Expired reports whether the invite is past its expiry at now.
func (i *UserInvite) Expired(now time.Time) bool {
	return i.ExpiresAt != nil && !now.Before(*i.ExpiresAt)
}
