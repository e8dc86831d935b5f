package models

import (
	"strings"
	"time"
)

// Column names written by narrow mirror updates.
const (
	ColumnUserRemoteID           = "remote_id"
	ColumnUserRemoteAvatarURL    = "remote_avatar_url"
	ColumnUserRemoteBaseURL      = "remote_base_url"
	ColumnUserPasswordMirroredAt = "remote_password_mirrored_at"
)

// UserMirrorColumns are excluded from full saves; only reconciliation writes them.
var UserMirrorColumns = []string{
	ColumnUserRemoteID,
	ColumnUserRemoteAvatarURL,
	ColumnUserRemoteBaseURL,
	ColumnUserPasswordMirroredAt,
}

// User is a local account mirrored to the remote git service.
type User struct {
	BaseModel

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Email    string `gorm:"uniqueIndex;not null" json:"email"`
	Password string `gorm:"not null" json:"-"`

	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`

	IsActive    bool `gorm:"default:false" json:"is_active"`
	IsSuperuser bool `gorm:"default:false" json:"is_superuser"`

	Remote      UserMirror      `gorm:"embedded;embeddedPrefix:remote_" json:"remote"`
	Preferences UserPreferences `gorm:"embedded;embeddedPrefix:pref_" json:"preferences"`
}

// UserMirror holds values that are only ever written from remote responses.
type UserMirror struct {
	ID                 *int64     `gorm:"index" json:"id"`
	AvatarURL          string     `json:"avatar_url"`
	BaseURL            string     `json:"base_url"`
	PasswordMirroredAt *time.Time `json:"password_mirrored_at"`
}

// UserPreferences are locally authored account settings pushed to the remote.
// Empty values are never sent on update.
type UserPreferences struct {
	Visibility              string `gorm:"size:16" json:"visibility,omitempty"`
	FullName                string `json:"full_name,omitempty"`
	MaxRepoCreation         *int   `json:"max_repo_creation,omitempty"`
	AllowCreateOrganization *bool  `json:"allow_create_organization,omitempty"`
	AllowGitHook            *bool  `json:"allow_git_hook,omitempty"`
	AllowImportLocal        *bool  `json:"allow_import_local,omitempty"`
	Restricted              *bool  `json:"restricted,omitempty"`
	ProhibitLogin           *bool  `json:"prohibit_login,omitempty"`
	Website                 string `json:"website,omitempty"`
	Location                string `json:"location,omitempty"`
	Description             string `json:"description,omitempty"`
}

// Mirrored reports whether the remote account has been created.
func (u *User) Mirrored() bool {
	return u.Remote.ID != nil
}

// DisplayName prefers the explicit remote full name, then first and last name.
func (u *User) DisplayName() string {
	if name := strings.TrimSpace(u.Preferences.FullName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}
