package models

import "gorm.io/datatypes"

// AuditLog records administrative actions and remote sync outcomes.
type AuditLog struct {
	BaseModel

	UserID   *string        `gorm:"type:uuid;index" json:"user_id"`
	Username string         `json:"username"`
	Action   string         `gorm:"not null;index" json:"action"`
	Resource string         `gorm:"index" json:"resource"`
	Result   string         `gorm:"not null" json:"result"`
	Metadata datatypes.JSON `json:"metadata,omitempty"`
}
