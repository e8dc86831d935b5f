package models

import "gorm.io/datatypes"

// MessageOrigin tags who produced a task message.
type MessageOrigin string

const (
	OriginUser   MessageOrigin = "user"
	OriginRemote MessageOrigin = "remote"
	OriginSystem MessageOrigin = "system"
)

// Valid reports whether o is a known origin.
func (o MessageOrigin) Valid() bool {
	switch o {
	case OriginUser, OriginRemote, OriginSystem:
		return true
	}
	return false
}

// TaskMessage is an append-only entry of a task's activity stream.
type TaskMessage struct {
	BaseModel

	TaskID     string         `gorm:"type:uuid;not null;index" json:"task_id"`
	Origin     MessageOrigin  `gorm:"size:16;not null" json:"origin"`
	AuthorName string         `json:"author_name,omitempty"`
	Body       string         `gorm:"type:text;not null" json:"body"`
	Payload    datatypes.JSON `json:"payload,omitempty"`

	Task *Task `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
