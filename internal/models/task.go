package models

import "strings"

// ColumnTaskStatus is written by the merge workflow's terminal update.
const ColumnTaskStatus = "status"

// TaskStatus is a step of the task life cycle.
type TaskStatus string

const (
	StatusTodo       TaskStatus = "todo"
	StatusInProgress TaskStatus = "in_progress"
	StatusReview     TaskStatus = "review"
	StatusVerified   TaskStatus = "verified"
	StatusDone       TaskStatus = "done"
	StatusFailed     TaskStatus = "failed"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusVerified, StatusDone, StatusFailed:
		return true
	}
	return false
}

// TaskPriority orders work within a project.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
	PriorityUrgent TaskPriority = "urgent"
)

// Valid reports whether p is a known priority.
func (p TaskPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Task is a unit of work whose changes live on a fork of the project repository.
type Task struct {
	BaseModel

	ProjectID   string       `gorm:"type:uuid;not null;uniqueIndex:idx_task_project_key" json:"project_id"`
	Key         string       `gorm:"not null;uniqueIndex:idx_task_project_key" json:"key"`
	Title       string       `gorm:"not null" json:"title"`
	Description string       `json:"description"`
	Status      TaskStatus   `gorm:"size:16;not null;default:todo;index" json:"status"`
	Priority    TaskPriority `gorm:"size:16;not null;default:medium" json:"priority"`

	AssigneeID *string `gorm:"type:uuid;index" json:"assignee_id"`
	ReporterID *string `gorm:"type:uuid;index" json:"reporter_id"`

	ForkOwner string `json:"fork_owner"`
	ForkRepo  string `json:"fork_repo"`
	ForkURL   string `json:"fork_url"`

	Project  *Project `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Assignee *User    `gorm:"constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Reporter *User    `gorm:"constraint:OnDelete:SET NULL" json:"reporter,omitempty"`
}

// HasFork reports whether the task's working fork is known.
func (t *Task) HasFork() bool {
	return strings.TrimSpace(t.ForkOwner) != "" && strings.TrimSpace(t.ForkRepo) != ""
}
