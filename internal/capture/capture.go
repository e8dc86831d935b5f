// Package capture computes the deltas a local write hands to reconciliation.
// Each delta is built inside the writing transaction from the last persisted
// row, before the update overwrites it, and is never stored.
package capture

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/models"
)

// UserChange describes a committed user write.
type UserChange struct {
	UserID           string
	Created          bool
	PreviousUsername string

	plaintext    string
	hasPlaintext bool
}

// NewUser returns the change of a user inserted in the current transaction.
func NewUser(userID string) *UserChange {
	return &UserChange{UserID: userID, Created: true}
}

// User reads the persisted row of userID. Call it before applying the update.
func User(tx *gorm.DB, userID string) (*UserChange, error) {
	var row models.User
	err := tx.Select("id", "username").First(&row, "id = ?", userID).Error
	if err != nil {
		return nil, fmt.Errorf("capture: load user: %w", err)
	}
	return &UserChange{UserID: row.ID, PreviousUsername: row.Username}, nil
}

// RecordPlaintextPassword remembers the credential set in this transaction so
// it can be mirrored after commit. It must be called where the password is set.
func (c *UserChange) RecordPlaintextPassword(password string) {
	c.plaintext = password
	c.hasPlaintext = password != ""
}

// PlaintextPassword returns the credential recorded in this transaction, if any.
func (c *UserChange) PlaintextPassword() (string, bool) {
	return c.plaintext, c.hasPlaintext
}

// UsernameChanged reports whether current differs from the captured username.
func (c *UserChange) UsernameChanged(current string) bool {
	return !c.Created && c.PreviousUsername != "" && c.PreviousUsername != current
}

// MemberChange describes a committed membership write.
type MemberChange struct {
	MemberID     string
	ProjectID    string
	UserID       string
	Username     string
	Created      bool
	PreviousRole models.MemberRole
}

// NewMember returns the change of a membership inserted in the current transaction.
func NewMember(member *models.ProjectMember) *MemberChange {
	return &MemberChange{
		MemberID:  member.ID,
		ProjectID: member.ProjectID,
		UserID:    member.UserID,
		Created:   true,
	}
}

// Member reads the persisted membership of userID in projectID together with
// the member's username, which a later user rename or delete cannot erase.
func Member(tx *gorm.DB, projectID, userID string) (*MemberChange, error) {
	var row models.ProjectMember
	err := tx.Preload("User").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&row).Error
	if err != nil {
		return nil, fmt.Errorf("capture: load member: %w", err)
	}
	change := &MemberChange{
		MemberID:     row.ID,
		ProjectID:    row.ProjectID,
		UserID:       row.UserID,
		PreviousRole: row.Role,
	}
	if row.User != nil {
		change.Username = row.User.Username
	}
	return change, nil
}

// RoleChanged reports whether current differs from the captured role.
func (c *MemberChange) RoleChanged(current models.MemberRole) bool {
	return c.Created || c.PreviousRole != current
}

// TaskChange describes a committed task write.
type TaskChange struct {
	TaskID         string
	Created        bool
	PreviousStatus models.TaskStatus
}

// NewTask returns the change of a task inserted in the current transaction.
func NewTask(taskID string) *TaskChange {
	return &TaskChange{TaskID: taskID, Created: true}
}

// Task reads the persisted status of taskID.
func Task(tx *gorm.DB, taskID string) (*TaskChange, error) {
	var row models.Task
	err := tx.Select("id", "status").First(&row, "id = ?", taskID).Error
	if err != nil {
		return nil, fmt.Errorf("capture: load task: %w", err)
	}
	return &TaskChange{TaskID: row.ID, PreviousStatus: row.Status}, nil
}

// EnteredVerified reports a transition into verified from any other status.
// Inserts never count as a transition.
func (c *TaskChange) EnteredVerified(current models.TaskStatus) bool {
	return !c.Created && current == models.StatusVerified && c.PreviousStatus != models.StatusVerified
}

// IsNotFound reports whether err came from capturing a row that does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
