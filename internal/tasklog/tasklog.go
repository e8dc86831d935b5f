// Package tasklog keeps the append-only activity stream of a task.
package tasklog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/models"
)

// ErrEmptyBody is returned when a message has no text.
var ErrEmptyBody = errors.New("tasklog: message body is required")

// Message is a new entry to append.
type Message struct {
	Origin     models.MessageOrigin
	AuthorName string
	Body       string
	Payload    any
}

// Append stores msg for taskID. A non-nil Payload is stored as JSON; raw
// JSON documents are kept verbatim and any other string is wrapped as
// {"raw": "..."}.
func Append(ctx context.Context, db *gorm.DB, taskID string, msg Message) (*models.TaskMessage, error) {
	body := strings.TrimSpace(msg.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}
	if !msg.Origin.Valid() {
		return nil, fmt.Errorf("tasklog: unknown origin %q", msg.Origin)
	}

	payload, err := encodePayload(msg.Payload)
	if err != nil {
		return nil, fmt.Errorf("tasklog: encode payload: %w", err)
	}

	row := &models.TaskMessage{
		TaskID:     taskID,
		Origin:     msg.Origin,
		AuthorName: strings.TrimSpace(msg.AuthorName),
		Body:       body,
		Payload:    payload,
	}
	if err := db.WithContext(ctx).Create(row).Error; err != nil {
		return nil, fmt.Errorf("tasklog: append: %w", err)
	}
	return row, nil
}

// List returns the messages of taskID, oldest first.
func List(ctx context.Context, db *gorm.DB, taskID string) ([]models.TaskMessage, error) {
	var messages []models.TaskMessage
	err := db.WithContext(ctx).
		Where("task_id = ?", taskID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("tasklog: list: %w", err)
	}
	return messages, nil
}

func encodePayload(v any) (datatypes.JSON, error) {
	switch p := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(p) == "" {
			return nil, nil
		}
		if json.Valid([]byte(p)) {
			return datatypes.JSON(p), nil
		}
		return marshal(map[string]string{"raw": p})
	case []byte:
		return encodePayload(string(p))
	case json.RawMessage:
		return encodePayload(string(p))
	default:
		return marshal(p)
	}
}

func marshal(v any) (datatypes.JSON, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(encoded), nil
}
