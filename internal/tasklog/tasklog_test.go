package tasklog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/database/testutil"
	"github.com/FernandoVinha/TheManager/internal/models"
)

func seedTask(t *testing.T, db *gorm.DB) *models.Task {
	t.Helper()
	owner := models.User{Username: "owner", Email: "owner@example.com", Password: "!x"}
	require.NoError(t, db.Create(&owner).Error)
	project := models.Project{Name: "Payments", Key: "PAY", OwnerID: owner.ID, RepoOwner: "acme"}
	require.NoError(t, db.Create(&project).Error)
	task := models.Task{ProjectID: project.ID, Key: "1", Title: "Do it"}
	require.NoError(t, db.Create(&task).Error)
	return &task
}

func TestAppendAndList(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	task := seedTask(t, db)
	ctx := context.Background()

	_, err := Append(ctx, db, task.ID, Message{Origin: models.OriginSystem, Body: "first"})
	require.NoError(t, err)
	msg, err := Append(ctx, db, task.ID, Message{
		Origin:  models.OriginRemote,
		Body:    "second",
		Payload: `{"message":"merge conflict"}`,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"message":"merge conflict"}`, string(msg.Payload))

	messages, err := List(ctx, db, task.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, "first", messages[0].Body)
	require.Equal(t, models.OriginRemote, messages[1].Origin)
}

func TestAppendRejectsInvalidInput(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	task := seedTask(t, db)
	ctx := context.Background()

	_, err := Append(ctx, db, task.ID, Message{Origin: models.OriginUser, Body: "  "})
	require.ErrorIs(t, err, ErrEmptyBody)

	_, err = Append(ctx, db, task.ID, Message{Origin: "bot", Body: "hi"})
	require.Error(t, err)
}

func TestEncodePayload(t *testing.T) {
	payload, err := encodePayload("plain text body")
	require.NoError(t, err)
	require.JSONEq(t, `{"raw":"plain text body"}`, string(payload))

	payload, err = encodePayload(map[string]int{"number": 5})
	require.NoError(t, err)
	require.JSONEq(t, `{"number":5}`, string(payload))

	payload, err = encodePayload("")
	require.NoError(t, err)
	require.Nil(t, payload)
}
