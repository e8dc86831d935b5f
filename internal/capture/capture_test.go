package capture

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FernandoVinha/TheManager/internal/database/testutil"
	"github.com/FernandoVinha/TheManager/internal/models"
)

func TestUserCaptureKeepsPreviousUsername(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := models.User{Username: "alice", Email: "alice@x.io", Password: "!"}
	require.NoError(t, db.Create(&user).Error)

	change, err := User(db, user.ID)
	require.NoError(t, err)
	require.Equal(t, "alice", change.PreviousUsername)
	require.False(t, change.Created)

	require.NoError(t, db.Model(&user).Update("username", "alice2").Error)
	require.True(t, change.UsernameChanged("alice2"))
	require.False(t, change.UsernameChanged("alice"))

	_, ok := change.PlaintextPassword()
	require.False(t, ok)
	change.RecordPlaintextPassword("s3cret")
	pw, ok := change.PlaintextPassword()
	require.True(t, ok)
	require.Equal(t, "s3cret", pw)

	_, err = User(db, "missing")
	require.True(t, IsNotFound(err))
}

func TestNewUserNeverReportsRename(t *testing.T) {
	change := NewUser("id")
	require.True(t, change.Created)
	require.False(t, change.UsernameChanged("anything"))
}

func TestMemberCapture(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	owner := models.User{Username: "owner", Email: "o@x.io", Password: "!"}
	dev := models.User{Username: "bob", Email: "bob@x.io", Password: "!"}
	require.NoError(t, db.Create(&owner).Error)
	require.NoError(t, db.Create(&dev).Error)
	project := models.Project{Name: "Proj", Key: "PRJ", OwnerID: owner.ID, RepoOwner: "acme"}
	require.NoError(t, db.Create(&project).Error)
	member := models.ProjectMember{ProjectID: project.ID, UserID: dev.ID, Role: models.RoleDeveloper}
	require.NoError(t, db.Create(&member).Error)

	require.True(t, NewMember(&member).RoleChanged(models.RoleDeveloper))

	change, err := Member(db, project.ID, dev.ID)
	require.NoError(t, err)
	require.Equal(t, "bob", change.Username)
	require.Equal(t, models.RoleDeveloper, change.PreviousRole)
	require.False(t, change.RoleChanged(models.RoleDeveloper))
	require.True(t, change.RoleChanged(models.RoleMaintainer))
}

func TestTaskEnteredVerified(t *testing.T) {
	cases := []struct {
		name     string
		change   TaskChange
		current  models.TaskStatus
		expected bool
	}{
		{"review to verified", TaskChange{PreviousStatus: models.StatusReview}, models.StatusVerified, true},
		{"failed to verified", TaskChange{PreviousStatus: models.StatusFailed}, models.StatusVerified, true},
		{"verified resave", TaskChange{PreviousStatus: models.StatusVerified}, models.StatusVerified, false},
		{"leaving verified", TaskChange{PreviousStatus: models.StatusVerified}, models.StatusDone, false},
		{"created verified", TaskChange{Created: true}, models.StatusVerified, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, tc.change.EnteredVerified(tc.current))
		})
	}
}
