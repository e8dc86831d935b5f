package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/reconcile"
	"github.com/FernandoVinha/TheManager/internal/remote/remotetest"
	"github.com/FernandoVinha/TheManager/pkg/crypto"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

func TestUserServiceCreateDerivesUsernameAndMirrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, invite, err := env.users.Create(ctx, CreateUserInput{Email: " Alice@Example.com "})
	require.NoError(t, err)
	require.Equal(t, "alice", user.Username)
	require.Equal(t, "alice@example.com", user.Email)
	require.False(t, user.IsActive)
	require.True(t, crypto.IsUnusablePassword(user.Password))

	require.NotNil(t, invite)
	require.GreaterOrEqual(t, len(invite.Token), 56)
	require.Contains(t, invite.Link, "https://manager.example.com/invites/accept?token=")
	require.False(t, invite.Emailed)

	require.True(t, user.Mirrored(), "reconciliation runs after commit")
	require.Equal(t, env.fake.Base, user.Remote.BaseURL)
	require.Equal(t, 1, env.fake.Count("create_user"))

	second, _, err := env.users.Create(ctx, CreateUserInput{Email: "alice@other.io"})
	require.NoError(t, err)
	require.Equal(t, "alice2", second.Username)

	var logged int64
	require.NoError(t, env.db.Model(&models.AuditLog{}).Where("action = ?", "user.create").Count(&logged).Error)
	require.EqualValues(t, 2, logged)
}

func TestUserServiceCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, _, err := env.users.Create(ctx, CreateUserInput{Email: "not-an-email"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, _, err = env.users.Create(ctx, CreateUserInput{Username: "bob", Email: "bob@example.com"})
	require.NoError(t, err)
	_, _, err = env.users.Create(ctx, CreateUserInput{Username: "robert", Email: "BOB@example.com"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUserServiceCreateSurvivesRemoteFailure(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fake.Fail("create_user", remotetest.HTTPError("create_user", http.StatusInternalServerError, "boom"))

	user, _, err := env.users.Create(ctx, CreateUserInput{Email: "carol@example.com"})
	require.NoError(t, err)
	require.False(t, user.Mirrored())

	env.fake.Fail("create_user", nil)
	user, err = env.users.Resync(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, user.Mirrored())
	require.Equal(t, 2, env.fake.Count("create_user"))
}

func TestUserServiceUpdateRenamesThenPatches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.users.Create(ctx, CreateUserInput{Email: "dave@example.com"})
	require.NoError(t, err)
	remoteID := *user.Remote.ID
	env.fake.Reset()

	updated, err := env.users.Update(ctx, user.ID, UpdateUserInput{
		Username:  strPtr("david"),
		FirstName: strPtr("  David "),
	})
	require.NoError(t, err)
	require.Equal(t, "david", updated.Username)
	require.Equal(t, "David", updated.FirstName)
	require.Equal(t, remoteID, *updated.Remote.ID, "mirror columns are never overwritten by saves")

	require.Equal(t, []string{"rename_user", "edit_user"}, env.fake.Ops())
	rename, _ := env.fake.Last("rename_user")
	require.Equal(t, []string{"dave", "david"}, rename.Args)
	edit, _ := env.fake.Last("edit_user")
	require.Equal(t, []string{"david"}, edit.Args)
}

func TestUserServiceUpdateMissingUser(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.users.Update(context.Background(), "missing", UpdateUserInput{FirstName: strPtr("x")})
	require.ErrorIs(t, err, ErrUserNotFound)

	_, err = env.users.Update(context.Background(), env.seedUser(t, "erin").ID, UpdateUserInput{Username: strPtr(" ")})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestUserServiceSetPasswordMirrorsWhenEnabled(t *testing.T) {
	env := newTestEnv(t, withSyncConfig(reconcile.Config{MirrorPasswords: true}))
	ctx := context.Background()

	user, _, err := env.users.Create(ctx, CreateUserInput{Email: "frank@example.com"})
	require.NoError(t, err)
	env.fake.Reset()

	require.NoError(t, env.users.SetPassword(ctx, user.ID, "correct horse"))
	require.Equal(t, 1, env.fake.Count("change_password"))

	stored, err := env.users.Get(ctx, user.ID)
	require.NoError(t, err)
	require.True(t, crypto.VerifyPassword(stored.Password, "correct horse"))
	require.NotNil(t, stored.Remote.PasswordMirroredAt)

	require.ErrorIs(t, env.users.SetPassword(ctx, user.ID, "short"), apperrors.ErrBadRequest)
	require.ErrorIs(t, env.users.SetPassword(ctx, "missing", "long enough"), ErrUserNotFound)
}

func TestUserServiceDeleteRemovesRemoteFirst(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	user, _, err := env.users.Create(ctx, CreateUserInput{Email: "gina@example.com"})
	require.NoError(t, err)
	env.fake.Fail("delete_user", errors.New("connection refused"))

	require.NoError(t, env.users.Delete(ctx, user.ID))
	require.Equal(t, 1, env.fake.Count("delete_user"))
	call, _ := env.fake.Last("delete_user")
	require.Equal(t, false, call.Body)

	_, err = env.users.Get(ctx, user.ID)
	require.ErrorIs(t, err, ErrUserNotFound)

	var invites int64
	require.NoError(t, env.db.Model(&models.UserInvite{}).Where("user_id = ?", user.ID).Count(&invites).Error)
	require.Zero(t, invites)
}

func TestUserServiceDeleteRefusesProjectOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser(t, "hank")
	env.createProject(t, owner)
	env.fake.Reset()

	require.ErrorIs(t, env.users.Delete(context.Background(), owner.ID), ErrUserOwnsProjects)
	require.Zero(t, env.fake.Count("delete_user"))
}

func TestUserServiceList(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser(t, "ivy")
	env.seedUser(t, "jack")
	inactive := false
	require.NoError(t, env.db.Create(&models.User{Username: "kim", Email: "kim@example.com", Password: "!"}).Error)

	users, total, err := env.users.List(context.Background(), ListUsersOptions{Filters: UserFilters{Query: "J"}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "jack", users[0].Username)

	users, total, err = env.users.List(context.Background(), ListUsersOptions{Filters: UserFilters{IsActive: &inactive}})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "kim", users[0].Username)
}

func TestSanitizeUsername(t *testing.T) {
	require.Equal(t, "john.doe", sanitizeUsername("John.Doe"))
	require.Equal(t, "ab", sanitizeUsername("a+b"))
	require.Equal(t, "user", sanitizeUsername("+++"))
}
