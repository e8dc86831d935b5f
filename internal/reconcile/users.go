package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
	"github.com/FernandoVinha/TheManager/pkg/crypto"
)

// UserSaved reconciles a committed user insert or update. A user without a
// remote id takes the create path; a mirrored user takes the rename, patch
// and password path, each step independent of the others.
func (r *Reconciler) UserSaved(ctx context.Context, change *capture.UserChange) error {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", change.UserID).Error; err != nil {
		return fmt.Errorf("reconcile: load user: %w", err)
	}

	r.mirrorBaseURL(ctx, &user)

	if !user.Mirrored() {
		r.createUser(ctx, &user, change)
		return nil
	}

	name := user.Username
	if change.UsernameChanged(user.Username) {
		if !r.renameUser(ctx, &user, change.PreviousUsername) {
			// The remote account still carries the old login.
			name = change.PreviousUsername
		}
	}
	r.patchUser(ctx, &user, name)
	r.mirrorPassword(ctx, &user, name, change)
	return nil
}

// ResyncUser re-runs reconciliation for userID from its current state.
func (r *Reconciler) ResyncUser(ctx context.Context, userID string) error {
	return r.UserSaved(ctx, &capture.UserChange{UserID: userID})
}

// UserDeleting removes the remote account of user. It is called before the
// local row is deleted and never blocks that deletion.
func (r *Reconciler) UserDeleting(ctx context.Context, user *models.User) {
	s := userStep(user, "delete")
	if err := r.remote.DeleteUser(ctx, user.Username, false); err != nil {
		r.failed(ctx, s, err, true)
		return
	}
	r.succeeded(ctx, s)
}

func userStep(user *models.User, name string) step {
	return step{
		entity:   "user",
		name:     name,
		resource: "user:" + user.ID,
		fields:   []zap.Field{zap.String("user_id", user.ID), zap.String("username", user.Username)},
		meta:     map[string]any{"username": user.Username},
	}
}

func (r *Reconciler) mirrorBaseURL(ctx context.Context, user *models.User) {
	base := r.remote.BaseURL()
	if base == "" || user.Remote.BaseURL == base {
		return
	}
	if err := r.updateColumns(ctx, &models.User{}, user.ID, map[string]any{
		models.ColumnUserRemoteBaseURL: base,
	}); err != nil {
		r.log.Warn("failed to mirror remote base url", zap.String("user_id", user.ID), zap.Error(err))
		return
	}
	user.Remote.BaseURL = base
}

func (r *Reconciler) createUser(ctx context.Context, user *models.User, change *capture.UserChange) {
	s := userStep(user, "create")

	password, mirrored := change.PlaintextPassword()
	if !r.cfg.MirrorPasswords || !mirrored {
		random, err := crypto.RandomPassword(r.cfg.RandomPasswordLength)
		if err != nil {
			r.failed(ctx, s, err, false)
			return
		}
		password, mirrored = random, false
	}

	opts := remote.CreateUserOptions{
		Username:                user.Username,
		Email:                   user.Email,
		Password:                password,
		MustChangePassword:      false,
		Visibility:              user.Preferences.Visibility,
		FullName:                user.DisplayName(),
		MaxRepoCreation:         user.Preferences.MaxRepoCreation,
		AllowCreateOrganization: user.Preferences.AllowCreateOrganization,
		Restricted:              user.Preferences.Restricted,
		ProhibitLogin:           user.Preferences.ProhibitLogin,
		Website:                 user.Preferences.Website,
		Location:                user.Preferences.Location,
		Description:             user.Preferences.Description,
	}
	if user.IsSuperuser {
		admin := true
		opts.Admin = &admin
	}
	if opts.ProhibitLogin == nil {
		opts.ProhibitLogin = r.cfg.ProhibitLogin
	}

	created, err := r.remote.CreateUser(ctx, opts)
	if err != nil {
		r.failed(ctx, s, err, false)
		return
	}

	values := map[string]any{
		models.ColumnUserRemoteID:        created.ID,
		models.ColumnUserRemoteAvatarURL: created.AvatarURL,
	}
	if mirrored {
		values[models.ColumnUserPasswordMirroredAt] = r.now()
	}
	if err := r.updateColumns(ctx, &models.User{}, user.ID, values); err != nil {
		r.log.Error("failed to store remote user mirror", zap.String("user_id", user.ID), zap.Error(err))
	}
	s.meta["remote_id"] = created.ID
	r.succeeded(ctx, s)
}

// renameUser reports whether the remote login now matches the local username.
func (r *Reconciler) renameUser(ctx context.Context, user *models.User, previous string) bool {
	s := userStep(user, "rename")
	s.meta["previous_username"] = previous
	s.fields = append(s.fields, zap.String("previous_username", previous))

	if err := r.remote.RenameUser(ctx, previous, user.Username); err != nil {
		r.failed(ctx, s, err, false)
		return false
	}
	r.succeeded(ctx, s)
	return true
}

func (r *Reconciler) patchUser(ctx context.Context, user *models.User, remoteName string) {
	s := userStep(user, "patch")

	updated, err := r.remote.EditUser(ctx, remoteName, editOptions(user))
	if errors.Is(err, remote.ErrNoChanges) {
		r.noop(ctx, s)
		return
	}
	if err != nil {
		r.failed(ctx, s, err, false)
		return
	}
	if updated != nil && updated.AvatarURL != "" && updated.AvatarURL != user.Remote.AvatarURL {
		if err := r.updateColumns(ctx, &models.User{}, user.ID, map[string]any{
			models.ColumnUserRemoteAvatarURL: updated.AvatarURL,
		}); err != nil {
			r.log.Warn("failed to mirror avatar url", zap.String("user_id", user.ID), zap.Error(err))
		}
	}
	r.succeeded(ctx, s)
}

// editOptions always carries email and admin; preferences left empty locally are omitted.
func editOptions(user *models.User) remote.EditUserOptions {
	email := user.Email
	admin := user.IsSuperuser
	prefs := user.Preferences

	opts := remote.EditUserOptions{
		Email:                   &email,
		Admin:                   &admin,
		MaxRepoCreation:         prefs.MaxRepoCreation,
		AllowCreateOrganization: prefs.AllowCreateOrganization,
		AllowGitHook:            prefs.AllowGitHook,
		AllowImportLocal:        prefs.AllowImportLocal,
		Restricted:              prefs.Restricted,
		ProhibitLogin:           prefs.ProhibitLogin,
	}
	opts.FullName = nonEmpty(user.DisplayName())
	opts.Visibility = nonEmpty(prefs.Visibility)
	opts.Website = nonEmpty(prefs.Website)
	opts.Location = nonEmpty(prefs.Location)
	opts.Description = nonEmpty(prefs.Description)
	return opts
}

func nonEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func (r *Reconciler) mirrorPassword(ctx context.Context, user *models.User, remoteName string, change *capture.UserChange) {
	if !r.cfg.MirrorPasswords {
		return
	}
	password, ok := change.PlaintextPassword()
	if !ok {
		return
	}

	s := userStep(user, "password")
	if err := r.remote.ChangePassword(ctx, remoteName, password); err != nil {
		r.failed(ctx, s, err, false)
		return
	}
	if err := r.updateColumns(ctx, &models.User{}, user.ID, map[string]any{
		models.ColumnUserPasswordMirroredAt: r.now(),
	}); err != nil {
		r.log.Warn("failed to record password mirror time", zap.String("user_id", user.ID), zap.Error(err))
	}
	r.succeeded(ctx, s)
}
