package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/database/testutil"
	"github.com/FernandoVinha/TheManager/internal/mergeflow"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/reconcile"
	"github.com/FernandoVinha/TheManager/internal/remote/remotetest"
	"github.com/FernandoVinha/TheManager/pkg/mail"
)

type testEnv struct {
	db       *gorm.DB
	fake     *remotetest.Fake
	audit    *audit.Service
	invites  *InviteService
	users    *UserService
	projects *ProjectService
	tasks    *TaskService
	sent     []mail.Message
	now      time.Time
}

type envOption func(*envConfig)

type envConfig struct {
	sync   reconcile.Config
	mailer bool
}

func withSyncConfig(cfg reconcile.Config) envOption {
	return func(c *envConfig) { c.sync = cfg }
}

func withMailer() envOption {
	return func(c *envConfig) { c.mailer = true }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()

	var cfg envConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	env := &testEnv{
		db:   testutil.MustOpenTestDB(t, testutil.WithAutoMigrate()),
		fake: remotetest.New(),
		now:  time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC),
	}

	var err error
	env.audit, err = audit.NewService(env.db)
	require.NoError(t, err)

	reconciler, err := reconcile.New(env.db, env.fake, env.audit, cfg.sync)
	require.NoError(t, err)
	workflow, err := mergeflow.New(env.db, env.fake, mergeflow.Config{})
	require.NoError(t, err)

	var mailer mail.Mailer
	if cfg.mailer {
		mailer = mail.MailerFunc(func(_ context.Context, msg mail.Message) error {
			env.sent = append(env.sent, msg)
			return nil
		})
	}

	env.invites, err = NewInviteService(env.db, mailer, reconciler,
		WithInviteBaseURL("https://manager.example.com/"),
		WithInviteClock(func() time.Time { return env.now }),
	)
	require.NoError(t, err)
	env.users, err = NewUserService(env.db, env.audit, env.invites, reconciler)
	require.NoError(t, err)
	env.projects, err = NewProjectService(env.db, env.audit, reconciler, env.fake)
	require.NoError(t, err)
	env.tasks, err = NewTaskService(env.db, env.audit, workflow, env.fake)
	require.NoError(t, err)
	return env
}

// seedUser inserts a local user directly, bypassing reconciliation.
func (e *testEnv) seedUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := models.User{Username: username, Email: username + "@example.com", Password: "!unusable", IsActive: true}
	require.NoError(t, e.db.Create(&user).Error)
	return &user
}

func (e *testEnv) createProject(t *testing.T, owner *models.User) *models.Project {
	t.Helper()
	project, err := e.projects.Create(context.Background(), CreateProjectInput{
		Name:     "Payments",
		Key:      "pay",
		OwnerID:  owner.ID,
		RepoName: "payments",
	})
	require.NoError(t, err)
	return project
}

func (e *testEnv) createProjectNamed(t *testing.T, owner *models.User, name, key string) *models.Project {
	t.Helper()
	project, err := e.projects.Create(context.Background(), CreateProjectInput{Name: name, Key: key, OwnerID: owner.ID})
	require.NoError(t, err)
	return project
}

func strPtr(s string) *string { return &s }
