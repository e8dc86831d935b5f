package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

func statusPtr(s models.TaskStatus) *models.TaskStatus { return &s }

func TestTaskServiceCreateNumbersKeys(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "alice"))

	first, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Add refunds"})
	require.NoError(t, err)
	second, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Add invoices", Priority: models.PriorityHigh})
	require.NoError(t, err)

	require.Equal(t, "1", first.Key)
	require.Equal(t, "2", second.Key)
	require.Equal(t, models.StatusTodo, first.Status)
	require.Equal(t, models.PriorityMedium, first.Priority)

	_, err = env.tasks.Create(ctx, project.ID, CreateTaskInput{Key: "2", Title: "Duplicate"})
	require.ErrorIs(t, err, apperrors.ErrConflict)
	_, err = env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: " "})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = env.tasks.Create(ctx, "missing", CreateTaskInput{Title: "x"})
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestTaskServiceAutoKeySkipsExplicitNumbers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "alice"))

	explicit, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Key: "2", Title: "Chosen number"})
	require.NoError(t, err)
	require.Equal(t, "2", explicit.Key)
	_, err = env.tasks.Create(ctx, project.ID, CreateTaskInput{Key: "API", Title: "Named key"})
	require.NoError(t, err)

	auto, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Numbered"})
	require.NoError(t, err)
	require.Equal(t, "3", auto.Key)

	other := env.createProjectNamed(t, env.seedUser(t, "bob"), "Ledger", "LED")
	first, err := env.tasks.Create(ctx, other.ID, CreateTaskInput{Title: "Independent"})
	require.NoError(t, err)
	require.Equal(t, "1", first.Key)
}

func TestTaskServiceForkThenVerifyMerges(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "acme"))

	task, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Add refunds"})
	require.NoError(t, err)

	task, err = env.tasks.Fork(ctx, task.ID, ForkTaskInput{Owner: "bob"})
	require.NoError(t, err)
	require.Equal(t, "bob", task.ForkOwner)
	require.Equal(t, "payments", task.ForkRepo)
	require.Equal(t, "https://git.example.com/bob/payments", task.ForkURL)
	fork, _ := env.fake.Last("fork_repo")
	require.Equal(t, []string{"acme", "payments", "bob"}, fork.Args)

	env.fake.Reset()
	task, err = env.tasks.Update(ctx, task.ID, UpdateTaskInput{Status: statusPtr(models.StatusVerified)})
	require.NoError(t, err)
	require.Equal(t, models.StatusDone, task.Status)

	pr, _ := env.fake.Last("create_pull")
	opts := pr.Body.(remote.CreatePullRequestOptions)
	require.Equal(t, "bob:main", opts.Head)
	require.Equal(t, "main", opts.Base)
	require.Equal(t, "Task PAY-1: merge to main", opts.Title)
	require.Equal(t, 1, env.fake.Count("merge_pull"))

	messages, err := env.tasks.Messages(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	// Saving the terminal task again starts nothing.
	env.fake.Reset()
	_, err = env.tasks.Update(ctx, task.ID, UpdateTaskInput{Description: strPtr("follow-up")})
	require.NoError(t, err)
	require.Empty(t, env.fake.Ops())
}

func TestTaskServiceVerifyWithoutFork(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "carol"))
	task, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Spike"})
	require.NoError(t, err)
	env.fake.Reset()

	task, err = env.tasks.Update(ctx, task.ID, UpdateTaskInput{Status: statusPtr(models.StatusVerified)})
	require.NoError(t, err)
	require.Equal(t, models.StatusVerified, task.Status)
	require.Empty(t, env.fake.Ops())

	_, err = env.tasks.Update(ctx, task.ID, UpdateTaskInput{Status: statusPtr(models.StatusVerified)})
	require.NoError(t, err)

	messages, err := env.tasks.Messages(ctx, task.ID)
	require.NoError(t, err)
	require.Len(t, messages, 1, "re-saving a verified task does not re-run the workflow")
	require.Equal(t, models.OriginSystem, messages[0].Origin)
}

func TestTaskServiceUpdateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "dave"))
	task, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Spike"})
	require.NoError(t, err)

	_, err = env.tasks.Update(ctx, task.ID, UpdateTaskInput{Status: statusPtr("archived")})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = env.tasks.Update(ctx, "missing", UpdateTaskInput{Title: strPtr("x")})
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceForkRequiresRepository(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.fake.Missing["ghost"] = true

	owner := env.seedUser(t, "erin")
	project, err := env.projects.Create(ctx, CreateProjectInput{Name: "Ghost", Key: "GH", OwnerID: owner.ID, RepoOwner: "ghost"})
	require.NoError(t, err)
	task, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Spike"})
	require.NoError(t, err)

	_, err = env.tasks.Fork(ctx, task.ID, ForkTaskInput{Owner: "bob"})
	require.ErrorIs(t, err, ErrRepoNotReady)
	_, err = env.tasks.Fork(ctx, task.ID, ForkTaskInput{})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}

func TestTaskServiceMessagesUseActor(t *testing.T) {
	env := newTestEnv(t)
	project := env.createProject(t, env.seedUser(t, "frank"))
	task, err := env.tasks.Create(context.Background(), project.ID, CreateTaskInput{Title: "Spike"})
	require.NoError(t, err)

	ctx := audit.WithActor(context.Background(), audit.Actor{UserID: "u-1", Username: "frank"})
	msg, err := env.tasks.AddMessage(ctx, task.ID, "Looks good", map[string]any{"lgtm": true})
	require.NoError(t, err)
	require.Equal(t, models.OriginUser, msg.Origin)
	require.Equal(t, "frank", msg.AuthorName)
	require.JSONEq(t, `{"lgtm":true}`, string(msg.Payload))

	_, err = env.tasks.AddMessage(ctx, task.ID, "  ", nil)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
	_, err = env.tasks.AddMessage(ctx, "missing", "hello", nil)
	require.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskServiceList(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	project := env.createProject(t, env.seedUser(t, "gina"))
	first, err := env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "One"})
	require.NoError(t, err)
	_, err = env.tasks.Create(ctx, project.ID, CreateTaskInput{Title: "Two"})
	require.NoError(t, err)
	_, err = env.tasks.Update(ctx, first.ID, UpdateTaskInput{Status: statusPtr(models.StatusInProgress)})
	require.NoError(t, err)

	tasks, total, err := env.tasks.List(ctx, project.ID, ListTasksOptions{Status: models.StatusInProgress})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, first.ID, tasks[0].ID)

	_, _, err = env.tasks.List(ctx, project.ID, ListTasksOptions{Status: "archived"})
	require.ErrorIs(t, err, apperrors.ErrBadRequest)
}
