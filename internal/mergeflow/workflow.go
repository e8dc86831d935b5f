// Package mergeflow resolves verified tasks by merging their fork into the
// project repository.
package mergeflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
	"github.com/FernandoVinha/TheManager/internal/tasklog"
	"github.com/FernandoVinha/TheManager/pkg/logger"
	"github.com/FernandoVinha/TheManager/pkg/metrics"
)

// DefaultMergeStyle is the merge strategy requested from the remote.
const DefaultMergeStyle = "merge"

// MessageNoFork is recorded when a verified task has no fork to merge.
const MessageNoFork = "No fork metadata on task; skipping pull request and merge."

// Remote is the part of the remote API the workflow drives.
type Remote interface {
	GetRepo(ctx context.Context, owner, name string) (*remote.Repository, error)
	CreatePullRequest(ctx context.Context, owner, name string, opts remote.CreatePullRequestOptions) (*remote.PullRequest, error)
	MergePullRequest(ctx context.Context, owner, name string, number int, opts remote.MergePullRequestOptions) error
}

// Config selects how pull requests are merged.
type Config struct {
	MergeStyle             string
	DeleteBranchAfterMerge bool
}

// Outcome is how a workflow run ended.
type Outcome string

const (
	OutcomeNotTriggered Outcome = "not_triggered"
	OutcomeSkipped      Outcome = "skipped"
	OutcomeDone         Outcome = "done"
	OutcomeFailed       Outcome = "failed"
)

// Workflow opens and merges the pull request of a task entering verified.
type Workflow struct {
	db     *gorm.DB
	remote Remote
	cfg    Config
	log    *zap.Logger
}

// New constructs a Workflow.
func New(db *gorm.DB, client Remote, cfg Config) (*Workflow, error) {
	if db == nil {
		return nil, errors.New("mergeflow: db is required")
	}
	if client == nil {
		return nil, errors.New("mergeflow: remote client is required")
	}
	if strings.TrimSpace(cfg.MergeStyle) == "" {
		cfg.MergeStyle = DefaultMergeStyle
	}
	return &Workflow{db: db, remote: client, cfg: cfg, log: logger.WithModule("mergeflow")}, nil
}

// TaskSaved runs the workflow when the committed write moved the task into
// verified. Any other write, including a re-save while already verified,
// returns OutcomeNotTriggered without touching the remote.
func (w *Workflow) TaskSaved(ctx context.Context, change *capture.TaskChange) (Outcome, error) {
	var task models.Task
	if err := w.db.WithContext(ctx).Preload("Project").First(&task, "id = ?", change.TaskID).Error; err != nil {
		return "", fmt.Errorf("mergeflow: load task: %w", err)
	}
	if !change.EnteredVerified(task.Status) {
		return OutcomeNotTriggered, nil
	}
	if task.Project == nil {
		return "", errors.New("mergeflow: task has no project")
	}

	outcome := w.run(ctx, &task)
	metrics.MergeRuns.WithLabelValues(string(outcome)).Inc()
	return outcome, nil
}

func (w *Workflow) run(ctx context.Context, task *models.Task) Outcome {
	project := task.Project
	log := w.log.With(
		zap.String("task_id", task.ID),
		zap.String("task", project.Key+"-"+task.Key),
	)

	if !task.HasFork() {
		w.message(ctx, task, models.OriginSystem, MessageNoFork, nil)
		log.Info("verified task has no fork; nothing to merge")
		return OutcomeSkipped
	}

	baseOwner, baseRepo := project.RepoOwner, project.EffectiveRepoName()

	headBranch, baseBranch, err := w.resolveBranches(ctx, task)
	if err != nil {
		return w.fail(ctx, log, task, "reading repositories failed", err)
	}

	title := fmt.Sprintf("Task %s-%s: merge to %s", project.Key, task.Key, baseBranch)
	pr, err := w.remote.CreatePullRequest(ctx, baseOwner, baseRepo, remote.CreatePullRequestOptions{
		Head:  task.ForkOwner + ":" + headBranch,
		Base:  baseBranch,
		Title: title,
		Body:  pullRequestBody(task),
	})
	if err != nil {
		return w.fail(ctx, log, task, "creating the pull request failed", err)
	}
	w.message(ctx, task, models.OriginRemote, fmt.Sprintf("Pull request #%d created", pr.Number), map[string]any{
		"number": pr.Number,
		"url":    pr.HTMLURL,
		"head":   task.ForkOwner + ":" + headBranch,
		"base":   baseBranch,
	})

	err = w.remote.MergePullRequest(ctx, baseOwner, baseRepo, pr.Number, remote.MergePullRequestOptions{
		Do:                     w.cfg.MergeStyle,
		MergeTitleField:        "Merge " + title,
		MergeMessageField:      "Auto-merge from task " + task.Key,
		DeleteBranchAfterMerge: w.cfg.DeleteBranchAfterMerge,
	})
	if err != nil {
		return w.fail(ctx, log, task, fmt.Sprintf("merging pull request #%d failed", pr.Number), err)
	}
	w.message(ctx, task, models.OriginRemote, fmt.Sprintf("Pull request #%d merged", pr.Number), map[string]any{
		"number": pr.Number,
		"style":  w.cfg.MergeStyle,
	})

	w.setStatus(ctx, log, task, models.StatusDone)
	log.Info("task merged", zap.Int("pull_request", pr.Number))
	return OutcomeDone
}

// resolveBranches reads the fork and the integration repository
// independently, falling back to the project default branch.
func (w *Workflow) resolveBranches(ctx context.Context, task *models.Task) (head, base string, err error) {
	project := task.Project
	fallback := project.EffectiveDefaultBranch()

	var fork, integration *remote.Repository
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		repo, err := w.remote.GetRepo(gctx, task.ForkOwner, task.ForkRepo)
		fork = repo
		return err
	})
	g.Go(func() error {
		repo, err := w.remote.GetRepo(gctx, project.RepoOwner, project.EffectiveRepoName())
		integration = repo
		return err
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}

	return branchOr(fork, fallback), branchOr(integration, fallback), nil
}

func branchOr(repo *remote.Repository, fallback string) string {
	if repo != nil && strings.TrimSpace(repo.DefaultBranch) != "" {
		return repo.DefaultBranch
	}
	return fallback
}

func pullRequestBody(task *models.Task) string {
	body := task.Title
	if desc := strings.TrimSpace(task.Description); desc != "" {
		body += "\n\n" + desc
	}
	return body
}

func (w *Workflow) fail(ctx context.Context, log *zap.Logger, task *models.Task, what string, err error) Outcome {
	payload := map[string]any{"error": err.Error()}
	if status := remote.StatusOf(err); status != 0 {
		payload["status"] = status
	}
	if body := remote.BodyOf(err); body != "" {
		payload["body"] = body
	}
	w.message(ctx, task, models.OriginRemote, "Merge failed: "+what+": "+err.Error(), payload)
	w.setStatus(ctx, log, task, models.StatusFailed)
	log.Warn("merge workflow failed", zap.String("step", what), zap.Error(err))
	return OutcomeFailed
}

func (w *Workflow) message(ctx context.Context, task *models.Task, origin models.MessageOrigin, body string, payload any) {
	if _, err := tasklog.Append(ctx, w.db, task.ID, tasklog.Message{Origin: origin, Body: body, Payload: payload}); err != nil {
		w.log.Error("failed to append task message", zap.String("task_id", task.ID), zap.Error(err))
	}
}

// setStatus is a column-scoped write so the terminal status never re-enters the workflow.
func (w *Workflow) setStatus(ctx context.Context, log *zap.Logger, task *models.Task, status models.TaskStatus) {
	err := w.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", task.ID).
		UpdateColumn(models.ColumnTaskStatus, status).Error
	if err != nil {
		log.Error("failed to store task status", zap.String("status", string(status)), zap.Error(err))
		return
	}
	task.Status = status
}
