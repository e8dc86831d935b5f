package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
	"github.com/FernandoVinha/TheManager/internal/tasklog"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

// CreateTaskInput describes a new task. An empty Key is assigned the next
// number within the project.
type CreateTaskInput struct {
	Key         string
	Title       string
	Description string
	Priority    models.TaskPriority
	AssigneeID  *string
	ReporterID  *string
}

// UpdateTaskInput enumerates mutable task attributes. Status changes are
// permissive; entering verified starts the merge workflow.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	AssigneeID  *string
	ReporterID  *string
	ForkOwner   *string
	ForkRepo    *string
	ForkURL     *string
}

// ForkTaskInput names the owner that receives the task fork.
type ForkTaskInput struct {
	Owner string
	Name  string
}

// ListTasksOptions filters tasks of a project.
type ListTasksOptions struct {
	Page     int
	PageSize int
	Status   models.TaskStatus
}

// TaskService manages tasks, their forks and their message streams.
type TaskService struct {
	db       *gorm.DB
	audit    *audit.Service
	workflow TaskWorkflow
	repos    RepoBrowser
}

// NewTaskService constructs a TaskService. workflow and repos may be nil.
func NewTaskService(db *gorm.DB, auditSvc *audit.Service, workflow TaskWorkflow, repos RepoBrowser) (*TaskService, error) {
	if db == nil {
		return nil, errors.New("task service: db is required")
	}
	return &TaskService{db: db, audit: auditSvc, workflow: workflow, repos: repos}, nil
}

// Create adds a task to projectID.
func (s *TaskService) Create(ctx context.Context, projectID string, input CreateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewBadRequest("title is required")
	}
	priority := input.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.Valid() {
		return nil, apperrors.NewBadRequest("unknown priority")
	}

	if err := s.db.WithContext(ctx).Select("id").First(&models.Project{}, "id = ?", projectID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("task service: load project: %w", err)
	}

	task := &models.Task{
		ProjectID:   projectID,
		Key:         strings.ToUpper(strings.TrimSpace(input.Key)),
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      models.StatusTodo,
		Priority:    priority,
		AssigneeID:  emptyToNil(trimPtr(input.AssigneeID)),
		ReporterID:  emptyToNil(trimPtr(input.ReporterID)),
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		if task.Key == "" {
			key, err := nextTaskKey(tx, projectID)
			if err != nil {
				return err
			}
			task.Key = key
		}
		if err := tx.Create(task).Error; err != nil {
			return err
		}
		s.deferWorkflow(after, capture.NewTask(task.ID))
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("task key already exists in this project")
		}
		return nil, fmt.Errorf("task service: create task: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "task.create",
		Resource: task.ID,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"project_id": projectID, "key": task.Key},
	})
	return s.Get(ctx, task.ID)
}

// Get loads a task with its people.
func (s *TaskService) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	err := s.db.WithContext(ensureContext(ctx)).
		Preload("Assignee").
		Preload("Reporter").
		First(&task, "id = ?", id).Error
	if isNotFound(err) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: get task: %w", err)
	}
	return &task, nil
}

// List returns the tasks of a project, oldest first.
func (s *TaskService) List(ctx context.Context, projectID string, opts ListTasksOptions) ([]models.Task, int64, error) {
	ctx = ensureContext(ctx)
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	if err := s.db.WithContext(ctx).Select("id").First(&models.Project{}, "id = ?", projectID).Error; err != nil {
		if isNotFound(err) {
			return nil, 0, ErrProjectNotFound
		}
		return nil, 0, fmt.Errorf("task service: load project: %w", err)
	}

	query := s.db.WithContext(ctx).Model(&models.Task{}).Where("project_id = ?", projectID)
	if opts.Status != "" {
		if !opts.Status.Valid() {
			return nil, 0, apperrors.NewBadRequest("unknown status")
		}
		query = query.Where("status = ?", opts.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: count tasks: %w", err)
	}

	var tasks []models.Task
	if err := query.Preload("Assignee").
		Order("created_at ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&tasks).Error; err != nil {
		return nil, 0, fmt.Errorf("task service: list tasks: %w", err)
	}
	return tasks, total, nil
}

// Update applies input and hands the committed change to the merge
// workflow. The returned task reflects any terminal status it reached.
func (s *TaskService) Update(ctx context.Context, id string, input UpdateTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		change, err := capture.Task(tx, id)
		if err != nil {
			return err
		}

		var task models.Task
		if err := tx.First(&task, "id = ?", id).Error; err != nil {
			return err
		}
		if err := applyTaskUpdate(&task, input); err != nil {
			return err
		}
		if err := tx.Save(&task).Error; err != nil {
			return err
		}
		s.deferWorkflow(after, change)
		return nil
	})
	switch {
	case err == nil:
	case isNotFound(err), capture.IsNotFound(err):
		return nil, ErrTaskNotFound
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		return nil, fmt.Errorf("task service: update task: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{Action: "task.update", Resource: id, Result: audit.ResultSuccess})
	return s.Get(ctx, id)
}

// Fork creates the working fork of the task on the remote, acting as the
// receiving owner, and stores its coordinates on the task.
func (s *TaskService) Fork(ctx context.Context, id string, input ForkTaskInput) (*models.Task, error) {
	ctx = ensureContext(ctx)

	owner := strings.TrimSpace(input.Owner)
	if owner == "" {
		return nil, apperrors.NewBadRequest("owner is required")
	}

	var task models.Task
	err := s.db.WithContext(ctx).Preload("Project").First(&task, "id = ?", id).Error
	if isNotFound(err) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("task service: load task: %w", err)
	}
	if task.Project == nil || !task.Project.RepoReady() || s.repos == nil {
		return nil, ErrRepoNotReady
	}

	repo, err := s.repos.ForkRepo(ctx, task.Project.RepoOwner, task.Project.EffectiveRepoName(),
		remote.ForkOptions{Name: strings.TrimSpace(input.Name)}, owner)
	if err != nil {
		return nil, apperrors.ErrBadGateway.WithInternal(err)
	}

	forkOwner, forkName := owner, repo.Name
	if repo.Owner != nil && repo.Owner.Login != "" {
		forkOwner = repo.Owner.Login
	}
	if forkName == "" {
		forkName = task.Project.EffectiveRepoName()
	}
	forkURL := repo.HTMLURL
	if forkURL == "" {
		forkURL = s.repos.RepoWebURL(forkOwner, forkName)
	}

	return s.Update(ctx, id, UpdateTaskInput{ForkOwner: &forkOwner, ForkRepo: &forkName, ForkURL: &forkURL})
}

// Messages returns the activity stream of the task.
func (s *TaskService) Messages(ctx context.Context, id string) ([]models.TaskMessage, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	messages, err := tasklog.List(ctx, s.db, id)
	if err != nil {
		return nil, fmt.Errorf("task service: %w", err)
	}
	return messages, nil
}

// AddMessage appends a user message authored by the actor of ctx.
func (s *TaskService) AddMessage(ctx context.Context, id, body string, payload any) (*models.TaskMessage, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}

	author := ""
	if actor, ok := audit.ActorFrom(ctx); ok {
		author = actor.Username
	}
	msg, err := tasklog.Append(ctx, s.db, id, tasklog.Message{
		Origin:     models.OriginUser,
		AuthorName: author,
		Body:       body,
		Payload:    payload,
	})
	if errors.Is(err, tasklog.ErrEmptyBody) {
		return nil, apperrors.NewBadRequest("message body is required")
	}
	if err != nil {
		return nil, fmt.Errorf("task service: %w", err)
	}
	return msg, nil
}

func (s *TaskService) deferWorkflow(after *database.AfterCommit, change *capture.TaskChange) {
	if s.workflow == nil {
		return
	}
	after.Defer(func(ctx context.Context) {
		_, err := s.workflow.TaskSaved(ctx, change)
		logSyncError("task.workflow", change.TaskID, err)
	})
}

func applyTaskUpdate(task *models.Task, input UpdateTaskInput) error {
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return apperrors.NewBadRequest("title cannot be empty")
		}
		task.Title = title
	}
	if v := trimPtr(input.Description); v != nil {
		task.Description = *v
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewBadRequest("unknown status")
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return apperrors.NewBadRequest("unknown priority")
		}
		task.Priority = *input.Priority
	}
	if input.AssigneeID != nil {
		task.AssigneeID = emptyToNil(trimPtr(input.AssigneeID))
	}
	if input.ReporterID != nil {
		task.ReporterID = emptyToNil(trimPtr(input.ReporterID))
	}
	if v := trimPtr(input.ForkOwner); v != nil {
		task.ForkOwner = *v
	}
	if v := trimPtr(input.ForkRepo); v != nil {
		task.ForkRepo = *v
	}
	if v := trimPtr(input.ForkURL); v != nil {
		task.ForkURL = *v
	}
	return nil
}

// nextTaskKey numbers tasks per project: 1, 2, 3, ... It continues after the
// highest numeric key so explicitly chosen numbers are never reissued.
func nextTaskKey(tx *gorm.DB, projectID string) (string, error) {
	var keys []string
	if err := tx.Model(&models.Task{}).Where("project_id = ?", projectID).Pluck("key", &keys).Error; err != nil {
		return "", fmt.Errorf("list task keys: %w", err)
	}
	var highest int64
	for _, key := range keys {
		if n, err := strconv.ParseInt(key, 10, 64); err == nil && n > highest {
			highest = n
		}
	}
	return strconv.FormatInt(highest+1, 10), nil
}

func emptyToNil(value *string) *string {
	if value == nil || *value == "" {
		return nil
	}
	return value
}
