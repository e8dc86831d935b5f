package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/database"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
	apperrors "github.com/FernandoVinha/TheManager/pkg/errors"
)

const (
	defaultCommitLimit = 10
	maxCommitLimit     = 50
)

// CreateProjectInput describes a new project and its integration repository.
type CreateProjectInput struct {
	Name          string
	Key           string
	Description   string
	Methodology   models.Methodology
	OwnerID       string
	RepoOwner     string
	RepoName      string
	RepoPrivate   *bool
	DefaultBranch string
	AutoInit      *bool
}

// ListProjectsOptions controls pagination for project listing.
type ListProjectsOptions struct {
	Page     int
	PageSize int
	Query    string
}

// ProjectService manages projects and memberships. Committed writes are
// handed to the ProjectSyncer after commit.
type ProjectService struct {
	db    *gorm.DB
	audit *audit.Service
	sync  ProjectSyncer
	repos RepoBrowser

	defaultBranch string
}

// ProjectOption customises a ProjectService.
type ProjectOption func(*ProjectService)

// WithDefaultBranch sets the branch given to projects that name none.
func WithDefaultBranch(branch string) ProjectOption {
	return func(s *ProjectService) {
		if branch = strings.TrimSpace(branch); branch != "" {
			s.defaultBranch = branch
		}
	}
}

// NewProjectService constructs a ProjectService. sync and repos may be nil.
func NewProjectService(db *gorm.DB, auditSvc *audit.Service, sync ProjectSyncer, repos RepoBrowser, opts ...ProjectOption) (*ProjectService, error) {
	if db == nil {
		return nil, errors.New("project service: db is required")
	}
	svc := &ProjectService{db: db, audit: auditSvc, sync: sync, repos: repos, defaultBranch: models.DefaultBranch}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Create stores the project. Repository creation and the owner membership
// follow after commit.
func (s *ProjectService) Create(ctx context.Context, input CreateProjectInput) (*models.Project, error) {
	ctx = ensureContext(ctx)

	name := strings.TrimSpace(input.Name)
	key := strings.ToUpper(strings.TrimSpace(input.Key))
	if name == "" {
		return nil, apperrors.NewBadRequest("name is required")
	}
	if key == "" {
		return nil, apperrors.NewBadRequest("key is required")
	}
	methodology := input.Methodology
	if methodology == "" {
		methodology = models.MethodologyScrum
	}
	if !methodology.Valid() {
		return nil, apperrors.NewBadRequest("unknown methodology")
	}

	var owner models.User
	if err := s.db.WithContext(ctx).First(&owner, "id = ?", input.OwnerID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("project service: load owner: %w", err)
	}

	project := &models.Project{
		Name:          name,
		Key:           key,
		Description:   strings.TrimSpace(input.Description),
		Methodology:   methodology,
		OwnerID:       owner.ID,
		RepoOwner:     strings.TrimSpace(input.RepoOwner),
		RepoName:      strings.TrimSpace(input.RepoName),
		RepoPrivate:   true,
		DefaultBranch: strings.TrimSpace(input.DefaultBranch),
		AutoInit:      true,
	}
	if project.RepoOwner == "" {
		project.RepoOwner = owner.Username
	}
	if project.DefaultBranch == "" {
		project.DefaultBranch = s.defaultBranch
	}
	if input.RepoPrivate != nil {
		project.RepoPrivate = *input.RepoPrivate
	}
	if input.AutoInit != nil {
		project.AutoInit = *input.AutoInit
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		// Mirror columns are owned by reconciliation.
		if err := tx.Omit(models.ProjectMirrorColumns...).Create(project).Error; err != nil {
			return err
		}
		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("project.create", project.ID, s.sync.ProjectCreated(ctx, project.ID))
			})
		}
		return nil
	})
	if err != nil {
		if isUniqueConstraintError(err) {
			return nil, apperrors.NewConflict("project name or key already exists")
		}
		return nil, fmt.Errorf("project service: create project: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "project.create",
		Resource: project.ID,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"key": project.Key, "repo_owner": project.RepoOwner},
	})
	return s.Get(ctx, project.ID)
}

// Get loads a project with its owner.
func (s *ProjectService) Get(ctx context.Context, id string) (*models.Project, error) {
	var project models.Project
	err := s.db.WithContext(ensureContext(ctx)).Preload("Owner").First(&project, "id = ?", id).Error
	if isNotFound(err) {
		return nil, ErrProjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get project: %w", err)
	}
	return &project, nil
}

// List returns projects ordered by name.
func (s *ProjectService) List(ctx context.Context, opts ListProjectsOptions) ([]models.Project, int64, error) {
	page, perPage := normalisePage(opts.Page, opts.PageSize)

	query := s.db.WithContext(ensureContext(ctx)).Model(&models.Project{})
	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		like := "%" + q + "%"
		// Struct conditions quote the key column, which is reserved in MySQL.
		query = query.Where(s.db.Where("LOWER(name) LIKE ?", like).Or(&models.Project{Key: strings.ToUpper(q)}))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("project service: count projects: %w", err)
	}

	var projects []models.Project
	if err := query.Preload("Owner").
		Order("name ASC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&projects).Error; err != nil {
		return nil, 0, fmt.Errorf("project service: list projects: %w", err)
	}
	return projects, total, nil
}

// Resync re-runs repository and membership reconciliation for the project.
func (s *ProjectService) Resync(ctx context.Context, id string) (*models.Project, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	if s.sync != nil {
		if err := s.sync.ResyncProject(ctx, id); err != nil {
			return nil, fmt.Errorf("project service: resync: %w", err)
		}
	}
	return s.Get(ctx, id)
}

// Members lists the memberships of a project with their users.
func (s *ProjectService) Members(ctx context.Context, projectID string) ([]models.ProjectMember, error) {
	ctx = ensureContext(ctx)
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}

	var members []models.ProjectMember
	if err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ?", projectID).
		Order("created_at ASC").
		Find(&members).Error; err != nil {
		return nil, fmt.Errorf("project service: list members: %w", err)
	}
	return members, nil
}

// SaveMember adds userID to the project or changes its role. Every save is
// reconciled, so re-adding an existing member re-applies its permission.
func (s *ProjectService) SaveMember(ctx context.Context, projectID, userID string, role models.MemberRole) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)
	if role == "" {
		role = models.RoleDeveloper
	}
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown role")
	}
	if _, err := s.Get(ctx, projectID); err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Select("id").First(&models.User{}, "id = ?", userID).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("project service: load user: %w", err)
	}

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		change, err := capture.Member(tx, projectID, userID)
		switch {
		case capture.IsNotFound(err):
			member := models.ProjectMember{ProjectID: projectID, UserID: userID, Role: role}
			if err := tx.Create(&member).Error; err != nil {
				return err
			}
			change = capture.NewMember(&member)
		case err != nil:
			return err
		default:
			if err := tx.Model(&models.ProjectMember{}).Where("id = ?", change.MemberID).Update("role", role).Error; err != nil {
				return err
			}
		}

		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("member.save", change.MemberID, s.sync.MemberSaved(ctx, change))
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("project service: save member: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "member.save",
		Resource: "project:" + projectID,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"user_id": userID, "role": string(role)},
	})
	return s.member(ctx, projectID, userID)
}

// UpdateMemberRole changes the role of an existing member. Setting the role
// the member already has writes nothing and makes no remote call.
func (s *ProjectService) UpdateMemberRole(ctx context.Context, projectID, userID string, role models.MemberRole) (*models.ProjectMember, error) {
	ctx = ensureContext(ctx)
	if !role.Valid() {
		return nil, apperrors.NewBadRequest("unknown role")
	}
	change, err := capture.Member(s.db.WithContext(ctx), projectID, userID)
	if capture.IsNotFound(err) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: load member: %w", err)
	}
	if !change.RoleChanged(role) {
		return s.member(ctx, projectID, userID)
	}
	return s.SaveMember(ctx, projectID, userID, role)
}

// RemoveMember deletes the membership and revokes repository access after commit.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID string) error {
	ctx = ensureContext(ctx)

	err := database.WithTransaction(ctx, s.db, func(tx *gorm.DB, after *database.AfterCommit) error {
		// The username is captured before the row goes away.
		change, err := capture.Member(tx, projectID, userID)
		if err != nil {
			return err
		}
		if err := tx.Delete(&models.ProjectMember{}, "id = ?", change.MemberID).Error; err != nil {
			return err
		}
		if s.sync != nil {
			after.Defer(func(ctx context.Context) {
				logSyncError("member.remove", change.MemberID, s.sync.MemberRemoved(ctx, change))
			})
		}
		return nil
	})
	if capture.IsNotFound(err) {
		return ErrMemberNotFound
	}
	if err != nil {
		return fmt.Errorf("project service: remove member: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		Action:   "member.remove",
		Resource: "project:" + projectID,
		Result:   audit.ResultSuccess,
		Metadata: map[string]any{"user_id": userID},
	})
	return nil
}

// RecentCommits lists the latest commits of branch on the project repository.
// An empty branch means the project's default branch.
func (s *ProjectService) RecentCommits(ctx context.Context, projectID, branch string, limit int) ([]remote.Commit, error) {
	ctx = ensureContext(ctx)
	project, err := s.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.RepoReady() || s.repos == nil {
		return nil, ErrRepoNotReady
	}

	branch = strings.TrimSpace(branch)
	if branch == "" {
		branch = project.EffectiveDefaultBranch()
	}
	if limit <= 0 || limit > maxCommitLimit {
		limit = defaultCommitLimit
	}

	commits, err := s.repos.ListCommits(ctx, project.RepoOwner, project.EffectiveRepoName(), remote.ListCommitsOptions{
		SHA:   branch,
		Limit: limit,
	})
	if err != nil {
		return nil, apperrors.ErrBadGateway.WithInternal(err)
	}
	return commits, nil
}

func (s *ProjectService) member(ctx context.Context, projectID, userID string) (*models.ProjectMember, error) {
	var member models.ProjectMember
	err := s.db.WithContext(ctx).
		Preload("User").
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if isNotFound(err) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("project service: get member: %w", err)
	}
	return &member, nil
}
