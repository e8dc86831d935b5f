package reconcile

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
)

// ProjectCreated creates the integration repository of a committed project
// and makes sure its creator holds an owner membership.
func (r *Reconciler) ProjectCreated(ctx context.Context, projectID string) error {
	project, err := r.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	r.createRepo(ctx, project)

	member, created, err := r.ensureOwnerMembership(ctx, project)
	if err != nil {
		return err
	}
	if created {
		return r.MemberSaved(ctx, capture.NewMember(member))
	}
	return nil
}

// ResyncProject creates the repository if it is still missing and then
// re-applies the collaborator permission of every member.
func (r *Reconciler) ResyncProject(ctx context.Context, projectID string) error {
	project, err := r.loadProject(ctx, projectID)
	if err != nil {
		return err
	}

	if !project.RepoReady() {
		r.createRepo(ctx, project)
	}
	if _, _, err := r.ensureOwnerMembership(ctx, project); err != nil {
		return err
	}
	if !project.RepoReady() {
		return nil
	}

	var members []models.ProjectMember
	if err := r.db.WithContext(ctx).Preload("User").Where("project_id = ?", project.ID).Find(&members).Error; err != nil {
		return fmt.Errorf("reconcile: list members: %w", err)
	}
	for i := range members {
		r.addCollaborator(ctx, project, &members[i])
	}
	return nil
}

// MemberSaved grants the member's current role on the project repository,
// on creation and on every later save. Nothing is sent while the repository
// mirror is not populated.
func (r *Reconciler) MemberSaved(ctx context.Context, change *capture.MemberChange) error {
	var member models.ProjectMember
	err := r.db.WithContext(ctx).
		Preload("Project").
		Preload("User").
		Where("project_id = ? AND user_id = ?", change.ProjectID, change.UserID).
		First(&member).Error
	if err != nil {
		return fmt.Errorf("reconcile: load member: %w", err)
	}
	if member.Project == nil || member.User == nil {
		return errors.New("reconcile: member is missing its project or user")
	}
	r.addCollaborator(ctx, member.Project, &member)
	return nil
}

// MemberRemoved revokes the repository access of a deleted membership.
// Failures are warnings only.
func (r *Reconciler) MemberRemoved(ctx context.Context, change *capture.MemberChange) error {
	project, err := r.loadProject(ctx, change.ProjectID)
	if err != nil {
		return err
	}

	s := memberStep(project, change.Username, "remove")
	if !project.RepoReady() {
		r.skipped(ctx, s, "repository not created yet")
		return nil
	}
	if err := r.remote.RemoveCollaborator(ctx, project.RepoOwner, project.EffectiveRepoName(), change.Username); err != nil {
		r.failed(ctx, s, err, true)
		return nil
	}
	r.succeeded(ctx, s)
	return nil
}

func (r *Reconciler) loadProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, "id = ?", projectID).Error; err != nil {
		return nil, fmt.Errorf("reconcile: load project: %w", err)
	}
	return &project, nil
}

func projectStep(project *models.Project, name string) step {
	return step{
		entity:   "project",
		name:     name,
		resource: "project:" + project.ID,
		fields: []zap.Field{
			zap.String("project_id", project.ID),
			zap.String("project", project.Name),
			zap.String("repo", project.RepoOwner+"/"+project.EffectiveRepoName()),
		},
		meta: map[string]any{
			"repo_owner": project.RepoOwner,
			"repo_name":  project.EffectiveRepoName(),
		},
	}
}

func memberStep(project *models.Project, username, name string) step {
	s := projectStep(project, name)
	s.entity = "member"
	s.fields = append(s.fields, zap.String("username", username))
	s.meta["username"] = username
	return s
}

func (r *Reconciler) createRepo(ctx context.Context, project *models.Project) {
	s := projectStep(project, "create")

	kind, err := r.remote.OwnerKind(ctx, project.RepoOwner)
	if err != nil {
		if errors.Is(err, remote.ErrOwnerNotFound) {
			r.skipped(ctx, s, "repository owner does not exist on the remote")
			return
		}
		r.failed(ctx, s, err, false)
		return
	}

	description := strings.TrimSpace(project.Description)
	if description == "" {
		description = project.Name
	}
	opts := remote.CreateRepoOptions{
		Name:          project.EffectiveRepoName(),
		Description:   description,
		Private:       project.RepoPrivate,
		DefaultBranch: project.EffectiveDefaultBranch(),
		AutoInit:      project.AutoInit,
	}

	var repo *remote.Repository
	if kind == remote.OwnerOrganization {
		repo, err = r.remote.CreateOrgRepo(ctx, project.RepoOwner, opts)
	} else {
		repo, err = r.remote.CreateRepo(ctx, project.RepoOwner, opts)
	}
	if err != nil {
		r.failed(ctx, s, err, false)
		return
	}

	name := opts.Name
	if repo != nil && repo.Name != "" {
		name = repo.Name
	}
	url := r.remote.RepoWebURL(project.RepoOwner, name)
	if err := r.updateColumns(ctx, &models.Project{}, project.ID, map[string]any{
		models.ColumnProjectRepoName: name,
		models.ColumnProjectRepoURL:  url,
	}); err != nil {
		r.log.Error("failed to store repository mirror", zap.String("project_id", project.ID), zap.Error(err))
		return
	}
	project.RepoName = name
	project.RepoURL = url

	s.meta["repo_url"] = url
	r.succeeded(ctx, s)
}

// ensureOwnerMembership reports whether the owner membership had to be created.
func (r *Reconciler) ensureOwnerMembership(ctx context.Context, project *models.Project) (*models.ProjectMember, bool, error) {
	db := r.db.WithContext(ctx)

	var member models.ProjectMember
	err := db.Where("project_id = ? AND user_id = ?", project.ID, project.OwnerID).First(&member).Error
	if err == nil {
		return &member, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, fmt.Errorf("reconcile: load owner membership: %w", err)
	}

	member = models.ProjectMember{ProjectID: project.ID, UserID: project.OwnerID, Role: models.RoleOwner}
	if err := db.Create(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return &member, false, nil
		}
		return nil, false, fmt.Errorf("reconcile: create owner membership: %w", err)
	}
	return &member, true, nil
}

func (r *Reconciler) addCollaborator(ctx context.Context, project *models.Project, member *models.ProjectMember) {
	username := ""
	if member.User != nil {
		username = member.User.Username
	}
	s := memberStep(project, username, "add")
	s.meta["role"] = string(member.Role)

	if !project.RepoReady() {
		r.skipped(ctx, s, "repository not created yet")
		return
	}

	permission := member.Role.Permission()
	s.meta["permission"] = permission
	if err := r.remote.AddCollaborator(ctx, project.RepoOwner, project.EffectiveRepoName(), username, permission); err != nil {
		r.failed(ctx, s, err, false)
		return
	}
	r.succeeded(ctx, s)
}
