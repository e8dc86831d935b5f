package services

import (
	"context"

	"github.com/FernandoVinha/TheManager/internal/capture"
	"github.com/FernandoVinha/TheManager/internal/mergeflow"
	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/remote"
)

// UserSyncer mirrors committed user changes to the remote.
type UserSyncer interface {
	UserSaved(ctx context.Context, change *capture.UserChange) error
	UserDeleting(ctx context.Context, user *models.User)
	ResyncUser(ctx context.Context, userID string) error
}

// ProjectSyncer mirrors committed project and membership changes to the remote.
type ProjectSyncer interface {
	ProjectCreated(ctx context.Context, projectID string) error
	ResyncProject(ctx context.Context, projectID string) error
	MemberSaved(ctx context.Context, change *capture.MemberChange) error
	MemberRemoved(ctx context.Context, change *capture.MemberChange) error
}

// TaskWorkflow reacts to committed task changes.
type TaskWorkflow interface {
	TaskSaved(ctx context.Context, change *capture.TaskChange) (mergeflow.Outcome, error)
}

// RepoBrowser reads and forks repositories on the remote.
type RepoBrowser interface {
	ListCommits(ctx context.Context, owner, name string, opts remote.ListCommitsOptions) ([]remote.Commit, error)
	ForkRepo(ctx context.Context, owner, name string, opts remote.ForkOptions, sudo string) (*remote.Repository, error)
	RepoWebURL(owner, name string) string
}
