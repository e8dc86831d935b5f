package remote

import (
	"context"
	"net/http"
	"strconv"
)

// CreateRepo creates a repository in the namespace of owner, acting as owner.
// If the repository already exists it is fetched and returned instead.
func (c *Client) CreateRepo(ctx context.Context, owner string, opts CreateRepoOptions) (*Repository, error) {
	var repo Repository
	err := c.do(ctx, "create_repo", http.MethodPost, "user/repos", opts, &repo, withSudo(owner))
	if IsConflict(err) {
		return c.GetRepo(ctx, owner, opts.Name)
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// CreateOrgRepo creates a repository inside an organization. An existing
// repository is fetched and returned instead.
func (c *Client) CreateOrgRepo(ctx context.Context, org string, opts CreateRepoOptions) (*Repository, error) {
	var repo Repository
	err := c.do(ctx, "create_org_repo", http.MethodPost, endpoint("orgs", org, "repos"), opts, &repo)
	if IsConflict(err) {
		return c.GetRepo(ctx, org, opts.Name)
	}
	if err != nil {
		return nil, err
	}
	return &repo, nil
}

// GetRepo fetches owner/name.
func (c *Client) GetRepo(ctx context.Context, owner, name string) (*Repository, error) {
	var repo Repository
	if err := c.do(ctx, "get_repo", http.MethodGet, endpoint("repos", owner, name), nil, &repo); err != nil {
		return nil, err
	}
	return &repo, nil
}

// DeleteRepo removes owner/name. A missing repository is not an error.
func (c *Client) DeleteRepo(ctx context.Context, owner, name string) error {
	err := c.do(ctx, "delete_repo", http.MethodDelete, endpoint("repos", owner, name), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// ForkRepo forks owner/name. When sudo is set the fork is made by, and into
// the namespace of, that account.
func (c *Client) ForkRepo(ctx context.Context, owner, name string, opts ForkOptions, sudo string) (*Repository, error) {
	var repo Repository
	if err := c.do(ctx, "fork_repo", http.MethodPost, endpoint("repos", owner, name, "forks"), opts, &repo, withSudo(sudo)); err != nil {
		return nil, err
	}
	return &repo, nil
}

// AddCollaborator grants username the permission (read, write or admin) on owner/name.
func (c *Client) AddCollaborator(ctx context.Context, owner, name, username, permission string) error {
	return c.do(ctx, "add_collaborator", http.MethodPut,
		endpoint("repos", owner, name, "collaborators", username),
		collaboratorOptions{Permission: permission}, nil)
}

// RemoveCollaborator revokes access. A collaborator that is already absent is not an error.
func (c *Client) RemoveCollaborator(ctx context.Context, owner, name, username string) error {
	err := c.do(ctx, "remove_collaborator", http.MethodDelete,
		endpoint("repos", owner, name, "collaborators", username), nil, nil)
	if IsNotFound(err) {
		return nil
	}
	return err
}

// ListCommits returns commits of owner/name, newest first.
func (c *Client) ListCommits(ctx context.Context, owner, name string, opts ListCommitsOptions) ([]Commit, error) {
	path, err := withQuery(endpoint("repos", owner, name, "commits"), opts)
	if err != nil {
		return nil, &Error{Op: "list_commits", Err: err}
	}
	var commits []Commit
	if err := c.do(ctx, "list_commits", http.MethodGet, path, nil, &commits); err != nil {
		return nil, err
	}
	return commits, nil
}

// CreatePullRequest opens a pull request on owner/name.
func (c *Client) CreatePullRequest(ctx context.Context, owner, name string, opts CreatePullRequestOptions) (*PullRequest, error) {
	var pr PullRequest
	if err := c.do(ctx, "create_pull", http.MethodPost, endpoint("repos", owner, name, "pulls"), opts, &pr); err != nil {
		return nil, err
	}
	return &pr, nil
}

// MergePullRequest merges pull request number on owner/name.
func (c *Client) MergePullRequest(ctx context.Context, owner, name string, number int, opts MergePullRequestOptions) error {
	if opts.Do == "" {
		opts.Do = "merge"
	}
	return c.do(ctx, "merge_pull", http.MethodPost,
		endpoint("repos", owner, name, "pulls", strconv.Itoa(number), "merge"), opts, nil)
}
