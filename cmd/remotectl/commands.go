package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/FernandoVinha/TheManager/internal/remote"
)

// remoteAPI is the slice of the remote client the CLI drives.
type remoteAPI interface {
	CreateUser(ctx context.Context, opts remote.CreateUserOptions) (*remote.User, error)
	GetUser(ctx context.Context, username string) (*remote.User, error)
	ListUsers(ctx context.Context, opts remote.ListUsersOptions) ([]remote.User, error)
	RenameUser(ctx context.Context, oldName, newName string) error
	EditUser(ctx context.Context, username string, opts remote.EditUserOptions) (*remote.User, error)
	ChangePassword(ctx context.Context, username, password string) error
	DeleteUser(ctx context.Context, username string, purge bool) error

	OwnerKind(ctx context.Context, owner string) (remote.OwnerKind, error)
	CreateRepo(ctx context.Context, owner string, opts remote.CreateRepoOptions) (*remote.Repository, error)
	CreateOrgRepo(ctx context.Context, org string, opts remote.CreateRepoOptions) (*remote.Repository, error)
	GetRepo(ctx context.Context, owner, name string) (*remote.Repository, error)
	DeleteRepo(ctx context.Context, owner, name string) error
	ForkRepo(ctx context.Context, owner, name string, opts remote.ForkOptions, sudo string) (*remote.Repository, error)

	AddCollaborator(ctx context.Context, owner, name, username, permission string) error
	RemoveCollaborator(ctx context.Context, owner, name, username string) error

	CreatePullRequest(ctx context.Context, owner, name string, opts remote.CreatePullRequestOptions) (*remote.PullRequest, error)
	MergePullRequest(ctx context.Context, owner, name string, number int, opts remote.MergePullRequestOptions) error
	ListCommits(ctx context.Context, owner, name string, opts remote.ListCommitsOptions) ([]remote.Commit, error)
}

type command func(ctx context.Context, api remoteAPI, args []string) (any, error)

var commands = map[string]map[string]command{
	"user": {
		"create": userCreate,
		"edit":   userEdit,
		"delete": userDelete,
		"show":   userShow,
		"list":   userList,
	},
	"repo": {
		"create": repoCreate,
		"show":   repoShow,
		"delete": repoDelete,
		"fork":   repoFork,
	},
	"collab": {
		"add": collabAdd,
		"del": collabDel,
	},
	"pr": {
		"create": prCreate,
		"merge":  prMerge,
	},
}

// resolve maps the positional arguments to a command and its flags.
func resolve(args []string) (command, []string, error) {
	group := args[0]
	if group == "commits" {
		return commits, args[1:], nil
	}
	actions, ok := commands[group]
	if !ok {
		return nil, nil, fmt.Errorf("unknown command group %q", group)
	}
	if len(args) < 2 {
		return nil, nil, fmt.Errorf("%s: missing action", group)
	}
	cmd, ok := actions[args[1]]
	if !ok {
		return nil, nil, fmt.Errorf("%s: unknown action %q", group, args[1])
	}
	return cmd, args[2:], nil
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func required(values map[string]string) error {
	var missing []string
	for name, value := range values {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, "--"+name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
	}
	return nil
}

// optBool parses a tri-state "true|false" flag value; empty means unset.
func optBool(name, raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, fmt.Errorf("--%s: expected true or false, got %q", name, raw)
	}
	return &v, nil
}

func optString(raw string) *string {
	if raw == "" {
		return nil
	}
	return &raw
}

type status struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

func userCreate(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("user create")
	username := fs.String("username", "", "login of the new account")
	email := fs.String("email", "", "e-mail address")
	password := fs.String("password", "", "initial password")
	fullName := fs.String("full-name", "", "display name")
	admin := fs.Bool("admin", false, "grant site administration")
	mustChange := fs.Bool("must-change-password", false, "force a password change on first login")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"username": *username, "email": *email, "password": *password}); err != nil {
		return nil, err
	}

	opts := remote.CreateUserOptions{
		Username:           *username,
		Email:              *email,
		Password:           *password,
		FullName:           *fullName,
		MustChangePassword: *mustChange,
	}
	if *admin {
		opts.Admin = admin
	}
	return api.CreateUser(ctx, opts)
}

func userEdit(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("user edit")
	username := fs.String("username", "", "current login")
	newUsername := fs.String("new-username", "", "rename the account")
	password := fs.String("password", "", "set a new password")
	email := fs.String("email", "", "")
	fullName := fs.String("full-name", "", "")
	website := fs.String("website", "", "")
	location := fs.String("location", "", "")
	description := fs.String("description", "", "")
	visibility := fs.String("visibility", "", "public|limited|private")
	maxRepos := fs.String("max-repo-creation", "", "repository quota, -1 for unlimited")
	admin := fs.String("admin", "", "true|false")
	active := fs.String("active", "", "true|false")
	prohibitLogin := fs.String("prohibit-login", "", "true|false")
	restricted := fs.String("restricted", "", "true|false")
	allowOrgs := fs.String("allow-create-organization", "", "true|false")
	allowHooks := fs.String("allow-git-hook", "", "true|false")
	allowImport := fs.String("allow-import-local", "", "true|false")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"username": *username}); err != nil {
		return nil, err
	}

	opts := remote.EditUserOptions{
		Email:       optString(*email),
		FullName:    optString(*fullName),
		Website:     optString(*website),
		Location:    optString(*location),
		Description: optString(*description),
		Visibility:  optString(*visibility),
	}
	if *maxRepos != "" {
		n, err := strconv.Atoi(*maxRepos)
		if err != nil {
			return nil, fmt.Errorf("--max-repo-creation: %w", err)
		}
		opts.MaxRepoCreation = &n
	}
	for _, flagValue := range []struct {
		name string
		raw  string
		dest **bool
	}{
		{"admin", *admin, &opts.Admin},
		{"active", *active, &opts.Active},
		{"prohibit-login", *prohibitLogin, &opts.ProhibitLogin},
		{"restricted", *restricted, &opts.Restricted},
		{"allow-create-organization", *allowOrgs, &opts.AllowCreateOrganization},
		{"allow-git-hook", *allowHooks, &opts.AllowGitHook},
		{"allow-import-local", *allowImport, &opts.AllowImportLocal},
	} {
		v, err := optBool(flagValue.name, flagValue.raw)
		if err != nil {
			return nil, err
		}
		*flagValue.dest = v
	}

	name := *username
	if *newUsername != "" && *newUsername != name {
		if err := api.RenameUser(ctx, name, *newUsername); err != nil {
			return nil, err
		}
		name = *newUsername
	}

	var user *remote.User
	if !opts.Empty() {
		updated, err := api.EditUser(ctx, name, opts)
		if err != nil && !errors.Is(err, remote.ErrNoChanges) {
			return nil, err
		}
		user = updated
	}
	if *password != "" {
		if err := api.ChangePassword(ctx, name, *password); err != nil {
			return nil, err
		}
	}
	if user != nil {
		return user, nil
	}
	return api.GetUser(ctx, name)
}

func userDelete(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("user delete")
	username := fs.String("username", "", "login to delete")
	purge := fs.Bool("purge", true, "also remove repositories and memberships")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"username": *username}); err != nil {
		return nil, err
	}
	if err := api.DeleteUser(ctx, *username, *purge); err != nil {
		return nil, err
	}
	return status{OK: true, Message: fmt.Sprintf("user %s deleted", *username)}, nil
}

func userShow(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("user show")
	username := fs.String("username", "", "login to show")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"username": *username}); err != nil {
		return nil, err
	}
	return api.GetUser(ctx, *username)
}

func userList(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("user list")
	login := fs.String("login", "", "only the account with this login")
	limit := fs.Int("limit", 50, "accounts per page")
	page := fs.Int("page", 1, "page number")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if *limit <= 0 || *page <= 0 {
		return nil, errors.New("--limit and --page must be positive")
	}
	users, err := api.ListUsers(ctx, remote.ListUsersOptions{LoginName: *login, Page: *page, Limit: *limit})
	if err != nil {
		return nil, err
	}
	if users == nil {
		users = []remote.User{}
	}
	return users, nil
}

func repoFlags(name string) (*flag.FlagSet, *string, *string) {
	fs := newFlagSet(name)
	owner := fs.String("owner", "", "user or organization owning the repository")
	repo := fs.String("repo", "", "repository name")
	return fs, owner, repo
}

func repoCreate(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs := newFlagSet("repo create")
	owner := fs.String("owner", "", "user or organization that will own the repository")
	name := fs.String("name", "", "repository name")
	desc := fs.String("desc", "", "description")
	private := fs.Bool("private", true, "create a private repository")
	branch := fs.String("default-branch", "", "default branch")
	autoInit := fs.Bool("auto-init", false, "create an initial commit")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "name": *name}); err != nil {
		return nil, err
	}

	opts := remote.CreateRepoOptions{
		Name:          *name,
		Description:   *desc,
		Private:       *private,
		DefaultBranch: *branch,
		AutoInit:      *autoInit,
	}
	kind, err := api.OwnerKind(ctx, *owner)
	if err != nil {
		return nil, err
	}
	if kind == remote.OwnerOrganization {
		return api.CreateOrgRepo(ctx, *owner, opts)
	}
	return api.CreateRepo(ctx, *owner, opts)
}

func repoShow(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("repo show")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo}); err != nil {
		return nil, err
	}
	return api.GetRepo(ctx, *owner, *repo)
}

func repoDelete(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("repo delete")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo}); err != nil {
		return nil, err
	}
	if err := api.DeleteRepo(ctx, *owner, *repo); err != nil {
		return nil, err
	}
	return status{OK: true, Message: fmt.Sprintf("repository %s/%s deleted", *owner, *repo)}, nil
}

func repoFork(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("repo fork")
	dstOwner := fs.String("dst-owner", "", "account that makes and owns the fork")
	org := fs.String("org", "", "fork into this organization instead")
	name := fs.String("name", "", "name of the fork")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo}); err != nil {
		return nil, err
	}
	return api.ForkRepo(ctx, *owner, *repo, remote.ForkOptions{Organization: *org, Name: *name}, *dstOwner)
}

func collabAdd(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("collab add")
	user := fs.String("user", "", "collaborator login")
	perm := fs.String("perm", "write", "read|write|admin")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo, "user": *user}); err != nil {
		return nil, err
	}
	switch *perm {
	case "read", "write", "admin":
	default:
		return nil, fmt.Errorf("--perm: expected read, write or admin, got %q", *perm)
	}
	if err := api.AddCollaborator(ctx, *owner, *repo, *user, *perm); err != nil {
		return nil, err
	}
	return status{OK: true, Message: fmt.Sprintf("%s added to %s/%s with %s", *user, *owner, *repo, *perm)}, nil
}

func collabDel(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("collab del")
	user := fs.String("user", "", "collaborator login")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo, "user": *user}); err != nil {
		return nil, err
	}
	if err := api.RemoveCollaborator(ctx, *owner, *repo, *user); err != nil {
		return nil, err
	}
	return status{OK: true, Message: fmt.Sprintf("%s removed from %s/%s", *user, *owner, *repo)}, nil
}

func prCreate(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("pr create")
	head := fs.String("head", "", "source, either branch or owner:branch")
	base := fs.String("base", "", "target branch")
	title := fs.String("title", "", "")
	body := fs.String("body", "", "")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo, "head": *head, "base": *base, "title": *title}); err != nil {
		return nil, err
	}
	return api.CreatePullRequest(ctx, *owner, *repo, remote.CreatePullRequestOptions{
		Head:  *head,
		Base:  *base,
		Title: *title,
		Body:  *body,
	})
}

func prMerge(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("pr merge")
	index := fs.Int("index", 0, "pull request number")
	method := fs.String("method", "merge", "merge|rebase|rebase-merge|squash")
	title := fs.String("title", "", "merge commit title")
	message := fs.String("message", "", "merge commit message")
	deleteBranch := fs.Bool("delete-branch", false, "delete the head branch after merging")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo}); err != nil {
		return nil, err
	}
	if *index <= 0 {
		return nil, errors.New("--index must be a positive pull request number")
	}
	if err := api.MergePullRequest(ctx, *owner, *repo, *index, remote.MergePullRequestOptions{
		Do:                     *method,
		MergeTitleField:        *title,
		MergeMessageField:      *message,
		DeleteBranchAfterMerge: *deleteBranch,
	}); err != nil {
		return nil, err
	}
	return status{OK: true, Message: fmt.Sprintf("pull request %s/%s#%d merged", *owner, *repo, *index)}, nil
}

func commits(ctx context.Context, api remoteAPI, args []string) (any, error) {
	fs, owner, repo := repoFlags("commits")
	branch := fs.String("branch", "", "branch or sha, default branch when empty")
	limit := fs.Int("limit", 10, "commits per page")
	page := fs.Int("page", 1, "page number")
	stat := fs.Bool("stat", false, "include addition and deletion counts")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(map[string]string{"owner": *owner, "repo": *repo}); err != nil {
		return nil, err
	}
	return api.ListCommits(ctx, *owner, *repo, remote.ListCommitsOptions{
		SHA:   *branch,
		Page:  *page,
		Limit: *limit,
		Stat:  *stat,
	})
}
