// Package remotetest provides an in-memory recording remote for tests.
package remotetest

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/FernandoVinha/TheManager/internal/remote"
)

// Call is one recorded remote operation.
type Call struct {
	Op   string
	Args []string
	Body any
}

// Fake records every call and answers from in-memory state. Operations
// named in Errors fail with the configured error instead.
type Fake struct {
	mu sync.Mutex

	Base       string
	Errors     map[string]error
	Orgs       map[string]bool
	Missing    map[string]bool
	EditResult *remote.User
	Accounts   []remote.User

	calls  []Call
	repos  map[string]*remote.Repository
	nextID int64
	nextPR int
}

// New returns a Fake rooted at https://git.example.com.
func New() *Fake {
	return &Fake{
		Base:    "https://git.example.com",
		Errors:  map[string]error{},
		Orgs:    map[string]bool{},
		Missing: map[string]bool{},
		repos:   map[string]*remote.Repository{},
	}
}

// HTTPError builds the error the client returns for a non-2xx answer.
func HTTPError(op string, status int, body string) *remote.Error {
	return &remote.Error{Op: op, Status: status, Message: http.StatusText(status), Body: body}
}

// Fail makes op return err until cleared with Fail(op, nil).
func (f *Fake) Fail(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.Errors, op)
		return
	}
	f.Errors[op] = err
}

// AddRepo registers owner/name with its default branch.
func (f *Fake) AddRepo(owner, name, defaultBranch string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[owner+"/"+name] = &remote.Repository{
		Name:          name,
		FullName:      owner + "/" + name,
		DefaultBranch: defaultBranch,
	}
}

// Calls returns a copy of the recorded calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Ops returns the recorded operation names in order.
func (f *Fake) Ops() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	ops := make([]string, len(f.calls))
	for i, c := range f.calls {
		ops[i] = c.Op
	}
	return ops
}

// Count returns how many times op was called.
func (f *Fake) Count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Last returns the most recent call of op.
func (f *Fake) Last(op string) (Call, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := len(f.calls) - 1; i >= 0; i-- {
		if f.calls[i].Op == op {
			return f.calls[i], true
		}
	}
	return Call{}, false
}

// Reset forgets recorded calls.
func (f *Fake) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = nil
}

func (f *Fake) record(op string, body any, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, Call{Op: op, Args: args, Body: body})
	return f.Errors[op]
}

func (f *Fake) BaseURL() string { return f.Base }

func (f *Fake) RepoWebURL(owner, name string) string {
	return f.Base + "/" + owner + "/" + name
}

func (f *Fake) CreateUser(_ context.Context, opts remote.CreateUserOptions) (*remote.User, error) {
	if err := f.record("create_user", opts, opts.Username); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return &remote.User{
		ID:        f.nextID,
		Login:     opts.Username,
		Email:     opts.Email,
		AvatarURL: fmt.Sprintf("%s/avatars/%d", f.Base, f.nextID),
	}, nil
}

func (f *Fake) GetUser(_ context.Context, username string) (*remote.User, error) {
	if err := f.record("get_user", nil, username); err != nil {
		return nil, err
	}
	return &remote.User{Login: username}, nil
}

// ListUsers filters Accounts by exact login and pages the result.
func (f *Fake) ListUsers(_ context.Context, opts remote.ListUsersOptions) ([]remote.User, error) {
	if err := f.record("list_users", opts, opts.LoginName); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []remote.User
	for _, u := range f.Accounts {
		if opts.LoginName == "" || strings.EqualFold(u.Login, opts.LoginName) {
			matched = append(matched, u)
		}
	}
	if opts.Limit > 0 {
		page := max(opts.Page, 1)
		start := min((page-1)*opts.Limit, len(matched))
		matched = matched[start:min(start+opts.Limit, len(matched))]
	}
	return matched, nil
}

func (f *Fake) RenameUser(_ context.Context, oldName, newName string) error {
	return f.record("rename_user", nil, oldName, newName)
}

func (f *Fake) EditUser(_ context.Context, username string, opts remote.EditUserOptions) (*remote.User, error) {
	if opts.Empty() {
		return nil, remote.ErrNoChanges
	}
	if err := f.record("edit_user", opts, username); err != nil {
		if remote.IsUnprocessable(err) {
			return nil, remote.ErrNoChanges
		}
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EditResult == nil {
		return nil, nil
	}
	updated := *f.EditResult
	return &updated, nil
}

func (f *Fake) ChangePassword(_ context.Context, username, _ string) error {
	return f.record("change_password", nil, username)
}

func (f *Fake) DeleteUser(_ context.Context, username string, purge bool) error {
	return f.record("delete_user", purge, username)
}

func (f *Fake) OwnerKind(_ context.Context, owner string) (remote.OwnerKind, error) {
	if err := f.record("owner_kind", nil, owner); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	switch {
	case f.Missing[owner]:
		return "", remote.ErrOwnerNotFound
	case f.Orgs[owner]:
		return remote.OwnerOrganization, nil
	default:
		return remote.OwnerUser, nil
	}
}

func (f *Fake) CreateRepo(_ context.Context, owner string, opts remote.CreateRepoOptions) (*remote.Repository, error) {
	if err := f.record("create_repo", opts, owner, opts.Name); err != nil {
		return nil, err
	}
	return f.storeRepo(owner, opts), nil
}

func (f *Fake) CreateOrgRepo(_ context.Context, org string, opts remote.CreateRepoOptions) (*remote.Repository, error) {
	if err := f.record("create_org_repo", opts, org, opts.Name); err != nil {
		return nil, err
	}
	return f.storeRepo(org, opts), nil
}

func (f *Fake) storeRepo(owner string, opts remote.CreateRepoOptions) *remote.Repository {
	f.mu.Lock()
	defer f.mu.Unlock()
	repo := &remote.Repository{
		Name:          opts.Name,
		FullName:      owner + "/" + opts.Name,
		DefaultBranch: opts.DefaultBranch,
		Private:       opts.Private,
		HTMLURL:       f.Base + "/" + owner + "/" + opts.Name,
	}
	f.repos[owner+"/"+opts.Name] = repo
	copied := *repo
	return &copied
}

func (f *Fake) GetRepo(_ context.Context, owner, name string) (*remote.Repository, error) {
	if err := f.record("get_repo", nil, owner, name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	repo, ok := f.repos[owner+"/"+name]
	if !ok {
		return nil, HTTPError("get_repo", http.StatusNotFound, `{"message":"repository does not exist"}`)
	}
	copied := *repo
	return &copied, nil
}

func (f *Fake) DeleteRepo(_ context.Context, owner, name string) error {
	if err := f.record("delete_repo", nil, owner, name); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.repos, owner+"/"+name)
	return nil
}

func (f *Fake) ForkRepo(_ context.Context, owner, name string, opts remote.ForkOptions, sudo string) (*remote.Repository, error) {
	if err := f.record("fork_repo", opts, owner, name, sudo); err != nil {
		return nil, err
	}
	target := sudo
	if opts.Organization != "" {
		target = opts.Organization
	}
	forkName := name
	if opts.Name != "" {
		forkName = opts.Name
	}
	return f.storeRepo(target, remote.CreateRepoOptions{Name: forkName, DefaultBranch: "main"}), nil
}

func (f *Fake) AddCollaborator(_ context.Context, owner, name, username, permission string) error {
	return f.record("add_collaborator", permission, owner, name, username)
}

func (f *Fake) RemoveCollaborator(_ context.Context, owner, name, username string) error {
	return f.record("remove_collaborator", nil, owner, name, username)
}

func (f *Fake) CreatePullRequest(_ context.Context, owner, name string, opts remote.CreatePullRequestOptions) (*remote.PullRequest, error) {
	if err := f.record("create_pull", opts, owner, name); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextPR++
	return &remote.PullRequest{
		Number:  f.nextPR,
		Title:   opts.Title,
		State:   "open",
		HTMLURL: fmt.Sprintf("%s/%s/%s/pulls/%d", f.Base, owner, name, f.nextPR),
	}, nil
}

func (f *Fake) MergePullRequest(_ context.Context, owner, name string, number int, opts remote.MergePullRequestOptions) error {
	return f.record("merge_pull", opts, owner, name, fmt.Sprint(number))
}

func (f *Fake) ListCommits(_ context.Context, owner, name string, opts remote.ListCommitsOptions) ([]remote.Commit, error) {
	if err := f.record("list_commits", opts, owner, name); err != nil {
		return nil, err
	}
	return []remote.Commit{{SHA: "0000000", Commit: remote.CommitDetail{Message: "initial commit"}}}, nil
}

func (f *Fake) Version(_ context.Context) (string, error) {
	if err := f.record("version", nil); err != nil {
		return "", err
	}
	return "1.21.0", nil
}
