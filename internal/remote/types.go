package remote

import "time"

// OwnerKind distinguishes user and organization namespaces.
type OwnerKind string

const (
	OwnerUser         OwnerKind = "user"
	OwnerOrganization OwnerKind = "organization"
)

// User is an account as reported by the remote.
type User struct {
	ID            int64  `json:"id"`
	Login         string `json:"login"`
	FullName      string `json:"full_name"`
	Email         string `json:"email"`
	AvatarURL     string `json:"avatar_url"`
	IsAdmin       bool   `json:"is_admin"`
	Visibility    string `json:"visibility,omitempty"`
	Restricted    bool   `json:"restricted"`
	ProhibitLogin bool   `json:"prohibit_login"`
	Active        bool   `json:"active"`
	Website       string `json:"website,omitempty"`
	Location      string `json:"location,omitempty"`
	Description   string `json:"description,omitempty"`
}

// Organization is an organization namespace.
type Organization struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	FullName   string `json:"full_name"`
	Visibility string `json:"visibility"`
}

// Repository is a git repository on the remote.
type Repository struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	FullName      string `json:"full_name"`
	Owner         *User  `json:"owner,omitempty"`
	Description   string `json:"description"`
	HTMLURL       string `json:"html_url"`
	CloneURL      string `json:"clone_url"`
	DefaultBranch string `json:"default_branch"`
	Private       bool   `json:"private"`
	Fork          bool   `json:"fork"`
	Empty         bool   `json:"empty"`
}

// PullRequest is a pull request on the remote.
type PullRequest struct {
	ID      int64  `json:"id"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
	Merged  bool   `json:"merged"`
}

// Commit is a repository commit with its summary metadata.
type Commit struct {
	SHA     string       `json:"sha"`
	HTMLURL string       `json:"html_url"`
	Commit  CommitDetail `json:"commit"`
	Stats   *CommitStats `json:"stats,omitempty"`
}

// CommitDetail carries the git-level commit metadata.
type CommitDetail struct {
	Message string          `json:"message"`
	Author  CommitSignature `json:"author"`
}

// CommitSignature identifies a commit author.
type CommitSignature struct {
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Date  time.Time `json:"date"`
}

// CommitStats counts changed lines.
type CommitStats struct {
	Total     int `json:"total"`
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
}

// CreateUserOptions is the payload of an account creation.
type CreateUserOptions struct {
	Username                string `json:"username"`
	Email                   string `json:"email"`
	Password                string `json:"password"`
	MustChangePassword      bool   `json:"must_change_password"`
	SendNotify              bool   `json:"send_notify"`
	Admin                   *bool  `json:"admin,omitempty"`
	Visibility              string `json:"visibility,omitempty"`
	FullName                string `json:"full_name,omitempty"`
	MaxRepoCreation         *int   `json:"max_repo_creation,omitempty"`
	AllowCreateOrganization *bool  `json:"allow_create_organization,omitempty"`
	Restricted              *bool  `json:"restricted,omitempty"`
	ProhibitLogin           *bool  `json:"prohibit_login,omitempty"`
	Website                 string `json:"website,omitempty"`
	Location                string `json:"location,omitempty"`
	Description             string `json:"description,omitempty"`
}

// EditUserOptions is a partial account update. Nil fields are not sent.
type EditUserOptions struct {
	Email                   *string `json:"email,omitempty"`
	Admin                   *bool   `json:"admin,omitempty"`
	FullName                *string `json:"full_name,omitempty"`
	Website                 *string `json:"website,omitempty"`
	Location                *string `json:"location,omitempty"`
	Description             *string `json:"description,omitempty"`
	Visibility              *string `json:"visibility,omitempty"`
	MaxRepoCreation         *int    `json:"max_repo_creation,omitempty"`
	Active                  *bool   `json:"active,omitempty"`
	ProhibitLogin           *bool   `json:"prohibit_login,omitempty"`
	Restricted              *bool   `json:"restricted,omitempty"`
	AllowCreateOrganization *bool   `json:"allow_create_organization,omitempty"`
	AllowGitHook            *bool   `json:"allow_git_hook,omitempty"`
	AllowImportLocal        *bool   `json:"allow_import_local,omitempty"`
}

// Empty reports whether no field is set.
func (o EditUserOptions) Empty() bool {
	return o == EditUserOptions{}
}

type changePasswordOptions struct {
	Password           string `json:"password"`
	LoginName          string `json:"login_name"`
	SourceID           int64  `json:"source_id"`
	MustChangePassword bool   `json:"must_change_password"`
}

type renameUserOptions struct {
	NewUsername string `json:"new_username"`
}

// ListUsersOptions pages through accounts. LoginName narrows the result to
// one exact login.
type ListUsersOptions struct {
	LoginName string `url:"login_name,omitempty"`
	Page      int    `url:"page,omitempty"`
	Limit     int    `url:"limit,omitempty"`
}

// CreateRepoOptions is the payload of a repository creation.
type CreateRepoOptions struct {
	Name          string `json:"name"`
	Description   string `json:"description,omitempty"`
	Private       bool   `json:"private"`
	DefaultBranch string `json:"default_branch,omitempty"`
	AutoInit      bool   `json:"auto_init"`
}

// ForkOptions selects the destination of a fork.
type ForkOptions struct {
	Organization string `json:"organization,omitempty"`
	Name         string `json:"name,omitempty"`
}

type collaboratorOptions struct {
	Permission string `json:"permission"`
}

// CreatePullRequestOptions opens a pull request from Head into Base.
type CreatePullRequestOptions struct {
	Head  string `json:"head"`
	Base  string `json:"base"`
	Title string `json:"title"`
	Body  string `json:"body,omitempty"`
}

// MergePullRequestOptions selects a merge strategy.
type MergePullRequestOptions struct {
	Do                     string `json:"Do"`
	MergeTitleField        string `json:"MergeTitleField,omitempty"`
	MergeMessageField      string `json:"MergeMessageField,omitempty"`
	DeleteBranchAfterMerge bool   `json:"delete_branch_after_merge"`
}

// ListCommitsOptions filters and pages a commit listing.
type ListCommitsOptions struct {
	SHA   string `url:"sha,omitempty"`
	Page  int    `url:"page,omitempty"`
	Limit int    `url:"limit,omitempty"`
	Stat  bool   `url:"stat"`
}
