package models

import "strings"

// Column names written by narrow mirror updates.
const (
	ColumnProjectRepoName = "repo_name"
	ColumnProjectRepoURL  = "repo_url"
)

// ProjectMirrorColumns are excluded from full saves; only reconciliation writes
// them. repo_name is user input and is only overwritten by reconciliation with
// the name the remote reports back.
var ProjectMirrorColumns = []string{ColumnProjectRepoURL}

// DefaultBranch is used when neither the project nor the remote names one.
const DefaultBranch = "main"

// Methodology is the delivery process a project follows.
type Methodology string

const (
	MethodologyScrum  Methodology = "scrum"
	MethodologyKanban Methodology = "kanban"
	MethodologyXP     Methodology = "xp"
)

// Valid reports whether m is a known methodology.
func (m Methodology) Valid() bool {
	switch m {
	case MethodologyScrum, MethodologyKanban, MethodologyXP:
		return true
	}
	return false
}

// Project groups tasks and owns one integration repository on the remote.
type Project struct {
	BaseModel

	Name        string      `gorm:"uniqueIndex;not null" json:"name"`
	Key         string      `gorm:"uniqueIndex;not null" json:"key"`
	Description string      `json:"description"`
	Methodology Methodology `gorm:"size:16;default:scrum" json:"methodology"`

	OwnerID string `gorm:"type:uuid;index;not null" json:"owner_id"`
	Owner   *User  `gorm:"constraint:OnDelete:RESTRICT" json:"owner,omitempty"`

	RepoOwner     string `gorm:"not null" json:"repo_owner"`
	RepoName      string `json:"repo_name"`
	RepoPrivate   bool   `json:"repo_private"`
	DefaultBranch string `gorm:"default:main" json:"default_branch"`
	AutoInit      bool   `json:"auto_init"`

	// RepoURL mirrors the web URL of the created repository.
	RepoURL string `json:"repo_url"`
}

// EffectiveRepoName falls back to the project name when no repository name is set.
func (p *Project) EffectiveRepoName() string {
	if name := strings.TrimSpace(p.RepoName); name != "" {
		return name
	}
	return strings.TrimSpace(p.Name)
}

// EffectiveDefaultBranch falls back to DefaultBranch.
func (p *Project) EffectiveDefaultBranch() string {
	if branch := strings.TrimSpace(p.DefaultBranch); branch != "" {
		return branch
	}
	return DefaultBranch
}

// RepoReady reports whether the remote repository has been created and mirrored.
func (p *Project) RepoReady() bool {
	return strings.TrimSpace(p.RepoOwner) != "" &&
		p.EffectiveRepoName() != "" &&
		strings.TrimSpace(p.RepoURL) != ""
}
