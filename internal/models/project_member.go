package models

// MemberRole is a project-level role.
type MemberRole string

const (
	RoleOwner      MemberRole = "owner"
	RoleMaintainer MemberRole = "maintainer"
	RoleDeveloper  MemberRole = "developer"
	RoleReporter   MemberRole = "reporter"
	RoleGuest      MemberRole = "guest"
)

// Remote collaborator permissions.
const (
	PermissionRead  = "read"
	PermissionWrite = "write"
	PermissionAdmin = "admin"
)

// Valid reports whether r is a known role.
func (r MemberRole) Valid() bool {
	switch r {
	case RoleOwner, RoleMaintainer, RoleDeveloper, RoleReporter, RoleGuest:
		return true
	}
	return false
}

// Permission maps the role to the remote collaborator permission.
func (r MemberRole) Permission() string {
	switch r {
	case RoleOwner, RoleMaintainer:
		return PermissionAdmin
	case RoleDeveloper:
		return PermissionWrite
	default:
		return PermissionRead
	}
}

// ProjectMember grants a user a role on a project.
type ProjectMember struct {
	BaseModel

	ProjectID string     `gorm:"type:uuid;not null;uniqueIndex:idx_project_member" json:"project_id"`
	UserID    string     `gorm:"type:uuid;not null;uniqueIndex:idx_project_member" json:"user_id"`
	Role      MemberRole `gorm:"size:16;not null;default:developer" json:"role"`

	Project *Project `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	User    *User    `gorm:"constraint:OnDelete:CASCADE" json:"user,omitempty"`
}
