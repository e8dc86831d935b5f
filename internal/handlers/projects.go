package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/services"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// ProjectHandler exposes projects and their memberships.
type ProjectHandler struct {
	projects *services.ProjectService
}

// NewProjectHandler wires the project service.
func NewProjectHandler(projects *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

type createProjectRequest struct {
	Name          string `json:"name" validate:"required,max=128"`
	Key           string `json:"key" validate:"required,alphanum,max=16"`
	Description   string `json:"description" validate:"omitempty,max=2048"`
	Methodology   string `json:"methodology" validate:"omitempty,oneof=scrum kanban xp"`
	OwnerID       string `json:"owner_id" validate:"required"`
	RepoOwner     string `json:"repo_owner" validate:"omitempty,remotename"`
	RepoName      string `json:"repo_name" validate:"omitempty,max=100,remotename"`
	RepoPrivate   *bool  `json:"repo_private"`
	DefaultBranch string `json:"default_branch" validate:"omitempty,max=255,branchname"`
	AutoInit      *bool  `json:"auto_init"`
}

type memberRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Role   string `json:"role" validate:"omitempty,oneof=owner maintainer developer reporter guest"`
}

type memberRoleRequest struct {
	Role string `json:"role" validate:"required,oneof=owner maintainer developer reporter guest"`
}

// List handles GET /api/projects.
func (h *ProjectHandler) List(c *gin.Context) {
	page, perPage := pagination(c)
	projects, total, err := h.projects.List(requestContext(c), services.ListProjectsOptions{
		Page:     page,
		PageSize: perPage,
		Query:    c.Query("q"),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, projects, page, perPage, total)
}

// Create handles POST /api/projects.
func (h *ProjectHandler) Create(c *gin.Context) {
	var body createProjectRequest
	if !bindAndValidate(c, &body) {
		return
	}

	project, err := h.projects.Create(requestContext(c), services.CreateProjectInput{
		Name:          body.Name,
		Key:           body.Key,
		Description:   body.Description,
		Methodology:   models.Methodology(body.Methodology),
		OwnerID:       body.OwnerID,
		RepoOwner:     body.RepoOwner,
		RepoName:      body.RepoName,
		RepoPrivate:   body.RepoPrivate,
		DefaultBranch: body.DefaultBranch,
		AutoInit:      body.AutoInit,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, project)
}

// Get handles GET /api/projects/:id.
func (h *ProjectHandler) Get(c *gin.Context) {
	project, err := h.projects.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// Resync handles POST /api/projects/:id/resync.
func (h *ProjectHandler) Resync(c *gin.Context) {
	project, err := h.projects.Resync(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, project)
}

// Commits handles GET /api/projects/:id/commits.
func (h *ProjectHandler) Commits(c *gin.Context) {
	commits, err := h.projects.RecentCommits(requestContext(c), c.Param("id"), c.Query("branch"), parseIntQuery(c, "limit", 0))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, commits)
}

// Members handles GET /api/projects/:id/members.
func (h *ProjectHandler) Members(c *gin.Context) {
	members, err := h.projects.Members(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, members)
}

// AddMember handles POST /api/projects/:id/members. Adding an existing
// member updates its role.
func (h *ProjectHandler) AddMember(c *gin.Context) {
	var body memberRequest
	if !bindAndValidate(c, &body) {
		return
	}
	member, err := h.projects.SaveMember(requestContext(c), c.Param("id"), body.UserID, models.MemberRole(body.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// UpdateMember handles PATCH /api/projects/:id/members/:userID.
func (h *ProjectHandler) UpdateMember(c *gin.Context) {
	var body memberRoleRequest
	if !bindAndValidate(c, &body) {
		return
	}
	member, err := h.projects.UpdateMemberRole(requestContext(c), c.Param("id"), c.Param("userID"), models.MemberRole(body.Role))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, member)
}

// RemoveMember handles DELETE /api/projects/:id/members/:userID.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	if err := h.projects.RemoveMember(requestContext(c), c.Param("id"), c.Param("userID")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"removed": true})
}
