package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/models"
	"github.com/FernandoVinha/TheManager/internal/services"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// UserHandler exposes user administration.
type UserHandler struct {
	users   *services.UserService
	invites *services.InviteService
}

// NewUserHandler wires the user and invite services.
func NewUserHandler(users *services.UserService, invites *services.InviteService) *UserHandler {
	return &UserHandler{users: users, invites: invites}
}

type preferencesRequest struct {
	Visibility              string `json:"visibility" validate:"omitempty,oneof=public limited private"`
	FullName                string `json:"full_name" validate:"omitempty,max=255"`
	MaxRepoCreation         *int   `json:"max_repo_creation" validate:"omitempty,min=-1"`
	AllowCreateOrganization *bool  `json:"allow_create_organization"`
	AllowGitHook            *bool  `json:"allow_git_hook"`
	AllowImportLocal        *bool  `json:"allow_import_local"`
	Restricted              *bool  `json:"restricted"`
	ProhibitLogin           *bool  `json:"prohibit_login"`
	Website                 string `json:"website" validate:"omitempty,url"`
	Location                string `json:"location" validate:"omitempty,max=255"`
	Description             string `json:"description" validate:"omitempty,max=1024"`
}

func (p *preferencesRequest) model() models.UserPreferences {
	if p == nil {
		return models.UserPreferences{}
	}
	return models.UserPreferences{
		Visibility:              strings.TrimSpace(p.Visibility),
		FullName:                strings.TrimSpace(p.FullName),
		MaxRepoCreation:         p.MaxRepoCreation,
		AllowCreateOrganization: p.AllowCreateOrganization,
		AllowGitHook:            p.AllowGitHook,
		AllowImportLocal:        p.AllowImportLocal,
		Restricted:              p.Restricted,
		ProhibitLogin:           p.ProhibitLogin,
		Website:                 strings.TrimSpace(p.Website),
		Location:                strings.TrimSpace(p.Location),
		Description:             strings.TrimSpace(p.Description),
	}
}

type createUserRequest struct {
	Username    string              `json:"username" validate:"omitempty,min=2,max=40,remotename"`
	Email       string              `json:"email" validate:"required,email"`
	FirstName   string              `json:"first_name" validate:"omitempty,max=128"`
	LastName    string              `json:"last_name" validate:"omitempty,max=128"`
	IsSuperuser bool                `json:"is_superuser"`
	Preferences *preferencesRequest `json:"preferences" validate:"omitempty"`
}

type updateUserRequest struct {
	Username    *string             `json:"username" validate:"omitempty,min=2,max=40,remotename"`
	Email       *string             `json:"email" validate:"omitempty,email"`
	FirstName   *string             `json:"first_name" validate:"omitempty,max=128"`
	LastName    *string             `json:"last_name" validate:"omitempty,max=128"`
	IsActive    *bool               `json:"is_active"`
	IsSuperuser *bool               `json:"is_superuser"`
	Preferences *preferencesRequest `json:"preferences" validate:"omitempty"`
}

type setPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

type createUserResponse struct {
	User   *models.User           `json:"user"`
	Invite *services.IssuedInvite `json:"invite"`
}

// List handles GET /api/users.
func (h *UserHandler) List(c *gin.Context) {
	page, perPage := pagination(c)
	opts := services.ListUsersOptions{
		Page:     page,
		PageSize: perPage,
		Filters:  services.UserFilters{Query: c.Query("q")},
	}
	if active := strings.TrimSpace(c.Query("active")); active != "" {
		value := active == "true" || active == "1"
		opts.Filters.IsActive = &value
	}

	users, total, err := h.users.List(requestContext(c), opts)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, users, page, perPage, total)
}

// Get handles GET /api/users/:id.
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Create handles POST /api/users. The invite link is returned so it can be
// delivered by hand when mail is disabled.
func (h *UserHandler) Create(c *gin.Context) {
	var body createUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, invite, err := h.users.Create(requestContext(c), services.CreateUserInput{
		Username:    body.Username,
		Email:       body.Email,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		IsSuperuser: body.IsSuperuser,
		Preferences: body.Preferences.model(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusCreated, createUserResponse{User: user, Invite: invite})
}

// Update handles PATCH /api/users/:id.
func (h *UserHandler) Update(c *gin.Context) {
	var body updateUserRequest
	if !bindAndValidate(c, &body) {
		return
	}

	input := services.UpdateUserInput{
		Username:    body.Username,
		Email:       body.Email,
		FirstName:   body.FirstName,
		LastName:    body.LastName,
		IsActive:    body.IsActive,
		IsSuperuser: body.IsSuperuser,
	}
	if body.Preferences != nil {
		prefs := body.Preferences.model()
		input.Preferences = &prefs
	}

	user, err := h.users.Update(requestContext(c), c.Param("id"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}

// Delete handles DELETE /api/users/:id.
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(requestContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": true})
}

// SetPassword handles POST /api/users/:id/password.
func (h *UserHandler) SetPassword(c *gin.Context) {
	var body setPasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if err := h.users.SetPassword(requestContext(c), c.Param("id"), body.Password); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"updated": true})
}

// ResendInvite handles POST /api/users/:id/invite.
func (h *UserHandler) ResendInvite(c *gin.Context) {
	invite, err := h.invites.Resend(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, invite)
}

// Resync handles POST /api/users/:id/resync.
func (h *UserHandler) Resync(c *gin.Context) {
	user, err := h.users.Resync(requestContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, user)
}
