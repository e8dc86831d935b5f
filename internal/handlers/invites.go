package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/services"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// InviteHandler serves the unauthenticated invite endpoints.
type InviteHandler struct {
	invites *services.InviteService
}

// NewInviteHandler wires the invite service.
func NewInviteHandler(invites *services.InviteService) *InviteHandler {
	return &InviteHandler{invites: invites}
}

type acceptInviteRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// Accept handles POST /api/invites/accept.
func (h *InviteHandler) Accept(c *gin.Context) {
	var body acceptInviteRequest
	if !bindAndValidate(c, &body) {
		return
	}

	user, err := h.invites.Redeem(requestContext(c), body.Token, body.Password)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{
		"user":    user,
		"message": "Password set. Your account is active.",
	})
}

// Forgot handles POST /api/invites/forgot. The answer is the same whether
// or not the address belongs to an account.
func (h *InviteHandler) Forgot(c *gin.Context) {
	var body forgotPasswordRequest
	if !bindAndValidate(c, &body) {
		return
	}
	if err := h.invites.Forgot(requestContext(c), body.Email); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, gin.H{
		"message": "If the address belongs to an account, a setup link has been sent.",
	})
}
