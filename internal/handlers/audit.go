package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/audit"
	appErrors "github.com/FernandoVinha/TheManager/pkg/errors"
	"github.com/FernandoVinha/TheManager/pkg/response"
)

// AuditHandler lists admin actions and remote sync outcomes.
type AuditHandler struct {
	svc *audit.Service
}

// NewAuditHandler wires the audit service.
func NewAuditHandler(svc *audit.Service) *AuditHandler {
	return &AuditHandler{svc: svc}
}

// List handles GET /api/audit.
func (h *AuditHandler) List(c *gin.Context) {
	page, perPage := pagination(c)

	filters := audit.Filters{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Result:   c.Query("result"),
		Resource: c.Query("resource"),
	}
	for key, dest := range map[string]**time.Time{"since": &filters.Since, "until": &filters.Until} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			response.Error(c, appErrors.NewBadRequest(key+" must be an RFC 3339 timestamp"))
			return
		}
		*dest = &ts
	}

	logs, total, err := h.svc.List(requestContext(c), audit.ListOptions{Page: page, PageSize: perPage, Filters: filters})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, logs, page, perPage, total)
}
