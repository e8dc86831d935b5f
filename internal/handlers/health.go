package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/monitoring"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	manager *monitoring.HealthManager
}

func NewHealthHandler(manager *monitoring.HealthManager) *HealthHandler {
	return &HealthHandler{manager: manager}
}

// Live GET /health
func (h *HealthHandler) Live(c *gin.Context) {
	h.write(c, h.manager.Liveness(c.Request.Context()))
}

// Ready GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	h.write(c, h.manager.Readiness(c.Request.Context()))
}

// write answers 503 only when a probe is down; degraded stays 200.
func (h *HealthHandler) write(c *gin.Context, report monitoring.Report) {
	code := http.StatusOK
	if report.Status == monitoring.StatusDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, report)
}
