package api

import (
	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/handlers"
)

func registerHealthRoutes(r *gin.Engine, h *handlers.HealthHandler) {
	r.GET("/health", h.Live)
	r.GET("/api/health", h.Live)
	r.GET("/health/ready", h.Ready)
}
