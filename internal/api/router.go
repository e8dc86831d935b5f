package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/FernandoVinha/TheManager/internal/app"
	"github.com/FernandoVinha/TheManager/internal/audit"
	"github.com/FernandoVinha/TheManager/internal/handlers"
	"github.com/FernandoVinha/TheManager/internal/middleware"
	"github.com/FernandoVinha/TheManager/internal/monitoring"
	"github.com/FernandoVinha/TheManager/internal/monitoring/checks"
	"github.com/FernandoVinha/TheManager/internal/services"
)

// Dependencies bundles everything the HTTP surface needs.
type Dependencies struct {
	DB       *gorm.DB
	Config   *app.Config
	Audit    *audit.Service
	Users    *services.UserService
	Invites  *services.InviteService
	Projects *services.ProjectService
	Tasks    *services.TaskService

	// Health defaults to a manager probing only the database.
	Health *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.Audit == nil:
		return fmt.Errorf("audit service must be provided")
	case d.Users == nil || d.Invites == nil:
		return fmt.Errorf("user and invite services must be provided")
	case d.Projects == nil || d.Tasks == nil:
		return fmt.Errorf("project and task services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers the API routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	r := gin.New()
	if err := r.SetTrustedProxies(deps.Config.Server.TrustedProxies); err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.Actor())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())

	health := deps.Health
	if health == nil {
		health = monitoring.NewHealthManager()
		health.RegisterLiveness(checks.Database(deps.DB, 0))
	}
	registerHealthRoutes(r, handlers.NewHealthHandler(health))

	if prom := deps.Config.Monitoring.Prometheus; prom.Enabled {
		endpoint := prom.Endpoint
		if endpoint == "" {
			endpoint = "/metrics"
		}
		r.GET(endpoint, gin.WrapH(promhttp.Handler()))
	}

	taskHandler := handlers.NewTaskHandler(deps.Tasks)

	api := r.Group("/api")
	registerUserRoutes(api, handlers.NewUserHandler(deps.Users, deps.Invites))
	registerInviteRoutes(api, handlers.NewInviteHandler(deps.Invites))
	registerProjectRoutes(api, handlers.NewProjectHandler(deps.Projects), taskHandler)
	registerTaskRoutes(api, taskHandler)
	registerAuditRoutes(api, handlers.NewAuditHandler(deps.Audit))

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}
