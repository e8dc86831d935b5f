package api

import (
	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/handlers"
)

func registerProjectRoutes(api *gin.RouterGroup, handler *handlers.ProjectHandler, tasks *handlers.TaskHandler) {
	projects := api.Group("/projects")
	{
		projects.GET("", handler.List)
		projects.POST("", handler.Create)
		projects.GET("/:id", handler.Get)
		projects.POST("/:id/resync", handler.Resync)
		projects.GET("/:id/commits", handler.Commits)

		projects.GET("/:id/members", handler.Members)
		projects.POST("/:id/members", handler.AddMember)
		projects.PATCH("/:id/members/:userID", handler.UpdateMember)
		projects.DELETE("/:id/members/:userID", handler.RemoveMember)

		projects.GET("/:id/tasks", tasks.List)
		projects.POST("/:id/tasks", tasks.Create)
	}
}
