package api

import (
	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/handlers"
)

func registerTaskRoutes(api *gin.RouterGroup, handler *handlers.TaskHandler) {
	tasks := api.Group("/tasks")
	{
		tasks.GET("/:id", handler.Get)
		tasks.PATCH("/:id", handler.Update)
		tasks.POST("/:id/fork", handler.Fork)
		tasks.GET("/:id/messages", handler.Messages)
		tasks.POST("/:id/messages", handler.AddMessage)
	}
}
