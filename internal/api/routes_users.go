package api

import (
	"github.com/gin-gonic/gin"

	"github.com/FernandoVinha/TheManager/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	users := api.Group("/users")
	{
		users.GET("", handler.List)
		users.POST("", handler.Create)
		users.GET("/:id", handler.Get)
		users.PATCH("/:id", handler.Update)
		users.DELETE("/:id", handler.Delete)
		users.POST("/:id/password", handler.SetPassword)
		users.POST("/:id/invite", handler.ResendInvite)
		users.POST("/:id/resync", handler.Resync)
	}
}

func registerInviteRoutes(api *gin.RouterGroup, handler *handlers.InviteHandler) {
	invites := api.Group("/invites")
	{
		invites.POST("/accept", handler.Accept)
		invites.POST("/forgot", handler.Forgot)
	}
}
