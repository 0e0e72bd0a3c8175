package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/handlers"
)

func registerAuthRoutes(api *gin.RouterGroup, handler *handlers.AuthHandler) {
	group := api.Group("/auth")
	{
		group.POST("/register", handler.Register)
		group.POST("/login", handler.Login)
	}
}
