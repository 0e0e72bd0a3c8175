package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/handlers"
)

func registerNotificationRoutes(api *gin.RouterGroup, handler *handlers.NotificationHandler) {
	group := api.Group("/notifications")
	{
		group.GET("", handler.List)
		group.GET("/stream", handler.Stream)
	}
}
