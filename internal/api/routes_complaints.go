package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/handlers"
)

func registerComplaintRoutes(api *gin.RouterGroup, handler *handlers.ComplaintHandler) {
	group := api.Group("/complaints")
	{
		group.POST("", handler.Create)
		group.GET("", handler.List)
		group.GET("/:id", handler.Get)
		group.PATCH("/:id/status", handler.UpdateStatus)
		group.GET("/:id/metrics", handler.Metrics)
	}
}
