package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/handlers"
)

func registerUserRoutes(api *gin.RouterGroup, handler *handlers.UserHandler) {
	group := api.Group("/user")
	{
		group.GET("/details", handler.Details)
		group.PATCH("/onboarding-stage", handler.UpdateOnboardingStage)
	}
}
