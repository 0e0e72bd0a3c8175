package api

import (
	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/handlers"
	"github.com/charlesng35/complaintdesk/internal/monitoring"
)

func registerHealthRoutes(r *gin.Engine, manager *monitoring.HealthManager) {
	ready := handlers.Health(manager)
	live := handlers.Liveness(manager)

	for _, router := range []gin.IRouter{r, r.Group("/api")} {
		router.GET("/health", ready)
		router.GET("/health/ready", ready)
		router.GET("/health/live", live)
	}
}
