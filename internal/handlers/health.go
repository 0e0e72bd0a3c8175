package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/complaintdesk/internal/monitoring"
)

// Health reports readiness: every registered dependency probe must be up.
func Health(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateReadiness(requestContext(c)))
	}
}

// Liveness reports whether the process itself is serving.
func Liveness(manager *monitoring.HealthManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		writeHealthReport(c, manager.EvaluateLiveness(requestContext(c)))
	}
}

func writeHealthReport(c *gin.Context, report monitoring.HealthReport) {
	status := http.StatusOK
	if !report.Success {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, report)
}
