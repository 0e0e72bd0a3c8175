package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/app"
	iauth "github.com/charlesng35/complaintdesk/internal/auth"
	"github.com/charlesng35/complaintdesk/internal/handlers"
	"github.com/charlesng35/complaintdesk/internal/middleware"
	"github.com/charlesng35/complaintdesk/internal/monitoring"
	"github.com/charlesng35/complaintdesk/internal/monitoring/checks"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	"github.com/charlesng35/complaintdesk/internal/services"
)

// Dependencies carries the services the HTTP surface is built on. Hub may be nil when
// realtime push is disabled; a nil Health gets a manager probing only the database.
type Dependencies struct {
	DB            *gorm.DB
	JWT           *iauth.JWTService
	Config        *app.Config
	Users         *services.UserService
	Complaints    *services.ComplaintService
	Onboarding    *services.OnboardingService
	Notifications *services.NotificationService
	Hub           *notifications.Hub
	Health        *monitoring.HealthManager
}

func (d Dependencies) validate() error {
	switch {
	case d.DB == nil:
		return fmt.Errorf("database handle must be provided")
	case d.JWT == nil:
		return fmt.Errorf("jwt service must be provided")
	case d.Config == nil:
		return fmt.Errorf("config must be provided")
	case d.Users == nil, d.Complaints == nil, d.Onboarding == nil, d.Notifications == nil:
		return fmt.Errorf("services must be provided")
	}
	return nil
}

// NewRouter builds the Gin engine, wires middleware and registers every route.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}
	cfg := deps.Config

	r := gin.New()
	r.HandleMethodNotAllowed = true

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	health := deps.Health
	if health == nil {
		health = monitoring.NewHealthManager(0)
		health.RegisterReadiness(checks.Database(deps.DB))
	}
	registerHealthRoutes(r, health)
	registerMetricsRoutes(r, cfg.Monitoring.Prometheus)

	api := r.Group("/api")
	api.Use(middleware.RateLimit(cfg.Server.RateLimit.RequestsPerMinute, cfg.Server.RateLimit.Burst))

	registerAuthRoutes(api, handlers.NewAuthHandler(deps.Users, deps.JWT))

	protected := api.Group("")
	protected.Use(middleware.Auth(deps.JWT))

	registerComplaintRoutes(protected, handlers.NewComplaintHandler(deps.Complaints))
	registerUserRoutes(protected, handlers.NewUserHandler(deps.Users, deps.Onboarding))
	registerNotificationRoutes(protected, handlers.NewNotificationHandler(deps.Notifications, deps.Hub))

	r.NoRoute(middleware.NotFoundHandler)
	r.NoMethod(middleware.MethodNotAllowedHandler)

	return r, nil
}

func registerMetricsRoutes(r *gin.Engine, cfg app.PrometheusConfig) {
	if !cfg.Enabled {
		return
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(promhttp.Handler()))
}
