package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/api"
	"github.com/charlesng35/complaintdesk/internal/app"
	"github.com/charlesng35/complaintdesk/internal/app/jobs"
	iauth "github.com/charlesng35/complaintdesk/internal/auth"
	"github.com/charlesng35/complaintdesk/internal/database"
	"github.com/charlesng35/complaintdesk/internal/monitoring"
	"github.com/charlesng35/complaintdesk/internal/monitoring/checks"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/mail"
)

// jobStalenessWindow marks background jobs unhealthy when they have not run for this long.
const jobStalenessWindow = 6 * time.Hour

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB         *gorm.DB
	Hub        *notifications.Hub
	Dispatcher *notifications.Dispatcher
	Onboarding *services.OnboardingService
	Runner     *jobs.Runner
	Router     *gin.Engine

	closers []io.Closer
}

// bootstrapRuntime initialises the database, delivery sinks, services, jobs and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	jwtSvc, err := iauth.NewJWTService(cfg.Auth.JWTServiceConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise jwt service: %w", err)
	}

	if cfg.Notifications.Realtime.Enabled {
		stack.Hub = notifications.NewHub()
	}

	sink, err := stack.buildSink(cfg, log)
	if err != nil {
		return nil, err
	}

	stack.Dispatcher, err = notifications.NewDispatcher(stack.DB, sink,
		notifications.WithDeliveryTimeout(cfg.Notifications.DeliveryTimeout))
	if err != nil {
		return nil, fmt.Errorf("initialise dispatcher: %w", err)
	}

	users, err := services.NewUserService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise user service: %w", err)
	}
	complaintSvc, err := services.NewComplaintService(stack.DB, stack.Dispatcher)
	if err != nil {
		return nil, fmt.Errorf("initialise complaint service: %w", err)
	}
	onboardingCfg, err := cfg.Onboarding.ServiceConfig()
	if err != nil {
		return nil, fmt.Errorf("onboarding config: %w", err)
	}
	stack.Onboarding, err = services.NewOnboardingService(stack.DB, stack.Dispatcher, onboardingCfg)
	if err != nil {
		return nil, fmt.Errorf("initialise onboarding service: %w", err)
	}
	notificationSvc, err := services.NewNotificationService(stack.DB)
	if err != nil {
		return nil, fmt.Errorf("initialise notification service: %w", err)
	}

	stack.Runner, err = buildRunner(cfg, stack.Onboarding, stack.Dispatcher)
	if err != nil {
		return nil, err
	}

	health := monitoring.NewHealthManager(0)
	health.RegisterReadiness(checks.Database(stack.DB))
	health.RegisterReadiness(checks.Jobs(jobStalenessWindow, nil))

	stack.Router, err = api.NewRouter(api.Dependencies{
		DB:            stack.DB,
		JWT:           jwtSvc,
		Config:        cfg,
		Users:         users,
		Complaints:    complaintSvc,
		Onboarding:    stack.Onboarding,
		Notifications: notificationSvc,
		Hub:           stack.Hub,
		Health:        health,
	})
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// buildSink selects the delivery sink from configuration and fans out to the realtime hub
// when it is enabled.
func (s *runtimeStack) buildSink(cfg *app.Config, log *zap.Logger) (notifications.Sink, error) {
	var primary notifications.Sink

	kind := strings.ToLower(strings.TrimSpace(cfg.Notifications.Sink))
	switch kind {
	case "", "log":
		primary = notifications.NewLogSink()
	case "smtp":
		mailer, err := mail.NewSMTPMailer(cfg.Email.SMTPSettings())
		if err != nil {
			return nil, fmt.Errorf("initialise smtp mailer: %w", err)
		}
		primary, err = notifications.NewMailSink(s.DB, mailer, cfg.Email.SMTP.From)
		if err != nil {
			return nil, fmt.Errorf("initialise mail sink: %w", err)
		}
	case "amqp":
		amqpSink, err := notifications.DialAMQPSink(cfg.Broker.AMQP.URL, cfg.Broker.AMQP.Queue)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, amqpSink)
		primary = amqpSink
	default:
		return nil, fmt.Errorf("unsupported notification sink %q", cfg.Notifications.Sink)
	}
	log.Info("notification sink configured", zap.String("sink", kind), zap.Bool("realtime", s.Hub != nil))

	if s.Hub == nil {
		return primary, nil
	}
	return notifications.MultiSink{primary, notifications.NewHubSink(s.Hub)}, nil
}

func buildRunner(cfg *app.Config, onboarding jobs.ReminderProcessor, redeliverer jobs.Redeliverer) (*jobs.Runner, error) {
	runner := jobs.NewRunner()

	if cfg.Onboarding.Enabled {
		if err := runner.Register(jobs.OnboardingReminders(onboarding, cfg.Onboarding.Schedule)); err != nil {
			return nil, fmt.Errorf("register onboarding job: %w", err)
		}
	}
	if cfg.Notifications.Redelivery.Enabled {
		redelivery := cfg.Notifications.Redelivery
		if err := runner.Register(jobs.Redelivery(redeliverer, redelivery.Schedule, redelivery.BatchSize)); err != nil {
			return nil, fmt.Errorf("register redelivery job: %w", err)
		}
	}
	return runner, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Runner != nil {
		select {
		case <-s.Runner.Stop().Done():
		case <-ctx.Done():
			log.Warn("background jobs did not stop before shutdown deadline")
		}
	}

	for _, c := range s.closers {
		if err := c.Close(); err != nil {
			log.Warn("close resource", zap.Error(err))
		}
	}

	if s.DB != nil {
		closeDatabase(s.DB, log)
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		closeDatabase(db, logger.WithModule("database"))
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", dbCfg.Driver))

	return db, nil
}

func closeDatabase(db *gorm.DB, log *zap.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Warn("failed to obtain underlying sql DB for closing", zap.Error(err))
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Warn("failed to close database", zap.Error(err))
	}
}
