package jobs

import (
	"context"

	"go.uber.org/zap"

	"github.com/charlesng35/complaintdesk/internal/services"
	"github.com/charlesng35/complaintdesk/pkg/logger"
)

const (
	OnboardingRemindersJob = "onboarding_reminders"
	RedeliveryJob          = "notification_redelivery"
)

// ReminderProcessor runs one onboarding reminder pass.
type ReminderProcessor interface {
	ProcessReminders(ctx context.Context) (services.TickReport, error)
}

// Redeliverer retries unsent notifications.
type Redeliverer interface {
	Redeliver(ctx context.Context, limit int) (int, error)
}

// OnboardingReminders builds the periodic reminder job.
func OnboardingReminders(processor ReminderProcessor, schedule string) Job {
	return Job{
		Name:     OnboardingRemindersJob,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			_, err := processor.ProcessReminders(ctx)
			return err
		},
	}
}

// Redelivery builds the job that retries up to batch unsent notifications per run.
func Redelivery(redeliverer Redeliverer, schedule string, batch int) Job {
	log := logger.WithModule("jobs")
	return Job{
		Name:     RedeliveryJob,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			delivered, err := redeliverer.Redeliver(ctx, batch)
			if delivered > 0 {
				log.Info("redelivered notifications", zap.Int("count", delivered))
			}
			return err
		},
	}
}
