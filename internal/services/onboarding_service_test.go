package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	"github.com/charlesng35/complaintdesk/internal/onboarding"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/logger"
)

func newOnboardingService(t *testing.T, env *testEnv, cfg OnboardingConfig) *OnboardingService {
	t.Helper()
	svc, err := NewOnboardingService(env.db, env.dispatcher, cfg, WithClock(env.clock.Now))
	require.NoError(t, err)
	return svc
}

func ledgerLevels(rows []models.OnboardingReminder) []int {
	levels := make([]int, 0, len(rows))
	for _, row := range rows {
		levels = append(levels, row.ReminderLevel)
	}
	return levels
}

func TestProcessRemindersSendsFirstLevelOnce(t *testing.T) {
	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 0, baseTime.Add(-25*time.Hour))

	report, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, TickReport{UsersScanned: 1, RemindersSent: 1}, report)

	ledger := env.ledger(t, user.ID)
	require.Equal(t, []int{1}, ledgerLevels(ledger))
	require.Equal(t, 0, ledger[0].Stage)

	sent := env.notifications(t, user.ID)
	require.Len(t, sent, 1)
	require.Equal(t, "Complete your profile", sent[0].Title)
	require.Equal(t, models.NotificationKindOnboarding, sent[0].Kind)

	report, err = svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Zero(t, report.RemindersSent)
	require.Len(t, env.notifications(t, user.ID), 1)
}

func TestProcessRemindersCatchesUpInAscendingOrder(t *testing.T) {
	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 0, baseTime.Add(-130*time.Hour))

	report, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.RemindersSent)
	require.Equal(t, []int{1, 2, 3}, ledgerLevels(env.ledger(t, user.ID)))

	var titles []string
	for _, d := range env.sink.Delivered() {
		titles = append(titles, d.Title)
	}
	require.Equal(t, []string{"Complete your profile", "Profile incomplete", "Finish setup"}, titles)
}

func TestProcessRemindersStageTwoDuplicateThreshold(t *testing.T) {
	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 2, baseTime.Add(-25*time.Hour))

	_, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1, 2}, ledgerLevels(env.ledger(t, user.ID)))
}

func TestProcessRemindersSkipsCompleteAndUnscheduledStages(t *testing.T) {
	env := newTestEnv(t)
	schedule := onboarding.Schedule{0: {24}}
	svc := newOnboardingService(t, env, OnboardingConfig{Schedule: schedule})

	complete := env.createUser(t, "done@example.com", onboarding.StageComplete, baseTime.Add(-500*time.Hour))
	unscheduled := env.createUser(t, "stage1@example.com", 1, baseTime.Add(-500*time.Hour))

	report, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, report.UsersScanned)
	require.Zero(t, report.RemindersSent)
	require.Empty(t, env.ledger(t, complete.ID))
	require.Empty(t, env.ledger(t, unscheduled.ID))
}

func TestProcessRemindersNotYetDue(t *testing.T) {
	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 1, baseTime.Add(-11*time.Hour))

	_, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Empty(t, env.ledger(t, user.ID))

	env.clock.Advance(time.Hour)
	_, err = svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1}, ledgerLevels(env.ledger(t, user.ID)))
}

func TestProcessRemindersAnchorPolicy(t *testing.T) {
	for _, tc := range []struct {
		anchor onboarding.AnchorPolicy
		levels []int
	}{
		{anchor: onboarding.AnchorSignup, levels: []int{1, 2}},
		{anchor: onboarding.AnchorStage, levels: []int{}},
	} {
		t.Run(string(tc.anchor), func(t *testing.T) {
			env := newTestEnv(t)
			svc := newOnboardingService(t, env, OnboardingConfig{Anchor: tc.anchor})
			user := env.createUser(t, "a@example.com", 1, baseTime.Add(-200*time.Hour))
			stageStart := baseTime.Add(-5 * time.Hour)
			require.NoError(t, env.db.Model(user).Update("stage_started_at", stageStart).Error)

			_, err := svc.ProcessReminders(context.Background())
			require.NoError(t, err)
			require.Equal(t, tc.levels, ledgerLevels(env.ledger(t, user.ID)))
		})
	}
}

func TestProcessRemindersIsolatesUserFailures(t *testing.T) {
	env := newTestEnv(t)
	broken := env.createUser(t, "broken@example.com", 0, baseTime.Add(-30*time.Hour))
	healthy := env.createUser(t, "healthy@example.com", 0, baseTime.Add(-29*time.Hour))

	notifier := notifierFunc(func(ctx context.Context, userID, kind string, content notifications.Content) (*models.Notification, error) {
		if userID == broken.ID {
			return nil, errors.New("insert failed")
		}
		return env.dispatcher.Dispatch(ctx, userID, kind, content)
	})
	svc, err := NewOnboardingService(env.db, notifier, OnboardingConfig{}, WithClock(env.clock.Now))
	require.NoError(t, err)

	report, err := svc.ProcessReminders(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, broken.ID)
	require.Equal(t, TickReport{UsersScanned: 2, RemindersSent: 1, UsersFailed: 1}, report)

	require.Empty(t, env.ledger(t, broken.ID))
	require.Equal(t, []int{1}, ledgerLevels(env.ledger(t, healthy.ID)))
}

func TestProcessRemindersSinkFailureStillRecordsLedger(t *testing.T) {
	env := newTestEnv(t)
	env.sink.SetErr(errors.New("mailbox full"))
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 0, baseTime.Add(-25*time.Hour))

	_, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, []int{1}, ledgerLevels(env.ledger(t, user.ID)))

	sent := env.notifications(t, user.ID)
	require.Len(t, sent, 1)
	require.False(t, sent[0].IsSent)
}

func TestProcessRemindersToleratesConcurrentLedgerWrite(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser(t, "a@example.com", 0, baseTime.Add(-25*time.Hour))

	// Another run records the level between the ledger read and the write.
	notifier := notifierFunc(func(ctx context.Context, userID, kind string, content notifications.Content) (*models.Notification, error) {
		err := env.db.Create(&models.OnboardingReminder{UserID: userID, Stage: 0, ReminderLevel: 1, SentAt: baseTime}).Error
		if err != nil {
			return nil, err
		}
		return env.dispatcher.Dispatch(ctx, userID, kind, content)
	})
	svc, err := NewOnboardingService(env.db, notifier, OnboardingConfig{}, WithClock(env.clock.Now))
	require.NoError(t, err)

	_, err = svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Len(t, env.ledger(t, user.ID), 1)
}

func TestAdvanceStage(t *testing.T) {
	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{})
	user := env.createUser(t, "a@example.com", 0, baseTime.Add(-time.Hour))

	updated, err := svc.AdvanceStage(context.Background(), user.ID, 2)
	require.NoError(t, err)
	require.Equal(t, 2, updated.OnboardingStage)
	require.NotNil(t, updated.StageStartedAt)
	require.True(t, updated.StageStartedAt.Equal(baseTime))

	var stored models.User
	require.NoError(t, env.db.First(&stored, "id = ?", user.ID).Error)
	require.Equal(t, 2, stored.OnboardingStage)
	require.NotNil(t, stored.StageStartedAt)

	_, err = svc.AdvanceStage(context.Background(), user.ID, 3)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.AdvanceStage(context.Background(), user.ID, -1)
	require.ErrorIs(t, err, apperrors.ErrBadRequest)

	_, err = svc.AdvanceStage(context.Background(), "missing", 1)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestNewOnboardingServiceRequiresNotifier(t *testing.T) {
	env := newTestEnv(t)
	_, err := NewOnboardingService(env.db, nil, OnboardingConfig{})
	require.Error(t, err)
}

func TestProcessRemindersWarnsOnMissingContent(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	t.Cleanup(logger.Replace(zap.New(core)))

	env := newTestEnv(t)
	svc := newOnboardingService(t, env, OnboardingConfig{Schedule: onboarding.Schedule{1: {1, 1, 1}}})
	user := env.createUser(t, "a@example.com", 1, baseTime.Add(-2*time.Hour))

	report, err := svc.ProcessReminders(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, report.RemindersSent)

	require.Len(t, env.notifications(t, user.ID), 3)
	delivered := env.sink.Delivered()
	require.Len(t, delivered, 3)
	require.NotEqual(t, notifications.FallbackOnboardingContent.Title, delivered[1].Title)
	require.Equal(t, notifications.FallbackOnboardingContent.Title, delivered[2].Title)

	warnings := logs.FilterMessage("no reminder content for stage level; using generic text").All()
	require.Len(t, warnings, 1)
	fields := warnings[0].ContextMap()
	require.EqualValues(t, 1, fields["stage"])
	require.EqualValues(t, 3, fields["level"])
}
