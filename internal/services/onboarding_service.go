package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/database"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/notifications"
	"github.com/charlesng35/complaintdesk/internal/onboarding"
	apperrors "github.com/charlesng35/complaintdesk/pkg/errors"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/metrics"
)

// OnboardingConfig tunes the reminder scheduler.
type OnboardingConfig struct {
	Schedule onboarding.Schedule
	Anchor   onboarding.AnchorPolicy
}

// TickReport summarises one reminder pass.
type TickReport struct {
	UsersScanned  int `json:"users_scanned"`
	RemindersSent int `json:"reminders_sent"`
	UsersFailed   int `json:"users_failed"`
}

// OnboardingService sends escalating reminders to users stuck in an onboarding stage and
// records each sent level in the reminder ledger.
type OnboardingService struct {
	db       *gorm.DB
	notifier Notifier
	schedule onboarding.Schedule
	anchor   onboarding.AnchorPolicy
	now      func() time.Time
	log      *zap.Logger

	// mu serialises ticks within this process.
	mu sync.Mutex
}

func NewOnboardingService(db *gorm.DB, notifier Notifier, cfg OnboardingConfig, opts ...Option) (*OnboardingService, error) {
	if db == nil {
		return nil, errors.New("onboarding service: db is required")
	}
	if notifier == nil {
		return nil, errors.New("onboarding service: notifier is required")
	}

	schedule := cfg.Schedule
	if len(schedule) == 0 {
		schedule = onboarding.DefaultSchedule()
	}
	anchor := cfg.Anchor
	if anchor == "" {
		anchor = onboarding.AnchorSignup
	}

	o := applyOptions(opts)
	return &OnboardingService{
		db:       db,
		notifier: notifier,
		schedule: schedule,
		anchor:   anchor,
		now:      o.now,
		log:      logger.WithModule("onboarding"),
	}, nil
}

// ProcessReminders runs one scheduler pass over every user below the complete stage.
// Every due level is sent in ascending order within the same pass. A failure for one
// user is logged and collected; the rest of the batch still runs.
func (s *OnboardingService) ProcessReminders(ctx context.Context) (TickReport, error) {
	ctx = ensureContext(ctx)
	s.mu.Lock()
	defer s.mu.Unlock()

	var report TickReport
	var users []models.User
	if err := s.db.WithContext(ctx).
		Where("onboarding_stage < ?", onboarding.StageComplete).
		Order("created_at ASC").
		Find(&users).Error; err != nil {
		return report, fmt.Errorf("onboarding service: load users: %w", err)
	}
	report.UsersScanned = len(users)
	s.log.Info("onboarding reminder check", zap.Int("users", len(users)))

	var errs error
	for i := range users {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}

		sent, err := s.remindUser(ctx, &users[i])
		report.RemindersSent += sent
		if err != nil {
			report.UsersFailed++
			errs = multierr.Append(errs, fmt.Errorf("user %s: %w", users[i].ID, err))
		}
	}

	s.log.Info("onboarding reminder check finished",
		zap.Int("users", report.UsersScanned),
		zap.Int("sent", report.RemindersSent),
		zap.Int("failed", report.UsersFailed),
	)
	return report, errs
}

func (s *OnboardingService) remindUser(ctx context.Context, user *models.User) (int, error) {
	stage := user.OnboardingStage
	if _, ok := s.schedule.Levels(stage); !ok {
		return 0, nil
	}

	var sentLevels []int
	if err := s.db.WithContext(ctx).
		Model(&models.OnboardingReminder{}).
		Where("user_id = ? AND stage = ?", user.ID, stage).
		Pluck("reminder_level", &sentLevels).Error; err != nil {
		return 0, fmt.Errorf("load reminder ledger: %w", err)
	}
	sent := make(map[int]bool, len(sentLevels))
	for _, level := range sentLevels {
		sent[level] = true
	}

	now := s.now()
	elapsed := now.Sub(s.anchor.Anchor(user.CreatedAt, user.StageStartedAt))

	count := 0
	for _, level := range s.schedule.Due(stage, elapsed, sent) {
		if err := s.sendReminder(ctx, user, stage, level); err != nil {
			s.log.Error("onboarding reminder failed",
				zap.String("user_id", user.ID),
				zap.Int("stage", stage),
				zap.Int("level", level),
				zap.Error(err),
			)
			return count, err
		}
		count++
	}
	return count, nil
}

func (s *OnboardingService) sendReminder(ctx context.Context, user *models.User, stage, level int) error {
	content, ok := notifications.OnboardingContent(stage, level)
	if !ok {
		s.log.Warn("no reminder content for stage level; using generic text",
			zap.Int("stage", stage),
			zap.Int("level", level),
		)
	}

	s.log.Info("sending onboarding reminder",
		zap.String("user_id", user.ID),
		zap.String("email", user.Email),
		zap.Int("stage", stage),
		zap.Int("level", level),
	)
	if _, err := s.notifier.Dispatch(ctx, user.ID, models.NotificationKindOnboarding, content); err != nil {
		return fmt.Errorf("dispatch reminder: %w", err)
	}

	entry := &models.OnboardingReminder{
		UserID:        user.ID,
		Stage:         stage,
		ReminderLevel: level,
		SentAt:        s.now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		if database.IsUniqueViolation(err) {
			s.log.Warn("reminder already recorded by a concurrent run",
				zap.String("user_id", user.ID),
				zap.Int("stage", stage),
				zap.Int("level", level),
			)
			return nil
		}
		return fmt.Errorf("record reminder: %w", err)
	}
	metrics.RemindersSent.WithLabelValues(strconv.Itoa(stage), strconv.Itoa(level)).Inc()
	return nil
}

// AdvanceStage moves a user to stage (0..2) and stamps when the stage began.
func (s *OnboardingService) AdvanceStage(ctx context.Context, userID string, stage int) (*models.User, error) {
	ctx = ensureContext(ctx)
	if err := onboarding.ValidateAssignableStage(stage); err != nil {
		return nil, apperrors.NewBadRequest("Invalid stage. Must be 0, 1, or 2").WithInternal(err)
	}

	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", strings.TrimSpace(userID)).Error; err != nil {
		if isNotFound(err) {
			return nil, apperrors.ErrNotFound.WithMessage("User not found")
		}
		return nil, fmt.Errorf("onboarding service: load user: %w", err)
	}
	if user.OnboardingStage == stage {
		return &user, nil
	}

	startedAt := s.now().UTC()
	if err := s.db.WithContext(ctx).Model(&user).Updates(map[string]any{
		"onboarding_stage": stage,
		"stage_started_at": startedAt,
	}).Error; err != nil {
		return nil, fmt.Errorf("onboarding service: update stage: %w", err)
	}
	user.OnboardingStage = stage
	user.StageStartedAt = &startedAt

	s.log.Info("onboarding stage updated", zap.String("user_id", user.ID), zap.Int("stage", stage))
	return &user, nil
}
