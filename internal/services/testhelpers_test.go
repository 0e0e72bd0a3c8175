package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/database/testutil"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/internal/notifications"
)

var baseTime = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: baseTime}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type testEnv struct {
	db         *gorm.DB
	clock      *testClock
	sink       *notifications.RecordingSink
	dispatcher *notifications.Dispatcher
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	clock := newTestClock()
	sink := &notifications.RecordingSink{}
	dispatcher, err := notifications.NewDispatcher(db, sink, notifications.WithClock(clock.Now))
	require.NoError(t, err)
	return &testEnv{db: db, clock: clock, sink: sink, dispatcher: dispatcher}
}

func (e *testEnv) createUser(t *testing.T, email string, stage int, createdAt time.Time) *models.User {
	t.Helper()
	user := &models.User{
		BaseModel:       models.BaseModel{CreatedAt: createdAt, UpdatedAt: createdAt},
		Name:            "User " + email,
		Email:           email,
		Password:        "hash",
		OnboardingStage: stage,
	}
	require.NoError(t, e.db.Create(user).Error)
	return user
}

func (e *testEnv) notifications(t *testing.T, userID string) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&rows).Error)
	return rows
}

func (e *testEnv) ledger(t *testing.T, userID string) []models.OnboardingReminder {
	t.Helper()
	var rows []models.OnboardingReminder
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("stage ASC, reminder_level ASC").Find(&rows).Error)
	return rows
}

// notifierFunc adapts a function to Notifier.
type notifierFunc func(ctx context.Context, userID, kind string, content notifications.Content) (*models.Notification, error)

func (f notifierFunc) Dispatch(ctx context.Context, userID, kind string, content notifications.Content) (*models.Notification, error) {
	return f(ctx, userID, kind, content)
}
