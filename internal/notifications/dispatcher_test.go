package notifications

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/database/testutil"
	"github.com/charlesng35/complaintdesk/internal/models"
)

func seedUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{Name: "Ann", Email: "ann@example.com", Password: "hash"}
	require.NoError(t, db.Create(user).Error)
	return user
}

func loadNotification(t *testing.T, db *gorm.DB, id string) models.Notification {
	t.Helper()
	var n models.Notification
	require.NoError(t, db.First(&n, "id = ?", id).Error)
	return n
}

func TestDispatchMarksSent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	sink := &RecordingSink{}
	sentAt := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	disp, err := NewDispatcher(db, sink, WithClock(func() time.Time { return sentAt }))
	require.NoError(t, err)

	n, err := disp.Dispatch(context.Background(), user.ID, models.NotificationKindOnboarding, Content{Title: "T", Body: "B"})
	require.NoError(t, err)
	require.True(t, n.IsSent)

	delivered := sink.Delivered()
	require.Len(t, delivered, 1)
	require.False(t, delivered[0].IsSent, "sink must observe the unsent record")
	require.Equal(t, "T", delivered[0].Title)

	stored := loadNotification(t, db, n.ID)
	require.True(t, stored.IsSent)
	require.NotNil(t, stored.SentAt)
	require.True(t, stored.SentAt.Equal(sentAt))
	require.Equal(t, 1, stored.Attempts)
}

func TestDispatchEachCallCreatesRecord(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	disp, err := NewDispatcher(db, &RecordingSink{})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := disp.Dispatch(context.Background(), user.ID, "k", Content{Title: "same", Body: "same"})
		require.NoError(t, err)
	}

	var count int64
	require.NoError(t, db.Model(&models.Notification{}).Count(&count).Error)
	require.EqualValues(t, 2, count)
}

func TestDispatchSinkFailureKeepsRecordUnsent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	sink := &RecordingSink{Err: errors.New("smtp down")}

	disp, err := NewDispatcher(db, sink)
	require.NoError(t, err)

	n, err := disp.Dispatch(context.Background(), user.ID, "k", Content{Title: "T"})
	require.NoError(t, err)
	require.False(t, n.IsSent)

	stored := loadNotification(t, db, n.ID)
	require.False(t, stored.IsSent)
	require.Nil(t, stored.SentAt)
	require.Equal(t, "smtp down", stored.LastError)
	require.Equal(t, 1, stored.Attempts)
}

func TestDispatchRecoversSinkPanic(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	sink := SinkFunc(func(context.Context, *models.Notification) error { panic("boom") })

	disp, err := NewDispatcher(db, sink)
	require.NoError(t, err)

	n, err := disp.Dispatch(context.Background(), user.ID, "k", Content{Title: "T"})
	require.NoError(t, err)
	require.Contains(t, loadNotification(t, db, n.ID).LastError, "boom")
}

func TestDispatchBoundsSlowSink(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })
	sink := SinkFunc(func(ctx context.Context, _ *models.Notification) error {
		<-release
		return nil
	})

	disp, err := NewDispatcher(db, sink, WithDeliveryTimeout(20*time.Millisecond))
	require.NoError(t, err)

	start := time.Now()
	n, err := disp.Dispatch(context.Background(), user.ID, "k", Content{Title: "T"})
	require.NoError(t, err)
	require.Less(t, time.Since(start), 2*time.Second)
	require.False(t, n.IsSent)
	require.Contains(t, loadNotification(t, db, n.ID).LastError, "timed out")
}

func TestDispatchRequiresUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	disp, err := NewDispatcher(db, &RecordingSink{})
	require.NoError(t, err)

	_, err = disp.Dispatch(context.Background(), "", "k", Content{})
	require.Error(t, err)
}

func TestRedeliverRetriesUnsent(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	sink := &RecordingSink{Err: errors.New("offline")}

	disp, err := NewDispatcher(db, sink)
	require.NoError(t, err)

	n, err := disp.Dispatch(context.Background(), user.ID, "k", Content{Title: "T"})
	require.NoError(t, err)
	require.False(t, n.IsSent)

	delivered, err := disp.Redeliver(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, delivered)
	require.Equal(t, 2, loadNotification(t, db, n.ID).Attempts)

	sink.SetErr(nil)
	delivered, err = disp.Redeliver(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 1, delivered)

	stored := loadNotification(t, db, n.ID)
	require.True(t, stored.IsSent)
	require.Empty(t, stored.LastError)
	require.Equal(t, 3, stored.Attempts)

	delivered, err = disp.Redeliver(context.Background(), 10)
	require.NoError(t, err)
	require.Zero(t, delivered)
	require.Len(t, sink.Delivered(), 3)
}
