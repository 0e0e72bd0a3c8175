package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/metrics"
)

// DefaultDeliveryTimeout bounds a single sink call when none is configured.
const DefaultDeliveryTimeout = 10 * time.Second

// Option customises a Dispatcher.
type Option func(*Dispatcher)

// WithDeliveryTimeout bounds each sink invocation.
func WithDeliveryTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithClock overrides the time source used for sent_at.
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) {
		if now != nil {
			disp.now = now
		}
	}
}

// Dispatcher persists notifications and hands them to a delivery sink. Every call
// writes a new record first with is_sent=false; the flag flips only after the sink
// succeeds, so unsent records are the backlog for Redeliver.
type Dispatcher struct {
	db      *gorm.DB
	sink    Sink
	timeout time.Duration
	now     func() time.Time
	log     *zap.Logger
}

func NewDispatcher(db *gorm.DB, sink Sink, opts ...Option) (*Dispatcher, error) {
	if db == nil {
		return nil, errors.New("notification dispatcher: db is required")
	}
	if sink == nil {
		sink = NewLogSink()
	}

	d := &Dispatcher{
		db:      db,
		sink:    sink,
		timeout: DefaultDeliveryTimeout,
		now:     time.Now,
		log:     logger.WithModule("notifications"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Dispatch records and delivers a notification. Only a failure to write the initial
// record is returned; delivery failures are logged and kept on the record.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, kind string, content Content) (*models.Notification, error) {
	if userID == "" {
		return nil, errors.New("notification dispatcher: user id is required")
	}

	notification := &models.Notification{
		UserID: userID,
		Kind:   kind,
		Title:  content.Title,
		Body:   content.Body,
		IsSent: false,
	}
	if err := d.db.WithContext(ctx).Create(notification).Error; err != nil {
		return nil, fmt.Errorf("notification dispatcher: persist: %w", err)
	}

	d.deliver(ctx, notification)
	return notification, nil
}

// Redeliver retries up to limit unsent notifications, oldest first, and returns how
// many were delivered.
func (d *Dispatcher) Redeliver(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}

	var pending []models.Notification
	if err := d.db.WithContext(ctx).
		Where("is_sent = ?", false).
		Order("created_at ASC").
		Limit(limit).
		Find(&pending).Error; err != nil {
		return 0, fmt.Errorf("notification dispatcher: load unsent: %w", err)
	}

	delivered := 0
	for i := range pending {
		if err := ctx.Err(); err != nil {
			return delivered, err
		}
		if d.deliver(ctx, &pending[i]) {
			delivered++
		}
	}
	return delivered, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) bool {
	sinkErr := d.invokeSink(ctx, n)
	n.Attempts++

	updates := map[string]any{"attempts": n.Attempts}
	result := "sent"
	if sinkErr != nil {
		result = "failed"
		n.LastError = sinkErr.Error()
		updates["last_error"] = n.LastError
		d.log.Warn("notification delivery failed",
			zap.String("notification_id", n.ID),
			zap.String("user_id", n.UserID),
			zap.String("kind", n.Kind),
			zap.Int("attempts", n.Attempts),
			zap.Error(sinkErr),
		)
	} else {
		sentAt := d.now().UTC()
		n.IsSent = true
		n.SentAt = &sentAt
		n.LastError = ""
		updates["is_sent"] = true
		updates["sent_at"] = sentAt
		updates["last_error"] = ""
	}
	metrics.NotificationDeliveries.WithLabelValues(n.Kind, result).Inc()

	// The outcome is recorded even if the caller's context has ended.
	if err := d.db.WithContext(context.WithoutCancel(ctx)).
		Model(&models.Notification{}).
		Where("id = ?", n.ID).
		Updates(updates).Error; err != nil {
		d.log.Error("failed to record delivery outcome",
			zap.String("notification_id", n.ID),
			zap.Error(err),
		)
		return false
	}
	return sinkErr == nil
}

// invokeSink runs the sink on a copy of n so a timed-out call cannot race with the
// outcome being recorded.
func (d *Dispatcher) invokeSink(ctx context.Context, n *models.Notification) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	snapshot := *n
	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("sink panic: %v", r)
			}
		}()
		done <- d.sink.Deliver(ctx, &snapshot)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("sink timed out: %w", ctx.Err())
	}
}
