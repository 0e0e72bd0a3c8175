package notifications

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/mail"
)

// Sink delivers a persisted notification to its recipient.
type Sink interface {
	Deliver(ctx context.Context, notification *models.Notification) error
}

// SinkFunc adapts a function to the Sink interface.
type SinkFunc func(ctx context.Context, notification *models.Notification) error

func (f SinkFunc) Deliver(ctx context.Context, notification *models.Notification) error {
	return f(ctx, notification)
}

// LogSink prints notifications through the structured logger instead of delivering them.
type LogSink struct {
	log *zap.Logger
	now func() time.Time
}

func NewLogSink() *LogSink {
	return &LogSink{log: logger.WithModule("notifications.mock_email"), now: time.Now}
}

func (s *LogSink) Deliver(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("email notification",
		zap.String("to_user_id", n.UserID),
		zap.String("subject", n.Title),
		zap.String("body", n.Body),
		zap.Time("sent_at", s.now().UTC()),
	)
	return nil
}

// MailSink emails notifications to the address stored on the recipient's account.
type MailSink struct {
	db     *gorm.DB
	mailer mail.Mailer
	from   string
}

func NewMailSink(db *gorm.DB, mailer mail.Mailer, from string) (*MailSink, error) {
	if db == nil {
		return nil, errors.New("mail sink: db is required")
	}
	if mailer == nil {
		return nil, errors.New("mail sink: mailer is required")
	}
	return &MailSink{db: db, mailer: mailer, from: from}, nil
}

func (s *MailSink) Deliver(ctx context.Context, n *models.Notification) error {
	var user models.User
	if err := s.db.WithContext(ctx).Select("id", "email").First(&user, "id = ?", n.UserID).Error; err != nil {
		return fmt.Errorf("mail sink: resolve recipient: %w", err)
	}
	if strings.TrimSpace(user.Email) == "" {
		return fmt.Errorf("mail sink: user %s has no email address", n.UserID)
	}

	return s.mailer.Send(ctx, mail.Message{
		From:    s.from,
		To:      []string{user.Email},
		Subject: n.Title,
		Body:    n.Body,
		Headers: map[string]string{
			"X-Notification-ID":   n.ID,
			"X-Notification-Kind": n.Kind,
		},
	})
}

// MultiSink delivers to every sink and reports the combined error.
type MultiSink []Sink

func (m MultiSink) Deliver(ctx context.Context, n *models.Notification) error {
	var errs error
	for _, sink := range m {
		if sink == nil {
			continue
		}
		errs = multierr.Append(errs, sink.Deliver(ctx, n))
	}
	return errs
}

// RecordingSink stores every delivered notification. Err, when set, is returned from
// each delivery after recording it.
type RecordingSink struct {
	mu        sync.Mutex
	delivered []models.Notification
	Err       error
}

func (r *RecordingSink) Deliver(_ context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delivered = append(r.delivered, *n)
	return r.Err
}

// SetErr changes the error returned by subsequent deliveries.
func (r *RecordingSink) SetErr(err error) {
	r.mu.Lock()
	r.Err = err
	r.mu.Unlock()
}

// Delivered returns a copy of the recorded notifications in delivery order.
func (r *RecordingSink) Delivered() []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Notification, len(r.delivered))
	copy(out, r.delivered)
	return out
}
