package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/charlesng35/complaintdesk/internal/database/testutil"
	"github.com/charlesng35/complaintdesk/internal/models"
	"github.com/charlesng35/complaintdesk/pkg/logger"
	"github.com/charlesng35/complaintdesk/pkg/mail"
)

type fakeMailer struct {
	sent []mail.Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg mail.Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

type fakePublisher struct {
	queue string
	msgs  []amqp.Publishing
	err   error
}

func (f *fakePublisher) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	f.queue = key
	f.msgs = append(f.msgs, msg)
	return f.err
}

func TestLogSinkWritesEntry(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	restore := logger.Replace(zap.New(core))
	t.Cleanup(restore)

	err := NewLogSink().Deliver(context.Background(), &models.Notification{UserID: "u-1", Title: "Hello", Body: "World"})
	require.NoError(t, err)

	entries := logs.FilterMessage("email notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	require.Equal(t, "u-1", fields["to_user_id"])
	require.Equal(t, "Hello", fields["subject"])
}

func TestMailSinkResolvesRecipient(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	user := seedUser(t, db)
	mailer := &fakeMailer{}

	sink, err := NewMailSink(db, mailer, "desk@example.com")
	require.NoError(t, err)

	n := &models.Notification{UserID: user.ID, Kind: models.NotificationKindOnboarding, Title: "Subject", Body: "Body"}
	n.ID = "n-1"
	require.NoError(t, sink.Deliver(context.Background(), n))

	require.Len(t, mailer.sent, 1)
	msg := mailer.sent[0]
	require.Equal(t, []string{"ann@example.com"}, msg.To)
	require.Equal(t, "desk@example.com", msg.From)
	require.Equal(t, "Subject", msg.Subject)
	require.Equal(t, "n-1", msg.Headers["X-Notification-ID"])
}

func TestMailSinkUnknownUser(t *testing.T) {
	db := testutil.MustOpenTestDB(t, testutil.WithAutoMigrate())
	mailer := &fakeMailer{}
	sink, err := NewMailSink(db, mailer, "")
	require.NoError(t, err)

	err = sink.Deliver(context.Background(), &models.Notification{UserID: "missing"})
	require.Error(t, err)
	require.Empty(t, mailer.sent)
}

func TestAMQPSinkPublishesEnvelope(t *testing.T) {
	pub := &fakePublisher{}
	sink := newAMQPSink("notifications", pub)

	n := &models.Notification{UserID: "u-1", Kind: "complaint.status", Title: "T", Body: "B"}
	n.ID = "n-1"
	require.NoError(t, sink.Deliver(context.Background(), n))

	require.Equal(t, "notifications", pub.queue)
	require.Len(t, pub.msgs, 1)
	msg := pub.msgs[0]
	require.Equal(t, "application/json", msg.ContentType)
	require.Equal(t, amqp.Persistent, msg.DeliveryMode)
	require.Equal(t, "n-1", msg.MessageId)

	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Body, &env))
	require.Equal(t, "u-1", env.UserID)
	require.Equal(t, "T", env.Title)
	require.NoError(t, sink.Close())
}

func TestAMQPSinkPublishError(t *testing.T) {
	sink := newAMQPSink("q", &fakePublisher{err: errors.New("channel closed")})
	err := sink.Deliver(context.Background(), &models.Notification{})
	require.ErrorContains(t, err, "channel closed")
}

func TestDialAMQPSinkRequiresURL(t *testing.T) {
	_, err := DialAMQPSink("", "q")
	require.Error(t, err)
}

func TestMultiSinkAggregatesErrors(t *testing.T) {
	first := &RecordingSink{Err: errors.New("first")}
	second := &RecordingSink{}
	third := &RecordingSink{Err: errors.New("third")}

	err := MultiSink{first, nil, second, third}.Deliver(context.Background(), &models.Notification{Title: "x"})
	require.Error(t, err)
	require.ErrorContains(t, err, "first")
	require.ErrorContains(t, err, "third")
	require.Len(t, second.Delivered(), 1)
}
