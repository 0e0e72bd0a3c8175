package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/charlesng35/complaintdesk/internal/models"
)

// Envelope is the JSON body published for each notification.
type Envelope struct {
	NotificationID string    `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Kind           string    `json:"kind"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	CreatedAt      time.Time `json:"created_at"`
}

type publisher interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPSink publishes notifications to a durable queue for an external delivery worker.
type AMQPSink struct {
	mu    sync.Mutex
	queue string
	ch    publisher
	close func() error
}

// DialAMQPSink connects to the broker and declares the target queue.
func DialAMQPSink(url, queue string) (*AMQPSink, error) {
	if url == "" {
		return nil, errors.New("amqp sink: url is required")
	}
	if queue == "" {
		queue = "notifications"
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp sink: dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp sink: open channel: %w", err)
	}
	q, err := ch.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp sink: declare queue: %w", err)
	}

	return &AMQPSink{
		queue: q.Name,
		ch:    ch,
		close: func() error {
			_ = ch.Close()
			return conn.Close()
		},
	}, nil
}

func newAMQPSink(queue string, ch publisher) *AMQPSink {
	return &AMQPSink{queue: queue, ch: ch, close: func() error { return nil }}
}

func (s *AMQPSink) Deliver(ctx context.Context, n *models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := json.Marshal(Envelope{
		NotificationID: n.ID,
		UserID:         n.UserID,
		Kind:           n.Kind,
		Title:          n.Title,
		Body:           n.Body,
		CreatedAt:      n.CreatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("amqp sink: encode: %w", err)
	}

	// amqp.Channel is not safe for concurrent publishing.
	s.mu.Lock()
	defer s.mu.Unlock()

	err = s.ch.Publish("", s.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    n.ID,
		Type:         n.Kind,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp sink: publish: %w", err)
	}
	return nil
}

// Close releases the broker channel and connection.
func (s *AMQPSink) Close() error {
	if s == nil || s.close == nil {
		return nil
	}
	return s.close()
}
