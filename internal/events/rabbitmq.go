package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Notification is a user-facing message delivered through the notification
// queue (email digests, task completion pings).
type Notification struct {
	UserID  string    `json:"user_id"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// Notifier publishes notifications to a durable RabbitMQ queue. A nil
// notifier (no URL configured) is safe to call and drops messages.
// Connections are re-established lazily after failures.
type Notifier struct {
	url   string
	queue string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewNotifier(url, queue string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{url: url, queue: queue}
}

func (n *Notifier) ensureChannel() (*amqp.Channel, error) {
	if n.channel != nil && !n.conn.IsClosed() {
		return n.channel, nil
	}

	conn, err := amqp.Dial(n.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	_, err = ch.QueueDeclare(n.queue, true, false, false, false, nil)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}

	n.conn = conn
	n.channel = ch
	return ch, nil
}

// Publish enqueues a persistent notification message.
func (n *Notifier) Publish(ctx context.Context, notif Notification) error {
	if n == nil {
		return nil
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	ch, err := n.ensureChannel()
	if err != nil {
		return err
	}

	body, err := json.Marshal(notif)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	err = ch.PublishWithContext(ctx, "", n.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		// Drop the broken channel so the next publish reconnects.
		n.channel = nil
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Healthy verifies the broker connection, dialing if needed.
func (n *Notifier) Healthy(ctx context.Context) error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	_, err := n.ensureChannel()
	return err
}

func (n *Notifier) Close() error {
	if n == nil {
		return nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.channel != nil {
		n.channel.Close()
		n.channel = nil
	}
	if n.conn != nil {
		err := n.conn.Close()
		n.conn = nil
		return err
	}
	return nil
}
