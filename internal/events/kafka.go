package events

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// ChatEvent is published after every chat exchange for downstream consumers
// (analytics, moderation).
type ChatEvent struct {
	SessionID     uuid.UUID `json:"session_id"`
	UserID        uuid.UUID `json:"user_id"`
	Model         string    `json:"model"`
	MessageChars  int       `json:"message_chars"`
	ResponseChars int       `json:"response_chars"`
	Timestamp     time.Time `json:"timestamp"`
}

// ChatEventPublisher writes chat events to Kafka. A nil publisher (no
// brokers configured) is safe to call and drops events.
type ChatEventPublisher struct {
	writer  *kafka.Writer
	brokers []string
}

func NewChatEventPublisher(brokers []string, topic string) *ChatEventPublisher {
	if len(brokers) == 0 {
		return nil
	}
	return &ChatEventPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			Async:        true,
		},
		brokers: brokers,
	}
}

// Publish sends the event keyed by session so per-session ordering holds.
// Failures are logged, never propagated: event delivery is best effort and
// must not fail the chat request.
func (p *ChatEventPublisher) Publish(ctx context.Context, event ChatEvent) {
	if p == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("failed to marshal chat event: %v", err)
		return
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.SessionID.String()),
		Value: payload,
	})
	if err != nil {
		log.Printf("failed to publish chat event: %v", err)
	}
}

// Healthy dials the first broker to verify reachability.
func (p *ChatEventPublisher) Healthy(ctx context.Context) error {
	if p == nil {
		return nil
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return err
	}
	return conn.Close()
}

func (p *ChatEventPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
