package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/edgard/mentorbot/internal/domain"
)

// Envelope is the wire form of a record on the bus.
type Envelope struct {
	UserID string                    `json:"user_id"`
	Record domain.ConversationRecord `json:"record"`
}

// Handler receives one decoded envelope.
type Handler func(ctx context.Context, userID string, rec domain.ConversationRecord) error

// Bus carries records from transports to the session manager over a
// watermill topic.
type Bus struct {
	pubSub *gochannel.GoChannel
	topic  string
	logger *slog.Logger
}

// NewBus creates an in-process bus on topic.
func NewBus(topic string, bufferSize int64, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "ingest_bus")
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{
			OutputChannelBuffer:            bufferSize,
			BlockPublishUntilSubscriberAck: true,
		},
		watermill.NewSlogLogger(log),
	)
	return &Bus{pubSub: pubSub, topic: topic, logger: log}
}

// Publish sends rec for userID. It returns once the subscriber acked the
// record, so records from one publisher arrive in publish order. Records
// published while nobody is subscribed are dropped.
func (b *Bus) Publish(userID string, rec domain.ConversationRecord) error {
	if userID == "" {
		return fmt.Errorf("%w: empty user id", domain.ErrValidation)
	}
	payload, err := json.Marshal(Envelope{UserID: userID, Record: rec})
	if err != nil {
		return fmt.Errorf("failed to encode record %s: %w", rec.ID, err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubSub.Publish(b.topic, msg); err != nil {
		return fmt.Errorf("failed to publish record %s: %w", rec.ID, err)
	}
	return nil
}

// Subscription is an open subscription on the bus topic.
type Subscription struct {
	messages <-chan *message.Message
}

// Subscribe opens a subscription on the topic. Records published from now on
// are buffered for Consume. The subscription ends when ctx is done or the bus
// is closed.
func (b *Bus) Subscribe(ctx context.Context) (*Subscription, error) {
	messages, err := b.pubSub.Subscribe(ctx, b.topic)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", b.topic, err)
	}
	b.logger.Info("Subscribed to ingest topic", "topic", b.topic)
	return &Subscription{messages: messages}, nil
}

// Consume passes every envelope of sub to handle until ctx is done or the bus
// is closed. Every message is acked: malformed payloads and handler errors are
// logged, not redelivered.
func (b *Bus) Consume(ctx context.Context, sub *Subscription, handle Handler) error {
	for msg := range sub.messages {
		b.process(ctx, msg, handle)
	}
	return ctx.Err()
}

func (b *Bus) process(ctx context.Context, msg *message.Message, handle Handler) {
	defer msg.Ack()

	var env Envelope
	if err := json.Unmarshal(msg.Payload, &env); err != nil {
		b.logger.Error("Failed to decode envelope", "message_uuid", msg.UUID, "error", err)
		return
	}
	if env.UserID == "" {
		b.logger.Error("Envelope without user id", "message_uuid", msg.UUID)
		return
	}

	if err := handle(ctx, env.UserID, env.Record); err != nil {
		b.logger.Warn("Record rejected",
			"user_id", env.UserID,
			"record_id", env.Record.ID,
			"error", err)
	}
}

// Close shuts the bus down, ending every Consume.
func (b *Bus) Close() error {
	return b.pubSub.Close()
}
