package delivery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/edgard/mentorbot/internal/domain"
)

// StreamPublisher is the part of jetstream.JetStream the NATS channel needs.
type StreamPublisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// NATSChannel publishes push payloads to JetStream subjects of the form
// <prefix>.<platform>.<user>, for a push gateway to consume.
type NATSChannel struct {
	js       StreamPublisher
	prefix   string
	platform Platform
}

func NewNATSChannel(js StreamPublisher, subjectPrefix string, platform Platform) *NATSChannel {
	return &NATSChannel{js: js, prefix: subjectPrefix, platform: platform}
}

func (c *NATSChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	data, err := EncodePayload(c.platform, n)
	if err != nil {
		return err
	}

	subject := c.Subject(n.UserID)
	// The notification id is the JetStream dedup id.
	if _, err := c.js.Publish(ctx, subject, data, jetstream.WithMsgID(n.ID)); err != nil {
		return fmt.Errorf("failed to publish notification to subject %s: %w", subject, err)
	}
	return nil
}

// Subject returns the subject notifications for userID are published on.
func (c *NATSChannel) Subject(userID string) string {
	return fmt.Sprintf("%s.%s.%s", c.prefix, c.platform, subjectToken(userID))
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return subjectReplacer.Replace(s)
}

// ConnectNATS connects to url and makes sure stream captures every subject
// under subjectPrefix.
func ConnectNATS(ctx context.Context, url, stream, subjectPrefix string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:       stream,
		Subjects:   []string{subjectPrefix + ".>"},
		Storage:    jetstream.FileStorage,
		Retention:  jetstream.WorkQueuePolicy,
		Duplicates: 10 * time.Minute,
	})
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("failed to ensure stream %s: %w", stream, err)
	}

	return nc, js, nil
}
