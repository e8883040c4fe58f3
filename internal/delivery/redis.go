package delivery

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/edgard/mentorbot/internal/domain"
)

// Publisher is the part of *redis.Client the Redis channel needs.
type Publisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisChannel publishes push payloads on a per-user pub/sub channel so any
// instance holding the user's device connection can forward them.
type RedisChannel struct {
	rdb      Publisher
	prefix   string
	platform Platform
}

func NewRedisChannel(rdb Publisher, channelPrefix string, platform Platform) *RedisChannel {
	return &RedisChannel{rdb: rdb, prefix: channelPrefix, platform: platform}
}

func (c *RedisChannel) Dispatch(ctx context.Context, n domain.Notification) error {
	data, err := EncodePayload(c.platform, n)
	if err != nil {
		return err
	}

	channel := c.ChannelName(n.UserID)
	if err := c.rdb.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification to redis channel %s: %w", channel, err)
	}
	return nil
}

// ChannelName returns the pub/sub channel for userID.
func (c *RedisChannel) ChannelName(userID string) string {
	return c.prefix + ":" + userID
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}
