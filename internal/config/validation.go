package config

import (
	"fmt"
	"slices"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags and the rules that span sections.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrConfiguration, err)
	}

	for _, ch := range c.Delivery.Channels {
		switch ch {
		case "telegram":
			if !c.Telegram.Enabled {
				return fmt.Errorf("%w: delivery channel telegram requires telegram.enabled", ErrConfiguration)
			}
		case "nats":
			if c.Delivery.NATS.URL == "" || c.Delivery.NATS.Stream == "" || c.Delivery.NATS.SubjectPrefix == "" {
				return fmt.Errorf("%w: delivery channel nats requires delivery.nats.url, stream and subject_prefix", ErrConfiguration)
			}
		case "redis":
			if c.Delivery.Redis.Addr == "" || c.Delivery.Redis.ChannelPrefix == "" {
				return fmt.Errorf("%w: delivery channel redis requires delivery.redis.addr and channel_prefix", ErrConfiguration)
			}
		}
	}

	if c.Telegram.AdminID != 0 && len(c.Telegram.AllowedUserIDs) > 0 &&
		!slices.Contains(c.Telegram.AllowedUserIDs, c.Telegram.AdminID) {
		return fmt.Errorf("%w: telegram.admin_id must be in telegram.allowed_user_ids", ErrConfiguration)
	}

	return nil
}

// IsUserAuthorized reports whether a Telegram user may talk to the bot.
// The admin is always authorized; an empty allow list admits everyone.
func (c *Config) IsUserAuthorized(userID int64) bool {
	if c.Telegram.AdminID != 0 && userID == c.Telegram.AdminID {
		return true
	}
	if len(c.Telegram.AllowedUserIDs) == 0 {
		return true
	}
	return slices.Contains(c.Telegram.AllowedUserIDs, userID)
}
