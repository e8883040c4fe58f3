package delivery

import (
	"encoding/json"
	"fmt"

	"github.com/edgard/mentorbot/internal/domain"
)

// Platform selects the push payload shape.
type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
)

func (p Platform) String() string { return string(p) }

func (p Platform) IsValid() bool {
	switch p {
	case PlatformIOS, PlatformAndroid:
		return true
	}
	return false
}

// ParsePlatform validates a platform name.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(s)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: unknown platform %q", domain.ErrValidation, s)
	}
	return p, nil
}

type apnsAlert struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type apnsAPS struct {
	Alert             apnsAlert `json:"alert"`
	Sound             string    `json:"sound,omitempty"`
	InterruptionLevel string    `json:"interruption-level"`
	ThreadID          string    `json:"thread-id,omitempty"`
}

type apnsPayload struct {
	APS            apnsAPS `json:"aps"`
	NotificationID string  `json:"notification_id"`
	UserID         string  `json:"user_id"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority string `json:"priority"`
}

type fcmMessage struct {
	Notification fcmNotification   `json:"notification"`
	Android      fcmAndroid        `json:"android"`
	Data         map[string]string `json:"data"`
}

type fcmPayload struct {
	Message fcmMessage `json:"message"`
}

// EncodePayload renders n in the push format of platform p.
func EncodePayload(p Platform, n domain.Notification) ([]byte, error) {
	switch p {
	case PlatformIOS:
		level := "passive"
		sound := ""
		switch n.Priority {
		case domain.PriorityHigh:
			level, sound = "time-sensitive", "default"
		case domain.PriorityMedium:
			level = "active"
		}
		return json.Marshal(apnsPayload{
			APS: apnsAPS{
				Alert:             apnsAlert{Title: n.Title, Body: n.Message},
				Sound:             sound,
				InterruptionLevel: level,
				ThreadID:          "mentor",
			},
			NotificationID: n.ID,
			UserID:         n.UserID,
		})
	case PlatformAndroid:
		priority := "normal"
		if n.Priority == domain.PriorityHigh {
			priority = "high"
		}
		return json.Marshal(fcmPayload{Message: fcmMessage{
			Notification: fcmNotification{Title: n.Title, Body: n.Message},
			Android:      fcmAndroid{Priority: priority},
			Data: map[string]string{
				"notification_id": n.ID,
				"user_id":         n.UserID,
				"priority":        n.Priority.String(),
			},
		}})
	}
	return nil, fmt.Errorf("%w: unknown platform %q", domain.ErrValidation, p)
}
