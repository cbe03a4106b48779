// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// DefaultTopicPrefix is the root of every topic the daemon publishes to.
const DefaultTopicPrefix = "home/buttons"

// EventTopic returns the topic for a button's events.
func EventTopic(prefix, button string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + button + "/events"
}

// SystemTopic returns the topic for system lifecycle events.
func SystemTopic(prefix string) string {
	return strings.TrimSuffix(prefix, "/") + "/system"
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a button event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Button ButtonPayload `json:"button"`
}

// ButtonPayload contains the button event details.
type ButtonPayload struct {
	Timestamp string `json:"timestamp"`
	Name      string `json:"name"`
	Event     string `json:"event"`
	Mode      string `json:"mode"`
	HeldMs    int64  `json:"held_ms,omitempty"`
}

// FormatPayload creates the JSON payload for a button event.
func FormatPayload(event logic.Event) ([]byte, error) {
	payload := Payload{
		Button: ButtonPayload{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
			Name:      event.Button,
			Event:     string(event.Type),
			Mode:      event.Mode,
			HeldMs:    event.Held.Milliseconds(),
		},
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
