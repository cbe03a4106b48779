package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Buttons       []ButtonJSON `json:"buttons"`
	LastEvent     *EventJSON   `json:"last_event,omitempty"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ButtonJSON is the JSON representation of one button.
type ButtonJSON struct {
	Name    string     `json:"name"`
	Mode    string     `json:"mode"`
	Pressed bool       `json:"pressed"`
	Counts  CountsJSON `json:"event_counts"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Clicks      int `json:"clicks"`
	Repeats     int `json:"repeats"`
	LongPresses int `json:"long_presses"`
}

// EventJSON is the JSON representation of the last button event.
type EventJSON struct {
	Timestamp string `json:"timestamp"`
	Button    string `json:"button"`
	Event     string `json:"event"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	Backend     string `json:"gpio_backend"`
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Broker      string `json:"broker"`
	TopicPrefix string `json:"topic_prefix"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	buttons := make([]ButtonJSON, 0, len(snap.Buttons))
	for _, b := range snap.Buttons {
		buttons = append(buttons, ButtonJSON{
			Name:    b.Name,
			Mode:    b.Mode,
			Pressed: b.Pressed,
			Counts: CountsJSON{
				Clicks:      b.Counts.Clicks,
				Repeats:     b.Counts.Repeats,
				LongPresses: b.Counts.LongPresses,
			},
		})
	}

	inner := StatusInner{
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Buttons:       buttons,
		Config: ConfigJSON{
			Backend:     snap.Config.Backend,
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Broker:      snap.Config.Broker,
			TopicPrefix: snap.Config.TopicPrefix,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
	if snap.LastEvent != nil {
		inner.LastEvent = &EventJSON{
			Timestamp: snap.LastEvent.Timestamp.UTC().Format(time.RFC3339Nano),
			Button:    snap.LastEvent.Button,
			Event:     string(snap.LastEvent.Type),
		}
	}
	return inner
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
