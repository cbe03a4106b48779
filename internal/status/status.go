// Package status provides a thread-safe status tracker for the button-sensor daemon.
// It is read by HTTP handlers and by the MQTT system events.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	Backend     string
	PollMs      int64
	HeartbeatMs int64
	Broker      string
	TopicPrefix string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type; Buttons is copied so it is safe to use after the
// lock is released.
type Snapshot struct {
	Buttons       []logic.ButtonState
	LastEvent     *logic.Event
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update replaces the per-button state.
// Called from runLoop on every tick.
func (t *Tracker) Update(buttons []logic.ButtonState) {
	cp := append([]logic.ButtonState(nil), buttons...)
	t.mu.Lock()
	t.snap.Buttons = cp
	t.mu.Unlock()
}

// RecordEvent remembers the most recent button event.
func (t *Tracker) RecordEvent(event logic.Event) {
	t.mu.Lock()
	t.snap.LastEvent = &event
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	s.Buttons = append([]logic.ButtonState(nil), t.snap.Buttons...)
	if t.snap.LastEvent != nil {
		ev := *t.snap.LastEvent
		s.LastEvent = &ev
	}
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
