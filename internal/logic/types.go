// Package logic contains the pure button classification logic.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import (
	"errors"
	"fmt"
	"time"
)

// Documented defaults for a push button.
const (
	DefaultMinClick   = 100 * time.Millisecond
	DefaultLongPress  = 1500 * time.Millisecond
	DefaultAutoRepeat = 800 * time.Millisecond // suggested interval when autorepeat is wanted
)

// ErrInvalidConfig is wrapped by every configuration validation error.
var ErrInvalidConfig = errors.New("invalid button config")

// Mode selects how a held button is classified. It is either AutoRepeat or
// LongPress.
type Mode interface {
	mode()
	String() string
}

// AutoRepeat emits a click every Interval for as long as the switch is held.
type AutoRepeat struct {
	Interval time.Duration
}

// LongPress emits a single long press once the switch has been held for
// Threshold. A press that reaches Threshold never clicks.
type LongPress struct {
	Threshold time.Duration
}

func (AutoRepeat) mode() {}
func (LongPress) mode()  {}

func (m AutoRepeat) String() string { return fmt.Sprintf("autorepeat(%v)", m.Interval) }
func (m LongPress) String() string  { return fmt.Sprintf("longpress(%v)", m.Threshold) }

// Config holds the thresholds for one button.
type Config struct {
	// MinClick is the debounce floor: the shortest closure counted as a press.
	MinClick time.Duration
	Mode     Mode
}

// Defaults returns the long-press configuration with the documented defaults.
func Defaults() Config {
	return Config{
		MinClick: DefaultMinClick,
		Mode:     LongPress{Threshold: DefaultLongPress},
	}
}

// Validate checks threshold ordering.
func (c Config) Validate() error {
	if c.MinClick < 0 {
		return fmt.Errorf("%w: min click %v is negative", ErrInvalidConfig, c.MinClick)
	}
	switch m := c.Mode.(type) {
	case AutoRepeat:
		if m.Interval <= 0 {
			return fmt.Errorf("%w: autorepeat interval %v must be positive", ErrInvalidConfig, m.Interval)
		}
		if c.MinClick >= m.Interval {
			return fmt.Errorf("%w: min click %v must be shorter than autorepeat interval %v", ErrInvalidConfig, c.MinClick, m.Interval)
		}
	case LongPress:
		if m.Threshold <= 0 {
			return fmt.Errorf("%w: long press threshold %v must be positive", ErrInvalidConfig, m.Threshold)
		}
		if c.MinClick >= m.Threshold {
			return fmt.Errorf("%w: min click %v must be shorter than long press threshold %v", ErrInvalidConfig, c.MinClick, m.Threshold)
		}
	case nil:
		return fmt.Errorf("%w: no mode set", ErrInvalidConfig)
	default:
		return fmt.Errorf("%w: unknown mode %T", ErrInvalidConfig, c.Mode)
	}
	return nil
}

// EventType represents a classified button event.
type EventType string

const (
	EventClick     EventType = "CLICK"
	EventRepeat    EventType = "REPEAT"
	EventLongPress EventType = "LONG_PRESS"
)

// Event represents a button event to be published.
type Event struct {
	Timestamp time.Time
	Button    string
	Type      EventType
	Mode      string
	// Held is how long the switch had been closed when the event was
	// drained. Zero for events reported on release.
	Held time.Duration
}

// ButtonSpec names a button and its thresholds.
type ButtonSpec struct {
	Name   string
	Config Config
}

// Input represents a single sample of all configured buttons.
type Input struct {
	Closed []bool // indexed like the detector's buttons; true = switch closed
	Time   time.Time
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Clicks      int
	Repeats     int
	LongPresses int
}

// ButtonState is a point-in-time view of one button.
type ButtonState struct {
	Name    string
	Mode    string
	Pressed bool
	Counts  EventCounts
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    map[string]EventCounts
}
