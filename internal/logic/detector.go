package logic

import (
	"fmt"
	"time"
)

// Detector runs one Engine per configured button and turns what they detect
// into events.
type Detector struct {
	names         []string
	engines       []*Engine
	counts        []EventCounts
	startTime     time.Time
	lastHeartbeat time.Time
}

// NewDetector creates a detector for the given buttons.
// The startTime is used for calculating uptime in heartbeat events.
func NewDetector(buttons []ButtonSpec, startTime time.Time) (*Detector, error) {
	d := &Detector{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
	seen := make(map[string]bool, len(buttons))
	for _, b := range buttons {
		if b.Name == "" {
			return nil, fmt.Errorf("%w: button has no name", ErrInvalidConfig)
		}
		if seen[b.Name] {
			return nil, fmt.Errorf("%w: duplicate button %q", ErrInvalidConfig, b.Name)
		}
		seen[b.Name] = true

		e, err := NewEngine(b.Config)
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", b.Name, err)
		}
		d.names = append(d.names, b.Name)
		d.engines = append(d.engines, e)
	}
	d.counts = make([]EventCounts, len(buttons))
	return d, nil
}

// Process takes a new sample of every button and returns the events it produced.
// Samples beyond the number of buttons are ignored; missing samples read as open.
// Clicks are reported before a long press of the same button.
func (d *Detector) Process(input Input) []Event {
	var events []Event

	for i, e := range d.engines {
		closed := i < len(input.Closed) && input.Closed[i]
		e.Tick(input.Time, closed)

		mode := e.Config().Mode.String()
		for e.Clicked() {
			ev := Event{
				Timestamp: input.Time,
				Button:    d.names[i],
				Type:      EventClick,
				Mode:      mode,
			}
			// Only autorepeat queues a click while the switch is still closed.
			if e.Pressed() {
				ev.Type = EventRepeat
				ev.Held = e.PressedFor(input.Time)
				d.counts[i].Repeats++
			} else {
				d.counts[i].Clicks++
			}
			events = append(events, ev)
		}
		if e.LongPressed() {
			d.counts[i].LongPresses++
			events = append(events, Event{
				Timestamp: input.Time,
				Button:    d.names[i],
				Type:      EventLongPress,
				Mode:      mode,
				Held:      e.PressedFor(input.Time),
			})
		}
	}

	return events
}

// Buttons returns the button names in sample order.
func (d *Detector) Buttons() []string {
	return append([]string(nil), d.names...)
}

// CurrentState returns a view of every button in sample order.
func (d *Detector) CurrentState() []ButtonState {
	out := make([]ButtonState, len(d.engines))
	for i, e := range d.engines {
		out[i] = ButtonState{
			Name:    d.names[i],
			Mode:    e.Config().Mode.String(),
			Pressed: e.Pressed(),
			Counts:  d.counts[i],
		}
	}
	return out
}

// CountsSnapshot returns a copy of the event counts keyed by button name.
func (d *Detector) CountsSnapshot() map[string]EventCounts {
	out := make(map[string]EventCounts, len(d.names))
	for i, n := range d.names {
		out[n] = d.counts[i]
	}
	return out
}

// CheckHeartbeat returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not elapsed,
// or if interval is <= 0 (disabled).
func (d *Detector) CheckHeartbeat(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(d.lastHeartbeat) < interval {
		return nil
	}

	d.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(d.startTime),
		Counts:    d.CountsSnapshot(),
	}
}
