package logic

import "time"

// Engine classifies the samples of one switch into clicks and long presses.
// It is advanced explicitly with Tick; Clicked and LongPressed only consume
// what earlier ticks detected. Not safe for concurrent use.
type Engine struct {
	cfg Config

	closed      bool
	closedSince time.Time
	lastTick    time.Time

	lastAutoFire time.Time
	autoFired    int

	pendingClicks    int
	longPressArmed   bool
	longPressPending bool
}

// NewEngine creates an engine with the given thresholds.
func NewEngine(cfg Config) (*Engine, error) {
	e := &Engine{}
	if err := e.Configure(cfg); err != nil {
		return nil, err
	}
	return e, nil
}

// Configure replaces the thresholds and resets all transient state: no press
// is in progress and nothing is pending afterwards. On error the engine is
// left unchanged.
func (e *Engine) Configure(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	*e = Engine{cfg: cfg}
	return nil
}

// Config returns the active thresholds.
func (e *Engine) Config() Config {
	return e.cfg
}

// Tick advances the state machine with one sample taken at now.
// A time earlier than the previous tick is treated as the previous tick.
func (e *Engine) Tick(now time.Time, closed bool) {
	if !e.lastTick.IsZero() && now.Before(e.lastTick) {
		now = e.lastTick
	}
	e.lastTick = now

	switch {
	case closed && !e.closed:
		e.closed = true
		e.closedSince = now
		e.longPressArmed = false
		e.autoFired = 0
		if _, ok := e.cfg.Mode.(AutoRepeat); ok {
			e.lastAutoFire = now
		}

	case closed:
		elapsed := now.Sub(e.closedSince)
		switch m := e.cfg.Mode.(type) {
		case AutoRepeat:
			if elapsed >= m.Interval && now.Sub(e.lastAutoFire) >= m.Interval {
				e.pendingClicks++
				e.autoFired++
				e.lastAutoFire = now
			}
		case LongPress:
			if elapsed >= m.Threshold && !e.longPressArmed {
				e.longPressArmed = true
				e.longPressPending = true
			}
		}

	case e.closed:
		elapsed := now.Sub(e.closedSince)
		switch m := e.cfg.Mode.(type) {
		case AutoRepeat:
			if e.autoFired == 0 && elapsed >= e.cfg.MinClick {
				e.pendingClicks++
			}
		case LongPress:
			if !e.longPressArmed {
				// The hold may have crossed the threshold between samples.
				if elapsed >= m.Threshold {
					e.longPressPending = true
				} else if elapsed >= e.cfg.MinClick {
					e.pendingClicks++
				}
			}
		}
		e.closed = false
		e.closedSince = time.Time{}
		e.longPressArmed = false
	}
}

// Clicked consumes one pending click. Each call consumes at most one.
func (e *Engine) Clicked() bool {
	if e.pendingClicks == 0 {
		return false
	}
	e.pendingClicks--
	return true
}

// LongPressed consumes the pending long press.
func (e *Engine) LongPressed() bool {
	if !e.longPressPending {
		return false
	}
	e.longPressPending = false
	return true
}

// Pending reports unconsumed events without consuming them.
func (e *Engine) Pending() (clicks int, longPress bool) {
	return e.pendingClicks, e.longPressPending
}

// Pressed reports whether the last sample read the switch as closed.
func (e *Engine) Pressed() bool {
	return e.closed
}

// PressedFor returns how long the switch has been closed at now, or zero
// while open.
func (e *Engine) PressedFor(now time.Time) time.Duration {
	if !e.closed || now.Before(e.closedSince) {
		return 0
	}
	return now.Sub(e.closedSince)
}
