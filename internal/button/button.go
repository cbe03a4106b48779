// Package button provides the poll-on-query push button API: every call to
// Clicked or LongPressed samples the switch and the clock before answering.
package button

import (
	"time"

	"github.com/sweeney/button-sensor/internal/logic"
)

// Switch reads one momentary-contact switch.
type Switch interface {
	// Closed reports whether the switch is currently closed (pressed).
	Closed() (bool, error)
}

// Clock provides the current time. It must not run backwards.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock. time.Now carries a monotonic reading.
var SystemClock Clock = systemClock{}

type systemClock struct{}

func (systemClock) Now() time.Time {
	return time.Now()
}

// Button binds a switch and a clock to a classification engine.
// Not safe for concurrent use: a caller sharing a Button across goroutines
// must hold its own lock around each query.
type Button struct {
	sw     Switch
	clock  Clock
	engine *logic.Engine
	err    error
}

// New creates a Button reading sw with the given thresholds.
// A nil clock selects SystemClock.
func New(sw Switch, clock Clock, cfg logic.Config) (*Button, error) {
	engine, err := logic.NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Button{sw: sw, clock: clock, engine: engine}, nil
}

// Configure replaces the thresholds. Any press in progress and any
// unconsumed events are discarded.
func (b *Button) Configure(cfg logic.Config) error {
	return b.engine.Configure(cfg)
}

// Poll samples the switch and advances the engine. A failed read leaves the
// engine untouched; the first such error is kept for Err.
func (b *Button) Poll() {
	closed, err := b.sw.Closed()
	if err != nil {
		if b.err == nil {
			b.err = err
		}
		return
	}
	b.engine.Tick(b.clock.Now(), closed)
}

// Clicked reports whether the button clicked since the last call that
// returned true. Call it (or LongPressed) often.
func (b *Button) Clicked() bool {
	b.Poll()
	return b.engine.Clicked()
}

// LongPressed reports whether a long press happened since the last call
// that returned true. Always false in autorepeat mode.
func (b *Button) LongPressed() bool {
	b.Poll()
	return b.engine.LongPressed()
}

// Pressed reports whether the switch was closed at the last poll.
func (b *Button) Pressed() bool {
	return b.engine.Pressed()
}

// Err returns the first switch read error, if any.
func (b *Button) Err() error {
	return b.err
}
