//go:build linux

package gpio

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"
)

// RpioReader reads switches through memory-mapped GPIO registers.
// Only one RpioReader may be open at a time.
type RpioReader struct {
	pins []rpio.Pin
	raw  []int
}

// NewRpioReader maps GPIO memory and configures pins (BCM numbering) as
// inputs with pull-up.
func NewRpioReader(pins []int) (*RpioReader, error) {
	if err := rpio.Open(); err != nil {
		return nil, fmt.Errorf("open gpio memory: %w", err)
	}

	r := &RpioReader{raw: make([]int, len(pins))}
	for _, p := range pins {
		pin := rpio.Pin(p)
		pin.Input()
		pin.PullUp()
		r.pins = append(r.pins, pin)
	}
	return r, nil
}

// Read returns the closed state of each switch.
func (r *RpioReader) Read() ([]bool, error) {
	for i, pin := range r.pins {
		r.raw[i] = int(pin.Read())
	}
	return invert(r.raw), nil
}

// Close restores pull-down on every pin and unmaps GPIO memory.
func (r *RpioReader) Close() error {
	for _, pin := range r.pins {
		pin.PullDown()
	}
	if err := rpio.Close(); err != nil {
		return fmt.Errorf("close gpio memory: %w", err)
	}
	return nil
}
