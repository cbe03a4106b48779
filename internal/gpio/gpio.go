// Package gpio provides push button input reading with hardware abstraction.
// The real implementations use the Linux GPIO character device (cdev) or
// memory-mapped /dev/gpiomem (rpio). The fake implementation allows testing
// without hardware.
//
// Switches are wired between the pin and ground with the internal pull-up
// enabled, so a raw low level reads as closed.
package gpio

import "fmt"

// Reader reads the state of a fixed set of switches.
type Reader interface {
	// Read returns whether each switch is closed, in the order the pins
	// were requested.
	Read() ([]bool, error)

	// Close releases GPIO resources.
	Close() error
}

// Backend names a hardware access method.
type Backend string

const (
	// BackendCdev reads lines through the Linux GPIO character device.
	BackendCdev Backend = "cdev"
	// BackendRpio reads the BCM registers through /dev/gpiomem.
	BackendRpio Backend = "rpio"
)

// DefaultChip is the GPIO character device used by the cdev backend.
const DefaultChip = "gpiochip0"

// Default pins (BCM numbering) for the demonstration wiring.
const (
	DefaultPinSW1 = 4
	DefaultPinSW2 = 5
)

// Open creates a Reader for the given pins using the named backend.
func Open(backend Backend, chip string, pins []int) (Reader, error) {
	if len(pins) == 0 {
		return nil, fmt.Errorf("gpio: no pins requested")
	}
	switch backend {
	case BackendCdev, "":
		if chip == "" {
			chip = DefaultChip
		}
		r, err := NewCdevReader(chip, pins)
		if err != nil {
			return nil, err
		}
		return r, nil
	case BackendRpio:
		r, err := NewRpioReader(pins)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("gpio: unknown backend %q", backend)
	}
}

// LineSwitch is a single-switch view of a Reader.
type LineSwitch struct {
	r   Reader
	idx int
}

// Switch returns a view of the idx'th switch of r.
func Switch(r Reader, idx int) *LineSwitch {
	return &LineSwitch{r: r, idx: idx}
}

// Closed reports whether the switch is closed.
func (s *LineSwitch) Closed() (bool, error) {
	states, err := s.r.Read()
	if err != nil {
		return false, err
	}
	if s.idx < 0 || s.idx >= len(states) {
		return false, fmt.Errorf("gpio: switch %d out of range (%d lines)", s.idx, len(states))
	}
	return states[s.idx], nil
}

// invert converts raw pin levels to closed states: raw low = closed.
func invert(raw []int) []bool {
	closed := make([]bool, len(raw))
	for i, v := range raw {
		closed[i] = v == 0
	}
	return closed
}
