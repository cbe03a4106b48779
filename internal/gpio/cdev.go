//go:build linux

package gpio

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// CdevReader reads switches using the Linux GPIO character device.
type CdevReader struct {
	chip  *gpiocdev.Chip
	lines *gpiocdev.Lines
	raw   []int
}

// NewCdevReader requests pins (line offsets) on the named chip as inputs
// with pull-up.
func NewCdevReader(chipName string, pins []int) (*CdevReader, error) {
	chip, err := gpiocdev.NewChip(chipName)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	lines, err := chip.RequestLines(pins, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request pins %v: %w", pins, err)
	}

	return &CdevReader{
		chip:  chip,
		lines: lines,
		raw:   make([]int, len(pins)),
	}, nil
}

// Read returns the closed state of each switch.
func (r *CdevReader) Read() ([]bool, error) {
	if err := r.lines.Values(r.raw); err != nil {
		return nil, fmt.Errorf("read pins: %w", err)
	}
	return invert(r.raw), nil
}

// Close releases GPIO resources.
// Reconfigures pins to input with pull-down (matching Pi boot defaults) before
// closing to ensure clean state for system shutdown/reboot.
func (r *CdevReader) Close() error {
	var errs []error

	if r.lines != nil {
		if err := r.lines.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure pins: %w", err))
		}
		if err := r.lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close pins: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
