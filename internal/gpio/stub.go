//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// CdevReader is not available on non-Linux platforms.
type CdevReader struct{}

// NewCdevReader returns an error on non-Linux platforms.
func NewCdevReader(chipName string, pins []int) (*CdevReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *CdevReader) Read() ([]bool, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *CdevReader) Close() error {
	return nil
}

// RpioReader is not available on non-Linux platforms.
type RpioReader struct{}

// NewRpioReader returns an error on non-Linux platforms.
func NewRpioReader(pins []int) (*RpioReader, error) {
	return nil, errUnsupported
}

// Read is not implemented on non-Linux platforms.
func (r *RpioReader) Read() ([]bool, error) {
	return nil, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (r *RpioReader) Close() error {
	return nil
}
