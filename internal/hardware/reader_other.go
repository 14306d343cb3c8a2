//go:build !linux

package hardware

import (
	"context"
	"errors"
)

// ErrNoDevices indicates no input device matched the configured globs.
var ErrNoDevices = errors.New("no input devices found")

// Reader is a stub on platforms without evdev.
type Reader struct{}

// NewReader returns a reader that cannot run; evdev input is Linux-only.
func NewReader(*Controls, []string) *Reader {
	return &Reader{}
}

// Run always fails on non-Linux platforms.
func (*Reader) Run(context.Context) error {
	return errors.New("hardware input requires linux evdev")
}
