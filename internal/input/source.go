// Package input reads key signals from hardware and turns them into the
// ordered key edges the gesture engine consumes.
package input

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnsupported is returned by sources that cannot run on this platform.
	ErrUnsupported = errors.New("input: source not supported on this platform")

	// ErrNoKeyboard is returned when no keyboard device could be found.
	ErrNoKeyboard = errors.New("input: no keyboard found")
)

// RawKey is a key signal as reported by a source
type RawKey struct {
	Name   string // Source-specific name, e.g. KEY_F11 or btn3
	Down   bool
	Repeat bool // Auto-repeat while held
	Time   time.Time
}

// Source produces raw key signals until ctx is done or the device fails
type Source interface {
	Run(ctx context.Context, out chan<- RawKey) error
}

func send(ctx context.Context, out chan<- RawKey, k RawKey) error {
	select {
	case out <- k:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
