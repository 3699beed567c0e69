package pty

import (
	"context"
	"time"
)

// KeyWriter is where key presses are typed
type KeyWriter interface {
	WriteKey(key KeyPress) error
}

// Writer types key sequences with an optional delay between keys
type Writer struct {
	target   KeyWriter
	keyDelay time.Duration
}

// NewWriter creates a new PTY writer
func NewWriter(target KeyWriter, keyDelay time.Duration) *Writer {
	return &Writer{
		target:   target,
		keyDelay: keyDelay,
	}
}

// WriteKeys writes the keys in order. ctx cancels between keys.
func (w *Writer) WriteKeys(ctx context.Context, keys []KeyPress) error {
	for i, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.target.WriteKey(key); err != nil {
			return err
		}

		// Some TUIs drop keys that arrive together
		if w.keyDelay > 0 && i < len(keys)-1 {
			select {
			case <-time.After(w.keyDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
	return nil
}
