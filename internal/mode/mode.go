// Package mode holds the active operating mode and its cyclic order.
package mode

import "errors"

// ErrInvalidMode is returned when a requested mode is not configured.
var ErrInvalidMode = errors.New("mode: invalid mode")

// Mode is one named operating context
type Mode struct {
	Name    string
	Title   string
	Ordinal int
}

// Label returns the title, falling back to the name
func (m Mode) Label() string {
	if m.Title != "" {
		return m.Title
	}
	return m.Name
}

func (m Mode) String() string {
	return m.Name
}
