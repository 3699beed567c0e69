package gesture

import "errors"

var (
	// ErrStopped is returned when submitting to an engine that is no longer running.
	ErrStopped = errors.New("gesture: engine stopped")

	// ErrTimerRace marks a timer callback that arrived after its decision was final.
	ErrTimerRace = errors.New("gesture: timer fired after decision was finalized")
)
