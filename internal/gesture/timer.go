package gesture

import "time"

// Timer is a pending callback that can be cancelled.
// Stopping a timer that already fired is a no-op and reports false.
type Timer interface {
	Stop() bool
}

// Timers schedules delayed callbacks for the classifier
type Timers interface {
	Start(d time.Duration, fire func()) Timer
}

// loopTimers runs callbacks through post so they execute on the engine loop
// instead of the runtime timer goroutine.
type loopTimers struct {
	post func(func())
}

func (l loopTimers) Start(d time.Duration, fire func()) Timer {
	return time.AfterFunc(d, func() {
		l.post(fire)
	})
}

// Timing holds the thresholds used to classify one key
type Timing struct {
	LongPress        time.Duration
	MultiClickWindow time.Duration
	MaxClicks        int
}

// Thresholds is the shared timing plus optional per-key overrides
type Thresholds struct {
	Default Timing
	Keys    map[string]Timing
}

// For returns the timing that applies to key
func (t Thresholds) For(key string) Timing {
	if kt, ok := t.Keys[key]; ok {
		return kt
	}
	return t.Default
}
