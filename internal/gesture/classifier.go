package gesture

import (
	"fmt"
	"log/slog"
	"time"
)

type phase int

const (
	phaseIdle phase = iota
	phaseHolding
	phaseLongFired
	phaseAwaitingMultiClick
)

func (p phase) String() string {
	switch p {
	case phaseIdle:
		return "idle"
	case phaseHolding:
		return "holding"
	case phaseLongFired:
		return "long_fired"
	case phaseAwaitingMultiClick:
		return "awaiting_multi_click"
	default:
		return fmt.Sprintf("unknown(%d)", p)
	}
}

// keyState tracks one key between its first Down and the emitted gesture
type keyState struct {
	key        string
	phase      phase
	pressCount int
	firstDown  time.Time
	lastUp     time.Time
	deadline   time.Time // When the pending timer is due, in edge time
	timer      Timer
	token      uint64 // Identifies the pending timer; zero when none is armed
}

// Classifier turns key edges into gestures, one key at a time.
//
// Per key it moves through:
//
//	idle -> holding -> (long_fired | awaiting_multi_click) -> idle
//
// A Down starts a hold and arms the long-press timer. An Up before that timer
// fires counts a click and opens the multi-click window. The window closing,
// the long-press timer firing, or the click count reaching the maximum each
// resolve the interaction into exactly one gesture.
//
// Classifier is not safe for concurrent use. The Engine serializes edges and
// timer callbacks onto one goroutine.
type Classifier struct {
	thresholds Thresholds
	timers     Timers
	emit       func(Gesture)
	logger     *slog.Logger

	states map[string]*keyState
	seq    uint64
}

// NewClassifier creates a classifier that reports gestures to emit
func NewClassifier(thresholds Thresholds, timers Timers, emit func(Gesture), logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		thresholds: thresholds,
		timers:     timers,
		emit:       emit,
		logger:     logger,
		states:     make(map[string]*keyState),
	}
}

// SetThresholds replaces the timing. Timers already armed keep their duration.
func (c *Classifier) SetThresholds(thresholds Thresholds) {
	c.thresholds = thresholds
}

// HandleEdge feeds one key edge into the state machine
func (c *Classifier) HandleEdge(e KeyEdge) {
	switch e.Edge {
	case Down:
		c.handleDown(e)
	case Up:
		c.handleUp(e)
	}
}

func (c *Classifier) handleDown(e KeyEdge) {
	s, ok := c.states[e.Key]
	if ok && s.phase == phaseAwaitingMultiClick && !e.Time.Before(s.deadline) {
		// The window closed before this press; its timer has not run yet
		c.windowClosed(s)
		ok = false
	}
	if !ok {
		s = &keyState{key: e.Key}
		c.states[e.Key] = s
	}
	timing := c.thresholds.For(e.Key)

	switch s.phase {
	case phaseIdle:
		s.phase = phaseHolding
		s.pressCount = 0
		s.firstDown = e.Time
		c.arm(s, e.Time, timing.LongPress, c.longPressElapsed)

	case phaseAwaitingMultiClick:
		// Another click inside the window; keep the count and hold again
		s.phase = phaseHolding
		c.arm(s, e.Time, timing.LongPress, c.longPressElapsed)

	case phaseHolding, phaseLongFired:
		c.logger.Debug("ignoring repeated key down", "key", e.Key, "phase", s.phase)
	}
}

func (c *Classifier) handleUp(e KeyEdge) {
	s, ok := c.states[e.Key]
	if !ok {
		c.logger.Debug("ignoring key up without down", "key", e.Key)
		return
	}

	switch s.phase {
	case phaseHolding:
		if !e.Time.Before(s.deadline) {
			// Held past the threshold; the release beat the timer to the loop
			c.finish(s, NewLongPress(s.key, s.deadline))
			return
		}
		c.cancel(s)
		s.pressCount++
		s.lastUp = e.Time

		timing := c.thresholds.For(e.Key)
		if s.pressCount >= timing.MaxClicks {
			c.finish(s, NewMultiClick(s.key, s.pressCount, e.Time))
			return
		}

		s.phase = phaseAwaitingMultiClick
		c.arm(s, e.Time, timing.MultiClickWindow, c.windowClosed)

	case phaseLongFired:
		// Gesture already emitted when the threshold passed
		c.finish(s, Gesture{})

	default:
		c.logger.Debug("ignoring key up", "key", e.Key, "phase", s.phase)
	}
}

func (c *Classifier) longPressElapsed(s *keyState) {
	s.phase = phaseLongFired
	s.pressCount = 0
	c.emit(NewLongPress(s.key, s.deadline))
}

func (c *Classifier) windowClosed(s *keyState) {
	c.finish(s, NewMultiClick(s.key, s.pressCount, s.deadline))
}

// arm replaces any pending timer for s with a new one due d after from
func (c *Classifier) arm(s *keyState, from time.Time, d time.Duration, onFire func(*keyState)) {
	c.cancel(s)

	c.seq++
	token := c.seq
	key := s.key

	s.token = token
	s.deadline = from.Add(d)
	s.timer = c.timers.Start(d, func() {
		c.fire(key, token, onFire)
	})
}

// fire runs onFire if the timer identified by token is still the pending one
func (c *Classifier) fire(key string, token uint64, onFire func(*keyState)) {
	s, ok := c.states[key]
	if !ok || s.token != token {
		c.logger.Debug("discarding timer", "key", key, "err", ErrTimerRace)
		return
	}
	s.timer = nil
	s.token = 0
	onFire(s)
}

func (c *Classifier) cancel(s *keyState) {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.token = 0
}

// finish resets the key to idle and emits g unless it is the zero gesture
func (c *Classifier) finish(s *keyState, g Gesture) {
	c.cancel(s)
	delete(c.states, s.key)
	if g.Key != "" {
		c.emit(g)
	}
}

// Pending returns the number of keys with an interaction in progress
func (c *Classifier) Pending() int {
	return len(c.states)
}

// Stop cancels every pending timer and forgets all interactions without emitting
func (c *Classifier) Stop() {
	for key, s := range c.states {
		c.cancel(s)
		delete(c.states, key)
	}
}
