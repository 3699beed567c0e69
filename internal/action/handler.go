package action

import (
	"context"
	"fmt"
	"time"

	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/mode"
)

// Status is the result class of a handler invocation
type Status int

const (
	StatusSuccess Status = iota
	StatusFailure
	StatusTimedOut
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	case StatusTimedOut:
		return "timed_out"
	default:
		return fmt.Sprintf("unknown(%d)", s)
	}
}

// Invocation is what a handler is told about the gesture that triggered it
type Invocation struct {
	Command string
	Mode    mode.Mode
	Key     string
	Gesture gesture.Gesture
}

// Outcome is returned by a handler
type Outcome struct {
	Status  Status
	Message string
	Err     error
}

// Success returns a successful outcome
func Success(msg string) Outcome {
	return Outcome{Status: StatusSuccess, Message: msg}
}

// Failure returns a failed outcome for err
func Failure(err error) Outcome {
	return Outcome{Status: StatusFailure, Message: err.Error(), Err: err}
}

// Failuref returns a failed outcome with a formatted error
func Failuref(format string, args ...any) Outcome {
	return Failure(fmt.Errorf(format, args...))
}

// TimedOut returns an outcome for a handler that ran past its deadline
func TimedOut(err error) Outcome {
	return Outcome{Status: StatusTimedOut, Message: err.Error(), Err: err}
}

// Handler runs a command. ctx is cancelled when the invocation times out or
// the dispatcher shuts down.
type Handler interface {
	Invoke(ctx context.Context, inv Invocation) Outcome
}

// HandlerFunc adapts a function to Handler
type HandlerFunc func(ctx context.Context, inv Invocation) Outcome

// Invoke calls f
func (f HandlerFunc) Invoke(ctx context.Context, inv Invocation) Outcome {
	return f(ctx, inv)
}

// Busier is implemented by handlers that can refuse work while a previous
// invocation is still running.
type Busier interface {
	Busy() bool
}

// Options control how the dispatcher runs a handler
type Options struct {
	// Timeout overrides the dispatcher default. Zero uses the default.
	Timeout time.Duration

	// Exclusive allows at most one running invocation of the command.
	Exclusive bool

	// Inline runs the handler on the dispatching goroutine instead of a worker.
	// Only for handlers that never block, such as mode switches.
	Inline bool
}

// Report describes one finished invocation
type Report struct {
	Invocation
	Outcome
	Started  time.Time
	Duration time.Duration
}
