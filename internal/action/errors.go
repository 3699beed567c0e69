package action

import "errors"

var (
	// ErrBusy is reported when an exclusive command is already running.
	ErrBusy = errors.New("action: command busy")

	// ErrQueueFull is reported when no worker can take the invocation.
	ErrQueueFull = errors.New("action: dispatch queue full")

	// ErrTimeout is reported when a handler runs past its deadline.
	ErrTimeout = errors.New("action: handler timeout")

	// ErrPanic is reported when a handler panics.
	ErrPanic = errors.New("action: handler panic")

	// ErrStopped is reported for gestures dispatched after Stop.
	ErrStopped = errors.New("action: dispatcher stopped")

	// ErrUnknownCommand is returned when a binding names an unregistered command.
	ErrUnknownCommand = errors.New("action: unknown command")

	// ErrDuplicateCommand is returned when a command id is registered twice.
	ErrDuplicateCommand = errors.New("action: duplicate command")
)
