package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/mode"
)

// ModeSource supplies the mode a gesture is resolved in
type ModeSource interface {
	Current() mode.Mode
}

// Reporter receives every finished invocation. Reporters are called from
// worker goroutines and must be safe for concurrent use.
type Reporter interface {
	Report(r Report)
}

// ReporterFunc adapts a function to Reporter
type ReporterFunc func(r Report)

// Report calls f
func (f ReporterFunc) Report(r Report) {
	f(r)
}

// Config holds dispatcher configuration options
type Config struct {
	// Workers is the number of handlers that may run at once.
	Workers int

	// QueueSize is how many invocations may wait for a worker.
	QueueSize int

	// DefaultTimeout applies to handlers without their own timeout.
	// Zero means no timeout.
	DefaultTimeout time.Duration
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Workers:        4,
		QueueSize:      32,
		DefaultTimeout: 30 * time.Second,
	}
}

type job struct {
	inv     Invocation
	handler Handler
	opts    Options
}

// Dispatcher resolves gestures against the binding table and runs the bound
// handlers. Dispatch never waits for a non-inline handler to finish.
type Dispatcher struct {
	cfg      Config
	modes    ModeSource
	registry atomic.Pointer[Registry]
	table    atomic.Pointer[Table]
	logger   *slog.Logger

	mu        sync.Mutex
	reporters []Reporter
	running   map[string]bool // Exclusive commands with an invocation in flight
	stopped   bool

	jobs   chan job
	wg     sync.WaitGroup // Workers
	active sync.WaitGroup // Handler goroutines, including ones abandoned after a timeout

	base   context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates a dispatcher. Call Start before dispatching.
func NewDispatcher(cfg Config, modes ModeSource, table *Table, registry *Registry, logger *slog.Logger) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultConfig().Workers
	}
	if cfg.QueueSize < 0 {
		cfg.QueueSize = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	base, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		cfg:     cfg,
		modes:   modes,
		logger:  logger,
		running: make(map[string]bool),
		jobs:    make(chan job, cfg.QueueSize),
		base:    base,
		cancel:  cancel,
	}
	d.table.Store(table)
	d.registry.Store(registry)
	return d
}

// Start starts the worker pool
func (d *Dispatcher) Start() {
	for range d.cfg.Workers {
		d.wg.Add(1)
		go d.worker()
	}
}

// Stop stops accepting gestures and waits for queued and running handlers.
// When ctx is done first, running handlers are cancelled and ctx's error is
// returned.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.jobs)
	d.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		d.wg.Wait()
		d.active.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

// SetTable replaces the binding table for gestures dispatched afterwards
func (d *Dispatcher) SetTable(t *Table) {
	d.table.Store(t)
}

// SetRegistry replaces the command handlers for gestures dispatched
// afterwards. Invocations already queued keep their handler.
func (d *Dispatcher) SetRegistry(r *Registry) {
	d.registry.Store(r)
}

// Table returns the current binding table
func (d *Dispatcher) Table() *Table {
	return d.table.Load()
}

// AddReporter registers a reporter for invocation outcomes
func (d *Dispatcher) AddReporter(r Reporter) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.reporters = append(d.reporters, r)
}

// Dispatch resolves g in the current mode and runs the bound command.
// Unbound gestures are ignored.
func (d *Dispatcher) Dispatch(g gesture.Gesture) {
	current := d.modes.Current()

	cmd, ok := d.table.Load().Lookup(current.Name, g)
	if !ok {
		d.logger.Debug("no binding", "mode", current.Name, "gesture", g.String())
		return
	}

	inv := Invocation{
		Command: cmd,
		Mode:    current,
		Key:     g.Key,
		Gesture: g,
	}

	h, opts, ok := d.registry.Load().Get(cmd)
	if !ok {
		d.report(inv, Failure(fmt.Errorf("%w: %s", ErrUnknownCommand, cmd)), time.Now())
		return
	}

	d.logger.Debug("dispatching", "mode", current.Name, "gesture", g.String(), "command", cmd)

	if opts.Inline {
		started := time.Now()
		ctx, cancel := d.invocationContext(opts)
		out := d.invoke(ctx, h, inv)
		cancel()
		d.report(inv, out, started)
		return
	}

	if err := d.enqueue(job{inv: inv, handler: h, opts: opts}); err != nil {
		d.report(inv, Failure(err), time.Now())
	}
}

func (d *Dispatcher) enqueue(j job) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return ErrStopped
	}
	if b, ok := j.handler.(Busier); ok && b.Busy() {
		return fmt.Errorf("%w: %s", ErrBusy, j.inv.Command)
	}
	if j.opts.Exclusive {
		if d.running[j.inv.Command] {
			return fmt.Errorf("%w: %s", ErrBusy, j.inv.Command)
		}
		d.running[j.inv.Command] = true
	}

	select {
	case d.jobs <- j:
		return nil
	default:
		if j.opts.Exclusive {
			delete(d.running, j.inv.Command)
		}
		return ErrQueueFull
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for j := range d.jobs {
		d.run(j)
	}
}

// run invokes a handler in its own goroutine so a handler that ignores its
// context only holds the worker until the deadline.
func (d *Dispatcher) run(j job) {
	started := time.Now()
	ctx, cancel := d.invocationContext(j.opts)
	defer cancel()

	result := make(chan Outcome, 1)
	d.active.Add(1)
	go func() {
		defer d.active.Done()
		out := d.invoke(ctx, j.handler, j.inv)
		d.release(j)
		result <- out
	}()

	var out Outcome
	select {
	case out = <-result:
		if out.Status == StatusFailure && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out = TimedOut(fmt.Errorf("%w: %s", ErrTimeout, j.inv.Command))
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			out = TimedOut(fmt.Errorf("%w: %s", ErrTimeout, j.inv.Command))
		} else {
			out = Failure(fmt.Errorf("%s: %w", j.inv.Command, ctx.Err()))
		}
	}

	d.report(j.inv, out, started)
}

func (d *Dispatcher) release(j job) {
	if !j.opts.Exclusive {
		return
	}
	d.mu.Lock()
	delete(d.running, j.inv.Command)
	d.mu.Unlock()
}

func (d *Dispatcher) invocationContext(opts Options) (context.Context, context.CancelFunc) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = d.cfg.DefaultTimeout
	}
	if timeout <= 0 {
		return context.WithCancel(d.base)
	}
	return context.WithTimeout(d.base, timeout)
}

// invoke calls the handler, converting a panic into a failure
func (d *Dispatcher) invoke(ctx context.Context, h Handler, inv Invocation) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			stack := make([]byte, 4096)
			n := runtime.Stack(stack, false)

			d.logger.Error("handler panic", "command", inv.Command, "panic", r, "stack", string(stack[:n]))
			out = Failure(fmt.Errorf("%w: %s: %v", ErrPanic, inv.Command, r))
		}
	}()

	return h.Invoke(ctx, inv)
}

func (d *Dispatcher) report(inv Invocation, out Outcome, started time.Time) {
	r := Report{
		Invocation: inv,
		Outcome:    out,
		Started:    started,
		Duration:   time.Since(started),
	}

	d.mu.Lock()
	reporters := make([]Reporter, len(d.reporters))
	copy(reporters, d.reporters)
	d.mu.Unlock()

	for _, rep := range reporters {
		rep.Report(r)
	}
}
