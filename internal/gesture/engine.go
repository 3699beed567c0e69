package gesture

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Engine owns the classifier and serializes everything that touches it.
// Key edges, timer callbacks and Do requests all run on one goroutine, and
// gestures are reported from that goroutine in the order they resolve.
type Engine struct {
	classifier *Classifier
	logger     *slog.Logger

	edges chan KeyEdge
	calls chan func()

	started  atomic.Bool
	done     chan struct{} // closed by Stop
	exited   chan struct{} // closed when the loop returns
	stopOnce sync.Once
}

// NewEngine creates a new gesture engine
func NewEngine(thresholds Thresholds, onGesture func(Gesture), logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		logger: logger,
		edges:  make(chan KeyEdge, 64),
		calls:  make(chan func(), 16),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	timers := loopTimers{post: func(fn func()) { e.post(fn) }}
	e.classifier = NewClassifier(thresholds, timers, onGesture, logger)
	return e
}

// Start starts the event loop. It returns when ctx is done or Stop is called.
func (e *Engine) Start(ctx context.Context) {
	if !e.started.CompareAndSwap(false, true) {
		return
	}
	go e.run(ctx)
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.exited)
	defer e.classifier.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-e.done:
			return
		case edge := <-e.edges:
			e.classifier.HandleEdge(edge)
		case fn := <-e.calls:
			fn()
		}
	}
}

// Stop stops the loop and cancels all pending per-key timers
func (e *Engine) Stop() {
	e.stopOnce.Do(func() {
		close(e.done)
		if e.started.Load() {
			<-e.exited
		} else {
			e.classifier.Stop()
		}
	})
}

// Submit queues a key edge for classification
func (e *Engine) Submit(edge KeyEdge) error {
	select {
	case e.edges <- edge:
		return nil
	case <-e.done:
		return ErrStopped
	case <-e.exited:
		return ErrStopped
	}
}

// Do runs fn on the event loop and waits for it to return
func (e *Engine) Do(fn func()) error {
	finished := make(chan struct{})
	if !e.post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrStopped
	}

	select {
	case <-finished:
		return nil
	case <-e.exited:
		return ErrStopped
	}
}

// SetThresholds changes timing for interactions that start afterwards
func (e *Engine) SetThresholds(thresholds Thresholds) error {
	return e.Do(func() {
		e.classifier.SetThresholds(thresholds)
	})
}

func (e *Engine) post(fn func()) bool {
	select {
	case e.calls <- fn:
		return true
	case <-e.done:
		return false
	case <-e.exited:
		return false
	}
}
