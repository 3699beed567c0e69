package action

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/mode"
)

type reportSink chan Report

func (s reportSink) Report(r Report) { s <- r }

func (s reportSink) next(t *testing.T) Report {
	t.Helper()
	select {
	case r := <-s:
		return r
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a report")
		return Report{}
	}
}

func (s reportSink) none(t *testing.T) {
	t.Helper()
	select {
	case r := <-s:
		t.Fatalf("unexpected report %+v", r)
	case <-time.After(30 * time.Millisecond):
	}
}

type fixture struct {
	modes    *mode.Manager
	registry *Registry
	d        *Dispatcher
	reports  reportSink
}

func newFixture(t *testing.T, cfg Config, bs ...config.Binding) *fixture {
	t.Helper()

	modes, err := mode.NewManager([]mode.Definition{
		{Name: "DEV", Title: "Development"},
		{Name: "GIT", Title: "Git"},
		{Name: "AI", Title: "AI Assistant"},
	}, "DEV", nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}

	f := &fixture{
		modes:    modes,
		registry: NewRegistry(),
		reports:  make(reportSink, 16),
	}
	f.d = NewDispatcher(cfg, modes, mustTable(t, bindings(bs...)), f.registry, nil)
	f.d.AddReporter(f.reports)
	return f
}

func (f *fixture) register(t *testing.T, id string, opts Options, fn func(ctx context.Context, inv Invocation) Outcome) {
	t.Helper()
	if err := f.registry.Register(id, HandlerFunc(fn), opts); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func (f *fixture) stop(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := f.d.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func short(key string) gesture.Gesture {
	return gesture.NewShortPress(key, time.Now())
}

func TestDispatchModeAdvance(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "*", Key: "f11", Gesture: "short", Command: "next-mode"},
	)
	f.register(t, "next-mode", Options{Inline: true}, func(ctx context.Context, inv Invocation) Outcome {
		return Success(f.modes.Advance().Name)
	})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f11"))

	// Inline handlers have finished by the time Dispatch returns
	if got := f.modes.Current().Name; got != "GIT" {
		t.Fatalf("mode after f11 = %s, want GIT", got)
	}
	r := f.reports.next(t)
	if r.Status != StatusSuccess || r.Mode.Name != "DEV" || r.Message != "GIT" {
		t.Errorf("report = %+v", r)
	}

	f.d.Dispatch(short("f11"))
	f.d.Dispatch(short("f11"))
	if got := f.modes.Current().Name; got != "DEV" {
		t.Errorf("mode after three advances = %s, want DEV", got)
	}
}

func TestDispatchResolvesInCurrentMode(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "build"},
		config.Binding{Mode: "GIT", Key: "f9", Gesture: "short", Command: "status"},
	)
	called := make(chan string, 2)
	for _, id := range []string{"build", "status"} {
		f.register(t, id, Options{}, func(ctx context.Context, inv Invocation) Outcome {
			called <- inv.Command + "@" + inv.Mode.Name
			return Success("")
		})
	}
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	if got := <-called; got != "build@DEV" {
		t.Errorf("first dispatch ran %s, want build@DEV", got)
	}
	f.reports.next(t)

	f.modes.Set("GIT")
	f.d.Dispatch(short("f9"))
	if got := <-called; got != "status@GIT" {
		t.Errorf("second dispatch ran %s, want status@GIT", got)
	}
}

func TestDispatchUnbound(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "GIT", Key: "f9", Gesture: "short", Command: "status"},
	)
	var calls atomic.Int32
	f.register(t, "status", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		calls.Add(1)
		return Success("")
	})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))                                // bound only in GIT
	f.d.Dispatch(gesture.NewMultiClick("f9", 2, time.Now())) // unbound pattern
	f.d.Dispatch(short("f1"))                                // unknown key

	f.reports.none(t)
	if calls.Load() != 0 {
		t.Errorf("handler ran %d times for unbound gestures", calls.Load())
	}
	if got := f.modes.Current().Name; got != "DEV" {
		t.Errorf("mode changed to %s", got)
	}
}

func TestDispatchUnknownCommand(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "ghost"},
	)
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	r := f.reports.next(t)
	if r.Status != StatusFailure || !errors.Is(r.Err, ErrUnknownCommand) {
		t.Errorf("report = %+v, want ErrUnknownCommand failure", r)
	}
}

func TestDispatchTimeout(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "slow"},
		config.Binding{Mode: "DEV", Key: "f10", Gesture: "short", Command: "stubborn"},
	)
	f.register(t, "slow", Options{Timeout: 20 * time.Millisecond}, func(ctx context.Context, inv Invocation) Outcome {
		<-ctx.Done()
		return Failure(ctx.Err())
	})
	release := make(chan struct{})
	f.register(t, "stubborn", Options{Timeout: 20 * time.Millisecond}, func(ctx context.Context, inv Invocation) Outcome {
		<-release
		return Success("late")
	})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	r := f.reports.next(t)
	if r.Status != StatusTimedOut || !errors.Is(r.Err, ErrTimeout) {
		t.Errorf("slow report = %+v, want timed out", r)
	}

	// A handler that ignores its context is reported at the deadline
	f.d.Dispatch(short("f10"))
	r = f.reports.next(t)
	if r.Status != StatusTimedOut {
		t.Errorf("stubborn report = %+v, want timed out", r)
	}
	if r.Duration > time.Second {
		t.Errorf("stubborn report took %v", r.Duration)
	}
	close(release)
}

func TestDispatchPanic(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "bad"},
		config.Binding{Mode: "DEV", Key: "f10", Gesture: "short", Command: "bad-inline"},
	)
	f.register(t, "bad", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		panic("boom")
	})
	f.register(t, "bad-inline", Options{Inline: true}, func(ctx context.Context, inv Invocation) Outcome {
		panic("boom")
	})
	f.d.Start()
	defer f.stop(t)

	for _, key := range []string{"f9", "f10"} {
		f.d.Dispatch(short(key))
		r := f.reports.next(t)
		if r.Status != StatusFailure || !errors.Is(r.Err, ErrPanic) {
			t.Errorf("%s report = %+v, want ErrPanic failure", key, r)
		}
	}
}

func TestDispatchExclusive(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "deploy"},
	)
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	f.register(t, "deploy", Options{Exclusive: true}, func(ctx context.Context, inv Invocation) Outcome {
		started <- struct{}{}
		<-release
		return Success("")
	})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	<-started
	f.d.Dispatch(short("f9"))

	r := f.reports.next(t)
	if !errors.Is(r.Err, ErrBusy) {
		t.Fatalf("second dispatch report = %+v, want ErrBusy", r)
	}

	close(release)
	if r := f.reports.next(t); r.Status != StatusSuccess {
		t.Errorf("first dispatch report = %+v", r)
	}

	// Runnable again once the first invocation returned
	f.d.Dispatch(short("f9"))
	<-started
	if r := f.reports.next(t); r.Status != StatusSuccess {
		t.Errorf("third dispatch report = %+v", r)
	}
}

type busyHandler struct{}

func (busyHandler) Invoke(ctx context.Context, inv Invocation) Outcome { return Success("") }
func (busyHandler) Busy() bool                                         { return true }

func TestDispatchBusier(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "typing"},
	)
	f.registry.Register("typing", busyHandler{}, Options{})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	if r := f.reports.next(t); !errors.Is(r.Err, ErrBusy) {
		t.Errorf("report = %+v, want ErrBusy", r)
	}
}

func TestDispatchQueueFull(t *testing.T) {
	f := newFixture(t, Config{Workers: 1, QueueSize: 1},
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "work"},
	)
	f.register(t, "work", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		return Success("")
	})
	// Not started, so nothing drains the queue
	f.d.Dispatch(short("f9"))
	f.d.Dispatch(short("f9"))

	r := f.reports.next(t)
	if !errors.Is(r.Err, ErrQueueFull) {
		t.Errorf("report = %+v, want ErrQueueFull", r)
	}
	f.stop(t)
}

func TestDispatcherStop(t *testing.T) {
	f := newFixture(t, DefaultConfig(),
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "work"},
	)
	var finished atomic.Bool
	f.register(t, "work", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return Success("")
	})
	f.d.Start()

	f.d.Dispatch(short("f9"))
	f.stop(t)

	if !finished.Load() {
		t.Error("Stop() returned before the running handler finished")
	}
	f.reports.next(t)

	f.d.Dispatch(short("f9"))
	if r := f.reports.next(t); !errors.Is(r.Err, ErrStopped) {
		t.Errorf("report after Stop = %+v, want ErrStopped", r)
	}

	// Stopping twice is harmless
	f.stop(t)
}

func TestDispatcherStopDeadline(t *testing.T) {
	f := newFixture(t, Config{Workers: 1, QueueSize: 1},
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "forever"},
	)
	started := make(chan struct{})
	f.register(t, "forever", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		close(started)
		<-ctx.Done()
		return Failure(ctx.Err())
	})
	f.d.Start()

	f.d.Dispatch(short("f9"))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.d.Stop(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Stop() error = %v, want DeadlineExceeded", err)
	}

	// Stop cancels the handler's context on the way out
	if r := f.reports.next(t); r.Status != StatusFailure {
		t.Errorf("report = %+v, want failure", r)
	}
}

func TestDispatcherSetTable(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	ran := make(chan struct{}, 1)
	f.register(t, "late", Options{}, func(ctx context.Context, inv Invocation) Outcome {
		ran <- struct{}{}
		return Success("")
	})
	f.d.Start()
	defer f.stop(t)

	f.d.Dispatch(short("f9"))
	f.reports.none(t)

	next := mustTable(t, bindings(config.Binding{Mode: "*", Key: "f9", Gesture: "short", Command: "late"}))
	f.d.SetTable(next)
	if f.d.Table() != next {
		t.Error("Table() did not return the new table")
	}

	f.d.Dispatch(short("f9"))
	<-ran
	f.reports.next(t)
}
