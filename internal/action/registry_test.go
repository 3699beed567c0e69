package action

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/pleimann/keymode/internal/config"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	noop := HandlerFunc(func(ctx context.Context, inv Invocation) Outcome { return Success("") })

	if err := r.Register("b", noop, Options{}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("a", noop, Options{Inline: true}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := r.Register("a", noop, Options{}); !errors.Is(err, ErrDuplicateCommand) {
		t.Errorf("Register() duplicate error = %v, want ErrDuplicateCommand", err)
	}

	if _, opts, ok := r.Get("a"); !ok || !opts.Inline {
		t.Errorf("Get(a) = %+v, %v", opts, ok)
	}
	if _, _, ok := r.Get("c"); ok {
		t.Error("Get(c) found an unregistered command")
	}
	if got := strings.Join(r.Commands(), ","); got != "a,b" {
		t.Errorf("Commands() = %s, want a,b", got)
	}

	table := mustTable(t, bindings(
		config.Binding{Mode: "DEV", Key: "f9", Gesture: "short", Command: "a"},
		config.Binding{Mode: "DEV", Key: "f10", Gesture: "short", Command: "ghost"},
	))
	if err := r.Check(table); !errors.Is(err, ErrUnknownCommand) || !strings.Contains(err.Error(), "ghost") {
		t.Errorf("Check() error = %v, want ErrUnknownCommand for ghost", err)
	}
}
