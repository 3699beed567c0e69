// Package command builds handlers for the commands declared in the config.
package command

import (
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/mode"
	"github.com/pleimann/keymode/internal/pty"
)

// ModeSwitcher is the part of the mode manager mode commands drive
type ModeSwitcher interface {
	Advance() mode.Mode
	Previous() mode.Mode
	Set(name string) (mode.Mode, error)
}

// Deps are the collaborators handlers are built with
type Deps struct {
	Modes ModeSwitcher

	// Session receives keys commands. It may be nil when no keys command
	// is configured.
	Session pty.KeyWriter

	// KeyDelay is the pause between keys typed into the session.
	KeyDelay time.Duration

	// Clipboard defaults to the system clipboard.
	Clipboard Clipboard

	Logger *slog.Logger
}

// DefaultKeyDelay is the pause between keys typed into the session
const DefaultKeyDelay = 10 * time.Millisecond

// Build creates a registry holding a handler for every configured command
func Build(cfg *config.Config, deps Deps) (*action.Registry, error) {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Clipboard == nil {
		deps.Clipboard = SystemClipboard{}
	}

	b := builder{Deps: deps, typing: new(atomic.Bool)}
	reg := action.NewRegistry()
	for _, c := range cfg.Commands {
		h, opts, err := b.newHandler(c)
		if err != nil {
			return nil, fmt.Errorf("command %s: %w", c.ID, err)
		}
		if err := reg.Register(c.ID, h, opts); err != nil {
			return nil, err
		}
		b.Logger.Debug("command registered", "id", c.ID, "type", c.Type)
	}
	return reg, nil
}

type builder struct {
	Deps
	typing *atomic.Bool
}

func (b builder) newHandler(c config.Command) (action.Handler, action.Options, error) {
	opts := action.Options{
		Timeout:   c.Timeout(),
		Exclusive: c.Exclusive,
	}

	switch c.Type {
	case config.CommandMode:
		if b.Modes == nil {
			return nil, opts, fmt.Errorf("no mode manager")
		}
		opts.Inline = true
		return &ModeHandler{modes: b.Modes, action: c.Action, target: c.Target}, opts, nil

	case config.CommandExec:
		return NewExecHandler(pty.RunSpec{Argv: c.Run, Dir: c.Dir, Env: c.Env}), opts, nil

	case config.CommandKeys:
		if b.Session == nil {
			return nil, opts, fmt.Errorf("no session to send keys to")
		}
		keys, err := pty.ParseSequence(c.Keys)
		if err != nil {
			return nil, opts, err
		}
		delay := b.KeyDelay
		if delay == 0 {
			delay = DefaultKeyDelay
		}
		return &KeysHandler{
			writer: pty.NewWriter(b.Session, delay),
			keys:   keys,
			typing: b.typing,
		}, opts, nil

	case config.CommandSnippet:
		return NewSnippetHandler(c.Text, b.Clipboard), opts, nil
	}

	return nil, opts, fmt.Errorf("unknown command type %q", c.Type)
}
