package command

import (
	"context"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/mode"
)

// ModeHandler switches the active mode
type ModeHandler struct {
	modes  ModeSwitcher
	action string
	target string
}

func (h *ModeHandler) Invoke(_ context.Context, _ action.Invocation) action.Outcome {
	var m mode.Mode
	switch h.action {
	case config.ModeNext:
		m = h.modes.Advance()
	case config.ModePrev:
		m = h.modes.Previous()
	case config.ModeSet:
		var err error
		if m, err = h.modes.Set(h.target); err != nil {
			return action.Failure(err)
		}
	default:
		return action.Failuref("unknown mode action %q", h.action)
	}
	return action.Success(m.Label())
}
