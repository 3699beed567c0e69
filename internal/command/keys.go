package command

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/pty"
)

// KeysHandler types a key sequence into the session. Handlers built for the
// same session share one typing flag so sequences never interleave.
type KeysHandler struct {
	writer *pty.Writer
	keys   []pty.KeyPress
	typing *atomic.Bool
}

// Busy reports whether any sequence is being typed into the session
func (h *KeysHandler) Busy() bool {
	return h.typing.Load()
}

func (h *KeysHandler) Invoke(ctx context.Context, inv action.Invocation) action.Outcome {
	if !h.typing.CompareAndSwap(false, true) {
		return action.Failure(fmt.Errorf("%w: %s", action.ErrBusy, inv.Command))
	}
	defer h.typing.Store(false)

	if err := h.writer.WriteKeys(ctx, h.keys); err != nil {
		return action.Failure(err)
	}

	names := make([]string, len(h.keys))
	for i, k := range h.keys {
		names[i] = k.String()
	}
	return action.Success(strings.Join(names, " "))
}
