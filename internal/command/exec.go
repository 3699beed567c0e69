package command

import (
	"context"
	"strings"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/pty"
)

// ExecHandler runs an external program under a PTY
type ExecHandler struct {
	spec pty.RunSpec
	run  func(ctx context.Context, spec pty.RunSpec) (pty.Result, error)
}

// NewExecHandler creates a handler that runs spec
func NewExecHandler(spec pty.RunSpec) *ExecHandler {
	return &ExecHandler{spec: spec, run: pty.Run}
}

func (h *ExecHandler) Invoke(ctx context.Context, _ action.Invocation) action.Outcome {
	res, err := h.run(ctx, h.spec)
	if err != nil {
		return action.Failure(err)
	}
	if res.ExitCode != 0 {
		return action.Failuref("%s exited with status %d: %s", h.spec.Argv[0], res.ExitCode, lastLine(res.Output))
	}
	return action.Success(lastLine(res.Output))
}

// lastLine returns the last non-blank line of terminal output
func lastLine(out string) string {
	lines := strings.Split(strings.ReplaceAll(out, "\r", ""), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(lines[i]); s != "" {
			return s
		}
	}
	return ""
}
