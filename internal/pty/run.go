package pty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"time"

	"github.com/creack/pty"

	"github.com/pleimann/keymode/internal/utils"
)

// RunSpec describes a one-shot command
type RunSpec struct {
	Argv []string
	Dir  string
	Env  map[string]string

	// OutputSize is how much trailing output to keep; zero keeps 4KB.
	OutputSize int
}

// Result of a command run to completion
type Result struct {
	ExitCode int
	Output   string // Tail of combined output
}

// drainTimeout bounds how long output is read after the process exits,
// in case a background child keeps the terminal open.
const drainTimeout = 200 * time.Millisecond

// Run runs a command in a fresh PTY and waits for it. Programs that check
// for a terminal behave as they would interactively. A non-zero exit is not
// an error; ctx cancellation kills the process and returns ctx's error.
func Run(ctx context.Context, spec RunSpec) (Result, error) {
	if len(spec.Argv) == 0 {
		return Result{}, fmt.Errorf("command is required")
	}

	cmd := exec.CommandContext(ctx, spec.Argv[0], spec.Argv[1:]...)
	if spec.Dir != "" {
		cmd.Dir = utils.ExpandHome(spec.Dir)
	}
	cmd.Env = mergeEnv(os.Environ(), spec.Env)

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return Result{}, fmt.Errorf("failed to start %s: %w", spec.Argv[0], err)
	}
	defer ptmx.Close()

	size := spec.OutputSize
	if size <= 0 {
		size = 4096
	}
	out := NewRingBuffer(size)

	copied := make(chan struct{})
	go func() {
		io.Copy(out, ptmx)
		close(copied)
	}()

	waitErr := cmd.Wait()
	select {
	case <-copied:
	case <-time.After(drainTimeout):
		ptmx.Close()
		<-copied
	}

	res := Result{Output: out.String()}
	if ctx.Err() != nil {
		return res, ctx.Err()
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		return res, nil
	}
	if waitErr != nil {
		return res, waitErr
	}
	return res, nil
}

// mergeEnv returns base with extra applied in key order
func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(base)+len(extra))
	for _, kv := range base {
		name := kv
		for i := 0; i < len(kv); i++ {
			if kv[i] == '=' {
				name = kv[:i]
				break
			}
		}
		if _, ok := extra[name]; !ok {
			env = append(env, kv)
		}
	}
	for _, k := range keys {
		env = append(env, k+"="+os.ExpandEnv(extra[k]))
	}
	return env
}
