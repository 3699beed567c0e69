package command

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/mode"
	"github.com/pleimann/keymode/internal/pty"
)

func newModes(t *testing.T) *mode.Manager {
	t.Helper()
	m, err := mode.NewManager([]mode.Definition{
		{Name: "DEV", Title: "Development"},
		{Name: "GIT", Title: "Git"},
		{Name: "AI", Title: "AI"},
	}, "DEV", nil)
	if err != nil {
		t.Fatalf("NewManager() error = %v", err)
	}
	return m
}

type fakeClipboard struct {
	mu       sync.Mutex
	text     string
	readErr  error
	writeErr error
}

func (c *fakeClipboard) ReadAll() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.text, c.readErr
}

func (c *fakeClipboard) WriteAll(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.text = text
	return nil
}

type fakeSession struct {
	mu   sync.Mutex
	keys []pty.KeyPress
}

func (s *fakeSession) WriteKey(k pty.KeyPress) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, k)
	return nil
}

func invoke(t *testing.T, reg *action.Registry, id string) (action.Outcome, action.Options) {
	t.Helper()
	h, opts, ok := reg.Get(id)
	if !ok {
		t.Fatalf("command %s not registered", id)
	}
	return h.Invoke(context.Background(), action.Invocation{Command: id}), opts
}

func TestBuild(t *testing.T) {
	cfg := &config.Config{
		Commands: []config.Command{
			{ID: "next-mode", Type: config.CommandMode, Action: config.ModeNext},
			{ID: "status", Type: config.CommandExec, Run: []string{"git", "status"}, TimeoutMs: 5000, Exclusive: true},
			{ID: "save", Type: config.CommandKeys, Keys: []string{"ctrl+s"}},
			{ID: "sig", Type: config.CommandSnippet, Text: "hi"},
		},
	}

	reg, err := Build(cfg, Deps{Modes: newModes(t), Session: &fakeSession{}, Clipboard: &fakeClipboard{}})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	want := []string{"next-mode", "save", "sig", "status"}
	if got := reg.Commands(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Commands() = %v, want %v", got, want)
	}

	_, opts, _ := reg.Get("next-mode")
	if !opts.Inline {
		t.Error("mode commands should run inline")
	}
	_, opts, _ = reg.Get("status")
	if opts.Inline || !opts.Exclusive || opts.Timeout != 5*time.Second {
		t.Errorf("status options = %+v", opts)
	}
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name string
		cmd  config.Command
		deps Deps
	}{
		{"keys without session", config.Command{ID: "k", Type: config.CommandKeys, Keys: []string{"a"}}, Deps{}},
		{"bad key", config.Command{ID: "k", Type: config.CommandKeys, Keys: []string{"hyper+a"}}, Deps{Session: &fakeSession{}}},
		{"mode without manager", config.Command{ID: "m", Type: config.CommandMode, Action: config.ModeNext}, Deps{}},
		{"unknown type", config.Command{ID: "x", Type: "launch"}, Deps{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{Commands: []config.Command{tt.cmd}}
			if _, err := Build(cfg, tt.deps); err == nil {
				t.Error("Build() should fail")
			}
		})
	}
}

func TestBuildDuplicate(t *testing.T) {
	cfg := &config.Config{Commands: []config.Command{
		{ID: "sig", Type: config.CommandSnippet, Text: "a"},
		{ID: "sig", Type: config.CommandSnippet, Text: "b"},
	}}
	_, err := Build(cfg, Deps{Clipboard: &fakeClipboard{}})
	if !errors.Is(err, action.ErrDuplicateCommand) {
		t.Errorf("Build() error = %v, want ErrDuplicateCommand", err)
	}
}

func TestModeHandler(t *testing.T) {
	modes := newModes(t)
	cfg := &config.Config{Commands: []config.Command{
		{ID: "next", Type: config.CommandMode, Action: config.ModeNext},
		{ID: "prev", Type: config.CommandMode, Action: config.ModePrev},
		{ID: "ai", Type: config.CommandMode, Action: config.ModeSet, Target: "ai"},
		{ID: "gone", Type: config.CommandMode, Action: config.ModeSet, Target: "OPS"},
	}}
	reg, err := Build(cfg, Deps{Modes: modes})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	steps := []struct {
		id     string
		want   string
		status action.Status
	}{
		{"next", "GIT", action.StatusSuccess},
		{"next", "AI", action.StatusSuccess},
		{"next", "DEV", action.StatusSuccess},
		{"prev", "AI", action.StatusSuccess},
		{"prev", "GIT", action.StatusSuccess},
		{"ai", "AI", action.StatusSuccess},
		{"gone", "AI", action.StatusFailure},
	}
	for _, s := range steps {
		out, _ := invoke(t, reg, s.id)
		if out.Status != s.status {
			t.Errorf("%s: status = %v, want %v (%s)", s.id, out.Status, s.status, out.Message)
		}
		if got := modes.Current().Name; got != s.want {
			t.Errorf("after %s: mode = %s, want %s", s.id, got, s.want)
		}
	}
}

func TestModeHandlerUnknownAction(t *testing.T) {
	h := &ModeHandler{modes: newModes(t), action: "sideways"}
	if out := h.Invoke(context.Background(), action.Invocation{}); out.Status != action.StatusFailure {
		t.Errorf("status = %v, want failure", out.Status)
	}
}

func TestExecHandler(t *testing.T) {
	tests := []struct {
		name    string
		result  pty.Result
		err     error
		status  action.Status
		message string
	}{
		{"success", pty.Result{Output: "On branch main\r\nnothing to commit\r\n\r\n"}, nil, action.StatusSuccess, "nothing to commit"},
		{"non-zero exit", pty.Result{ExitCode: 128, Output: "fatal: not a git repository\r\n"}, nil, action.StatusFailure, "git exited with status 128: fatal: not a git repository"},
		{"start failure", pty.Result{}, errors.New("no such file"), action.StatusFailure, "no such file"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewExecHandler(pty.RunSpec{Argv: []string{"git", "status"}})
			h.run = func(ctx context.Context, spec pty.RunSpec) (pty.Result, error) {
				return tt.result, tt.err
			}

			out := h.Invoke(context.Background(), action.Invocation{})
			if out.Status != tt.status {
				t.Errorf("status = %v, want %v", out.Status, tt.status)
			}
			if out.Message != tt.message {
				t.Errorf("message = %q, want %q", out.Message, tt.message)
			}
		})
	}
}

func TestExecHandlerRunsProgram(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	h := NewExecHandler(pty.RunSpec{Argv: []string{"sh", "-c", "echo done"}})
	out := h.Invoke(context.Background(), action.Invocation{})
	if out.Status != action.StatusSuccess || out.Message != "done" {
		t.Errorf("outcome = %+v, want success with done", out)
	}
}

func TestKeysHandler(t *testing.T) {
	session := &fakeSession{}
	cfg := &config.Config{Commands: []config.Command{
		{ID: "quit", Type: config.CommandKeys, Keys: []string{"esc", ":", "q", "enter"}},
	}}
	reg, err := Build(cfg, Deps{Session: session, KeyDelay: time.Microsecond})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	out, _ := invoke(t, reg, "quit")
	if out.Status != action.StatusSuccess {
		t.Fatalf("status = %v (%s)", out.Status, out.Message)
	}
	if out.Message != "esc : q enter" {
		t.Errorf("message = %q", out.Message)
	}
	if len(session.keys) != 4 || session.keys[3].Key != "enter" {
		t.Errorf("typed = %v", session.keys)
	}
}

func TestKeysHandlerBusy(t *testing.T) {
	session := &fakeSession{}
	cfg := &config.Config{Commands: []config.Command{
		{ID: "a", Type: config.CommandKeys, Keys: []string{"a"}},
		{ID: "b", Type: config.CommandKeys, Keys: []string{"b"}},
	}}
	reg, err := Build(cfg, Deps{Session: session})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	ha, _, _ := reg.Get("a")
	hb, _, _ := reg.Get("b")
	a := ha.(*KeysHandler)
	b := hb.(*KeysHandler)

	a.typing.Store(true)
	if !b.Busy() {
		t.Error("handlers for one session should share the busy flag")
	}
	out := b.Invoke(context.Background(), action.Invocation{Command: "b"})
	if !errors.Is(out.Err, action.ErrBusy) {
		t.Errorf("Invoke() while typing = %v, want ErrBusy", out.Err)
	}

	a.typing.Store(false)
	if out := b.Invoke(context.Background(), action.Invocation{Command: "b"}); out.Status != action.StatusSuccess {
		t.Errorf("Invoke() = %+v, want success", out)
	}
	if b.Busy() {
		t.Error("Busy() = true after the sequence finished")
	}
}

func TestSnippetHandler(t *testing.T) {
	now := time.Date(2024, 3, 9, 14, 5, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		clip string
		want string
	}{
		{"plain", "Best regards", "", "Best regards"},
		{"cursor removed", "console.log('{{cursor}}');", "", "console.log('');"},
		{"date and time", "# {{date}} {{time}}", "", "# 2024-03-09 14:05"},
		{"clipboard", "see {{clipboard}}", "PR-42", "see PR-42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cb := &fakeClipboard{text: tt.clip}
			h := NewSnippetHandler(tt.text, cb)
			h.now = func() time.Time { return now }

			out := h.Invoke(context.Background(), action.Invocation{})
			if out.Status != action.StatusSuccess {
				t.Fatalf("status = %v (%s)", out.Status, out.Message)
			}
			if cb.text != tt.want {
				t.Errorf("clipboard = %q, want %q", cb.text, tt.want)
			}
		})
	}
}

func TestSnippetHandlerClipboardErrors(t *testing.T) {
	h := NewSnippetHandler("x", &fakeClipboard{writeErr: errors.New("no display")})
	if out := h.Invoke(context.Background(), action.Invocation{}); out.Status != action.StatusFailure {
		t.Errorf("write failure: status = %v", out.Status)
	}

	h = NewSnippetHandler("{{clipboard}}", &fakeClipboard{readErr: errors.New("no display")})
	if out := h.Invoke(context.Background(), action.Invocation{}); out.Status != action.StatusFailure {
		t.Errorf("read failure: status = %v", out.Status)
	}
}

func TestSummarize(t *testing.T) {
	if got := summarize("a\n  b"); got != "a b" {
		t.Errorf("summarize() = %q", got)
	}
	long := strings.Repeat("x", 40)
	if got := summarize(long); len([]rune(got)) != 32 {
		t.Errorf("summarize() kept %d runes, want 32", len([]rune(got)))
	}
}
