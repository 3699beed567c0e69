package command

import (
	"context"
	"strings"
	"time"

	"github.com/atotto/clipboard"

	"github.com/pleimann/keymode/internal/action"
)

// Clipboard is read and written by snippet commands
type Clipboard interface {
	ReadAll() (string, error)
	WriteAll(text string) error
}

// SystemClipboard is the desktop clipboard
type SystemClipboard struct{}

func (SystemClipboard) ReadAll() (string, error)   { return clipboard.ReadAll() }
func (SystemClipboard) WriteAll(text string) error { return clipboard.WriteAll(text) }

// SnippetHandler copies expanded text to the clipboard.
//
// Placeholders:
//
//	{{cursor}}     removed
//	{{date}}       today as 2006-01-02
//	{{time}}       now as 15:04
//	{{clipboard}}  the clipboard's current text
type SnippetHandler struct {
	text      string
	clipboard Clipboard
	now       func() time.Time
}

// NewSnippetHandler creates a handler for text
func NewSnippetHandler(text string, cb Clipboard) *SnippetHandler {
	return &SnippetHandler{text: text, clipboard: cb, now: time.Now}
}

func (h *SnippetHandler) Invoke(_ context.Context, _ action.Invocation) action.Outcome {
	text, err := h.expand()
	if err != nil {
		return action.Failure(err)
	}
	if err := h.clipboard.WriteAll(text); err != nil {
		return action.Failuref("copy snippet: %w", err)
	}
	return action.Success(summarize(text))
}

func (h *SnippetHandler) expand() (string, error) {
	now := h.now()
	text := strings.NewReplacer(
		"{{cursor}}", "",
		"{{date}}", now.Format(time.DateOnly),
		"{{time}}", now.Format("15:04"),
	).Replace(h.text)

	if strings.Contains(text, "{{clipboard}}") {
		current, err := h.clipboard.ReadAll()
		if err != nil {
			return "", err
		}
		text = strings.ReplaceAll(text, "{{clipboard}}", current)
	}
	return text, nil
}

// summarize shortens text for status lines
func summarize(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if r := []rune(text); len(r) > 32 {
		return string(r[:31]) + "…"
	}
	return text
}
