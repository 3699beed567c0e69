package action

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/gesture"
)

// AnyMode binds a gesture in every mode that has no binding of its own
const AnyMode = "*"

// Binding maps a gesture on a key, in a mode, to a command id
type Binding struct {
	Mode    string
	Key     string
	Pattern gesture.Pattern
	Command string
}

type bindingKey struct {
	mode    string
	key     string
	pattern gesture.Pattern
}

// Table resolves (mode, key, pattern) to a command id. It is immutable once
// built and safe to share between goroutines.
type Table struct {
	entries  map[bindingKey]string
	bindings []Binding
}

// NewTable builds a binding table from configuration
func NewTable(cfg *config.Config) (*Table, error) {
	t := &Table{
		entries:  make(map[bindingKey]string, len(cfg.Bindings)),
		bindings: make([]Binding, 0, len(cfg.Bindings)),
	}

	for i, b := range cfg.Bindings {
		pattern, err := gesture.ParsePattern(b.Gesture)
		if err != nil {
			return nil, fmt.Errorf("binding %d: %w", i, err)
		}
		mode := normalizeMode(b.Mode)
		k := bindingKey{mode: mode, key: strings.ToLower(b.Key), pattern: pattern}
		if existing, ok := t.entries[k]; ok {
			return nil, fmt.Errorf("binding %d: %s %s in mode %s already bound to %q",
				i, k.key, pattern, b.Mode, existing)
		}
		t.entries[k] = b.Command
		t.bindings = append(t.bindings, Binding{
			Mode:    mode,
			Key:     k.key,
			Pattern: pattern,
			Command: b.Command,
		})
	}

	return t, nil
}

// Lookup returns the command bound to g in mode. A binding for the mode
// itself wins over a wildcard one.
func (t *Table) Lookup(mode string, g gesture.Gesture) (string, bool) {
	k := bindingKey{mode: normalizeMode(mode), key: g.Key, pattern: g.Pattern()}
	if cmd, ok := t.entries[k]; ok {
		return cmd, true
	}
	k.mode = AnyMode
	cmd, ok := t.entries[k]
	return cmd, ok
}

// Bindings returns the bindings in effect for mode, sorted by key and pattern
func (t *Table) Bindings(mode string) []Binding {
	mode = normalizeMode(mode)

	var out []Binding
	for _, b := range t.bindings {
		switch b.Mode {
		case mode:
			out = append(out, b)
		case AnyMode:
			// Shadowed by a mode-specific binding
			if _, ok := t.entries[bindingKey{mode: mode, key: b.Key, pattern: b.Pattern}]; ok {
				continue
			}
			out = append(out, b)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Key != out[j].Key {
			return out[i].Key < out[j].Key
		}
		return patternOrder(out[i].Pattern) < patternOrder(out[j].Pattern)
	})
	return out
}

// Commands returns every command id the table refers to
func (t *Table) Commands() []string {
	seen := make(map[string]bool)
	var out []string
	for _, b := range t.bindings {
		if !seen[b.Command] {
			seen[b.Command] = true
			out = append(out, b.Command)
		}
	}
	sort.Strings(out)
	return out
}

// Len returns the number of bindings
func (t *Table) Len() int {
	return len(t.bindings)
}

func normalizeMode(mode string) string {
	if mode == "" {
		return AnyMode
	}
	return strings.ToLower(mode)
}

// patternOrder sorts short, then multi-clicks by count, then long
func patternOrder(p gesture.Pattern) int {
	if p == gesture.PatternLong {
		return 1 << 30
	}
	return p.Clicks()
}
