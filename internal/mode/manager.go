package mode

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"sync"
)

// ChangeCallback is called after the mode changes
type ChangeCallback func(from, to Mode)

// Manager owns the current mode. Modes are fixed at construction and cycle
// in the order given.
type Manager struct {
	mu sync.RWMutex

	modes   []Mode
	current int

	callbacks []ChangeCallback
	logger    *slog.Logger
}

// Definition describes a mode before it is given an ordinal
type Definition struct {
	Name  string
	Title string
}

// NewManager creates a manager over defs, starting at initial.
// An empty or unknown initial selects the first mode.
func NewManager(defs []Definition, initial string, logger *slog.Logger) (*Manager, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: no modes configured", ErrInvalidMode)
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		modes:  make([]Mode, 0, len(defs)),
		logger: logger,
	}
	seen := make(map[string]bool, len(defs))
	for i, d := range defs {
		if d.Name == "" {
			return nil, fmt.Errorf("%w: mode %d has no name", ErrInvalidMode, i)
		}
		key := strings.ToLower(d.Name)
		if seen[key] {
			return nil, fmt.Errorf("%w: duplicate mode %q", ErrInvalidMode, d.Name)
		}
		seen[key] = true
		m.modes = append(m.modes, Mode{Name: d.Name, Title: d.Title, Ordinal: i})
	}

	if initial != "" {
		if idx, ok := m.indexOf(initial); ok {
			m.current = idx
		} else {
			logger.Warn("unknown initial mode, using first", "mode", initial, "first", m.modes[0].Name)
		}
	}
	return m, nil
}

// Current returns the active mode
func (m *Manager) Current() Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.modes[m.current]
}

// Modes returns all modes in cycle order
func (m *Manager) Modes() []Mode {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Mode, len(m.modes))
	copy(out, m.modes)
	return out
}

// Lookup finds a mode by name, ignoring case
func (m *Manager) Lookup(name string) (Mode, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.indexOf(name)
	if !ok {
		return Mode{}, false
	}
	return m.modes[idx], true
}

// Advance moves to the next mode, wrapping after the last one
func (m *Manager) Advance() Mode {
	return m.step(1)
}

// Previous moves to the previous mode, wrapping before the first one
func (m *Manager) Previous() Mode {
	return m.step(-1)
}

// Set switches to the named mode
func (m *Manager) Set(name string) (Mode, error) {
	m.mu.Lock()
	idx, ok := m.indexOf(name)
	if !ok {
		m.mu.Unlock()
		return Mode{}, fmt.Errorf("%w: %q", ErrInvalidMode, name)
	}
	from, to, callbacks := m.switchLocked(idx)
	m.mu.Unlock()

	m.notify(callbacks, from, to)
	return to, nil
}

// OnChange registers a callback for mode changes.
// Callbacks run on the goroutine that changed the mode, outside the lock.
func (m *Manager) OnChange(cb ChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

func (m *Manager) step(delta int) Mode {
	m.mu.Lock()
	n := len(m.modes)
	idx := ((m.current+delta)%n + n) % n
	from, to, callbacks := m.switchLocked(idx)
	m.mu.Unlock()

	m.notify(callbacks, from, to)
	return to
}

// switchLocked must be called with mu held
func (m *Manager) switchLocked(idx int) (Mode, Mode, []ChangeCallback) {
	from := m.modes[m.current]
	to := m.modes[idx]
	if idx == m.current {
		return from, to, nil
	}
	m.current = idx

	callbacks := make([]ChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	return from, to, callbacks
}

func (m *Manager) notify(callbacks []ChangeCallback, from, to Mode) {
	if from.Ordinal == to.Ordinal {
		return
	}
	m.logger.Info("mode changed", "from", from.Name, "to", to.Name)
	for _, cb := range callbacks {
		m.safeCall(cb, from, to)
	}
}

func (m *Manager) safeCall(cb ChangeCallback, from, to Mode) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("mode change callback panicked", "panic", r, "stack", string(debug.Stack()))
		}
	}()
	cb(from, to)
}

func (m *Manager) indexOf(name string) (int, bool) {
	for i, md := range m.modes {
		if strings.EqualFold(md.Name, name) {
			return i, true
		}
	}
	return 0, false
}
