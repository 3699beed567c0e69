package action

import (
	"fmt"
	"sort"
	"sync"
)

type registration struct {
	handler Handler
	opts    Options
}

// Registry maps command ids to handlers
type Registry struct {
	mu       sync.RWMutex
	commands map[string]registration
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		commands: make(map[string]registration),
	}
}

// Register adds a handler for a command id
func (r *Registry) Register(id string, h Handler, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.commands[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateCommand, id)
	}
	r.commands[id] = registration{handler: h, opts: opts}
	return nil
}

// Get returns the handler and options for a command id
func (r *Registry) Get(id string) (Handler, Options, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.commands[id]
	return reg.handler, reg.opts, ok
}

// Commands returns the registered command ids, sorted
func (r *Registry) Commands() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.commands))
	for id := range r.commands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Check reports every command the table refers to that has no handler
func (r *Registry) Check(t *Table) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range t.Commands() {
		if _, ok := r.commands[id]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownCommand, id)
		}
	}
	return nil
}
