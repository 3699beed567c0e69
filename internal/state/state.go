// Package state persists small bits of runtime state between runs.
package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pleimann/keymode/internal/utils"
)

// State is what survives a restart
type State struct {
	Mode      string    `json:"mode,omitempty"` // Last active mode
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// File is a JSON state file
type File struct {
	path string
	mu   sync.Mutex
}

// DefaultPath returns the state file under the user config directory
func DefaultPath() string {
	return filepath.Join(utils.ConfigDir(), "state.json")
}

// Open returns the state file at path, or DefaultPath when path is empty
func Open(path string) *File {
	if path == "" {
		path = DefaultPath()
	}
	return &File{path: utils.ExpandHome(path)}
}

// Path returns the file location
func (f *File) Path() string {
	return f.path
}

// Load reads the state. A missing file is an empty state.
func (f *File) Load() (State, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var st State
	data, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return st, nil // no state file yet
	}
	if err != nil {
		return st, err
	}
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, fmt.Errorf("parse %s: %w", f.path, err)
	}
	return st, nil
}

// Save writes the state, replacing the file atomically
func (f *File) Save(st State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(f.path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, f.path)
}

// SaveMode records m as the last active mode
func (f *File) SaveMode(m string) error {
	return f.Save(State{Mode: m, UpdatedAt: time.Now().UTC()})
}
