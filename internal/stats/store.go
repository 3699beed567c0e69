// Package stats records gestures, command outcomes and mode changes in a
// SQLite database and summarizes them.
package stats

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/mode"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    started_at TEXT NOT NULL,
    ended_at TEXT
);
CREATE TABLE IF NOT EXISTS gestures (
    at TEXT NOT NULL,
    mode TEXT NOT NULL,
    key TEXT NOT NULL,
    pattern TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS invocations (
    at TEXT NOT NULL,
    mode TEXT NOT NULL,
    command TEXT NOT NULL,
    status TEXT NOT NULL,
    duration_ms INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS mode_changes (
    at TEXT NOT NULL,
    from_mode TEXT NOT NULL,
    to_mode TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_invocations_command ON invocations(command);
CREATE INDEX IF NOT EXISTS idx_mode_changes_to ON mode_changes(to_mode);
`

// queueSize bounds pending writes; writes beyond it are dropped
const queueSize = 256

type write struct {
	query string
	args  []any
	done  chan struct{} // Set for sync barriers
}

// Store is a statistics database. Record methods never block on I/O: writes
// are queued to a background goroutine and dropped if the queue is full.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	closed  bool
	writes  chan write
	stopped chan struct{}

	session int64
}

// Open opens or creates the database at path and starts a session
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create stats directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &Store{
		db:      db,
		logger:  logger,
		now:     time.Now,
		writes:  make(chan write, queueSize),
		stopped: make(chan struct{}),
	}
	go s.writer()
	return s, nil
}

// StartSession marks the start of a run. Its end is stored by Close.
func (s *Store) StartSession() error {
	res, err := s.db.Exec(`INSERT INTO sessions (started_at) VALUES (?)`, s.timestamp())
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	s.session, err = res.LastInsertId()
	return err
}

// RecordGesture records a gesture classified in mode
func (s *Store) RecordGesture(m mode.Mode, g gesture.Gesture) {
	s.enqueue(write{
		query: `INSERT INTO gestures (at, mode, key, pattern) VALUES (?, ?, ?, ?)`,
		args:  []any{format(g.ResolvedAt), m.Name, g.Key, string(g.Pattern())},
	})
}

// RecordModeChange records a switch between modes
func (s *Store) RecordModeChange(from, to mode.Mode) {
	s.enqueue(write{
		query: `INSERT INTO mode_changes (at, from_mode, to_mode) VALUES (?, ?, ?)`,
		args:  []any{s.timestamp(), from.Name, to.Name},
	})
}

// Report records a finished command invocation
func (s *Store) Report(r action.Report) {
	s.enqueue(write{
		query: `INSERT INTO invocations (at, mode, command, status, duration_ms) VALUES (?, ?, ?, ?, ?)`,
		args:  []any{format(r.Started), r.Mode.Name, r.Command, r.Status.String(), r.Duration.Milliseconds()},
	})
}

// Sync waits until every write queued before it is stored
func (s *Store) Sync() {
	done := make(chan struct{})
	if !s.enqueue(write{done: done}) {
		return
	}
	<-done
}

// Close ends the session, stores queued writes and closes the database
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.writes)
	s.mu.Unlock()

	<-s.stopped

	if s.session != 0 {
		if _, err := s.db.Exec(`UPDATE sessions SET ended_at = ? WHERE id = ?`, s.timestamp(), s.session); err != nil {
			s.logger.Warn("failed to end stats session", "err", err)
		}
	}
	return s.db.Close()
}

func (s *Store) enqueue(w write) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.writes <- w:
		return true
	default:
		s.logger.Warn("stats queue full, dropping write")
		return false
	}
}

func (s *Store) writer() {
	defer close(s.stopped)
	for w := range s.writes {
		if w.done != nil {
			close(w.done)
			continue
		}
		if _, err := s.db.Exec(w.query, w.args...); err != nil {
			s.logger.Warn("failed to record stats", "err", err)
		}
	}
}

func (s *Store) timestamp() string {
	return format(s.now())
}

func format(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
