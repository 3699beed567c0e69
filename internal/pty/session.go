package pty

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	"github.com/creack/pty"

	"github.com/pleimann/keymode/internal/utils"
)

// ErrNotRunning is returned when writing to a session that is not running
var ErrNotRunning = errors.New("pty: session not running")

// Session runs a long-lived program in a PTY so key commands can type into it
type Session struct {
	command    string
	args       []string
	workingDir string
	logger     *slog.Logger

	mu     sync.Mutex
	ptmx   *os.File
	cmd    *exec.Cmd
	exited chan struct{}

	outputMu     sync.RWMutex
	outputBuffer *RingBuffer
}

// NewSession creates a session for command. It does not start it.
func NewSession(command string, args []string, workingDir string, logger *slog.Logger) (*Session, error) {
	if command == "" {
		return nil, fmt.Errorf("command is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Session{
		command:      command,
		args:         args,
		workingDir:   workingDir,
		logger:       logger,
		outputBuffer: NewRingBuffer(4096), // Keep last 4KB of output
	}, nil
}

// Start starts the program in a PTY
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx != nil {
		return fmt.Errorf("session already started")
	}

	cmd := exec.CommandContext(ctx, s.command, s.args...)
	if s.workingDir != "" {
		cmd.Dir = utils.ExpandHome(s.workingDir)
	}
	cmd.Env = os.Environ()

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return fmt.Errorf("failed to start PTY: %w", err)
	}

	s.ptmx = ptmx
	s.cmd = cmd
	s.exited = make(chan struct{})

	go s.readOutput(ptmx)

	exited := s.exited
	go func() {
		err := cmd.Wait()
		s.logger.Info("session exited", "command", s.command, "err", err)
		close(exited)
	}()

	s.logger.Info("session started", "command", s.command, "pid", cmd.Process.Pid)
	return nil
}

// Stop interrupts the program and closes the PTY
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil && s.cmd.Process != nil && s.running() {
		s.cmd.Process.Signal(os.Interrupt)
		<-s.exited
	}

	if s.ptmx != nil {
		s.ptmx.Close()
		s.ptmx = nil
	}
}

// readOutput copies PTY output into the ring buffer until the PTY closes
func (s *Session) readOutput(ptmx *os.File) {
	buf := make([]byte, 1024)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			s.outputMu.Lock()
			s.outputBuffer.Write(buf[:n])
			s.outputMu.Unlock()
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, os.ErrClosed) {
				s.logger.Debug("session output closed", "err", err)
			}
			return
		}
	}
}

// Write sends raw bytes to the program
func (s *Session) Write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx == nil || !s.running() {
		return ErrNotRunning
	}

	_, err := s.ptmx.Write(data)
	return err
}

// WriteKey writes a key press to the PTY
func (s *Session) WriteKey(key KeyPress) error {
	data := key.ToBytes()
	if data == nil {
		return fmt.Errorf("could not convert key %s to bytes", key)
	}
	return s.Write(data)
}

// WriteString writes a string to the PTY
func (s *Session) WriteString(str string) error {
	return s.Write([]byte(str))
}

// RecentOutput returns the tail of the program's output
func (s *Session) RecentOutput() string {
	s.outputMu.RLock()
	defer s.outputMu.RUnlock()
	return s.outputBuffer.String()
}

// Resize resizes the PTY window
func (s *Session) Resize(rows, cols uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ptmx == nil {
		return ErrNotRunning
	}

	return pty.Setsize(s.ptmx, &pty.Winsize{
		Rows: rows,
		Cols: cols,
	})
}

// IsRunning returns whether the program is running
func (s *Session) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running()
}

// running must be called with mu held
func (s *Session) running() bool {
	if s.exited == nil {
		return false
	}
	select {
	case <-s.exited:
		return false
	default:
		return true
	}
}
