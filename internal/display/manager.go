// Package display renders the active mode and recent activity onto the
// macropad's OLED.
package display

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"sync"
	"time"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/hid"
	"github.com/pleimann/keymode/internal/mode"
)

// DeviceWriter is the interface for sending frames to the device
type DeviceWriter interface {
	SendFrame(frame *hid.DisplayFrame) error
}

type region struct {
	cfg     config.DisplayRegion
	bounds  image.Rectangle
	content string
}

// Manager keeps region contents current and pushes a new frame whenever one
// changed. It is a mode change callback and an action.Reporter.
type Manager struct {
	cfg    config.DisplayConfig
	device DeviceWriter
	canvas *Canvas
	logger *slog.Logger

	mu      sync.Mutex
	regions []*region
	dirty   bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a display manager for device
func NewManager(cfg config.DisplayConfig, device DeviceWriter, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		device: device,
		canvas: NewCanvas(cfg.Width, cfg.Height),
		logger: logger,
		dirty:  true,
	}
	for _, rc := range cfg.Regions {
		m.regions = append(m.regions, &region{
			cfg:     rc,
			bounds:  image.Rect(rc.X, rc.Y, rc.X+rc.Width, rc.Y+rc.Height),
			content: rc.Content, // Static text from config
		})
	}
	return m
}

// Start pushes changed frames every update interval until ctx is done or
// Stop is called
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.done = make(chan struct{})

	interval := time.Duration(m.cfg.UpdateIntervalMs) * time.Millisecond
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}

	go func() {
		defer close(m.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.Flush(); err != nil {
					m.logger.Debug("display update failed", "err", err)
				}
			}
		}
	}()
}

// Stop stops the update loop and blanks the display
func (m *Manager) Stop() {
	if m.cancel != nil {
		m.cancel()
		<-m.done
	}
	if err := m.device.SendFrame(hid.NewClearCommand()); err != nil {
		m.logger.Debug("failed to clear display", "err", err)
	}
}

// ShowMode shows m in every mode region
func (m *Manager) ShowMode(md mode.Mode) {
	m.set(config.RegionMode, md.Title)
}

// OnModeChange is a mode.ChangeCallback
func (m *Manager) OnModeChange(_, to mode.Mode) {
	m.ShowMode(to)
}

// ShowInvocation shows the latest invocation in every gesture region
func (m *Manager) ShowInvocation(r action.Report) {
	mark := "ok"
	switch r.Status {
	case action.StatusFailure:
		mark = "failed"
	case action.StatusTimedOut:
		mark = "timeout"
	}
	m.set(config.RegionGesture, fmt.Sprintf("%s %s %s %s", r.Key, r.Gesture.Pattern(), r.Command, mark))
}

func (m *Manager) set(source, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.regions {
		if r.cfg.Source == source && r.content != content {
			r.content = content
			m.dirty = true
		}
	}
}

// Flush renders and sends a frame if any region changed since the last one
func (m *Manager) Flush() error {
	m.mu.Lock()
	if !m.dirty {
		m.mu.Unlock()
		return nil
	}
	m.canvas.Clear()
	for _, r := range m.regions {
		m.render(r)
	}
	m.dirty = false
	data := m.canvas.Pack()
	m.mu.Unlock()

	for _, frame := range Chunk(data, m.cfg.Width, m.cfg.Height) {
		if err := m.device.SendFrame(frame); err != nil {
			m.mu.Lock()
			m.dirty = true // Retry on the next tick
			m.mu.Unlock()
			return err
		}
	}
	return nil
}

func (m *Manager) render(r *region) {
	switch r.cfg.Source {
	case config.RegionMode:
		m.canvas.Label(r.bounds, r.content)
	case config.RegionGesture:
		m.canvas.Box(r.bounds)
		m.canvas.Wrap(r.bounds.Inset(1), r.content)
	default:
		m.canvas.Wrap(r.bounds, r.content)
	}
}
