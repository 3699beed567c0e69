//go:build linux

package input

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/holoplot/go-evdev"
	"golang.org/x/exp/slices"
)

// EvdevSource reads a Linux input device
type EvdevSource struct {
	path   string
	logger *slog.Logger
}

// NewEvdevSource creates a source for the device at path. An empty path
// selects the first keyboard.
func NewEvdevSource(path string, logger *slog.Logger) *EvdevSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &EvdevSource{path: path, logger: logger}
}

// Run reads key events until ctx is done or the device fails
func (s *EvdevSource) Run(ctx context.Context, out chan<- RawKey) error {
	path := s.path
	if path == "" {
		var err error
		if path, err = findFirstKeyboard(); err != nil {
			return err
		}
	}

	dev, err := evdev.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	name, _ := dev.Name()
	s.logger.Info("reading keyboard", "path", path, "name", name)

	// ReadOne blocks; closing the device releases it
	stop := context.AfterFunc(ctx, func() { dev.Close() })
	defer func() {
		if stop() {
			dev.Close()
		}
	}()

	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if ev.Type != evdev.EV_KEY {
			continue
		}

		raw := RawKey{Name: ev.CodeName(), Time: time.Now()}
		switch ev.Value {
		case 0:
		case 1:
			raw.Down = true
		case 2:
			raw.Down = true
			raw.Repeat = true
		default:
			continue
		}

		if err := send(ctx, out, raw); err != nil {
			return err
		}
	}
}

// findFirstKeyboard returns the first device with key and repeat events
// whose name mentions a keyboard.
func findFirstKeyboard() (string, error) {
	paths, err := evdev.ListDevicePaths()
	if err != nil {
		return "", fmt.Errorf("listing devices: %w", err)
	}
	for _, p := range paths {
		dev, err := evdev.Open(p.Path)
		if err != nil {
			continue
		}
		types := dev.CapableTypes()
		name, nameErr := dev.Name()
		dev.Close()

		if !slices.Contains(types, evdev.EV_KEY) || !slices.Contains(types, evdev.EV_REP) {
			continue
		}
		if nameErr != nil || !strings.Contains(strings.ToLower(name), "keyboard") {
			continue
		}
		return p.Path, nil
	}
	return "", ErrNoKeyboard
}
