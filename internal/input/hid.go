package input

import (
	"context"
	"log/slog"
	"time"

	"github.com/pleimann/keymode/internal/hid"
)

// ButtonReader is the part of hid.Device the HID source needs
type ButtonReader interface {
	ReadEvents(ctx context.Context, events chan<- hid.Event) error
	WaitForDevice(ctx context.Context, pollInterval time.Duration) error
}

// HIDSource turns macropad button reports into per-button key signals
// named btn0..btn15.
type HIDSource struct {
	device       ButtonReader
	logger       *slog.Logger
	pollInterval time.Duration
}

// NewHIDSource creates a source reading from device
func NewHIDSource(device ButtonReader, logger *slog.Logger) *HIDSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &HIDSource{
		device:       device,
		logger:       logger,
		pollInterval: time.Second,
	}
}

// Run reads reports until ctx is done. A lost device releases every held
// button and is waited for.
func (s *HIDSource) Run(ctx context.Context, out chan<- RawKey) error {
	var mask uint16

	for {
		events := make(chan hid.Event, 16)
		errc := make(chan error, 1)
		readCtx, cancel := context.WithCancel(ctx)
		go func() {
			errc <- s.device.ReadEvents(readCtx, events)
		}()

		err := s.pump(ctx, events, errc, out, &mask)
		cancel()
		if ctx.Err() != nil {
			return ctx.Err()
		}

		s.logger.Warn("macropad disconnected, waiting", "err", err)
		if err := s.release(ctx, out, &mask); err != nil {
			return err
		}
		if err := s.device.WaitForDevice(ctx, s.pollInterval); err != nil {
			return err
		}
		s.logger.Info("macropad reconnected")
	}
}

// pump forwards reports until the reader fails
func (s *HIDSource) pump(ctx context.Context, events <-chan hid.Event, errc <-chan error, out chan<- RawKey, mask *uint16) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-errc:
			// The reader has returned; flush what it queued
			for {
				select {
				case ev := <-events:
					if ferr := s.apply(ctx, out, ev, mask); ferr != nil {
						return ferr
					}
				default:
					return err
				}
			}
		case ev := <-events:
			if err := s.apply(ctx, out, ev, mask); err != nil {
				return err
			}
		}
	}
}

func (s *HIDSource) apply(ctx context.Context, out chan<- RawKey, ev hid.Event, mask *uint16) error {
	if err := s.forward(ctx, out, ev.Changes(*mask)); err != nil {
		return err
	}
	*mask = ev.ButtonMask
	return nil
}

// release reports every held button as up
func (s *HIDSource) release(ctx context.Context, out chan<- RawKey, mask *uint16) error {
	changes := hid.DiffMasks(*mask, 0)
	*mask = 0
	return s.forward(ctx, out, changes)
}

func (s *HIDSource) forward(ctx context.Context, out chan<- RawKey, changes []hid.ButtonChange) error {
	now := time.Now()
	for _, c := range changes {
		raw := RawKey{Name: hid.ButtonName(c.Button), Down: c.Down, Time: now}
		if err := send(ctx, out, raw); err != nil {
			return err
		}
	}
	return nil
}
