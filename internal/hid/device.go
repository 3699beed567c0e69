package hid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/karalabe/hid"

	"github.com/pleimann/keymode/internal/utils"
)

var (
	// ErrNotFound is returned when no device matches the configured IDs.
	ErrNotFound = errors.New("hid: device not found")

	// ErrClosed is returned by reads and writes after Close.
	ErrClosed = errors.New("hid: device closed")

	// ErrUnsupported is returned when the binary was built without HID support.
	ErrUnsupported = errors.New("hid: not supported on this platform")
)

// Device is an open connection to the macropad. Reads and frame writes may
// happen from different goroutines.
type Device struct {
	vendorID  uint16
	productID uint16
	logger    *slog.Logger

	mu     sync.Mutex
	device *hid.Device
	closed bool
}

// NewDevice opens the first interface of the device with the given IDs
func NewDevice(vendorID, productID uint16, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dev, err := open(vendorID, productID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			exe := utils.ExecutableName()
			return nil, fmt.Errorf("%w: 0x%04X:0x%04X\n"+
				"  Run '%s list-devices' to see available devices\n"+
				"  Run '%s set-device' to configure the correct device",
				err, vendorID, productID, exe, exe)
		}
		return nil, fmt.Errorf("%w\n"+
			"  This may be a permissions issue. On Linux, check the udev rules for hidraw;\n"+
			"  on macOS, allow your terminal under Privacy & Security > Input Monitoring",
			err)
	}

	logger.Debug("macropad opened", "vendor_id", fmt.Sprintf("0x%04X", vendorID), "product_id", fmt.Sprintf("0x%04X", productID))
	return &Device{
		vendorID:  vendorID,
		productID: productID,
		logger:    logger,
		device:    dev,
	}, nil
}

// open tries every matching interface, since not all of them accept a
// connection
func open(vendorID, productID uint16) (*hid.Device, error) {
	infos := hid.Enumerate(vendorID, productID)
	if len(infos) == 0 {
		return nil, ErrNotFound
	}

	var lastErr error
	for _, info := range infos {
		dev, err := info.Open()
		if err == nil {
			return dev, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("failed to open any of %d interfaces of 0x%04X:0x%04X: %w",
		len(infos), vendorID, productID, lastErr)
}

// ID returns the vendor and product IDs the device was opened with
func (d *Device) ID() (uint16, uint16) {
	return d.vendorID, d.productID
}

// Close closes the connection. A blocked ReadEvents returns.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true

	if d.device != nil {
		err := d.device.Close()
		d.device = nil
		return err
	}
	return nil
}

func (d *Device) current() (*hid.Device, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.device == nil {
		return nil, ErrClosed
	}
	return d.device, nil
}

// ReadEvents reads button reports into events until ctx is done or the
// device fails. Reports of other kinds are skipped.
func (d *Device) ReadEvents(ctx context.Context, events chan<- Event) error {
	buf := make([]byte, 64)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		dev, err := d.current()
		if err != nil {
			return err
		}

		// Blocks until a report arrives
		n, err := dev.Read(buf)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read error: %w", err)
		}
		if n == 0 {
			continue
		}

		event, err := ParseEvent(buf[:n])
		if err != nil {
			d.logger.Debug("skipping report", "err", err)
			continue
		}

		select {
		case events <- event:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// SendFrame writes a display frame
func (d *Device) SendFrame(frame *DisplayFrame) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed || d.device == nil {
		return ErrClosed
	}
	_, err := d.device.Write(frame.Encode())
	return err
}

// reconnect drops the current connection and opens the device again
func (d *Device) reconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.device != nil {
		d.device.Close()
		d.device = nil
	}

	dev, err := open(d.vendorID, d.productID)
	if err != nil {
		return err
	}
	d.device = dev
	return nil
}

// WaitForDevice polls until the device can be opened again or ctx is done
func (d *Device) WaitForDevice(ctx context.Context, pollInterval time.Duration) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			err := d.reconnect()
			if err == nil || errors.Is(err, ErrClosed) {
				return err
			}
			d.logger.Debug("macropad not back yet", "err", err)
		}
	}
}
