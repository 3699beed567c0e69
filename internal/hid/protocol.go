package hid

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Report IDs
const (
	ReportIDButtonEvent byte = 0x01
	ReportIDDisplay     byte = 0x02
)

// Display commands
const (
	DisplayCmdFullFrame byte = 0x01
	DisplayCmdPartial   byte = 0x02
	DisplayCmdClear     byte = 0x03
)

// MaxButtons is the number of buttons a report can describe
const MaxButtons = 16

var (
	// ErrShortReport is returned for a button report under eight bytes.
	ErrShortReport = errors.New("hid: report too short")

	// ErrNotButtonReport is returned for reports that are not button events.
	ErrNotButtonReport = errors.New("hid: not a button report")
)

// EventType is what the firmware says happened. Edges are derived from the
// mask, so it is informational only.
type EventType byte

const (
	Press   EventType = 0x01
	Release EventType = 0x02
)

func (e EventType) String() string {
	switch e {
	case Press:
		return "press"
	case Release:
		return "release"
	default:
		return fmt.Sprintf("unknown(%d)", byte(e))
	}
}

// Event is one button report: the full mask of held buttons after the change
type Event struct {
	Type       EventType
	ButtonMask uint16
	Timestamp  uint32 // ms since device boot
}

// ParseEvent decodes a button report:
//
//	byte 0     report ID (0x01)
//	byte 1     event type (0x01 press, 0x02 release)
//	bytes 2-3  button mask, little-endian
//	bytes 4-7  timestamp, little-endian
func ParseEvent(data []byte) (Event, error) {
	if len(data) < 8 {
		return Event{}, fmt.Errorf("%w: %d bytes", ErrShortReport, len(data))
	}
	if data[0] != ReportIDButtonEvent {
		return Event{}, fmt.Errorf("%w: report ID 0x%02X", ErrNotButtonReport, data[0])
	}

	typ := EventType(data[1])
	if typ != Press && typ != Release {
		return Event{}, fmt.Errorf("%w: event type 0x%02X", ErrNotButtonReport, data[1])
	}

	return Event{
		Type:       typ,
		ButtonMask: binary.LittleEndian.Uint16(data[2:4]),
		Timestamp:  binary.LittleEndian.Uint32(data[4:8]),
	}, nil
}

// ButtonChange is one button going down or up between two reports
type ButtonChange struct {
	Button int
	Down   bool
}

// Changes compares the report's mask against the previous one, lowest
// button first.
func (e Event) Changes(prev uint16) []ButtonChange {
	return DiffMasks(prev, e.ButtonMask)
}

// DiffMasks returns the buttons whose state differs between prev and next
func DiffMasks(prev, next uint16) []ButtonChange {
	changed := prev ^ next
	if changed == 0 {
		return nil
	}
	var out []ButtonChange
	for i := range MaxButtons {
		bit := uint16(1) << i
		if changed&bit != 0 {
			out = append(out, ButtonChange{Button: i, Down: next&bit != 0})
		}
	}
	return out
}

// ButtonName returns the key name used for a button index
func ButtonName(i int) string {
	return fmt.Sprintf("btn%d", i)
}

// DisplayFrame is a display report. Data is 1-bit packed, row-major.
type DisplayFrame struct {
	Command byte
	X       uint16
	Y       uint16
	Width   uint16
	Height  uint16
	Data    []byte
}

const frameHeaderSize = 10

// Encode serializes the frame: report ID, command, then X, Y, width and
// height as little-endian uint16, then the pixel data.
func (f *DisplayFrame) Encode() []byte {
	buf := make([]byte, frameHeaderSize+len(f.Data))

	buf[0] = ReportIDDisplay
	buf[1] = f.Command
	binary.LittleEndian.PutUint16(buf[2:4], f.X)
	binary.LittleEndian.PutUint16(buf[4:6], f.Y)
	binary.LittleEndian.PutUint16(buf[6:8], f.Width)
	binary.LittleEndian.PutUint16(buf[8:10], f.Height)
	copy(buf[frameHeaderSize:], f.Data)

	return buf
}

// NewPartialFrame creates an update for a band of the display
func NewPartialFrame(x, y, width, height uint16, data []byte) *DisplayFrame {
	return &DisplayFrame{
		Command: DisplayCmdPartial,
		X:       x,
		Y:       y,
		Width:   width,
		Height:  height,
		Data:    data,
	}
}

// NewClearCommand creates a display clear command
func NewClearCommand() *DisplayFrame {
	return &DisplayFrame{Command: DisplayCmdClear}
}
