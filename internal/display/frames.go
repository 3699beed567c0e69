package display

import (
	"github.com/pleimann/keymode/internal/hid"
)

// maxPayload is what fits in a 64 byte report after the 10 byte frame header
const maxPayload = 54

// Chunk splits a packed frame into partial frames that each fit one report.
// Chunks are whole rows.
func Chunk(data []byte, width, height int) []*hid.DisplayFrame {
	stride := (width + 7) / 8
	rows := max(maxPayload/stride, 1)

	var frames []*hid.DisplayFrame
	for y := 0; y < height; y += rows {
		h := min(rows, height-y)
		start := y * stride
		end := min((y+h)*stride, len(data))
		if start >= end {
			break
		}
		frames = append(frames, hid.NewPartialFrame(0, uint16(y), uint16(width), uint16(h), data[start:end]))
	}
	return frames
}
