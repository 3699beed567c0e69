package display

import (
	"testing"

	"github.com/pleimann/keymode/internal/hid"
)

func TestChunk(t *testing.T) {
	// 128 wide = 16 bytes per row, 54/16 = 3 rows per chunk
	data := make([]byte, 16*64)
	frames := Chunk(data, 128, 64)

	// 64 rows / 3 = 21 full chunks + 1 row
	if len(frames) != 22 {
		t.Fatalf("len(frames) = %d, want 22", len(frames))
	}

	y := 0
	for i, f := range frames {
		if f.Command != hid.DisplayCmdPartial {
			t.Errorf("frame %d command = 0x%02X", i, f.Command)
		}
		if int(f.Y) != y || f.X != 0 || f.Width != 128 {
			t.Errorf("frame %d at (%d,%d) width %d", i, f.X, f.Y, f.Width)
		}
		if len(f.Data) != int(f.Height)*16 || len(f.Data) > maxPayload {
			t.Errorf("frame %d carries %d bytes for %d rows", i, len(f.Data), f.Height)
		}
		y += int(f.Height)
	}
	if y != 64 {
		t.Errorf("frames cover %d rows, want 64", y)
	}
}

func TestChunkSmall(t *testing.T) {
	// 8x4 fits in one chunk
	frames := Chunk([]byte{1, 2, 3, 4}, 8, 4)
	if len(frames) != 1 || frames[0].Height != 4 {
		t.Fatalf("frames = %+v, want one 4-row frame", frames)
	}
}

func TestChunkWide(t *testing.T) {
	// Rows wider than a payload still go one per frame
	frames := Chunk(make([]byte, 64*2), 512, 2)
	if len(frames) != 2 {
		t.Errorf("len(frames) = %d, want 2", len(frames))
	}
}
