package display

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/pleimann/keymode/internal/action"
	"github.com/pleimann/keymode/internal/config"
	"github.com/pleimann/keymode/internal/gesture"
	"github.com/pleimann/keymode/internal/hid"
	"github.com/pleimann/keymode/internal/mode"
)

type fakeDevice struct {
	mu     sync.Mutex
	frames []*hid.DisplayFrame
	fail   error
}

func (d *fakeDevice) SendFrame(f *hid.DisplayFrame) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail != nil {
		return d.fail
	}
	d.frames = append(d.frames, f)
	return nil
}

func (d *fakeDevice) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.frames)
}

func (d *fakeDevice) last() *hid.DisplayFrame {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.frames) == 0 {
		return nil
	}
	return d.frames[len(d.frames)-1]
}

func testConfig() config.DisplayConfig {
	return config.DisplayConfig{
		Enabled:          true,
		Width:            128,
		Height:           64,
		UpdateIntervalMs: 10,
		Regions: []config.DisplayRegion{
			{Name: "mode", X: 0, Y: 0, Width: 128, Height: 16, Source: config.RegionMode},
			{Name: "last", X: 0, Y: 16, Width: 128, Height: 32, Source: config.RegionGesture},
			{Name: "footer", X: 0, Y: 48, Width: 128, Height: 16, Source: config.RegionStatic, Content: "keymode"},
		},
	}
}

func TestManagerFlush(t *testing.T) {
	dev := &fakeDevice{}
	m := NewManager(testConfig(), dev, nil)

	// The first flush always draws
	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	sent := dev.count()
	if sent == 0 {
		t.Fatal("first Flush() sent nothing")
	}

	// Nothing changed
	m.Flush()
	if dev.count() != sent {
		t.Error("Flush() without changes sent frames")
	}

	m.ShowMode(mode.Mode{Name: "GIT", Title: "Git"})
	m.Flush()
	if dev.count() != 2*sent {
		t.Errorf("sent %d frames after a mode change, want %d", dev.count(), 2*sent)
	}

	// Same content again is not a change
	m.OnModeChange(mode.Mode{}, mode.Mode{Name: "GIT", Title: "Git"})
	m.Flush()
	if dev.count() != 2*sent {
		t.Error("unchanged mode triggered a redraw")
	}
}

func TestManagerShowInvocation(t *testing.T) {
	m := NewManager(testConfig(), &fakeDevice{}, nil)

	m.ShowInvocation(action.Report{
		Invocation: action.Invocation{
			Command: "git-log",
			Key:     "f9",
			Gesture: gesture.NewMultiClick("f9", 3, time.Now()),
		},
		Outcome: action.TimedOut(action.ErrTimeout),
	})

	var got string
	for _, r := range m.regions {
		if r.cfg.Source == config.RegionGesture {
			got = r.content
		}
	}
	if got != "f9 triple git-log timeout" {
		t.Errorf("gesture region = %q", got)
	}
	if m.regions[2].content != "keymode" {
		t.Errorf("static region = %q, want keymode", m.regions[2].content)
	}
}

func TestManagerFlushRetriesAfterError(t *testing.T) {
	dev := &fakeDevice{fail: errors.New("unplugged")}
	m := NewManager(testConfig(), dev, nil)

	if err := m.Flush(); err == nil {
		t.Fatal("Flush() should return the send error")
	}

	dev.mu.Lock()
	dev.fail = nil
	dev.mu.Unlock()

	if err := m.Flush(); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if dev.count() == 0 {
		t.Error("frame was not resent after the device recovered")
	}
}

func TestManagerStartStop(t *testing.T) {
	dev := &fakeDevice{}
	m := NewManager(testConfig(), dev, nil)

	m.Start(t.Context())

	deadline := time.Now().Add(2 * time.Second)
	for dev.count() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("update loop never sent a frame")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.Stop()
	if f := dev.last(); f == nil || f.Command != hid.DisplayCmdClear {
		t.Errorf("last frame = %+v, want clear", f)
	}
}
