package input

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pleimann/keymode/internal/hid"
)

// scriptedPad replays a list of reports per connection
type scriptedPad struct {
	sessions [][]hid.Event
	waits    int
}

func (p *scriptedPad) ReadEvents(ctx context.Context, events chan<- hid.Event) error {
	if len(p.sessions) == 0 {
		<-ctx.Done()
		return ctx.Err()
	}
	session := p.sessions[0]
	p.sessions = p.sessions[1:]
	for _, ev := range session {
		select {
		case events <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return errors.New("device unplugged")
}

func (p *scriptedPad) WaitForDevice(ctx context.Context, pollInterval time.Duration) error {
	p.waits++
	return nil
}

func collect(t *testing.T, out <-chan RawKey, n int) []RawKey {
	t.Helper()
	var got []RawKey
	for len(got) < n {
		select {
		case k := <-out:
			got = append(got, k)
		case <-time.After(2 * time.Second):
			t.Fatalf("received %d keys %+v, want %d", len(got), got, n)
		}
	}
	return got
}

func TestHIDSourceDiffsMasks(t *testing.T) {
	pad := &scriptedPad{sessions: [][]hid.Event{{
		{Type: hid.Press, ButtonMask: 0x0001},
		{Type: hid.Press, ButtonMask: 0x0005},
		{Type: hid.Release, ButtonMask: 0x0004},
		{Type: hid.Release, ButtonMask: 0x0000},
	}}}
	src := NewHIDSource(pad, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan RawKey, 16)
	go src.Run(ctx, out)

	got := collect(t, out, 4)
	want := []struct {
		name string
		down bool
	}{
		{"btn0", true},
		{"btn2", true},
		{"btn0", false},
		{"btn2", false},
	}
	for i, w := range want {
		if got[i].Name != w.name || got[i].Down != w.down {
			t.Errorf("key[%d] = %s down=%v, want %s down=%v", i, got[i].Name, got[i].Down, w.name, w.down)
		}
	}
}

func TestHIDSourceReleasesOnDisconnect(t *testing.T) {
	pad := &scriptedPad{sessions: [][]hid.Event{
		{{Type: hid.Press, ButtonMask: 0x0002}},
		{{Type: hid.Press, ButtonMask: 0x0001}},
	}}
	src := NewHIDSource(pad, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := make(chan RawKey, 16)
	go src.Run(ctx, out)

	got := collect(t, out, 3)
	if got[0].Name != "btn1" || !got[0].Down {
		t.Errorf("key[0] = %+v, want btn1 down", got[0])
	}
	if got[1].Name != "btn1" || got[1].Down {
		t.Errorf("key[1] = %+v, want btn1 released after disconnect", got[1])
	}
	if got[2].Name != "btn0" || !got[2].Down {
		t.Errorf("key[2] = %+v, want btn0 down after reconnect", got[2])
	}
}
