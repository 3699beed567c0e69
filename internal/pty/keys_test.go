package pty

import (
	"bytes"
	"reflect"
	"testing"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		input   string
		want    KeyPress
		wantErr bool
	}{
		{input: "a", want: KeyPress{Key: "a"}},
		{input: "A", want: KeyPress{Key: "a"}},
		{input: "5", want: KeyPress{Key: "5"}},
		{input: "enter", want: KeyPress{Key: "enter"}},
		{input: "ctrl+c", want: KeyPress{Ctrl: true, Key: "c"}},
		{input: "alt+f4", want: KeyPress{Alt: true, Key: "f4"}},
		{input: "shift+tab", want: KeyPress{Shift: true, Key: "tab"}},
		{input: "cmd+q", want: KeyPress{Meta: true, Key: "q"}},
		{input: "ctrl+shift+z", want: KeyPress{Ctrl: true, Shift: true, Key: "z"}},
		{input: "ctrl+alt+shift+meta+x", want: KeyPress{Ctrl: true, Alt: true, Shift: true, Meta: true, Key: "x"}},
		{input: "escape", want: KeyPress{Key: "escape"}},
		{input: "foo+a", wantErr: true},
		{input: "ctrl+", wantErr: true},
		{input: "invalid_key", wantErr: true},
		{input: "f13", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseKey(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseKey(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseKey(%q) = %+v, want %+v", tt.input, got, tt.want)
			}
		})
	}
}

func TestKeyPressToBytes(t *testing.T) {
	tests := []struct {
		key  string
		want []byte
	}{
		{"ctrl+c", []byte{0x03}},
		{"ctrl+a", []byte{0x01}},
		{"ctrl+z", []byte{0x1a}},
		{"ctrl+[", []byte{0x1b}},
		{"ctrl+?", []byte{0x7f}},
		{"enter", []byte{'\r'}},
		{"tab", []byte{'\t'}},
		{"esc", []byte{0x1b}},
		{"space", []byte{' '}},
		{"backspace", []byte{0x7f}},
		{"up", []byte{0x1b, '[', 'A'}},
		{"left", []byte{0x1b, '[', 'D'}},
		{"home", []byte{0x1b, '[', 'H'}},
		{"pagedown", []byte{0x1b, '[', '6', '~'}},
		{"delete", []byte{0x1b, '[', '3', '~'}},
		{"f1", []byte{0x1b, 'O', 'P'}},
		{"f5", []byte{0x1b, '[', '1', '5', '~'}},
		{"f12", []byte{0x1b, '[', '2', '4', '~'}},
		{"alt+x", []byte{0x1b, 'x'}},
		{"x", []byte{'x'}},
		{"shift+a", []byte{'A'}},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			kp, err := ParseKey(tt.key)
			if err != nil {
				t.Fatalf("ParseKey(%q) error = %v", tt.key, err)
			}
			if got := kp.ToBytes(); !bytes.Equal(got, tt.want) {
				t.Errorf("ToBytes() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestToBytesDoesNotShareSequences(t *testing.T) {
	kp := KeyPress{Key: "up"}
	b := kp.ToBytes()
	b[0] = 'X'

	if got := kp.ToBytes(); got[0] != 0x1b {
		t.Error("ToBytes() returned a shared slice")
	}
}

func TestParseSequenceAndEncode(t *testing.T) {
	keys, err := ParseSequence([]string{"ctrl+c", "enter", "a"})
	if err != nil {
		t.Fatalf("ParseSequence() error = %v", err)
	}
	if len(keys) != 3 || !keys[0].Ctrl || keys[1].Key != "enter" {
		t.Fatalf("ParseSequence() = %+v", keys)
	}

	data, err := Encode(keys)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if want := []byte{0x03, '\r', 'a'}; !bytes.Equal(data, want) {
		t.Errorf("Encode() = %v, want %v", data, want)
	}

	if _, err := ParseSequence([]string{"enter", "nope"}); err == nil {
		t.Error("ParseSequence() with invalid key expected error")
	}
}

func TestKeyPressString(t *testing.T) {
	kp, _ := ParseKey("shift+ctrl+s")
	if got := kp.String(); got != "ctrl+shift+s" {
		t.Errorf("String() = %q, want ctrl+shift+s", got)
	}
}

func TestIsValidKey(t *testing.T) {
	for _, key := range []string{"a", "/", "enter", "pgup", "f1", "f12"} {
		if !isValidKey(key) {
			t.Errorf("isValidKey(%q) = false, want true", key)
		}
	}
	for _, key := range []string{"foo", "f13", "ctrl"} {
		if isValidKey(key) {
			t.Errorf("isValidKey(%q) = true, want false", key)
		}
	}
}
