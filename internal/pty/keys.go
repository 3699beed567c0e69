package pty

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// KeyPress represents a parsed key with modifiers
type KeyPress struct {
	Ctrl  bool
	Alt   bool
	Shift bool
	Meta  bool
	Key   string // The base key (e.g., "c", "enter", "f1")
}

func (kp KeyPress) String() string {
	var parts []string
	if kp.Ctrl {
		parts = append(parts, "ctrl")
	}
	if kp.Alt {
		parts = append(parts, "alt")
	}
	if kp.Shift {
		parts = append(parts, "shift")
	}
	if kp.Meta {
		parts = append(parts, "meta")
	}
	return strings.Join(append(parts, kp.Key), "+")
}

// Terminal input sequences for named keys (xterm conventions)
var namedKeys = map[string][]byte{
	"enter":     {'\r'},
	"return":    {'\r'},
	"tab":       {'\t'},
	"esc":       {0x1b},
	"escape":    {0x1b},
	"space":     {' '},
	"backspace": {0x7f},
	"delete":    []byte("\x1b[3~"),
	"del":       []byte("\x1b[3~"),
	"insert":    []byte("\x1b[2~"),
	"ins":       []byte("\x1b[2~"),
	"home":      []byte("\x1b[H"),
	"end":       []byte("\x1b[F"),
	"pageup":    []byte("\x1b[5~"),
	"pgup":      []byte("\x1b[5~"),
	"pagedown":  []byte("\x1b[6~"),
	"pgdn":      []byte("\x1b[6~"),
	"up":        []byte("\x1b[A"),
	"down":      []byte("\x1b[B"),
	"right":     []byte("\x1b[C"),
	"left":      []byte("\x1b[D"),
	"f1":        []byte("\x1bOP"),
	"f2":        []byte("\x1bOQ"),
	"f3":        []byte("\x1bOR"),
	"f4":        []byte("\x1bOS"),
	"f5":        []byte("\x1b[15~"),
	"f6":        []byte("\x1b[17~"),
	"f7":        []byte("\x1b[18~"),
	"f8":        []byte("\x1b[19~"),
	"f9":        []byte("\x1b[20~"),
	"f10":       []byte("\x1b[21~"),
	"f11":       []byte("\x1b[23~"),
	"f12":       []byte("\x1b[24~"),
}

// Control characters reachable with ctrl and punctuation
var ctrlPunct = map[byte]byte{
	'[':  0x1b, // ESC
	'\\': 0x1c, // FS
	']':  0x1d, // GS
	'^':  0x1e, // RS
	'_':  0x1f, // US
	'?':  0x7f, // DEL
}

// ParseKey parses a key string like "ctrl+shift+c" into a KeyPress
func ParseKey(s string) (KeyPress, error) {
	var kp KeyPress

	parts := strings.Split(strings.ToLower(s), "+")
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		// Last part is the actual key
		if i == len(parts)-1 {
			kp.Key = part
			break
		}

		switch part {
		case "ctrl", "control":
			kp.Ctrl = true
		case "alt", "option":
			kp.Alt = true
		case "shift":
			kp.Shift = true
		case "meta", "cmd", "command", "win", "super":
			kp.Meta = true
		default:
			return KeyPress{}, fmt.Errorf("unknown modifier: %s", part)
		}
	}

	if kp.Key == "" {
		return KeyPress{}, fmt.Errorf("no key specified")
	}

	if !isValidKey(kp.Key) {
		return KeyPress{}, fmt.Errorf("invalid key: %s", kp.Key)
	}

	return kp, nil
}

// ParseSequence parses every key in keys, stopping at the first bad one
func ParseSequence(keys []string) ([]KeyPress, error) {
	out := make([]KeyPress, 0, len(keys))
	for _, s := range keys {
		kp, err := ParseKey(s)
		if err != nil {
			return nil, fmt.Errorf("invalid key %q: %w", s, err)
		}
		out = append(out, kp)
	}
	return out, nil
}

// isValidKey checks if a key name is a single character or a named key
func isValidKey(key string) bool {
	if utf8.RuneCountInString(key) == 1 {
		return true
	}
	_, ok := namedKeys[key]
	return ok
}

// ToBytes converts a KeyPress to the bytes to write to a PTY
func (kp KeyPress) ToBytes() []byte {
	if kp.Ctrl && !kp.Alt && !kp.Meta && len(kp.Key) == 1 {
		char := kp.Key[0]
		// ctrl+a through ctrl+z are ASCII 1-26
		switch {
		case char >= 'a' && char <= 'z':
			return []byte{char - 'a' + 1}
		case char >= 'A' && char <= 'Z':
			return []byte{char - 'A' + 1}
		}
		if b, ok := ctrlPunct[char]; ok {
			return []byte{b}
		}
	}

	if seq, ok := namedKeys[kp.Key]; ok {
		return bytes.Clone(seq)
	}

	if len(kp.Key) != 1 {
		return nil
	}

	char := kp.Key[0]
	// Alt sends an ESC prefix
	if kp.Alt {
		return []byte{0x1b, char}
	}
	if kp.Shift && char >= 'a' && char <= 'z' {
		return []byte{char - 32}
	}
	return []byte{char}
}

// Encode concatenates the PTY bytes for a key sequence
func Encode(keys []KeyPress) ([]byte, error) {
	var buf bytes.Buffer
	for _, kp := range keys {
		b := kp.ToBytes()
		if b == nil {
			return nil, fmt.Errorf("key %s has no terminal encoding", kp)
		}
		buf.Write(b)
	}
	return buf.Bytes(), nil
}
