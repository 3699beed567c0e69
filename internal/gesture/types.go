package gesture

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Edge is the direction of a key transition
type Edge int

const (
	Down Edge = iota
	Up
)

func (e Edge) String() string {
	switch e {
	case Down:
		return "down"
	case Up:
		return "up"
	default:
		return fmt.Sprintf("unknown(%d)", e)
	}
}

// KeyEdge is a single normalized key transition
type KeyEdge struct {
	Key  string
	Edge Edge
	Time time.Time
}

func (k KeyEdge) String() string {
	return fmt.Sprintf("%s:%s", k.Key, k.Edge)
}

// Kind represents the type of gesture detected
type Kind int

const (
	ShortPress Kind = iota
	LongPress
	MultiClick
)

func (k Kind) String() string {
	switch k {
	case ShortPress:
		return "short_press"
	case LongPress:
		return "long_press"
	case MultiClick:
		return "multi_click"
	default:
		return fmt.Sprintf("unknown(%d)", k)
	}
}

// Gesture is the classified outcome of one physical interaction with a key
type Gesture struct {
	Key        string
	Kind       Kind
	Count      int // Clicks in the interaction; 1 for short and long presses
	ResolvedAt time.Time
}

// NewShortPress creates a single click gesture
func NewShortPress(key string, at time.Time) Gesture {
	return Gesture{Key: key, Kind: ShortPress, Count: 1, ResolvedAt: at}
}

// NewLongPress creates a held-key gesture
func NewLongPress(key string, at time.Time) Gesture {
	return Gesture{Key: key, Kind: LongPress, Count: 1, ResolvedAt: at}
}

// NewMultiClick creates an N-click gesture. A count of one is a short press.
func NewMultiClick(key string, count int, at time.Time) Gesture {
	if count <= 1 {
		return NewShortPress(key, at)
	}
	return Gesture{Key: key, Kind: MultiClick, Count: count, ResolvedAt: at}
}

// Pattern returns the binding pattern name for this gesture
func (g Gesture) Pattern() Pattern {
	switch g.Kind {
	case LongPress:
		return PatternLong
	case MultiClick:
		return ClickPattern(g.Count)
	default:
		return PatternShort
	}
}

func (g Gesture) String() string {
	return fmt.Sprintf("%s(%s)", g.Pattern(), g.Key)
}

// Pattern is the name used in bindings to select a gesture kind and click count
type Pattern string

const (
	PatternShort  Pattern = "short"
	PatternLong   Pattern = "long"
	PatternDouble Pattern = "double"
	PatternTriple Pattern = "triple"
)

// ClickPattern returns the pattern for an n-click gesture
func ClickPattern(n int) Pattern {
	switch n {
	case 0, 1:
		return PatternShort
	case 2:
		return PatternDouble
	case 3:
		return PatternTriple
	default:
		return Pattern("click_" + strconv.Itoa(n))
	}
}

// ParsePattern normalizes a pattern name from configuration.
// Accepts short, long, double, triple, click_N and multi_N.
func ParsePattern(s string) (Pattern, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch Pattern(s) {
	case PatternShort, PatternLong, PatternDouble, PatternTriple:
		return Pattern(s), nil
	}

	for _, prefix := range []string{"click_", "multi_"} {
		if rest, ok := strings.CutPrefix(s, prefix); ok {
			n, err := strconv.Atoi(rest)
			if err != nil || n < 1 {
				return "", fmt.Errorf("invalid click count in gesture %q", s)
			}
			return ClickPattern(n), nil
		}
	}

	return "", fmt.Errorf("unknown gesture %q", s)
}

// Clicks returns the click count a pattern stands for, or 0 for long presses
func (p Pattern) Clicks() int {
	switch p {
	case PatternLong:
		return 0
	case PatternShort:
		return 1
	case PatternDouble:
		return 2
	case PatternTriple:
		return 3
	}
	if rest, ok := strings.CutPrefix(string(p), "click_"); ok {
		if n, err := strconv.Atoi(rest); err == nil {
			return n
		}
	}
	return 0
}
