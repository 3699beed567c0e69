package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pleimann/keymode/internal/gesture"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Input         InputConfig             `yaml:"input"`
	Timing        TimingConfig            `yaml:"timing"`
	MonitoredKeys []string                `yaml:"monitored_keys"`
	KeyTiming     map[string]TimingConfig `yaml:"key_timing,omitempty"`
	Modes         []ModeConfig            `yaml:"modes"`
	InitialMode   string                  `yaml:"initial_mode,omitempty"`
	Bindings      []Binding               `yaml:"bindings"`
	Commands      []Command               `yaml:"commands"`
	Session       *SessionConfig          `yaml:"session,omitempty"`
	Dispatch      DispatchConfig          `yaml:"dispatch"`
	Display       DisplayConfig           `yaml:"display"`
	Stats         StatsConfig             `yaml:"stats"`
	State         StateConfig             `yaml:"state"`
}

// Input sources
const (
	SourceEvdev = "evdev"
	SourceHID   = "hid"
)

type InputConfig struct {
	Source    string `yaml:"source"`
	Device    string `yaml:"device,omitempty"`
	VendorID  uint16 `yaml:"vendor_id,omitempty"`
	ProductID uint16 `yaml:"product_id,omitempty"`
}

type TimingConfig struct {
	LongPressMs        int `yaml:"long_press_ms,omitempty"`
	MultiClickWindowMs int `yaml:"multi_click_window_ms,omitempty"`
	MaxClickCount      int `yaml:"max_click_count,omitempty"`
}

type ModeConfig struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title,omitempty"`
}

type Binding struct {
	Mode    string `yaml:"mode"`
	Key     string `yaml:"key"`
	Gesture string `yaml:"gesture"`
	Command string `yaml:"command"`
}

// Command types
const (
	CommandMode    = "mode"
	CommandExec    = "exec"
	CommandKeys    = "keys"
	CommandSnippet = "snippet"
)

// Mode command actions
const (
	ModeNext = "next"
	ModePrev = "prev"
	ModeSet  = "set"
)

type Command struct {
	ID        string            `yaml:"id"`
	Type      string            `yaml:"type"`
	Action    string            `yaml:"action,omitempty"`
	Target    string            `yaml:"target,omitempty"`
	Run       []string          `yaml:"run,omitempty"`
	Dir       string            `yaml:"dir,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	Keys      []string          `yaml:"keys,omitempty"`
	Text      string            `yaml:"text,omitempty"`
	TimeoutMs int               `yaml:"timeout_ms,omitempty"`
	Exclusive bool              `yaml:"exclusive,omitempty"`
}

// Timeout returns the command's own timeout, or zero for the dispatcher default
func (c Command) Timeout() time.Duration {
	return time.Duration(c.TimeoutMs) * time.Millisecond
}

type SessionConfig struct {
	Command    string   `yaml:"command"`
	Args       []string `yaml:"args"`
	WorkingDir string   `yaml:"working_dir,omitempty"`
}

type DispatchConfig struct {
	Workers   int `yaml:"workers,omitempty"`
	QueueSize int `yaml:"queue_size,omitempty"`
	TimeoutMs int `yaml:"timeout_ms,omitempty"`
}

type DisplayConfig struct {
	Enabled          bool            `yaml:"enabled"`
	Width            int             `yaml:"width"`
	Height           int             `yaml:"height"`
	UpdateIntervalMs int             `yaml:"update_interval_ms"`
	Regions          []DisplayRegion `yaml:"regions,omitempty"`
}

// Display region sources
const (
	RegionMode    = "mode"
	RegionGesture = "gesture"
	RegionStatic  = "static"
)

type DisplayRegion struct {
	Name    string `yaml:"name"`
	X       int    `yaml:"x"`
	Y       int    `yaml:"y"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Source  string `yaml:"source"`
	Content string `yaml:"content,omitempty"`
}

type StatsConfig struct {
	Path string `yaml:"path,omitempty"`
}

type StateConfig struct {
	Path string `yaml:"path,omitempty"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, validates and completes a config from YAML
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// normalize lower-cases key names so bindings match normalized input
func (c *Config) normalize() {
	if c.Input.Source == "" {
		c.Input.Source = SourceEvdev
	}
	for i, k := range c.MonitoredKeys {
		c.MonitoredKeys[i] = NormalizeKey(k)
	}
	for i := range c.Bindings {
		c.Bindings[i].Key = NormalizeKey(c.Bindings[i].Key)
	}
	if len(c.KeyTiming) > 0 {
		kt := make(map[string]TimingConfig, len(c.KeyTiming))
		for k, v := range c.KeyTiming {
			kt[NormalizeKey(k)] = v
		}
		c.KeyTiming = kt
	}
}

// NormalizeKey lower-cases a key name and strips an evdev KEY_ prefix
func NormalizeKey(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	return strings.TrimPrefix(k, "key_")
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

func (c *Config) validate() error {
	switch c.Input.Source {
	case SourceEvdev:
	case SourceHID:
		if c.Input.VendorID == 0 {
			return invalid("input.vendor_id is required for hid input")
		}
		if c.Input.ProductID == 0 {
			return invalid("input.product_id is required for hid input")
		}
	default:
		return invalid("unknown input.source %q", c.Input.Source)
	}

	if err := c.Timing.validate("timing"); err != nil {
		return err
	}

	if len(c.MonitoredKeys) == 0 {
		return invalid("monitored_keys is required")
	}
	keys := make(map[string]bool, len(c.MonitoredKeys))
	for _, k := range c.MonitoredKeys {
		if k == "" {
			return invalid("empty key in monitored_keys")
		}
		keys[k] = true
	}
	for k, t := range c.KeyTiming {
		if !keys[k] {
			return invalid("key_timing for unmonitored key %q", k)
		}
		if err := t.validate("key_timing." + k); err != nil {
			return err
		}
	}

	if len(c.Modes) == 0 {
		return invalid("at least one mode is required")
	}
	modes := make(map[string]bool, len(c.Modes))
	for i, m := range c.Modes {
		if m.Name == "" {
			return invalid("mode %d has no name", i)
		}
		if m.Name == "*" {
			return invalid("mode name %q is reserved", m.Name)
		}
		name := strings.ToLower(m.Name)
		if modes[name] {
			return invalid("duplicate mode: %s", m.Name)
		}
		modes[name] = true
	}
	if c.InitialMode != "" && !modes[strings.ToLower(c.InitialMode)] {
		return invalid("initial_mode %q is not a configured mode", c.InitialMode)
	}

	commands := make(map[string]bool, len(c.Commands))
	for i, cmd := range c.Commands {
		if cmd.ID == "" {
			return invalid("command %d has no id", i)
		}
		if commands[cmd.ID] {
			return invalid("duplicate command id: %s", cmd.ID)
		}
		commands[cmd.ID] = true
		if err := c.validateCommand(cmd, modes); err != nil {
			return err
		}
	}

	type triple struct {
		mode, key string
		pattern   gesture.Pattern
	}
	bound := make(map[triple]bool, len(c.Bindings))
	for i, b := range c.Bindings {
		mode := strings.ToLower(b.Mode)
		if mode != "*" && !modes[mode] {
			return invalid("binding %d: unknown mode %q", i, b.Mode)
		}
		if !keys[b.Key] {
			return invalid("binding %d: key %q is not monitored", i, b.Key)
		}
		pattern, err := gesture.ParsePattern(b.Gesture)
		if err != nil {
			return invalid("binding %d: %v", i, err)
		}
		if !commands[b.Command] {
			return invalid("binding %d: unknown command %q", i, b.Command)
		}
		t := triple{mode, b.Key, pattern}
		if bound[t] {
			return invalid("binding %d: %s %s in mode %s is bound twice", i, b.Key, pattern, b.Mode)
		}
		bound[t] = true
	}

	if c.Session != nil && c.Session.Command == "" {
		return invalid("session.command is required")
	}

	for i, r := range c.Display.Regions {
		switch r.Source {
		case RegionMode, RegionGesture, RegionStatic:
		default:
			return invalid("display region %d: unknown source %q", i, r.Source)
		}
	}

	return nil
}

func (t TimingConfig) validate(field string) error {
	if t.LongPressMs < 0 {
		return invalid("%s.long_press_ms must not be negative", field)
	}
	if t.MultiClickWindowMs < 0 {
		return invalid("%s.multi_click_window_ms must not be negative", field)
	}
	if t.MaxClickCount < 0 {
		return invalid("%s.max_click_count must be at least 1", field)
	}
	return nil
}

func (c *Config) validateCommand(cmd Command, modes map[string]bool) error {
	if cmd.TimeoutMs < 0 {
		return invalid("command %s: timeout_ms must not be negative", cmd.ID)
	}

	switch cmd.Type {
	case CommandMode:
		switch cmd.Action {
		case ModeNext, ModePrev:
		case ModeSet:
			if !modes[strings.ToLower(cmd.Target)] {
				return invalid("command %s: unknown target mode %q", cmd.ID, cmd.Target)
			}
		default:
			return invalid("command %s: unknown mode action %q", cmd.ID, cmd.Action)
		}
	case CommandExec:
		if len(cmd.Run) == 0 {
			return invalid("command %s: run is required", cmd.ID)
		}
	case CommandKeys:
		if len(cmd.Keys) == 0 {
			return invalid("command %s: keys is required", cmd.ID)
		}
		if c.Session == nil {
			return invalid("command %s: keys commands need a session", cmd.ID)
		}
	case CommandSnippet:
		if cmd.Text == "" {
			return invalid("command %s: text is required", cmd.ID)
		}
	default:
		return invalid("command %s: unknown type %q", cmd.ID, cmd.Type)
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Timing.applyDefaults(TimingConfig{
		LongPressMs:        800,
		MultiClickWindowMs: 500,
		MaxClickCount:      3,
	})
	for k, t := range c.KeyTiming {
		t.applyDefaults(c.Timing)
		c.KeyTiming[k] = t
	}

	if c.Dispatch.Workers == 0 {
		c.Dispatch.Workers = 4
	}
	if c.Dispatch.QueueSize == 0 {
		c.Dispatch.QueueSize = 32
	}
	if c.Dispatch.TimeoutMs == 0 {
		c.Dispatch.TimeoutMs = 30000
	}

	if c.Display.Width == 0 {
		c.Display.Width = 128
	}
	if c.Display.Height == 0 {
		c.Display.Height = 64
	}
	if c.Display.UpdateIntervalMs == 0 {
		c.Display.UpdateIntervalMs = 100
	}
}

func (t *TimingConfig) applyDefaults(d TimingConfig) {
	if t.LongPressMs == 0 {
		t.LongPressMs = d.LongPressMs
	}
	if t.MultiClickWindowMs == 0 {
		t.MultiClickWindowMs = d.MultiClickWindowMs
	}
	if t.MaxClickCount == 0 {
		t.MaxClickCount = d.MaxClickCount
	}
}

// Thresholds converts the shared and per-key thresholds for the gesture engine
func (c *Config) Thresholds() gesture.Thresholds {
	th := gesture.Thresholds{Default: c.Timing.timing()}
	if len(c.KeyTiming) > 0 {
		th.Keys = make(map[string]gesture.Timing, len(c.KeyTiming))
		for k, t := range c.KeyTiming {
			th.Keys[k] = t.timing()
		}
	}
	return th
}

func (t TimingConfig) timing() gesture.Timing {
	return gesture.Timing{
		LongPress:        time.Duration(t.LongPressMs) * time.Millisecond,
		MultiClickWindow: time.Duration(t.MultiClickWindowMs) * time.Millisecond,
		MaxClicks:        t.MaxClickCount,
	}
}

// ModeNames returns the configured mode names in order
func (c *Config) ModeNames() []string {
	names := make([]string, len(c.Modes))
	for i, m := range c.Modes {
		names[i] = m.Name
	}
	return names
}

// UpdateDeviceIDs updates the vendor_id and product_id in a config file
// while preserving the rest of the file structure and comments
func UpdateDeviceIDs(path string, vendorID, productID uint16) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	content := string(data)

	vendorRegex := regexp.MustCompile(`(?m)^(\s*vendor_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = vendorRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", vendorID))

	productRegex := regexp.MustCompile(`(?m)^(\s*product_id:\s*)(?:0x[0-9A-Fa-f]+|\d+)`)
	content = productRegex.ReplaceAllString(content, fmt.Sprintf("${1}0x%04X", productID))

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// CreateDefaultConfig writes a starter config for the given input source.
// vendorID and productID are only used for hid input.
func CreateDefaultConfig(path, source string, vendorID, productID uint16) error {
	var input, keys, display string
	switch source {
	case SourceHID:
		input = fmt.Sprintf(`input:
  source: hid
  vendor_id: 0x%04X
  product_id: 0x%04X`, vendorID, productID)
		keys = "[btn0, btn1, btn2, btn3]"
		display = `display:
  enabled: true
  width: 128
  height: 64
  update_interval_ms: 100
  regions:
    - name: mode
      x: 0
      y: 0
      width: 128
      height: 32
      source: mode
    - name: last
      x: 0
      y: 32
      width: 128
      height: 32
      source: gesture`
	case SourceEvdev, "":
		input = `input:
  source: evdev
  # device: /dev/input/event3`
		keys = "[f9, f10, f11, f12]"
		display = `display:
  enabled: false`
	default:
		return fmt.Errorf("unknown input source %q", source)
	}

	first := "f11"
	second := "f12"
	if source == SourceHID {
		first, second = "btn0", "btn1"
	}

	content := fmt.Sprintf(`# keymode configuration

%s

timing:
  long_press_ms: 800
  multi_click_window_ms: 500
  max_click_count: 3

monitored_keys: %s

modes:
  - name: DEV
    title: Development
  - name: GIT
    title: Git
  - name: AI
    title: Assistant

initial_mode: DEV

bindings:
  - { mode: "*", key: %s, gesture: short, command: next-mode }
  - { mode: "*", key: %s, gesture: long, command: prev-mode }
  - { mode: GIT, key: %s, gesture: short, command: git-status }
  - { mode: DEV, key: %s, gesture: triple, command: signature }

commands:
  - id: next-mode
    type: mode
    action: next
  - id: prev-mode
    type: mode
    action: prev
  - id: git-status
    type: exec
    run: [git, status, --short]
    exclusive: true
  - id: signature
    type: snippet
    text: "Best regards,\n{{cursor}}"

dispatch:
  workers: 4
  queue_size: 32
  timeout_ms: 30000

%s
`, input, keys, first, first, second, second, display)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	return nil
}

// Exists checks if a config file exists
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
