// Package config loads the button-sensor YAML configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/button-sensor/internal/gpio"
	"github.com/sweeney/button-sensor/internal/logic"
)

// Config is the top-level YAML configuration for the button-sensor daemon.
// Defaults, file values and flag overrides are applied in that order, then
// Validate is called once so the rest of the code can assume a well-formed config.
type Config struct {
	GPIO        GPIOConfig     `yaml:"gpio"`
	PollMS      int            `yaml:"poll_ms"`
	HeartbeatMS int            `yaml:"heartbeat_ms"`
	MQTT        MQTTConfig     `yaml:"mqtt"`
	HTTP        HTTPConfig     `yaml:"http"`
	Buttons     []ButtonConfig `yaml:"buttons"`
}

// GPIOConfig selects how the switches are read.
type GPIOConfig struct {
	Backend string `yaml:"backend"` // "cdev" or "rpio"
	Chip    string `yaml:"chip"`    // cdev only
}

// MQTTConfig holds the broker connection and topic settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
}

// HTTPConfig configures the status server.
type HTTPConfig struct {
	Addr string `yaml:"addr"` // empty disables the status server
}

// ButtonConfig describes one switch. At most one of AutoRepeatMS and
// LongPressMS may be set; with neither, the button detects long presses at
// the default threshold.
type ButtonConfig struct {
	Name         string `yaml:"name"`
	Pin          int    `yaml:"pin"`
	MinClickMS   *int   `yaml:"min_click_ms,omitempty"` // nil = default
	AutoRepeatMS int    `yaml:"auto_repeat_ms,omitempty"`
	LongPressMS  int    `yaml:"long_press_ms,omitempty"`
}

// DefaultConfig returns a fully-populated Config with defaults.
// The two default buttons match the demonstration wiring: sw1 autorepeats,
// sw2 detects long presses.
func DefaultConfig() Config {
	return Config{
		GPIO: GPIOConfig{
			Backend: string(gpio.BackendCdev),
			Chip:    gpio.DefaultChip,
		},
		PollMS:      10,
		HeartbeatMS: int((15 * time.Minute).Milliseconds()),
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "button-sensor",
			TopicPrefix: "home/buttons",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Buttons: []ButtonConfig{
			{Name: "sw1", Pin: gpio.DefaultPinSW1, AutoRepeatMS: int(logic.DefaultAutoRepeat.Milliseconds())},
			{Name: "sw2", Pin: gpio.DefaultPinSW2},
		},
	}
}

// LoadConfigFile reads and parses a YAML config file over the defaults.
// Unknown fields are rejected (helps catch typos) via KnownFields(true).
func LoadConfigFile(path string) (Config, error) {
	if path == "" {
		return Config{}, errors.New("config path is empty")
	}
	b, err := os.ReadFile(ExpandPath(path))
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML over the defaults.
func Parse(b []byte) (Config, error) {
	cfg := DefaultConfig()

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			// Empty file: defaults only.
			return cfg, nil
		}
		return Config{}, fmt.Errorf("decode config yaml: %w", err)
	}

	// Only whitespace/comments are allowed after the document.
	var extra yaml.Node
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("decode config yaml: unexpected trailing document")
	}

	return cfg, nil
}

// FlagOverrides holds values from command-line flags. Each override is only
// applied if its pointer is non-nil, even when it points at a zero value.
type FlagOverrides struct {
	Backend     *string
	Chip        *string
	PollMS      *int
	HeartbeatMS *int
	Broker      *string
	HTTPAddr    *string
}

// Apply merges the overrides into cfg.
func (o FlagOverrides) Apply(cfg *Config) {
	if cfg == nil {
		return
	}
	if o.Backend != nil {
		cfg.GPIO.Backend = *o.Backend
	}
	if o.Chip != nil {
		cfg.GPIO.Chip = *o.Chip
	}
	if o.PollMS != nil {
		cfg.PollMS = *o.PollMS
	}
	if o.HeartbeatMS != nil {
		cfg.HeartbeatMS = *o.HeartbeatMS
	}
	if o.Broker != nil {
		cfg.MQTT.Broker = *o.Broker
	}
	if o.HTTPAddr != nil {
		cfg.HTTP.Addr = *o.HTTPAddr
	}
}

// Validate checks config invariants and returns a user-friendly error.
func (c *Config) Validate() error {
	switch gpio.Backend(c.GPIO.Backend) {
	case gpio.BackendCdev:
		if c.GPIO.Chip == "" {
			return errors.New("gpio.chip must not be empty for the cdev backend")
		}
	case gpio.BackendRpio:
	default:
		return fmt.Errorf("gpio.backend must be %q or %q", gpio.BackendCdev, gpio.BackendRpio)
	}

	if c.PollMS <= 0 || c.PollMS > 1000 {
		return errors.New("poll_ms must be between 1 and 1000")
	}
	if c.HeartbeatMS < 0 {
		return errors.New("heartbeat_ms must be >= 0")
	}
	if c.MQTT.Broker == "" {
		return errors.New("mqtt.broker must not be empty")
	}
	if c.MQTT.ClientID == "" {
		return errors.New("mqtt.client_id must not be empty")
	}
	if c.MQTT.TopicPrefix == "" {
		return errors.New("mqtt.topic_prefix must not be empty")
	}

	if len(c.Buttons) == 0 {
		return errors.New("buttons must not be empty")
	}
	names := make(map[string]bool, len(c.Buttons))
	pins := make(map[int]string, len(c.Buttons))
	for i, b := range c.Buttons {
		if b.Name == "" {
			return fmt.Errorf("buttons[%d].name must not be empty", i)
		}
		if names[b.Name] {
			return fmt.Errorf("buttons[%d].name %q is duplicated", i, b.Name)
		}
		names[b.Name] = true
		if b.Pin < 0 {
			return fmt.Errorf("buttons[%d].pin must be >= 0", i)
		}
		if other, ok := pins[b.Pin]; ok {
			return fmt.Errorf("buttons[%d].pin %d is already used by %q", i, b.Pin, other)
		}
		pins[b.Pin] = b.Name
		if _, err := b.LogicConfig(); err != nil {
			return fmt.Errorf("buttons[%d] (%s): %w", i, b.Name, err)
		}
	}

	return nil
}

// LogicConfig converts the YAML thresholds into engine thresholds.
func (b ButtonConfig) LogicConfig() (logic.Config, error) {
	cfg := logic.Defaults()
	if b.MinClickMS != nil {
		cfg.MinClick = ms(*b.MinClickMS)
	}

	switch {
	case b.AutoRepeatMS != 0 && b.LongPressMS != 0:
		return logic.Config{}, fmt.Errorf("%w: auto_repeat_ms and long_press_ms are mutually exclusive", logic.ErrInvalidConfig)
	case b.AutoRepeatMS != 0:
		cfg.Mode = logic.AutoRepeat{Interval: ms(b.AutoRepeatMS)}
	case b.LongPressMS != 0:
		cfg.Mode = logic.LongPress{Threshold: ms(b.LongPressMS)}
	}

	if err := cfg.Validate(); err != nil {
		return logic.Config{}, err
	}
	return cfg, nil
}

// ButtonSpecs converts the configured buttons into detector specs, in file order.
func (c *Config) ButtonSpecs() ([]logic.ButtonSpec, error) {
	specs := make([]logic.ButtonSpec, 0, len(c.Buttons))
	for _, b := range c.Buttons {
		lc, err := b.LogicConfig()
		if err != nil {
			return nil, fmt.Errorf("button %q: %w", b.Name, err)
		}
		specs = append(specs, logic.ButtonSpec{Name: b.Name, Config: lc})
	}
	return specs, nil
}

// Pins returns the configured pins in button order.
func (c *Config) Pins() []int {
	pins := make([]int, len(c.Buttons))
	for i, b := range c.Buttons {
		pins[i] = b.Pin
	}
	return pins
}

// PollInterval returns the GPIO polling interval.
func (c *Config) PollInterval() time.Duration { return ms(c.PollMS) }

// HeartbeatInterval returns the heartbeat interval; zero disables heartbeats.
func (c *Config) HeartbeatInterval() time.Duration { return ms(c.HeartbeatMS) }

// Warnings lists buttons whose debounce floor is too short for the polling
// interval to resolve reliably. These are not fatal.
func (c *Config) Warnings() []string {
	var out []string
	poll := c.PollInterval()
	for _, b := range c.Buttons {
		lc, err := b.LogicConfig()
		if err != nil {
			continue
		}
		if lc.MinClick > 0 && lc.MinClick < 2*poll {
			out = append(out, fmt.Sprintf("button %q: min click %v is less than two polls (%v); short taps may be missed", b.Name, lc.MinClick, poll))
		}
	}
	return out
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(p string) string {
	if p == "" || p[0] != '~' {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	if len(p) >= 2 && (p[1] == '/' || p[1] == '\\') {
		return filepath.Join(home, p[2:])
	}
	return p
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}
