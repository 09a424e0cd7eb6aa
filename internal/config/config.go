// Package config loads and validates the player and hub configuration
// files.
package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marqueehq/marquee/internal/content"
)

// Display engines.
const (
	EnginePlaywright = "playwright"
	EngineCDP        = "cdp"
)

// Config watch modes.
const (
	WatchPoll   = "poll"
	WatchNotify = "notify"
	WatchOff    = "off"
)

// Config is the player configuration.
type Config struct {
	Display  DisplayConfig  `yaml:"display" json:"display"`
	Behavior BehaviorConfig `yaml:"behavior" json:"behavior"`
	Schedule ScheduleConfig `yaml:"schedule" json:"schedule"`
	Remote   RemoteConfig   `yaml:"remote" json:"remote"`
	Logging  LoggingConfig  `yaml:"logging" json:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics" json:"metrics"`
	Content  []ContentEntry `yaml:"content" json:"content"`

	// URLs is the legacy playlist shorthand: a bare list of addresses.
	// Ignored when Content is present.
	URLs []string `yaml:"urls" json:"urls"`
}

// DisplayConfig selects the screen and how the browser surface is opened on
// it. A change to any field forces a surface restart on reload.
type DisplayConfig struct {
	Screen   string `yaml:"screen" json:"screen"`
	Width    int    `yaml:"width" json:"width"`
	Height   int    `yaml:"height" json:"height"`
	Rotation string `yaml:"rotation" json:"rotation"`
	Engine   string `yaml:"engine" json:"engine"`

	// RemoteDebuggingURL attaches the cdp engine to an already running
	// browser instead of launching one.
	RemoteDebuggingURL string `yaml:"remote_debugging_url" json:"remote_debugging_url"`
}

// BehaviorConfig sets the rotation cadence and how config changes are
// picked up.
type BehaviorConfig struct {
	RotationInterval int    `yaml:"rotation_interval" json:"rotation_interval"`
	RefreshInterval  int    `yaml:"refresh_interval" json:"refresh_interval"`
	Watch            string `yaml:"watch" json:"watch"`
}

// ScheduleConfig holds optional daily display power windows.
type ScheduleConfig struct {
	OnTime  string `yaml:"on_time" json:"on_time"`
	OffTime string `yaml:"off_time" json:"off_time"`
}

// RemoteConfig points the player at a hub. An empty URL disables the
// remote settings channel.
type RemoteConfig struct {
	URL          string `yaml:"url" json:"url"`
	Name         string `yaml:"name" json:"name"`
	Description  string `yaml:"description" json:"description"`
	PollInterval int    `yaml:"poll_interval" json:"poll_interval"`
}

// LoggingConfig selects log level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
}

// MetricsConfig exposes Prometheus metrics when enabled.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Addr    string `yaml:"addr" json:"addr"`
}

// ContentEntry is one playlist element as authored in the config file.
type ContentEntry struct {
	Type     string            `yaml:"type" json:"type"`
	Source   string            `yaml:"source" json:"source"`
	Duration *int              `yaml:"duration,omitempty" json:"duration,omitempty"`
	Metadata map[string]string `yaml:"metadata,omitempty" json:"metadata,omitempty"`
}

// Items converts the authored playlist into content items with fresh IDs.
func (c *Config) Items() []content.Item {
	entries := c.Content
	if len(entries) == 0 && len(c.URLs) > 0 {
		entries = make([]ContentEntry, len(c.URLs))
		for i, u := range c.URLs {
			entries[i] = ContentEntry{Type: string(content.KindURL), Source: u}
		}
	}

	items := make([]content.Item, 0, len(entries))
	for _, e := range entries {
		duration := 0
		if e.Duration != nil {
			duration = *e.Duration
		}
		items = append(items, content.NewItem(content.ParseKind(e.Type), e.Source, duration, e.Metadata))
	}
	return items
}

func applyDefaults(cfg *Config) {
	if cfg.Display.Screen == "" {
		cfg.Display.Screen = ":0"
	}
	if cfg.Display.Width == 0 {
		cfg.Display.Width = 1920
	}
	if cfg.Display.Height == 0 {
		cfg.Display.Height = 1080
	}
	if cfg.Display.Engine == "" {
		cfg.Display.Engine = EnginePlaywright
	}
	if cfg.Behavior.RotationInterval == 0 {
		cfg.Behavior.RotationInterval = 30
	}
	if cfg.Behavior.Watch == "" {
		cfg.Behavior.Watch = WatchPoll
	}
	if cfg.Remote.PollInterval == 0 {
		cfg.Remote.PollInterval = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9190"
	}
}

// Validate rejects values the player cannot act on.
func (c *Config) Validate() error {
	if c.Display.Width <= 0 || c.Display.Height <= 0 {
		return fmt.Errorf("display: width and height must be positive, got %dx%d", c.Display.Width, c.Display.Height)
	}
	switch c.Display.Rotation {
	case "", "left", "right", "inverted":
	default:
		return fmt.Errorf("display: unknown rotation %q (want left, right or inverted)", c.Display.Rotation)
	}
	switch c.Display.Engine {
	case EnginePlaywright, EngineCDP:
	default:
		return fmt.Errorf("display: unknown engine %q (want %s or %s)", c.Display.Engine, EnginePlaywright, EngineCDP)
	}

	if c.Behavior.RotationInterval <= 0 {
		return fmt.Errorf("behavior: rotation_interval must be positive, got %d", c.Behavior.RotationInterval)
	}
	if c.Behavior.RefreshInterval < 0 {
		return fmt.Errorf("behavior: refresh_interval must not be negative, got %d", c.Behavior.RefreshInterval)
	}
	switch c.Behavior.Watch {
	case WatchPoll, WatchNotify, WatchOff:
	default:
		return fmt.Errorf("behavior: unknown watch mode %q (want poll, notify or off)", c.Behavior.Watch)
	}

	if err := validateClock("schedule.on_time", c.Schedule.OnTime); err != nil {
		return err
	}
	if err := validateClock("schedule.off_time", c.Schedule.OffTime); err != nil {
		return err
	}

	if c.Remote.URL != "" {
		u, err := url.Parse(c.Remote.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("remote: url %q is not a valid http(s) address", c.Remote.URL)
		}
		if c.Remote.PollInterval <= 0 {
			return fmt.Errorf("remote: poll_interval must be positive, got %d", c.Remote.PollInterval)
		}
	}

	for i, e := range c.Content {
		if strings.TrimSpace(e.Source) == "" {
			return fmt.Errorf("content[%d]: source is required", i)
		}
		if e.Duration != nil && *e.Duration <= 0 {
			return fmt.Errorf("content[%d]: duration must be positive, got %d", i, *e.Duration)
		}
	}
	return nil
}

// validateClock accepts empty or HH:MM wall-clock values.
func validateClock(field, value string) error {
	if value == "" {
		return nil
	}
	if _, err := time.Parse("15:04", value); err != nil {
		return fmt.Errorf("%s: %q is not a valid HH:MM time", field, value)
	}
	return nil
}
