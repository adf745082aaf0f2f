// Package config loads and validates the monitoring configuration: which
// departures to watch, the user's timing preferences, and where state lives.
// Settings come from a TOML file; Telegram credentials come from the
// environment so the config file stays safe to commit.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/qu-genesis/metro-transit-pings/internal/schedule"
)

// DefaultPath is where the CLI looks for configuration unless told otherwise.
const DefaultPath = "config.toml"

// --------------------------------------------------------------------------
// Config struct — TOML sections
// --------------------------------------------------------------------------

type Config struct {
	Timezone string         `toml:"timezone"`
	API      APIConfig      `toml:"api"`
	Alerts   AlertsConfig   `toml:"alerts"`
	Schedule ScheduleConfig `toml:"schedule"`
	State    StateConfig    `toml:"state"`
	Telegram TelegramConfig `toml:"telegram"`
	Routes   []RouteConfig  `toml:"routes"`

	location *time.Location
	window   *schedule.Window
}

type APIConfig struct {
	BaseURL           string `toml:"base_url"`
	TimeoutSeconds    int    `toml:"timeout_seconds"`
	RequestsPerMinute int    `toml:"requests_per_minute"`
}

type AlertsConfig struct {
	WalkingTimeMinutes    int `toml:"walking_time_minutes"`
	AdvanceNoticeMinutes  int `toml:"advance_notice_minutes"`
	DelayThresholdMinutes int `toml:"delay_threshold_minutes"`
	MaxWaitMinutes        int `toml:"max_wait_minutes"`
	RetentionHours        int `toml:"retention_hours"`
}

// ScheduleConfig is optional; with no active days configured, every
// invocation is considered in-window.
type ScheduleConfig struct {
	ActiveDays []string `toml:"active_days"`
	Start      string   `toml:"start"`
	End        string   `toml:"end"`
}

type StateConfig struct {
	Path      string `toml:"path"`
	PausePath string `toml:"pause_path"`
}

// TelegramConfig carries only non-secret settings in TOML; the token, chat
// ID, and webhook secret are environment-only.
type TelegramConfig struct {
	Listen string `toml:"listen"`

	BotToken      string `toml:"-"`
	ChatID        string `toml:"-"`
	WebhookSecret string `toml:"-"`
}

// RouteConfig is one monitored route/stop/direction combination.
type RouteConfig struct {
	RouteID     string `toml:"route_id"`
	StopID      string `toml:"stop_id"`
	Direction   string `toml:"direction"`
	Description string `toml:"description"`
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

func defaults() Config {
	return Config{
		Timezone: "America/Chicago",
		API: APIConfig{
			BaseURL:           "https://svc.metrotransit.org/nextrip",
			TimeoutSeconds:    10,
			RequestsPerMinute: 60,
		},
		Alerts: AlertsConfig{
			WalkingTimeMinutes:    3,
			AdvanceNoticeMinutes:  15,
			DelayThresholdMinutes: 5,
			MaxWaitMinutes:        60,
			RetentionHours:        2,
		},
		State: StateConfig{
			Path:      "alert_state.json",
			PausePath: "pause_state.json",
		},
		Telegram: TelegramConfig{
			Listen: ":8080",
		},
	}
}

// Load reads the TOML file at path, applies environment overrides, and
// validates everything. Any problem here is fatal: bad configuration must
// never reach the alert engine.
func Load(path string) (*Config, error) {
	cfg := defaults()

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.Telegram.ChatID = os.Getenv("TELEGRAM_CHAT_ID")
	cfg.Telegram.WebhookSecret = os.Getenv("TELEGRAM_WEBHOOK_SECRET")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	var errs []string

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		errs = append(errs, fmt.Sprintf("timezone %q is not a valid IANA zone", c.Timezone))
	} else {
		c.location = loc
	}

	if c.API.TimeoutSeconds < 1 {
		errs = append(errs, fmt.Sprintf("api timeout_seconds must be positive, got %d", c.API.TimeoutSeconds))
	}
	if c.API.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("api requests_per_minute must be positive, got %d", c.API.RequestsPerMinute))
	}

	if c.Alerts.WalkingTimeMinutes < 1 {
		errs = append(errs, fmt.Sprintf("walking_time_minutes must be positive, got %d", c.Alerts.WalkingTimeMinutes))
	}
	if c.Alerts.AdvanceNoticeMinutes < 1 {
		errs = append(errs, fmt.Sprintf("advance_notice_minutes must be positive, got %d", c.Alerts.AdvanceNoticeMinutes))
	}
	if c.Alerts.DelayThresholdMinutes < 1 {
		errs = append(errs, fmt.Sprintf("delay_threshold_minutes must be positive, got %d", c.Alerts.DelayThresholdMinutes))
	}
	if c.Alerts.MaxWaitMinutes < 1 {
		errs = append(errs, fmt.Sprintf("max_wait_minutes must be positive, got %d", c.Alerts.MaxWaitMinutes))
	}
	if c.Alerts.RetentionHours < 1 {
		errs = append(errs, fmt.Sprintf("retention_hours must be positive, got %d", c.Alerts.RetentionHours))
	}

	if len(c.Routes) == 0 {
		errs = append(errs, "at least one [[routes]] entry is required")
	}
	for i, r := range c.Routes {
		if r.RouteID == "" || r.StopID == "" {
			errs = append(errs, fmt.Sprintf("routes[%d] needs route_id and stop_id", i))
		}
	}

	if c.State.Path == "" {
		errs = append(errs, "state path must not be empty")
	}
	if c.State.PausePath == "" {
		errs = append(errs, "state pause_path must not be empty")
	}

	if len(c.Schedule.ActiveDays) > 0 {
		w, err := schedule.Parse(c.Schedule.ActiveDays, c.Schedule.Start, c.Schedule.End)
		if err != nil {
			errs = append(errs, fmt.Sprintf("schedule: %v", err))
		} else {
			c.window = w
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation error: %s", strings.Join(errs, "; "))
	}
	return nil
}

// --------------------------------------------------------------------------
// Derived accessors
// --------------------------------------------------------------------------

// Location returns the user's timezone, valid after a successful Load.
func (c *Config) Location() *time.Location {
	return c.location
}

// Window returns the configured active window, or nil when the schedule
// section is absent (always active).
func (c *Config) Window() *schedule.Window {
	return c.window
}

func (c *Config) Retention() time.Duration {
	return time.Duration(c.Alerts.RetentionHours) * time.Hour
}

func (c *Config) APITimeout() time.Duration {
	return time.Duration(c.API.TimeoutSeconds) * time.Second
}
