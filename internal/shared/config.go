package shared

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	API      APIConfig      `toml:"api"`
	Timer    TimerConfig    `toml:"timer"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains settings for the reference study API server.
type ServerConfig struct {
	Host      string  `toml:"host"`
	Port      int     `toml:"port"`
	Token     string  `toml:"token"`
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// APIConfig contains settings for the remote study API used by the timer.
type APIConfig struct {
	BaseURL        string `toml:"base_url"`
	UserID         string `toml:"user_id"`
	Token          string `toml:"token"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Timeout returns the HTTP client timeout.
func (a APIConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// TimerConfig contains timer defaults, valid ranges, and scheduling intervals.
type TimerConfig struct {
	TickIntervalMs      int            `toml:"tick_interval_ms"`
	SyncIntervalSeconds int            `toml:"sync_interval_seconds"`
	UnloadTimeoutMs     int            `toml:"unload_timeout_ms"`
	FocusStepMinutes    int            `toml:"focus_step_minutes"`
	BreakStepMinutes    int            `toml:"break_step_minutes"`
	RecordTopic         string         `toml:"record_topic"`
	Subjects            []string       `toml:"subjects"`
	Pomodoro            PomodoroConfig `toml:"pomodoro"`
	Ranges              RangesConfig   `toml:"ranges"`
}

// PomodoroConfig contains the pomodoro defaults used for fresh timer state.
type PomodoroConfig struct {
	FocusMinutes int `toml:"focus_minutes"`
	BreakMinutes int `toml:"break_minutes"`
	Sets         int `toml:"sets"`
}

// RangeConfig is an inclusive integer range.
type RangeConfig struct {
	Min int `toml:"min"`
	Max int `toml:"max"`
}

// RangesConfig contains the valid ranges for every editable timer value.
type RangesConfig struct {
	FocusMinutes  RangeConfig `toml:"focus_minutes"`
	BreakMinutes  RangeConfig `toml:"break_minutes"`
	Sets          RangeConfig `toml:"sets"`
	ManualHours   RangeConfig `toml:"manual_hours"`
	ManualMinutes RangeConfig `toml:"manual_minutes"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
//
// Keys missing from the file keep the values of [DefaultConfig].
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate checks interval and range settings.
func (c *Config) Validate() error {
	t := c.Timer
	if t.TickIntervalMs <= 0 {
		return fmt.Errorf("%w: timer.tick_interval_ms must be positive", ErrInvalidConfig)
	}
	if t.SyncIntervalSeconds <= 0 {
		return fmt.Errorf("%w: timer.sync_interval_seconds must be positive", ErrInvalidConfig)
	}

	ranges := map[string]RangeConfig{
		"focus_minutes":  t.Ranges.FocusMinutes,
		"break_minutes":  t.Ranges.BreakMinutes,
		"sets":           t.Ranges.Sets,
		"manual_hours":   t.Ranges.ManualHours,
		"manual_minutes": t.Ranges.ManualMinutes,
	}
	for name, r := range ranges {
		if r.Min > r.Max || r.Min < 0 {
			return fmt.Errorf("%w: timer.ranges.%s [%d, %d]", ErrInvalidConfig, name, r.Min, r.Max)
		}
	}

	for _, r := range []RangeConfig{t.Ranges.FocusMinutes, t.Ranges.BreakMinutes, t.Ranges.Sets} {
		if r.Min < 1 {
			return fmt.Errorf("%w: pomodoro ranges must start at 1 or above", ErrInvalidConfig)
		}
	}

	p := t.Pomodoro
	if !inRange(p.FocusMinutes, t.Ranges.FocusMinutes) ||
		!inRange(p.BreakMinutes, t.Ranges.BreakMinutes) ||
		!inRange(p.Sets, t.Ranges.Sets) {
		return fmt.Errorf("%w: timer.pomodoro defaults outside configured ranges", ErrInvalidConfig)
	}

	return nil
}

func inRange(v int, r RangeConfig) bool {
	return v >= r.Min && v <= r.Max
}
