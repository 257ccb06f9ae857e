// Package config provides YAML-based configuration loading for Dayflow.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Dayflow configuration, loaded from dayflow.yaml.
type Config struct {
	Owner     string          `yaml:"owner"`
	Device    string          `yaml:"device"`
	Local     LocalConfig     `yaml:"local"`
	Remote    RemoteConfig    `yaml:"remote"`
	Alarm     AlarmConfig     `yaml:"alarm"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Mode      ModeConfig      `yaml:"mode"`
	Flows     []FlowConfig    `yaml:"flows"`
}

// LocalConfig holds settings for the local SQLite store.
type LocalConfig struct {
	Path string `yaml:"path"`
}

// RemoteConfig holds connection settings for the remote MySQL-compatible
// server that acts as the authoritative store.
type RemoteConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
}

// AlarmConfig controls how safety-window alarms are delivered.
type AlarmConfig struct {
	Command       string        `yaml:"command"`
	RepeatMinutes int           `yaml:"repeat_minutes"`
	Discord       DiscordConfig `yaml:"discord"`
	Slack         SlackConfig   `yaml:"slack"`
}

// DiscordConfig enables the Discord alarm notifier when both fields are set.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// SlackConfig enables the Slack alarm notifier when both fields are set.
type SlackConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// DashboardConfig holds the daemon's HTTP dashboard settings.
type DashboardConfig struct {
	Addr string `yaml:"addr"`
}

// ModeConfig lists the flow categories diverted to the skip branch while
// cycle mode is active.
type ModeConfig struct {
	SkipCategories []string `yaml:"skip_categories"`
}

// FlowConfig defines a seeded flow template.
type FlowConfig struct {
	Name     string       `yaml:"name"`
	Category string       `yaml:"category"`
	Window   string       `yaml:"window"` // "HH:MM-HH:MM", empty for no window
	Steps    []StepConfig `yaml:"steps"`
}

// StepConfig defines one step of a seeded flow template.
type StepConfig struct {
	Condition string `yaml:"condition"`
	Action    string `yaml:"action"`
	Activity  string `yaml:"activity"`
	Minutes   int    `yaml:"minutes"`
	Optional  bool   `yaml:"optional"`
	Skippable bool   `yaml:"skippable"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.Device == "" {
		if host, err := os.Hostname(); err == nil && host != "" {
			c.Device = host
		} else {
			c.Device = "local"
		}
	}
	if c.Local.Path == "" {
		c.Local.Path = os.ExpandEnv("${HOME}/.dayflow/dayflow.db")
	}
	if c.Remote.Host == "" {
		c.Remote.Host = "127.0.0.1"
	}
	if c.Remote.Port == 0 {
		c.Remote.Port = 3306
	}
	if c.Remote.User == "" {
		c.Remote.User = "root"
	}
	if c.Remote.Database == "" && c.Owner != "" {
		c.Remote.Database = "dayflow_" + c.Owner
	}
	if c.Alarm.RepeatMinutes == 0 {
		c.Alarm.RepeatMinutes = 2
	}
	if c.Dashboard.Addr == "" {
		c.Dashboard.Addr = "127.0.0.1:7420"
	}
	if len(c.Mode.SkipCategories) == 0 {
		c.Mode.SkipCategories = []string{"ibadah", "exercise"}
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Owner == "" {
		errs = append(errs, "owner is required")
	}
	for i, f := range c.Flows {
		if f.Name == "" {
			errs = append(errs, fmt.Sprintf("flows[%d].name is required", i))
		}
		if len(f.Steps) == 0 {
			errs = append(errs, fmt.Sprintf("flows[%d] needs at least one step", i))
		}
		if f.Window != "" {
			if _, _, err := SplitWindow(f.Window); err != nil {
				errs = append(errs, fmt.Sprintf("flows[%d].window: %v", i, err))
			}
		}
		for j, s := range f.Steps {
			if s.Activity == "" {
				errs = append(errs, fmt.Sprintf("flows[%d].steps[%d].activity is required", i, j))
			}
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

// SplitWindow splits a "HH:MM-HH:MM" window string into its start and end
// clock times.
func SplitWindow(window string) (start, end string, err error) {
	parts := strings.SplitN(window, "-", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("want HH:MM-HH:MM, got %q", window)
	}
	start, end = strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	for _, p := range []string{start, end} {
		if len(p) != 5 || p[2] != ':' {
			return "", "", fmt.Errorf("bad clock time %q", p)
		}
	}
	return start, end, nil
}

// SkipsCategory reports whether the category diverts to the skip branch
// while cycle mode is active.
func (c *Config) SkipsCategory(category string) bool {
	for _, sc := range c.Mode.SkipCategories {
		if sc == category {
			return true
		}
	}
	return false
}
