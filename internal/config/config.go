package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cfsubmit/internal/tactile"

	"gopkg.in/yaml.v3"
)

// Config holds all cfsubmit configuration.
type Config struct {
	// Core settings
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	Notifications NotificationsConfig `yaml:"notifications"`
	Automation    AutomationConfig    `yaml:"automation"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// NotificationsConfig configures user-facing toasts.
type NotificationsConfig struct {
	// ShowToasts gates every notification. Log lines are written either way.
	ShowToasts bool `yaml:"show_toasts"`
}

// AutomationConfig configures the keystroke automation that follows a
// browser launch.
type AutomationConfig struct {
	Enabled bool `yaml:"enabled"`

	// Platform overrides strategy selection: auto, darwin, linux, windows.
	Platform string `yaml:"platform"`

	// Timeout bounds a single automation process.
	Timeout string `yaml:"timeout"`

	// Keystroke delays.
	Settle     string `yaml:"settle"`
	KeyDelay   string `yaml:"key_delay"`
	PasteDelay string `yaml:"paste_delay"`

	// RequireProblemRef skips automation when the URL was not recognized
	// as a problem page.
	RequireProblemRef bool `yaml:"require_problem_ref"`
}

// ValidPlatforms lists accepted automation.platform values.
var ValidPlatforms = []string{"", "auto", "darwin", "mac", "macos", "linux", "windows"}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Name:    "cfsubmit",
		Version: "1.0.0",

		Notifications: NotificationsConfig{
			ShowToasts: true,
		},

		Automation: AutomationConfig{
			Enabled:    true,
			Platform:   "auto",
			Timeout:    "45s",
			Settle:     "2500ms",
			KeyDelay:   "150ms",
			PasteDelay: "600ms",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultConfigPath returns .cfsubmit/config.yaml under workspace.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, ".cfsubmit", "config.yaml")
}

// Load loads configuration from a YAML file. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v, ok := envBool("CFSUBMIT_SHOW_TOASTS"); ok {
		c.Notifications.ShowToasts = v
	}
	if v, ok := envBool("CFSUBMIT_AUTOMATION_ENABLED"); ok {
		c.Automation.Enabled = v
	}
	if v := os.Getenv("CFSUBMIT_AUTOMATION_TIMEOUT"); v != "" {
		c.Automation.Timeout = v
	}
	if v := os.Getenv("CFSUBMIT_PLATFORM"); v != "" {
		c.Automation.Platform = v
	}
}

// envBool reads a boolean variable. Unparseable values are ignored.
func envBool(key string) (bool, bool) {
	raw := os.Getenv(key)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}

func parseDurationOr(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// GetAutomationTimeout returns the automation timeout as a duration.
func (c *Config) GetAutomationTimeout() time.Duration {
	return parseDurationOr(c.Automation.Timeout, 45*time.Second)
}

// GetSettleDelay returns the page settle delay as a duration.
func (c *Config) GetSettleDelay() time.Duration {
	return parseDurationOr(c.Automation.Settle, 2500*time.Millisecond)
}

// GetKeyDelay returns the inter-key delay as a duration.
func (c *Config) GetKeyDelay() time.Duration {
	return parseDurationOr(c.Automation.KeyDelay, 150*time.Millisecond)
}

// GetPasteDelay returns the post-paste delay as a duration.
func (c *Config) GetPasteDelay() time.Duration {
	return parseDurationOr(c.Automation.PasteDelay, 600*time.Millisecond)
}

// GetTiming returns the keystroke delays for strategy rendering.
func (c *Config) GetTiming() tactile.Timing {
	return tactile.Timing{
		Settle:     c.GetSettleDelay(),
		KeyDelay:   c.GetKeyDelay(),
		PasteDelay: c.GetPasteDelay(),
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validPlatform := false
	for _, p := range ValidPlatforms {
		if strings.EqualFold(c.Automation.Platform, p) {
			validPlatform = true
			break
		}
	}
	if !validPlatform {
		return fmt.Errorf("invalid automation platform: %s (valid: auto, darwin, linux, windows)", c.Automation.Platform)
	}

	durations := map[string]string{
		"automation.timeout":     c.Automation.Timeout,
		"automation.settle":      c.Automation.Settle,
		"automation.key_delay":   c.Automation.KeyDelay,
		"automation.paste_delay": c.Automation.PasteDelay,
	}
	for field, raw := range durations {
		if raw == "" {
			continue
		}
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", field, raw, err)
		}
		if d < 0 {
			return fmt.Errorf("invalid %s %q: must not be negative", field, raw)
		}
	}

	if c.Logging.Format != "" && c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("invalid logging format: %s (valid: text, json)", c.Logging.Format)
	}

	return nil
}

// FindWorkspaceRoot walks up from the working directory looking for a
// .cfsubmit directory. If none is found, the working directory is returned.
func FindWorkspaceRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	originalDir := dir
	for {
		if _, err := os.Stat(filepath.Join(dir, ".cfsubmit")); err == nil {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return originalDir, nil
}
