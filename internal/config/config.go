// Package config provides persistent configuration for mawaqit.
//
// Configuration is stored as JSON at ~/.config/mawaqit/config.json
// (XDG-compliant). A .env file and MAWAQIT_* environment variables override
// the file. The merge priority is: CLI flags > environment > config file > defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/smokyabdulrahman/mawaqit/internal/api"
)

const (
	configDirName  = "mawaqit"
	configFileName = "config.json"

	// EnvPrefix prefixes the upper-cased key of every environment override,
	// e.g. MAWAQIT_REDIS_ADDR.
	EnvPrefix = "MAWAQIT_"
)

// ValidKeys lists all config keys that can be set via `config set`.
var ValidKeys = []string{
	"base_url",
	"city",
	"time_format",
	"numerals",
	"refresh_interval",
	"latitude", "longitude",
	"cache_dir",
	"redis_addr", "redis_password",
	"mqtt_broker", "mqtt_topic",
	"listen_addr",
}

// Config holds all user-configurable settings.
// Zero values mean "not set" (use defaults).
type Config struct {
	BaseURL         string  `json:"base_url,omitempty"`
	City            string  `json:"city,omitempty"`
	TimeFormat      string  `json:"time_format,omitempty"`      // "12h" or "24h"
	Numerals        string  `json:"numerals,omitempty"`         // "latin" or "arabic"
	RefreshInterval string  `json:"refresh_interval,omitempty"` // Go duration, e.g. "1m"
	Latitude        float64 `json:"latitude,omitempty"`
	Longitude       float64 `json:"longitude,omitempty"`
	CacheDir        string  `json:"cache_dir,omitempty"`
	RedisAddr       string  `json:"redis_addr,omitempty"`
	RedisPassword   string  `json:"redis_password,omitempty"`
	MQTTBroker      string  `json:"mqtt_broker,omitempty"`
	MQTTTopic       string  `json:"mqtt_topic,omitempty"`
	ListenAddr      string  `json:"listen_addr,omitempty"`
}

// Defaults returns a Config with all default values applied.
func Defaults() Config {
	return Config{
		BaseURL:         api.DefaultBaseURL,
		TimeFormat:      "24h",
		Numerals:        "latin",
		RefreshInterval: "1m",
		MQTTTopic:       "mawaqit",
		ListenAddr:      "127.0.0.1:8080",
	}
}

// WithDefaults returns c with every unset field taken from Defaults.
func (c Config) WithDefaults() Config {
	d := Defaults()
	if c.BaseURL == "" {
		c.BaseURL = d.BaseURL
	}
	if c.TimeFormat == "" {
		c.TimeFormat = d.TimeFormat
	}
	if c.Numerals == "" {
		c.Numerals = d.Numerals
	}
	if c.RefreshInterval == "" {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.MQTTTopic == "" {
		c.MQTTTopic = d.MQTTTopic
	}
	if c.ListenAddr == "" {
		c.ListenAddr = d.ListenAddr
	}
	return c
}

// Dir returns the config directory path.
// It respects $XDG_CONFIG_HOME if set, otherwise uses ~/.config/.
func Dir() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName), nil
}

// Path returns the full path to the config file.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, configFileName), nil
}

// Load reads the config file from disk.
// If the file does not exist, it returns an empty Config (not an error).
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}

	return LoadFrom(path)
}

// LoadFrom reads the config from a specific file path.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := Config{}
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadDotEnv loads .env files into the process environment without replacing
// variables that are already set. Missing files are skipped; with no
// arguments ".env" in the working directory is tried.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// EnvName returns the environment variable that overrides key.
func EnvName(key string) string {
	return EnvPrefix + strings.ToUpper(key)
}

// ApplyEnv overrides c with every MAWAQIT_* variable that is set. Values are
// validated exactly like `config set`.
func (c *Config) ApplyEnv() error {
	for _, key := range ValidKeys {
		v, ok := os.LookupEnv(EnvName(key))
		if !ok {
			continue
		}
		if err := c.Set(key, v); err != nil {
			return fmt.Errorf("%s: %w", EnvName(key), err)
		}
	}
	return nil
}

// Save writes the config to disk, creating the directory if needed.
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return c.SaveTo(path)
}

// SaveTo writes the config to a specific file path. The file may hold a Redis
// password, so it is readable by the owner only.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("cannot create config directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Reset deletes the config file.
func Reset() error {
	path, err := Path()
	if err != nil {
		return err
	}

	return ResetAt(path)
}

// ResetAt deletes the config file at a specific path.
func ResetAt(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete config file: %w", err)
	}
	return nil
}

// Set sets a config key to the given value.
// It validates the key name and parses the value into the correct type.
func (c *Config) Set(key, value string) error {
	value = strings.TrimSpace(value)

	switch key {
	case "base_url":
		if value != "" && !strings.HasPrefix(value, "http://") && !strings.HasPrefix(value, "https://") {
			return fmt.Errorf("invalid base_url %q: must start with http:// or https://", value)
		}
		c.BaseURL = strings.TrimRight(value, "/")
	case "city":
		c.City = value
	case "time_format":
		if value != "12h" && value != "24h" {
			return fmt.Errorf("invalid time_format %q: must be \"12h\" or \"24h\"", value)
		}
		c.TimeFormat = value
	case "numerals":
		if value != "latin" && value != "arabic" {
			return fmt.Errorf("invalid numerals %q: must be \"latin\" or \"arabic\"", value)
		}
		c.Numerals = value
	case "refresh_interval":
		d, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid refresh_interval %q: must be a duration like 30s or 1m", value)
		}
		if d < time.Second {
			return fmt.Errorf("invalid refresh_interval %q: must be at least 1s", value)
		}
		c.RefreshInterval = value
	case "latitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid latitude %q: must be a number", value)
		}
		if v < -90 || v > 90 {
			return fmt.Errorf("invalid latitude %q: must be between -90 and 90", value)
		}
		c.Latitude = v
	case "longitude":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid longitude %q: must be a number", value)
		}
		if v < -180 || v > 180 {
			return fmt.Errorf("invalid longitude %q: must be between -180 and 180", value)
		}
		c.Longitude = v
	case "cache_dir":
		c.CacheDir = value
	case "redis_addr":
		c.RedisAddr = value
	case "redis_password":
		c.RedisPassword = value
	case "mqtt_broker":
		c.MQTTBroker = value
	case "mqtt_topic":
		if strings.ContainsAny(value, "#+") {
			return fmt.Errorf("invalid mqtt_topic %q: wildcards are not allowed", value)
		}
		c.MQTTTopic = strings.Trim(value, "/")
	case "listen_addr":
		c.ListenAddr = value
	default:
		return fmt.Errorf("unknown config key %q; valid keys: %s", key, strings.Join(ValidKeys, ", "))
	}

	return nil
}

// Get returns the string value of a config key.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "base_url":
		return c.BaseURL, nil
	case "city":
		return c.City, nil
	case "time_format":
		return c.TimeFormat, nil
	case "numerals":
		return c.Numerals, nil
	case "refresh_interval":
		return c.RefreshInterval, nil
	case "latitude":
		if c.Latitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Latitude, 'f', -1, 64), nil
	case "longitude":
		if c.Longitude == 0 {
			return "", nil
		}
		return strconv.FormatFloat(c.Longitude, 'f', -1, 64), nil
	case "cache_dir":
		return c.CacheDir, nil
	case "redis_addr":
		return c.RedisAddr, nil
	case "redis_password":
		return c.RedisPassword, nil
	case "mqtt_broker":
		return c.MQTTBroker, nil
	case "mqtt_topic":
		return c.MQTTTopic, nil
	case "listen_addr":
		return c.ListenAddr, nil
	default:
		return "", fmt.Errorf("unknown config key %q", key)
	}
}

// Interval returns RefreshInterval as a duration, or one minute when unset
// or invalid.
func (c *Config) Interval() time.Duration {
	d, err := time.ParseDuration(c.RefreshInterval)
	if err != nil || d <= 0 {
		return time.Minute
	}
	return d
}

// TimeLayout returns the Go time layout for TimeFormat.
func (c *Config) TimeLayout() string {
	if c.TimeFormat == "12h" {
		return "3:04 PM"
	}
	return "15:04"
}

// Arabic reports whether Eastern Arabic numerals were requested.
func (c *Config) Arabic() bool {
	return c.Numerals == "arabic"
}
