// Package config resolves runtime settings from, in increasing precedence:
// built-in defaults, an optional YAML file, a .env file, and FLASHDECK_*
// environment variables. Flags in cmd/flashdeck override the result.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const FileName = "flashdeck.yaml"

type Config struct {
	APIURL          string
	TokenPath       string
	LogPath         string
	MonitorInterval time.Duration
	LibraryInterval time.Duration
	RequestTimeout  time.Duration
	PageSize        int
	SessionMode     string // circular | linear
}

// rawConfig is the YAML shape. Durations are "3s" style strings; pointer
// fields distinguish "absent" from "zero" so the file only overrides what it
// actually sets.
type rawConfig struct {
	APIURL          *string `yaml:"api_url"`
	TokenPath       *string `yaml:"token_path"`
	LogPath         *string `yaml:"log_path"`
	MonitorInterval *string `yaml:"monitor_interval"`
	LibraryInterval *string `yaml:"library_interval"`
	RequestTimeout  *string `yaml:"request_timeout"`
	PageSize        *int    `yaml:"page_size"`
	SessionMode     *string `yaml:"session_mode"`
}

func (r rawConfig) apply(cfg *Config) error {
	if r.APIURL != nil {
		cfg.APIURL = *r.APIURL
	}
	if r.TokenPath != nil {
		cfg.TokenPath = *r.TokenPath
	}
	if r.LogPath != nil {
		cfg.LogPath = *r.LogPath
	}
	if r.SessionMode != nil {
		cfg.SessionMode = *r.SessionMode
	}
	if r.PageSize != nil {
		cfg.PageSize = *r.PageSize
	}
	for _, entry := range []struct {
		name  string
		value *string
		out   *time.Duration
	}{
		{"monitor_interval", r.MonitorInterval, &cfg.MonitorInterval},
		{"library_interval", r.LibraryInterval, &cfg.LibraryInterval},
		{"request_timeout", r.RequestTimeout, &cfg.RequestTimeout},
	} {
		if entry.value == nil {
			continue
		}
		parsed, err := time.ParseDuration(*entry.value)
		if err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
		*entry.out = parsed
	}
	return nil
}

func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	stateDir := filepath.Join(home, ".flashdeck")
	return Config{
		APIURL:          "http://localhost:9000",
		TokenPath:       filepath.Join(stateDir, "token"),
		LogPath:         filepath.Join(stateDir, "flashdeck.log"),
		MonitorInterval: 3 * time.Second,
		LibraryInterval: 6 * time.Second,
		RequestTimeout:  30 * time.Second,
		PageSize:        8,
		SessionMode:     "circular",
	}
}

// Load builds the effective config. path may be empty, in which case only the
// default file location is tried; a missing file is not an error.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if path == "" {
		path = FileName
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var raw rawConfig
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
		if err := raw.apply(&cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// optional
	default:
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}

	// .env values become plain env vars, picked up below.
	_ = godotenv.Load()
	applyEnv(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("FLASHDECK_API_URL"); v != "" {
		cfg.APIURL = v
	}
	if v := os.Getenv("FLASHDECK_TOKEN_PATH"); v != "" {
		cfg.TokenPath = v
	}
	if v := os.Getenv("FLASHDECK_LOG_PATH"); v != "" {
		cfg.LogPath = v
	}
	if v := os.Getenv("FLASHDECK_SESSION_MODE"); v != "" {
		cfg.SessionMode = v
	}
	if v := os.Getenv("FLASHDECK_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
}

func (c Config) validate() error {
	if c.APIURL == "" {
		return errors.New("api_url must not be empty")
	}
	if c.SessionMode != "circular" && c.SessionMode != "linear" {
		return fmt.Errorf("session_mode must be circular or linear, got %q", c.SessionMode)
	}
	if c.MonitorInterval <= 0 || c.LibraryInterval <= 0 {
		return errors.New("poll intervals must be positive")
	}
	if c.PageSize <= 0 {
		return errors.New("page_size must be positive")
	}
	return nil
}
