// Package config loads and saves the per-repository YAML configuration.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// FileName is the configuration file inside the repository directory.
const FileName = "config.yaml"

// Config is the repository configuration.
type Config struct {
	Core   CoreConfig  `yaml:"core"`
	Ignore []string    `yaml:"ignore"`
	Log    LogConfig   `yaml:"log"`
	Cache  CacheConfig `yaml:"cache"`
}

type CoreConfig struct {
	DefaultBranch string `yaml:"default_branch"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type CacheConfig struct {
	Commits int `yaml:"commits"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Core:   CoreConfig{DefaultBranch: "master"},
		Ignore: []string{},
		Log:    LogConfig{Level: "warn"},
		Cache:  CacheConfig{Commits: 256},
	}
}

// applyDefaults fills zero fields from Default.
func (c *Config) applyDefaults() {
	d := Default()
	if c.Core.DefaultBranch == "" {
		c.Core.DefaultBranch = d.Core.DefaultBranch
	}
	if c.Ignore == nil {
		c.Ignore = d.Ignore
	}
	if c.Log.Level == "" {
		c.Log.Level = d.Log.Level
	}
	if c.Cache.Commits <= 0 {
		c.Cache.Commits = d.Cache.Commits
	}
}

// Validate reports configuration values that cannot be used.
func (c *Config) Validate() error {
	if strings.ContainsAny(c.Core.DefaultBranch, " \t\n") || strings.HasPrefix(c.Core.DefaultBranch, ".") {
		return fmt.Errorf("core.default_branch: invalid branch name %q", c.Core.DefaultBranch)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// Load reads path. A missing file yields Default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes cfg to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// ErrUnknownKey is returned by Get and Set for keys that do not exist.
var ErrUnknownKey = errors.New("unknown config key")

// Keys lists the dotted keys accepted by Get and Set.
var Keys = []string{"core.default_branch", "ignore", "log.level", "cache.commits"}

// Get returns the value of a dotted key. The ignore list is comma-separated.
func (c *Config) Get(key string) (string, error) {
	switch key {
	case "core.default_branch":
		return c.Core.DefaultBranch, nil
	case "ignore":
		return strings.Join(c.Ignore, ","), nil
	case "log.level":
		return c.Log.Level, nil
	case "cache.commits":
		return strconv.Itoa(c.Cache.Commits), nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
}

// Set changes a dotted key and validates the result. On error c is unchanged.
func (c *Config) Set(key, value string) error {
	next := *c
	next.Ignore = append([]string(nil), c.Ignore...)
	switch key {
	case "core.default_branch":
		next.Core.DefaultBranch = value
	case "ignore":
		next.Ignore = []string{}
		for _, p := range strings.Split(value, ",") {
			if p = strings.TrimSpace(p); p != "" {
				next.Ignore = append(next.Ignore, p)
			}
		}
	case "log.level":
		next.Log.Level = value
	case "cache.commits":
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("cache.commits: want a positive integer, got %q", value)
		}
		next.Cache.Commits = n
	default:
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	if next.Core.DefaultBranch == "" {
		return fmt.Errorf("core.default_branch: empty branch name")
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", s)
	}
}
