// Package config holds codex-relay's runtime configuration: defaults, an
// optional YAML file and environment overrides, in that order of
// precedence (flags are applied by the caller last).
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the per-user directory under $HOME.
	Dir = ".codex-relay"
	// File is the config filename inside Dir.
	File = "config.yaml"

	BackendMemory = "memory"
	BackendSQLite = "sqlite"

	TransportStdio = "stdio"
	TransportHTTP  = "http"

	minPageSize = 1000
	maxPageSize = 200000
)

// userHomeDir is a package-level var to allow test injection.
var userHomeDir = os.UserHomeDir

// Config is the full runtime configuration.
type Config struct {
	CodexBin        string        `yaml:"codex_bin"`
	CommandTimeout  time.Duration `yaml:"command_timeout"`
	DefaultPageSize int           `yaml:"default_page_size"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	CursorTTL       time.Duration `yaml:"cursor_ttl"`
	SessionBackend  string        `yaml:"session_backend"`
	DataDir         string        `yaml:"data_dir"`
	DefaultModel    string        `yaml:"default_model"`
	LogLevel        string        `yaml:"log_level"`
	LogFormat       string        `yaml:"log_format"`
	MetricsAddr     string        `yaml:"metrics_addr"`
	Transport       string        `yaml:"transport"`
	HTTPAddr        string        `yaml:"http_addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	dataDir := Dir
	if home, err := userHomeDir(); err == nil {
		dataDir = filepath.Join(home, Dir)
	}
	return Config{
		CodexBin:        "codex",
		CommandTimeout:  180 * time.Second,
		DefaultPageSize: 40000,
		SessionTTL:      24 * time.Hour,
		CursorTTL:       10 * time.Minute,
		SessionBackend:  BackendMemory,
		DataDir:         dataDir,
		DefaultModel:    "gpt-5 medium",
		LogLevel:        "info",
		LogFormat:       "text",
		Transport:       TransportStdio,
		HTTPAddr:        ":8080",
	}
}

// DefaultPath returns ~/.codex-relay/config.yaml.
func DefaultPath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, Dir, File), nil
}

// Load builds a Config from defaults, the YAML file at path and the
// environment. An empty path means DefaultPath; a missing default file is
// not an error, a missing explicit file is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err == nil {
			path = p
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
			}
		case errors.Is(err, fs.ErrNotExist) && !explicit:
		default:
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return Config{}, err
	}
	cfg.DefaultPageSize = clamp(cfg.DefaultPageSize, minPageSize, maxPageSize)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str("CODEX_BIN", &c.CodexBin)
	str("CODEX_RELAY_SESSION_BACKEND", &c.SessionBackend)
	str("CODEX_RELAY_DATA_DIR", &c.DataDir)
	str("CODEX_RELAY_DEFAULT_MODEL", &c.DefaultModel)
	str("CODEX_RELAY_LOG_LEVEL", &c.LogLevel)

	if v := strings.TrimSpace(getenv("CODEX_CMD_TIMEOUT_MS")); v != "" {
		ms, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CODEX_CMD_TIMEOUT_MS: %w", err)
		}
		// Non-positive values keep the configured timeout.
		if ms > 0 {
			c.CommandTimeout = time.Duration(ms) * time.Millisecond
		}
	}
	if v := strings.TrimSpace(getenv("CODEX_PAGE_SIZE")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CODEX_PAGE_SIZE: %w", err)
		}
		c.DefaultPageSize = n
	}
	for key, dst := range map[string]*time.Duration{
		"CODEX_RELAY_SESSION_TTL": &c.SessionTTL,
		"CODEX_RELAY_CURSOR_TTL":  &c.CursorTTL,
	} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
			*dst = d
		}
	}
	return nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.CodexBin) == "":
		return errors.New("config: codex_bin must not be empty")
	case c.CommandTimeout <= 0:
		return fmt.Errorf("config: command_timeout must be positive, got %s", c.CommandTimeout)
	case c.DefaultPageSize < minPageSize || c.DefaultPageSize > maxPageSize:
		return fmt.Errorf("config: default_page_size must be within [%d, %d], got %d", minPageSize, maxPageSize, c.DefaultPageSize)
	case c.SessionTTL <= 0:
		return fmt.Errorf("config: session_ttl must be positive, got %s", c.SessionTTL)
	case c.CursorTTL <= 0:
		return fmt.Errorf("config: cursor_ttl must be positive, got %s", c.CursorTTL)
	}

	switch c.SessionBackend {
	case BackendMemory:
	case BackendSQLite:
		if strings.TrimSpace(c.DataDir) == "" {
			return errors.New("config: data_dir is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("config: unknown session_backend %q (want %s or %s)", c.SessionBackend, BackendMemory, BackendSQLite)
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown log_format %q", c.LogFormat)
	}

	switch c.Transport {
	case TransportStdio:
	case TransportHTTP:
		if strings.TrimSpace(c.HTTPAddr) == "" {
			return errors.New("config: http_addr is required for the http transport")
		}
	default:
		return fmt.Errorf("config: unknown transport %q (want %s or %s)", c.Transport, TransportStdio, TransportHTTP)
	}
	return nil
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
