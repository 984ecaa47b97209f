package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the inspector.
type Config struct {
	// Activation
	Enabled bool `yaml:"enabled"`

	// Inspector API bind settings
	BindAddr         string   `yaml:"bind_addr"`
	PortCandidates   []string `yaml:"port_candidates"`
	PortAutoFallback bool     `yaml:"port_auto_fallback"`
	OpenBrowser      bool     `yaml:"open_browser"`

	// Capture behavior
	MaxBodyBytes   int           `yaml:"max_body_bytes"`
	MaxRecords     int           `yaml:"max_records"`
	PendingTTL     time.Duration `yaml:"pending_ttl"`
	RecordFailures bool          `yaml:"record_failures"`

	// Archive settings; an empty dir disables the archive
	ArchiveDir        string `yaml:"archive_dir"`
	ArchiveMaxSizeMB  int    `yaml:"archive_max_size_mb"`
	ArchiveBufferSize int    `yaml:"archive_buffer_size"`

	// Logging
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`

	// ConfigFile is the YAML file that was overlaid, if any.
	ConfigFile string `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Enabled:           true,
		BindAddr:          "127.0.0.1:8190",
		PortCandidates:    []string{"127.0.0.1:8191", "127.0.0.1:8192", "127.0.0.1:8193"},
		PortAutoFallback:  true,
		MaxBodyBytes:      10 * 1024 * 1024,
		PendingTTL:        5 * time.Minute,
		ArchiveMaxSizeMB:  200,
		ArchiveBufferSize: 5000,
		LogLevel:          "info",
		LogFile:           "logs/inspector.log",
	}
}

// Load reads configuration from an optional .env file, an optional YAML file
// named by INSPECTOR_CONFIG_FILE, and INSPECTOR_* environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	}

	cfg := Default()
	if path := os.Getenv("INSPECTOR_CONFIG_FILE"); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return nil, err
		}
	}

	cfg.Enabled = getEnvBoolOrDefault("INSPECTOR_ENABLED", cfg.Enabled)
	cfg.BindAddr = getEnvOrDefault("INSPECTOR_BIND_ADDR", cfg.BindAddr)
	cfg.PortCandidates = getEnvListOrDefault("INSPECTOR_PORT_CANDIDATES", cfg.PortCandidates)
	cfg.PortAutoFallback = getEnvBoolOrDefault("INSPECTOR_PORT_AUTO_FALLBACK", cfg.PortAutoFallback)
	cfg.OpenBrowser = getEnvBoolOrDefault("INSPECTOR_OPEN_BROWSER", cfg.OpenBrowser)
	cfg.MaxBodyBytes = getEnvIntOrDefault("INSPECTOR_MAX_BODY_BYTES", cfg.MaxBodyBytes)
	cfg.MaxRecords = getEnvIntOrDefault("INSPECTOR_MAX_RECORDS", cfg.MaxRecords)
	cfg.PendingTTL = getEnvDurationOrDefault("INSPECTOR_PENDING_TTL", cfg.PendingTTL)
	cfg.RecordFailures = getEnvBoolOrDefault("INSPECTOR_RECORD_FAILURES", cfg.RecordFailures)
	cfg.ArchiveDir = getEnvOrDefault("INSPECTOR_ARCHIVE_DIR", cfg.ArchiveDir)
	cfg.ArchiveMaxSizeMB = getEnvIntOrDefault("INSPECTOR_ARCHIVE_MAX_SIZE_MB", cfg.ArchiveMaxSizeMB)
	cfg.ArchiveBufferSize = getEnvIntOrDefault("INSPECTOR_ARCHIVE_BUFFER_SIZE", cfg.ArchiveBufferSize)
	cfg.LogLevel = strings.ToLower(getEnvOrDefault("INSPECTOR_LOG_LEVEL", cfg.LogLevel))
	cfg.LogFile = getEnvOrDefault("INSPECTOR_LOG_FILE", cfg.LogFile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("inspector config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("inspector config: %s: %w", path, err)
	}
	c.ConfigFile = path
	return nil
}

// Validate rejects values the inspector cannot run with.
func (c *Config) Validate() error {
	if c.MaxRecords < 0 {
		return fmt.Errorf("inspector config: max_records must be >= 0, got %d", c.MaxRecords)
	}
	if c.PendingTTL < 0 {
		return fmt.Errorf("inspector config: pending_ttl must be >= 0, got %s", c.PendingTTL)
	}
	if c.ArchiveDir != "" && c.ArchiveBufferSize < 1 {
		return fmt.Errorf("inspector config: archive_buffer_size must be >= 1, got %d", c.ArchiveBufferSize)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("inspector config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

func getEnvOrDefault(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvIntOrDefault(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvBoolOrDefault(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}

func getEnvListOrDefault(key string, defaultVal []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
