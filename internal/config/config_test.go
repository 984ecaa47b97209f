package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"INSPECTOR_CONFIG_FILE", "INSPECTOR_ENABLED", "INSPECTOR_BIND_ADDR",
		"INSPECTOR_PORT_CANDIDATES", "INSPECTOR_MAX_RECORDS", "INSPECTOR_PENDING_TTL",
		"INSPECTOR_LOG_LEVEL", "INSPECTOR_RECORD_FAILURES",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want := Default()
	if !reflect.DeepEqual(cfg, want) {
		t.Fatalf("Load() = %+v\nwant %+v", cfg, want)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("INSPECTOR_ENABLED", "false")
	t.Setenv("INSPECTOR_BIND_ADDR", "127.0.0.1:9000")
	t.Setenv("INSPECTOR_PORT_CANDIDATES", "127.0.0.1:9001, 127.0.0.1:9002,")
	t.Setenv("INSPECTOR_PENDING_TTL", "30s")
	t.Setenv("INSPECTOR_LOG_LEVEL", "DEBUG")
	t.Setenv("INSPECTOR_MAX_RECORDS", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Enabled {
		t.Fatal("Enabled = true; want false")
	}
	if cfg.BindAddr != "127.0.0.1:9000" {
		t.Fatalf("BindAddr = %q", cfg.BindAddr)
	}
	if want := []string{"127.0.0.1:9001", "127.0.0.1:9002"}; !reflect.DeepEqual(cfg.PortCandidates, want) {
		t.Fatalf("PortCandidates = %v; want %v", cfg.PortCandidates, want)
	}
	if cfg.PendingTTL != 30*time.Second {
		t.Fatalf("PendingTTL = %v", cfg.PendingTTL)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("LogLevel = %q", cfg.LogLevel)
	}
	if cfg.MaxRecords != 0 {
		t.Fatalf("MaxRecords = %d; invalid values keep the default", cfg.MaxRecords)
	}
}

func TestLoadYAMLOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "inspector.yaml")
	data := []byte(`
bind_addr: 127.0.0.1:7000
max_records: 500
pending_ttl: 2m
record_failures: true
archive_dir: ./captures
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("INSPECTOR_CONFIG_FILE", path)
	t.Setenv("INSPECTOR_BIND_ADDR", "127.0.0.1:7001")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.BindAddr != "127.0.0.1:7001" {
		t.Fatalf("BindAddr = %q; env must win over file", cfg.BindAddr)
	}
	if cfg.MaxRecords != 500 || cfg.PendingTTL != 2*time.Minute || !cfg.RecordFailures {
		t.Fatalf("overlay not applied: %+v", cfg)
	}
	if cfg.ArchiveDir != "./captures" || cfg.ConfigFile != path {
		t.Fatalf("ArchiveDir = %q ConfigFile = %q", cfg.ArchiveDir, cfg.ConfigFile)
	}
	if cfg.LogLevel != "info" {
		t.Fatalf("LogLevel = %q; unset keys keep defaults", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing_file", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("INSPECTOR_CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))
		if _, err := Load(); err == nil {
			t.Fatal("Load() error = nil; want error")
		}
	})
	t.Run("invalid_log_level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("INSPECTOR_LOG_LEVEL", "loud")
		if _, err := Load(); err == nil {
			t.Fatal("Load() error = nil; want error")
		}
	})
	t.Run("negative_max_records", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("INSPECTOR_MAX_RECORDS", "-1")
		if _, err := Load(); err == nil {
			t.Fatal("Load() error = nil; want error")
		}
	})
}
