// Command inspector is a demo host application: it installs the network
// inspector, serves the inspector API and fetches any URLs given on the
// command line on a fixed interval so there is traffic to look at.
package main

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/dgnsrekt/netinspector"
	"github.com/dgnsrekt/netinspector/internal/config"
)

const fetchInterval = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load inspector config", "error", err)
		os.Exit(1)
	}

	if err := setupLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		if _, writeErr := io.WriteString(os.Stderr, "logger setup failed: "+err.Error()+"\n"); writeErr != nil {
			slog.Debug("logger setup stderr write failed", "error", writeErr)
		}
		os.Exit(1)
	}

	slog.Info("inspector config loaded",
		"enabled", cfg.Enabled,
		"bind_addr", cfg.BindAddr,
		"port_auto_fallback", cfg.PortAutoFallback,
		"port_candidates", cfg.PortCandidates,
		"max_body_bytes", cfg.MaxBodyBytes,
		"max_records", cfg.MaxRecords,
		"record_failures", cfg.RecordFailures,
		"archive_dir", cfg.ArchiveDir,
		"config_file", cfg.ConfigFile,
		"log_level", cfg.LogLevel,
		"log_file", cfg.LogFile,
	)

	in := netinspector.New(cfg)
	defer func() {
		if err := in.Close(); err != nil {
			slog.Error("inspector close failed", "error", err)
		}
	}()

	if err := in.Setup(); err != nil {
		slog.Warn("inspector hook partially installed", "error", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr, err := in.Show(ctx)
	if err != nil {
		slog.Error("failed to show inspector", "error", err)
		return
	}
	slog.Info("inspector ready", "addr", addr, "docs", "http://"+addr+"/docs")

	go logCaptures(ctx, in)
	if targets := os.Args[1:]; len(targets) > 0 {
		go fetchLoop(ctx, targets)
	}

	<-ctx.Done()
	slog.Info("inspector shutting down")
}

// fetchLoop uses http.DefaultClient so captures come from the hook alone.
func fetchLoop(ctx context.Context, targets []string) {
	ticker := time.NewTicker(fetchInterval)
	defer ticker.Stop()

	for {
		for _, target := range targets {
			fetchOnce(ctx, target)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func fetchOnce(ctx context.Context, target string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		slog.Warn("invalid target url", "url", target, "error", err)
		return
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		slog.Warn("demo fetch failed", "url", target, "error", err)
		return
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Debug("demo response close failed", "error", err)
		}
	}()
	if _, err := io.Copy(io.Discard, resp.Body); err != nil {
		slog.Warn("demo body read failed", "url", target, "error", err)
	}
}

func logCaptures(ctx context.Context, in *netinspector.Inspector) {
	id, ch := in.Subscribe()
	defer in.Unsubscribe(id)

	for {
		select {
		case <-ctx.Done():
			return
		case rec, ok := <-ch:
			if !ok {
				return
			}
			slog.Info("captured request",
				"request_id", rec.ID,
				"method", rec.Method,
				"url", rec.URL,
				"status", rec.StatusCode,
				"duration_s", rec.Duration,
			)
		}
	}
}

func setupLogger(level, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return err
	}

	logWriter := &lumberjack.Logger{
		Filename:   filename,
		MaxSize:    25,
		MaxBackups: 10,
		MaxAge:     14,
		Compress:   true,
	}

	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}

	h := slog.NewTextHandler(io.MultiWriter(os.Stdout, logWriter), &slog.HandlerOptions{Level: slogLevel})
	slog.SetDefault(slog.New(h))
	return nil
}
