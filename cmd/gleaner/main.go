package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/use-agent/gleaner/checkpoint"
	"github.com/use-agent/gleaner/config"
	"github.com/use-agent/gleaner/driver"
	"github.com/use-agent/gleaner/session"
)

func main() {
	// ── 1. Load configuration ───────────────────────────────────────
	cfg := config.Load()
	if path := os.Getenv("GLEANER_CONFIG"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			fmt.Fprintf(os.Stderr, "config file error: %v\n", err)
			os.Exit(1)
		}
	}

	// Short run ID tags this session's artifacts.
	runID := uuid.NewString()[:8]

	// ── 2. Initialise structured logging (console + log file) ──────
	logClose, err := initLogger(cfg.Log, cfg.OutputDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logging setup error: %v\n", err)
		os.Exit(1)
	}
	defer logClose()

	slog.Info("gleaner starting",
		"runID", runID,
		"url", cfg.ListURL,
		"outputDir", cfg.OutputDir,
		"resume", cfg.Resume,
		"headless", cfg.Browser.Headless,
	)

	// ── 3. Signal-aware context: interrupt still flushes state ─────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── 4. Construct the page driver ────────────────────────────────
	drv, err := newDriver(cfg)
	if err != nil {
		slog.Error("failed to initialise page driver", "error", err)
		os.Exit(1)
	}

	// ── 5. Checkpoint manager and session ──────────────────────────
	mgr, err := checkpoint.NewManager(cfg.OutputDir, runID)
	if err != nil {
		slog.Error("failed to initialise checkpoint manager", "error", err)
		_ = drv.Close()
		os.Exit(1)
	}

	sess := session.New(cfg, drv, mgr)
	summary, err := sess.Run(ctx)

	// ── 6. Report outcome; interruption is not a failure ───────────
	if errors.Is(ctx.Err(), context.Canceled) {
		slog.Warn("run interrupted; progress saved and resumable", "outputDir", cfg.OutputDir)
	}
	if err != nil {
		slog.Error("scraping session failed", "error", err)
		slog.Info("checkpoint state on disk remains valid for resume", "outputDir", cfg.OutputDir)
		os.Exit(1)
	}

	slog.Info("scraping completed",
		"totalArticles", summary.TotalArticles,
		"newThisSession", summary.NewThisSession,
		"stopReason", summary.StopReason,
		"outputDir", cfg.OutputDir,
	)
	fmt.Print(summary.Render())
}

// newDriver picks the page-driver backend. "rod" (default) drives a real
// Chromium; "static" takes a single HTTP snapshot with no browser.
func newDriver(cfg *config.Config) (driver.PageDriver, error) {
	switch backend := os.Getenv("GLEANER_DRIVER"); backend {
	case "", "rod":
		return driver.NewRod(cfg.Browser)
	case "static":
		return driver.NewStatic(), nil
	default:
		return nil, fmt.Errorf("unknown driver backend %q", backend)
	}
}

// initLogger configures slog to write to stdout and to a timestamped log
// file under <output>/logs. Returns a closer for the log file.
func initLogger(cfg config.LogConfig, outputDir string) (func(), error) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	logsDir := filepath.Join(outputDir, "logs")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, err
	}
	logPath := filepath.Join(logsDir, fmt.Sprintf("gleaner_%s.log", time.Now().Format("20060102_150405")))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, err
	}

	out := io.MultiWriter(os.Stdout, logFile)
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	slog.SetDefault(slog.New(handler))
	return func() { _ = logFile.Close() }, nil
}
