// Package browser opens the inspector page in a Chromium app window.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"

	"github.com/chromedp/chromedp"
)

// ErrNoBrowser is returned when no Chromium binary can be found.
var ErrNoBrowser = errors.New("browser: no supported browser found (tried chromium-browser, chromium, google-chrome)")

// Config holds window launch configuration.
type Config struct {
	ExecPath     string
	ProfileDir   string
	Headless     bool
	WindowWidth  int
	WindowHeight int
}

// Window owns one browser process showing the inspector.
type Window struct {
	cfg Config

	mu          sync.Mutex
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
}

// NewWindow creates a window with the given config. Nothing is started until Open.
func NewWindow(cfg Config) *Window {
	if cfg.WindowWidth <= 0 || cfg.WindowHeight <= 0 {
		cfg.WindowWidth, cfg.WindowHeight = 1280, 860
	}
	return &Window{cfg: cfg}
}

// detectBrowser finds an available Chrome/Chromium binary.
func detectBrowser() (string, error) {
	candidates := []string{"chromium-browser", "chromium", "google-chrome"}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	if runtime.GOOS == "darwin" {
		macPath := "/Applications/Google Chrome.app/Contents/MacOS/Google Chrome"
		if _, err := os.Stat(macPath); err == nil {
			return macPath, nil
		}
	}
	return "", ErrNoBrowser
}

// Open starts the browser and navigates an app window to url. A window that
// is already open is navigated instead of relaunched. ctx bounds the launch
// only; the window stays up until Close.
func (w *Window) Open(ctx context.Context, url string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.tabCtx == nil {
		execPath := w.cfg.ExecPath
		if execPath == "" {
			found, err := detectBrowser()
			if err != nil {
				return err
			}
			execPath = found
		}

		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.ExecPath(execPath),
			chromedp.Flag("headless", w.cfg.Headless),
			chromedp.Flag("app", url),
			chromedp.WindowSize(w.cfg.WindowWidth, w.cfg.WindowHeight),
		)
		if w.cfg.ProfileDir != "" {
			opts = append(opts, chromedp.UserDataDir(w.cfg.ProfileDir))
		}
		allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
		tabCtx, tabCancel := chromedp.NewContext(allocCtx)
		w.allocCancel, w.tabCtx, w.tabCancel = allocCancel, tabCtx, tabCancel
		slog.Info("Opening inspector window", "browser", execPath, "url", url)
	}

	// The tab context outlives ctx, so ctx only aborts this navigation.
	runCtx, cancel := context.WithCancel(w.tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		w.closeLocked()
		return fmt.Errorf("browser: open %s: %w", url, err)
	}
	return nil
}

// IsOpen reports whether a browser process is running for this window.
func (w *Window) IsOpen() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.tabCtx != nil
}

// Close shuts the browser down. Closing a window that is not open is a no-op.
func (w *Window) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeLocked()
}

func (w *Window) closeLocked() {
	if w.tabCtx == nil {
		return
	}
	w.tabCancel()
	w.allocCancel()
	w.tabCtx, w.tabCancel, w.allocCancel = nil, nil, nil
	slog.Info("Inspector window closed")
}
