// Package netinspector records the HTTP traffic a Go process makes and serves
// it to a local inspector API.
//
// A host application builds one Inspector, calls Setup once at start-up and
// Show when it wants the inspector reachable:
//
//	cfg, _ := config.Load()
//	in := netinspector.New(cfg)
//	if err := in.Setup(); err != nil {
//		slog.Warn("partial capture", "error", err)
//	}
//	addr, _ := in.Show(ctx)
//
// Setup wraps http.DefaultTransport, which covers http.DefaultClient and any
// client whose Transport is nil. Clients with their own transport must be
// passed to New, registered with Attach, or built with NewClient or Wrap;
// anything else escapes capture.
package netinspector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/dgnsrekt/netinspector/internal/api"
	"github.com/dgnsrekt/netinspector/internal/browser"
	"github.com/dgnsrekt/netinspector/internal/capture"
	"github.com/dgnsrekt/netinspector/internal/config"
	"github.com/dgnsrekt/netinspector/internal/controller"
	"github.com/dgnsrekt/netinspector/internal/hook"
	"github.com/dgnsrekt/netinspector/internal/netutil"
	"github.com/dgnsrekt/netinspector/internal/storage"
	"github.com/dgnsrekt/netinspector/internal/types"
)

// Version is reported by the inspector API and HAR exports.
const Version = "0.1.0"

// ErrDisabled is returned by Show when capture is disabled by configuration
// or compiled out.
var ErrDisabled = errors.New("netinspector: disabled")

// CapturedRequest is one completed HTTP transaction.
type CapturedRequest = types.CapturedRequest

// Inspector owns the capture store, the interception hook and the inspector
// API server.
type Inspector struct {
	cfg    *config.Config
	store  *capture.Store
	hook   *hook.Hook
	window *browser.Window

	mu         sync.Mutex
	srv        *http.Server
	addr       string
	baseCancel context.CancelFunc
	serveDone  chan struct{}
	closed     bool
}

// New builds an Inspector from cfg. A nil cfg uses config.Default. Clients are
// attached to the interception hook when Setup runs.
func New(cfg *config.Config, clients ...*http.Client) *Inspector {
	if cfg == nil {
		cfg = config.Default()
	}

	opts := capture.StoreOptions{
		MaxRecords: cfg.MaxRecords,
		PendingTTL: cfg.PendingTTL,
	}
	if cfg.ArchiveDir != "" {
		opts.Sink = storage.NewArchive(cfg.ArchiveDir, cfg.ArchiveBufferSize, cfg.ArchiveMaxSizeMB)
	}
	store := capture.NewStore(opts)

	ic := capture.Options{
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RecordFailures: cfg.RecordFailures,
	}
	return &Inspector{
		cfg:    cfg,
		store:  store,
		hook:   hook.New(store, ic, clients...),
		window: browser.NewWindow(browser.Config{}),
	}
}

// Enabled reports whether Setup will install the hook.
func (in *Inspector) Enabled() bool {
	return buildEnabled && in.cfg.Enabled
}

// Setup installs the interception hook. It is idempotent and a no-op when
// the inspector is disabled. Hook points that could not be patched are
// returned as a joined error; the rest are still installed.
func (in *Inspector) Setup() error {
	if !in.Enabled() {
		slog.Debug("Network inspector disabled, skipping setup")
		return nil
	}
	if err := in.hook.Install(); err != nil {
		slog.Warn("Network inspector installed with skipped hook points", "error", err)
		return err
	}
	return nil
}

// Show starts the inspector API and returns the address it listens on.
// Calling Show while already shown returns the current address.
func (in *Inspector) Show(ctx context.Context) (string, error) {
	if !in.Enabled() {
		return "", ErrDisabled
	}

	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return "", &capture.CodedError{Code: capture.CodeClosed, Message: "inspector is closed"}
	}
	if in.srv != nil {
		addr := in.addr
		in.mu.Unlock()
		return addr, nil
	}

	ln, err := netutil.Listen(in.cfg.BindAddr, in.cfg.PortCandidates, in.cfg.PortAutoFallback)
	if err != nil {
		in.mu.Unlock()
		return "", fmt.Errorf("netinspector: show: %w", err)
	}

	baseCtx, baseCancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Handler:           api.NewServer(controller.NewService(in.store, Version), Version),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}
	done := make(chan struct{})
	in.srv, in.addr, in.baseCancel, in.serveDone = srv, ln.Addr().String(), baseCancel, done
	addr := in.addr
	in.mu.Unlock()

	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Inspector server failed", "addr", addr, "error", err)
		}
	}()
	slog.Info("Network inspector listening", "addr", addr, "docs", "http://"+addr+"/docs")

	if in.cfg.OpenBrowser {
		if err := in.window.Open(ctx, "http://"+addr+"/docs"); err != nil {
			slog.Warn("Inspector window failed to open", "error", err)
		}
	}
	return addr, nil
}

// Hide stops the inspector API and closes the inspector window. Capture
// continues while hidden.
func (in *Inspector) Hide(ctx context.Context) error {
	in.mu.Lock()
	srv, cancel, done := in.srv, in.baseCancel, in.serveDone
	in.srv, in.addr, in.baseCancel, in.serveDone = nil, "", nil, nil
	in.mu.Unlock()

	in.window.Close()
	if srv == nil {
		return nil
	}

	// Live feeds only end when their request context does.
	cancel()
	err := srv.Shutdown(ctx)
	<-done
	if err != nil {
		return fmt.Errorf("netinspector: hide: %w", err)
	}
	slog.Info("Network inspector stopped")
	return nil
}

// Addr returns the inspector API address, or "" when hidden.
func (in *Inspector) Addr() string {
	in.mu.Lock()
	defer in.mu.Unlock()
	return in.addr
}

// GetAllRequests returns a snapshot of every captured request in completion order.
func (in *Inspector) GetAllRequests() []CapturedRequest {
	return in.store.GetAllRequests()
}

// GetRequest returns the captured request with the given id.
func (in *Inspector) GetRequest(id string) (CapturedRequest, bool) {
	return in.store.GetRequest(id)
}

// ClearRequests drops all captured requests.
func (in *Inspector) ClearRequests() {
	in.store.ClearRequests()
}

// Subscribe returns a channel receiving each completed capture. The channel
// is closed by Unsubscribe or Close.
func (in *Inspector) Subscribe() (int64, <-chan CapturedRequest) {
	return in.store.Subscribe()
}

// Unsubscribe stops delivery to a subscriber.
func (in *Inspector) Unsubscribe(id int64) {
	in.store.Unsubscribe(id)
}

// Attach routes c through the interceptor.
func (in *Inspector) Attach(c *http.Client) error {
	return in.hook.Attach(c)
}

// Wrap returns rt with capture in front of it.
func (in *Inspector) Wrap(rt http.RoundTripper) http.RoundTripper {
	if !in.Enabled() {
		if rt == nil {
			return http.DefaultTransport
		}
		return rt
	}
	return in.hook.Wrap(rt)
}

// NewClient returns a client whose traffic is captured.
func (in *Inspector) NewClient(timeout time.Duration) *http.Client {
	if !in.Enabled() {
		return &http.Client{Timeout: timeout}
	}
	return in.hook.NewClient(timeout)
}

// Close hides the inspector, removes the hook and releases the store.
func (in *Inspector) Close() error {
	in.mu.Lock()
	if in.closed {
		in.mu.Unlock()
		return nil
	}
	in.closed = true
	in.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if err := in.Hide(ctx); err != nil {
		errs = append(errs, err)
	}
	in.hook.Uninstall()
	if err := in.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("netinspector: close store: %w", err))
	}
	return errors.Join(errs...)
}
