// Package hook installs capture interceptors into the process's HTTP client
// stack.
package hook

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/dgnsrekt/netinspector/internal/capture"
)

const maxChainDepth = 64

var (
	// ErrNilClient is reported when a nil *http.Client is registered.
	ErrNilClient = errors.New("hook: nil http client")
	// ErrNoDefaultTransport is reported when http.DefaultTransport is nil.
	ErrNoDefaultTransport = errors.New("hook: http.DefaultTransport is nil")
)

// Hook owns the interceptors placed into transport chains for one store.
type Hook struct {
	store *capture.Store
	opts  capture.Options

	mu          sync.Mutex
	installed   bool
	prevDefault http.RoundTripper
	clients     []*http.Client
	wrapped     map[*http.Client]*wrappedClient
}

type wrappedClient struct {
	ic   *capture.Interceptor
	prev http.RoundTripper
}

// New returns a Hook that records into store. Clients listed in clients are
// attached when Install runs.
func New(store *capture.Store, opts capture.Options, clients ...*http.Client) *Hook {
	h := &Hook{
		store:   store,
		opts:    opts,
		wrapped: make(map[*http.Client]*wrappedClient),
	}
	h.clients = append(h.clients, clients...)
	return h
}

// Install wraps http.DefaultTransport and every registered client. Only the
// first call mutates anything; later calls return nil. Hook points that
// cannot be patched are skipped and reported in the joined error.
func (h *Hook) Install() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.installed {
		return nil
	}
	h.installed = true

	var errs []error
	switch {
	case http.DefaultTransport == nil:
		errs = append(errs, ErrNoDefaultTransport)
	case Contains(http.DefaultTransport):
		slog.Debug("Default transport already intercepted")
	default:
		h.prevDefault = http.DefaultTransport
		http.DefaultTransport = capture.NewInterceptor(h.prevDefault, h.store, h.opts)
	}

	for _, c := range h.clients {
		if err := h.attachLocked(c); err != nil {
			errs = append(errs, err)
		}
	}

	slog.Info("Capture hook installed", "clients", len(h.wrapped), "skipped", len(errs))
	return errors.Join(errs...)
}

// Uninstall restores http.DefaultTransport and unwraps attached clients whose
// transport has not been replaced since.
func (h *Hook) Uninstall() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.installed {
		return
	}
	h.installed = false

	if h.prevDefault != nil {
		if ic, ok := http.DefaultTransport.(*capture.Interceptor); ok && ic.Unwrap() == h.prevDefault {
			http.DefaultTransport = h.prevDefault
		}
		h.prevDefault = nil
	}

	for c, w := range h.wrapped {
		if c.Transport == w.ic {
			c.Transport = w.prev
		}
		delete(h.wrapped, c)
	}
	slog.Info("Capture hook removed")
}

// Installed reports whether Install has run without a matching Uninstall.
func (h *Hook) Installed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.installed
}

// Attach registers c. Once installed the interceptor is prepended to c's
// transport chain immediately, otherwise on Install.
func (h *Hook) Attach(c *http.Client) error {
	if c == nil {
		return ErrNilClient
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, known := range h.clients {
		if known == c {
			if h.installed {
				return h.attachLocked(c)
			}
			return nil
		}
	}
	h.clients = append(h.clients, c)
	if !h.installed {
		return nil
	}
	return h.attachLocked(c)
}

func (h *Hook) attachLocked(c *http.Client) error {
	if c == nil {
		return ErrNilClient
	}
	if _, done := h.wrapped[c]; done {
		return nil
	}
	// A nil transport resolves to http.DefaultTransport at request time.
	if c.Transport == nil || Contains(c.Transport) {
		return nil
	}
	ic := capture.NewInterceptor(c.Transport, h.store, h.opts)
	h.wrapped[c] = &wrappedClient{ic: ic, prev: c.Transport}
	c.Transport = ic
	return nil
}

// Wrap returns rt with an interceptor in front of it. A chain that already
// holds an interceptor is returned unchanged. A nil rt wraps the default
// transport present at call time.
func (h *Hook) Wrap(rt http.RoundTripper) http.RoundTripper {
	if rt == nil {
		rt = http.DefaultTransport
	}
	if Contains(rt) {
		return rt
	}
	return capture.NewInterceptor(rt, h.store, h.opts)
}

// NewClient returns a client whose transport records into the hook's store.
func (h *Hook) NewClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Transport: h.Wrap(http.DefaultTransport),
		Timeout:   timeout,
	}
}

// Contains reports whether an interceptor appears anywhere in the chain
// starting at rt. Chains are followed through Unwrap() http.RoundTripper.
func Contains(rt http.RoundTripper) bool {
	for depth := 0; rt != nil && depth < maxChainDepth; depth++ {
		if _, ok := rt.(*capture.Interceptor); ok {
			return true
		}
		u, ok := rt.(interface{ Unwrap() http.RoundTripper })
		if !ok {
			return false
		}
		rt = u.Unwrap()
	}
	return false
}
