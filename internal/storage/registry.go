package storage

import (
	"errors"
	"log/slog"
	"sync"
)

// WriterRegistry manages one JSONLWriter per target host. Every writer in a
// registry shares the same file name, so one process run maps to one file per
// host and day.
type WriterRegistry struct {
	baseDir    string
	name       string
	maxSizeMB  int
	bufferSize int

	writers map[string]*JSONLWriter
	closed  bool
	mu      sync.RWMutex
}

// NewWriterRegistry creates an empty registry rooted at baseDir.
func NewWriterRegistry(baseDir, name string, bufferSize, maxSizeMB int) *WriterRegistry {
	return &WriterRegistry{
		baseDir:    baseDir,
		name:       name,
		maxSizeMB:  maxSizeMB,
		bufferSize: bufferSize,
		writers:    make(map[string]*JSONLWriter),
	}
}

// Writer returns (or creates) the writer for a host segment.
func (r *WriterRegistry) Writer(hostSegment string) (*JSONLWriter, error) {
	r.mu.RLock()
	if w, ok := r.writers[hostSegment]; ok {
		r.mu.RUnlock()
		return w, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrWriterClosed
	}
	if w, ok := r.writers[hostSegment]; ok {
		return w, nil
	}

	w := NewJSONLWriter(r.baseDir, hostSegment, r.name, r.bufferSize, r.maxSizeMB)
	r.writers[hostSegment] = w
	slog.Info("Created new JSONL writer", "host", hostSegment, "name", r.name)
	return w, nil
}

// Len returns the number of open writers.
func (r *WriterRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.writers)
}

// Close closes all managed writers.
func (r *WriterRegistry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for host, w := range r.writers {
		if err := w.Close(); err != nil {
			slog.Error("Failed to close writer", "host", host, "error", err)
			errs = append(errs, err)
		}
	}
	r.writers = make(map[string]*JSONLWriter)
	r.closed = true
	return errors.Join(errs...)
}
