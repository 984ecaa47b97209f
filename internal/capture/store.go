package capture

import (
	"log/slog"
	"sync"
	"time"

	"github.com/dgnsrekt/netinspector/internal/types"
)

const defaultPendingTTL = 5 * time.Minute

// Sink receives every record appended to a Store. Implementations must not
// block; the store calls Write while holding its lock.
type Sink interface {
	Write(rec types.CapturedRequest) error
	Close() error
}

// StoreOptions tunes a Store. The zero value is an unbounded store with the
// default stale bookkeeping TTL and no sink.
type StoreOptions struct {
	// MaxRecords evicts the oldest records once exceeded. Zero keeps everything.
	MaxRecords int
	// PendingTTL bounds how long a start-time entry may wait for its record.
	PendingTTL time.Duration
	Sink       Sink
}

// Store is the in-memory buffer of completed captures.
type Store struct {
	maxRecords int
	pendingTTL time.Duration
	sink       Sink

	mu         sync.RWMutex
	requests   []types.CapturedRequest
	startTimes map[string]time.Time

	broker *Broker[types.CapturedRequest]

	now       func() time.Time
	done      chan struct{}
	closeOnce sync.Once
}

// NewStore creates a Store and starts its stale bookkeeping sweeper.
func NewStore(opts StoreOptions) *Store {
	return newStore(opts, time.Now)
}

func newStore(opts StoreOptions, now func() time.Time) *Store {
	ttl := opts.PendingTTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	s := &Store{
		maxRecords: opts.MaxRecords,
		pendingTTL: ttl,
		sink:       opts.Sink,
		startTimes: make(map[string]time.Time),
		broker:     NewBroker[types.CapturedRequest](),
		now:        now,
		done:       make(chan struct{}),
	}
	go s.cleanupLoop()
	return s
}

// StartRequest records the current instant for id and returns it.
func (s *Store) StartRequest(id string) time.Time {
	now := s.now()
	s.mu.Lock()
	s.startTimes[id] = now
	s.mu.Unlock()
	return now
}

// AbandonRequest forgets the start time of a request that will never produce a record.
func (s *Store) AbandonRequest(id string) {
	s.mu.Lock()
	delete(s.startTimes, id)
	s.mu.Unlock()
}

// AddRequest appends rec and notifies subscribers.
func (s *Store) AddRequest(rec types.CapturedRequest) {
	rec = rec.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.startTimes, rec.ID)
	s.requests = append(s.requests, rec)
	if s.maxRecords > 0 && len(s.requests) > s.maxRecords {
		evict := len(s.requests) - s.maxRecords
		s.requests = append([]types.CapturedRequest(nil), s.requests[evict:]...)
	}

	// Published under the lock so subscribers see records in append order.
	s.broker.Publish(rec.Clone())
	if s.sink != nil {
		if err := s.sink.Write(rec.Clone()); err != nil {
			slog.Warn("Capture sink write failed", "request_id", rec.ID, "error", err)
		}
	}
}

// GetAllRequests returns a snapshot of all records in insertion order.
func (s *Store) GetAllRequests() []types.CapturedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]types.CapturedRequest, len(s.requests))
	for i, rec := range s.requests {
		out[i] = rec.Clone()
	}
	return out
}

// GetRequest returns the record with the given id.
func (s *Store) GetRequest(id string) (types.CapturedRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].ID == id {
			return s.requests[i].Clone(), true
		}
	}
	return types.CapturedRequest{}, false
}

// ClearRequests drops all records and start-time bookkeeping. No event is
// published; observers are expected to refetch.
func (s *Store) ClearRequests() {
	s.mu.Lock()
	s.requests = nil
	s.startTimes = make(map[string]time.Time)
	s.mu.Unlock()
}

// Count returns the number of stored records.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.requests)
}

// PendingCount returns the number of in-flight start-time entries.
func (s *Store) PendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.startTimes)
}

// Subscribe registers for one event per appended record.
func (s *Store) Subscribe() (int64, <-chan types.CapturedRequest) {
	return s.broker.Subscribe()
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(id int64) {
	s.broker.Unsubscribe(id)
}

// SubscriberCount returns the number of active subscribers.
func (s *Store) SubscriberCount() int {
	return s.broker.ClientCount()
}

// Close stops the sweeper, closes subscriber channels and the sink.
func (s *Store) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		s.broker.Close()
		if s.sink != nil {
			err = s.sink.Close()
		}
	})
	return err
}

func (s *Store) cleanupLoop() {
	interval := s.pendingTTL / 5
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupStale()
		case <-s.done:
			return
		}
	}
}

func (s *Store) cleanupStale() {
	threshold := s.now().Add(-s.pendingTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, started := range s.startTimes {
		if started.Before(threshold) {
			delete(s.startTimes, id)
			slog.Debug("Dropped stale pending capture", "request_id", id, "started", started)
		}
	}
}
