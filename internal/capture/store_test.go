package capture

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dgnsrekt/netinspector/internal/types"
)

type recordingSink struct {
	mu      sync.Mutex
	records []types.CapturedRequest
	err     error
	closed  bool
}

func (s *recordingSink) Write(rec types.CapturedRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return s.err
}

func (s *recordingSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestStoreAppendAndSnapshot(t *testing.T) {
	store := newTestStore(t)

	store.AddRequest(types.CapturedRequest{ID: "a", StatusCode: 200})
	store.AddRequest(types.CapturedRequest{ID: "b", StatusCode: 500})

	got := store.GetAllRequests()
	if len(got) != 2 || got[0].ID != "a" || got[1].ID != "b" {
		t.Fatalf("GetAllRequests() = %+v; want a then b", got)
	}

	got[0].ID = "mutated"
	if again := store.GetAllRequests(); again[0].ID != "a" {
		t.Fatalf("snapshot mutation leaked into store: %+v", again)
	}

	rec, ok := store.GetRequest("b")
	if !ok || rec.StatusCode != 500 {
		t.Fatalf("GetRequest(b) = %+v, %v", rec, ok)
	}
	if _, ok := store.GetRequest("missing"); ok {
		t.Fatal("GetRequest(missing) ok = true")
	}
}

func TestStoreClearRequests(t *testing.T) {
	store := newTestStore(t)
	for i := 0; i < 5; i++ {
		store.AddRequest(types.CapturedRequest{ID: fmt.Sprint(i)})
	}
	store.StartRequest("in-flight")

	store.ClearRequests()

	if got := store.GetAllRequests(); len(got) != 0 {
		t.Fatalf("GetAllRequests() after clear = %d records; want 0", len(got))
	}
	if store.PendingCount() != 0 {
		t.Fatalf("PendingCount() after clear = %d; want 0", store.PendingCount())
	}
}

func TestStoreBookkeepingLifecycle(t *testing.T) {
	store := newTestStore(t)

	started := store.StartRequest("req-1")
	if started.IsZero() {
		t.Fatal("StartRequest() returned zero time")
	}
	if store.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d; want 1", store.PendingCount())
	}

	store.AddRequest(types.CapturedRequest{ID: "req-1"})
	if store.PendingCount() != 0 {
		t.Fatalf("PendingCount() after AddRequest = %d; want 0", store.PendingCount())
	}

	store.StartRequest("req-2")
	store.AbandonRequest("req-2")
	if store.PendingCount() != 0 {
		t.Fatalf("PendingCount() after AbandonRequest = %d; want 0", store.PendingCount())
	}
}

func TestStoreCleanupStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	store := newStore(StoreOptions{PendingTTL: time.Minute}, clock)
	t.Cleanup(func() { _ = store.Close() })

	store.StartRequest("old")
	mu.Lock()
	now = now.Add(2 * time.Minute)
	mu.Unlock()
	store.StartRequest("fresh")

	store.cleanupStale()

	if store.PendingCount() != 1 {
		t.Fatalf("PendingCount() = %d; want 1", store.PendingCount())
	}
}

func TestStorePublishesToSubscribers(t *testing.T) {
	store := newTestStore(t)
	id, ch := store.Subscribe()
	defer store.Unsubscribe(id)

	store.AddRequest(types.CapturedRequest{ID: "evt", StatusCode: 201})

	select {
	case rec := <-ch:
		if rec.ID != "evt" || rec.StatusCode != 201 {
			t.Fatalf("event = %+v", rec)
		}
	case <-time.After(time.Second):
		t.Fatal("no event received")
	}

	store.ClearRequests()
	select {
	case rec := <-ch:
		t.Fatalf("unexpected event after clear: %+v", rec)
	default:
	}
}

func TestStoreMaxRecordsEvictsOldest(t *testing.T) {
	store := NewStore(StoreOptions{MaxRecords: 3})
	t.Cleanup(func() { _ = store.Close() })

	for i := 0; i < 5; i++ {
		store.AddRequest(types.CapturedRequest{ID: fmt.Sprint(i)})
	}

	got := store.GetAllRequests()
	if len(got) != 3 || got[0].ID != "2" || got[2].ID != "4" {
		t.Fatalf("GetAllRequests() = %+v; want ids 2..4", got)
	}
}

func TestStoreSinkReceivesRecords(t *testing.T) {
	sink := &recordingSink{err: errors.New("buffer full")}
	store := NewStore(StoreOptions{Sink: sink})

	store.AddRequest(types.CapturedRequest{ID: "x"})
	if store.Count() != 1 {
		t.Fatalf("Count() = %d; sink errors must not drop records", store.Count())
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	if len(sink.records) != 1 || !sink.closed {
		t.Fatalf("sink = %+v; want one record and closed", sink)
	}
}

func TestStoreConcurrentAppends(t *testing.T) {
	const n = 50
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("req-%d", i)
			store.StartRequest(id)
			store.AddRequest(types.CapturedRequest{ID: id})
			_ = store.GetAllRequests()
		}(i)
	}
	wg.Wait()

	got := store.GetAllRequests()
	if len(got) != n {
		t.Fatalf("len = %d; want %d", len(got), n)
	}
	seen := make(map[string]bool, n)
	for _, rec := range got {
		if seen[rec.ID] {
			t.Fatalf("duplicate record %s", rec.ID)
		}
		seen[rec.ID] = true
	}
	if store.PendingCount() != 0 {
		t.Fatalf("PendingCount() = %d; want 0", store.PendingCount())
	}
}
