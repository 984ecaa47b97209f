package capture

import "testing"

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker[int]()
	id1, ch1 := b.Subscribe()
	_, ch2 := b.Subscribe()

	if b.ClientCount() != 2 {
		t.Fatalf("ClientCount() = %d; want 2", b.ClientCount())
	}

	b.Publish(7)
	if v := <-ch1; v != 7 {
		t.Fatalf("subscriber 1 got %d", v)
	}
	if v := <-ch2; v != 7 {
		t.Fatalf("subscriber 2 got %d", v)
	}

	b.Unsubscribe(id1)
	if _, ok := <-ch1; ok {
		t.Fatal("channel not closed after Unsubscribe")
	}
	b.Unsubscribe(id1)

	b.Close()
	if _, ok := <-ch2; ok {
		t.Fatal("channel not closed after Close")
	}
	if b.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d; want 0", b.ClientCount())
	}
}

func TestBrokerDropsForSlowSubscribers(t *testing.T) {
	b := NewBroker[int]()
	_, ch := b.Subscribe()

	for i := 0; i < subscriberBufSize+10; i++ {
		b.Publish(i)
	}
	if len(ch) != subscriberBufSize {
		t.Fatalf("buffered = %d; want %d", len(ch), subscriberBufSize)
	}
}
