package telemetry

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func syncPublisher(t *testing.T) *EventPublisher {
	t.Helper()
	ep, err := NewEventPublisher(EventsConfig{Enabled: true, BufferSize: 16}, nil)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	return ep
}

func asyncPublisher(t *testing.T, bufferSize int) *EventPublisher {
	t.Helper()
	ep, err := NewEventPublisher(EventsConfig{
		Enabled:     true,
		BufferSize:  bufferSize,
		EnableAsync: true,
	}, nil)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}
	return ep
}

func TestPublishStampsIdentityFields(t *testing.T) {
	ep := syncPublisher(t)

	var got Event
	ep.Subscribe(func(e Event) { got = e }, nil)

	if err := ep.Publish(Event{Type: EventTypeSelected, Message: "picked"}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	if got.ID == "" {
		t.Error("event ID not stamped")
	}
	if got.Timestamp.IsZero() {
		t.Error("event timestamp not stamped")
	}
	if got.Level != EventLevelInfo {
		t.Errorf("default level = %q, want info", got.Level)
	}
}

func TestDisabledPublisherDropsSilently(t *testing.T) {
	ep, err := NewEventPublisher(EventsConfig{Enabled: false}, nil)
	if err != nil {
		t.Fatalf("failed to create publisher: %v", err)
	}

	called := false
	ep.Subscribe(func(Event) { called = true }, nil)

	if err := ep.Publish(Event{Type: EventTypeSelected}); err != nil {
		t.Fatalf("publish on disabled publisher errored: %v", err)
	}
	if called {
		t.Error("disabled publisher must not deliver")
	}
}

func TestAsyncDeliveryPreservesPublishOrder(t *testing.T) {
	ep := asyncPublisher(t, 256)

	const n = 100
	var mu sync.Mutex
	var seen []string
	done := make(chan struct{})
	ep.Subscribe(func(e Event) {
		mu.Lock()
		seen = append(seen, e.Message)
		if len(seen) == n {
			close(done)
		}
		mu.Unlock()
	}, nil)

	for i := 0; i < n; i++ {
		if err := ep.Publish(Event{Type: EventTypeStateChanged, Message: fmt.Sprintf("%03d", i)}); err != nil {
			t.Fatalf("publish %d failed: %v", i, err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("events not delivered in time")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < n; i++ {
		if seen[i] != fmt.Sprintf("%03d", i) {
			t.Fatalf("position %d: got %s, events delivered out of order", i, seen[i])
		}
	}
}

func TestPublishNeverBlocksOnFullBuffer(t *testing.T) {
	// No dispatch drains this publisher fast enough: a blocking subscriber
	// pins the dispatch goroutine while the buffer fills.
	ep := asyncPublisher(t, 1)
	block := make(chan struct{})
	ep.Subscribe(func(Event) { <-block }, nil)

	var dropped int
	deadline := time.After(2 * time.Second)
	for i := 0; i < 50; i++ {
		select {
		case <-deadline:
			t.Fatal("publish blocked")
		default:
		}
		if err := ep.Publish(Event{Type: EventTypeStateChanged}); err != nil {
			dropped++
		}
	}
	if dropped == 0 {
		t.Error("expected overflow drops with a full buffer")
	}
	close(block)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ep := syncPublisher(t)

	var count int
	id := ep.Subscribe(func(Event) { count++ }, nil)

	_ = ep.Publish(Event{Type: EventTypeSelected})
	ep.Unsubscribe(id)
	_ = ep.Publish(Event{Type: EventTypeSelected})

	if count != 1 {
		t.Errorf("deliveries = %d, want 1", count)
	}

	// Unknown IDs are a no-op.
	ep.Unsubscribe(SubscriptionID(999))
}

func TestSubscriberPanicIsContained(t *testing.T) {
	ep := syncPublisher(t)

	var delivered int
	ep.Subscribe(func(Event) { panic("broken listener") }, nil)
	ep.Subscribe(func(Event) { delivered++ }, nil)

	if err := ep.Publish(Event{Type: EventTypeSelected}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	if delivered != 1 {
		t.Errorf("healthy subscriber deliveries = %d, want 1", delivered)
	}
}

func TestFilterByLevel(t *testing.T) {
	filter := FilterByLevel(EventLevelWarning)

	if filter(Event{Level: EventLevelInfo}) {
		t.Error("info should be filtered below warning")
	}
	if !filter(Event{Level: EventLevelWarning}) {
		t.Error("warning should pass")
	}
	if !filter(Event{Level: EventLevelError}) {
		t.Error("error should pass")
	}
}

func TestFilterByType(t *testing.T) {
	filter := FilterByType(EventTypeProbeStarted, EventTypeProbeCompleted)

	if !filter(Event{Type: EventTypeProbeStarted}) {
		t.Error("listed type should pass")
	}
	if filter(Event{Type: EventTypeSelected}) {
		t.Error("unlisted type should be filtered")
	}
}

func TestFilterByFamily(t *testing.T) {
	filter := FilterByFamily("vulkan")

	if !filter(Event{Family: "vulkan"}) {
		t.Error("matching family should pass")
	}
	if filter(Event{Family: "opengl"}) {
		t.Error("other family should be filtered")
	}
}

func TestSubscribeWithFilter(t *testing.T) {
	ep := syncPublisher(t)

	var warnings int
	ep.Subscribe(func(Event) { warnings++ }, FilterByLevel(EventLevelWarning))

	_ = ep.Publish(Event{Type: EventTypeProbeCompleted, Level: EventLevelInfo})
	_ = ep.Publish(Event{Type: EventTypeAttemptFailed, Level: EventLevelWarning})
	_ = ep.Publish(Event{Type: EventTypeSelectionComplete, Level: EventLevelError})

	if warnings != 2 {
		t.Errorf("filtered deliveries = %d, want 2", warnings)
	}
}

func TestShutdownDrainsBufferedEvents(t *testing.T) {
	ep := asyncPublisher(t, 64)

	var mu sync.Mutex
	var count int
	ep.Subscribe(func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	const n = 20
	for i := 0; i < n; i++ {
		if err := ep.Publish(Event{Type: EventTypeStateChanged}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := ep.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if count != n {
		t.Errorf("delivered = %d, want %d drained before shutdown", count, n)
	}
}

func TestPublishAfterShutdownErrors(t *testing.T) {
	ep := asyncPublisher(t, 4)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := ep.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown failed: %v", err)
	}

	// The buffer may still accept writes; fill it so the stopped branch is
	// observable either way.
	var failed bool
	for i := 0; i < 10; i++ {
		if err := ep.Publish(Event{Type: EventTypeStateChanged}); err != nil {
			failed = true
			break
		}
	}
	if !failed {
		t.Error("publishing past a stopped publisher should eventually error")
	}
}
