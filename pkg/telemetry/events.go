package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one entry in the ordered lifecycle event stream. The Type tag
// discriminates the variant; every variant shares the ID and Timestamp
// fields. Consumers switch exhaustively on Type.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Type is the event kind.
	Type EventType `json:"type"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// RunID is the selection run this event belongs to, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Family is the backend family concerned, if applicable.
	Family string `json:"family,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType tags for every lifecycle event kind.
type EventType string

const (
	EventTypeSelectionStarting EventType = "selection.starting"
	EventTypeProbeStarted      EventType = "probe.started"
	EventTypeProbeCompleted    EventType = "probe.completed"
	EventTypeAllProbesComplete EventType = "probe.all_completed"
	EventTypeSelected          EventType = "selection.selected"
	EventTypeInitAttempt       EventType = "init.attempt"
	EventTypeInitialized       EventType = "init.succeeded"
	EventTypeAttemptFailed     EventType = "init.attempt_failed"
	EventTypeFallback          EventType = "init.fallback"
	EventTypeSelectionComplete EventType = "selection.complete"
	EventTypeHotReloadStarted  EventType = "hotreload.started"
	EventTypeHotReloadComplete EventType = "hotreload.completed"
	EventTypeShutdownStarted   EventType = "shutdown.started"
	EventTypeShutdownComplete  EventType = "shutdown.completed"
	EventTypeStateChanged      EventType = "state.changed"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events. Subscribers run on the
// publisher's dispatch goroutine; a panicking subscriber is caught and
// logged, never propagated into the lifecycle operation that emitted the
// event.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be delivered to a subscriber.
type EventFilter func(event Event) bool

// SubscriptionID identifies one subscription for later removal.
type SubscriptionID int

// EventPublisher manages the ordered lifecycle event stream and its
// subscriptions. Events are delivered in publish order; with async delivery
// enabled a single dispatch goroutine drains the buffer so a slow listener
// never blocks the lifecycle controller.
type EventPublisher struct {
	config EventsConfig
	log    *Logger
	buffer chan Event

	mu          sync.RWMutex
	subscribers map[SubscriptionID]subscriberEntry
	nextID      SubscriptionID

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given
// configuration. log may be nil.
func NewEventPublisher(cfg EventsConfig, log *Logger) (*EventPublisher, error) {
	if log == nil {
		log = FromContext(context.Background())
	}
	if !cfg.Enabled {
		return &EventPublisher{config: cfg, log: log, subscribers: make(map[SubscriptionID]subscriberEntry)}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		log:         log,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make(map[SubscriptionID]subscriberEntry),
		ctx:         ctx,
		cancel:      cancel,
	}

	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.dispatch()
	}

	return ep, nil
}

// Publish appends an event to the stream. It never blocks: when the async
// buffer is full the event is dropped and counted as an error return.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Level == "" {
		event.Level = EventLevelInfo
	}

	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			return fmt.Errorf("event buffer full, event %s dropped", event.Type)
		}
	}

	ep.deliverEvent(event)
	return nil
}

// Subscribe adds a new event subscriber and returns its subscription ID.
// filter may be nil to receive every event.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) SubscriptionID {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	id := ep.nextID
	ep.nextID++
	ep.subscribers[id] = subscriberEntry{subscriber: subscriber, filter: filter}
	return id
}

// Unsubscribe removes a subscription. Unknown IDs are a no-op.
func (ep *EventPublisher) Unsubscribe(id SubscriptionID) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	delete(ep.subscribers, id)
}

// dispatch drains the buffer in order on a single goroutine.
func (ep *EventPublisher) dispatch() {
	defer ep.wg.Done()

	for {
		select {
		case event := <-ep.buffer:
			ep.deliverEvent(event)
		case <-ep.ctx.Done():
			// Drain what is already buffered before shutting down.
			for {
				select {
				case event := <-ep.buffer:
					ep.deliverEvent(event)
				default:
					return
				}
			}
		}
	}
}

// deliverEvent delivers an event to all subscribers, catching panics so a
// broken listener cannot disturb the stream.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	entries := make([]subscriberEntry, 0, len(ep.subscribers))
	for _, entry := range ep.subscribers {
		entries = append(entries, entry)
	}
	ep.mu.RUnlock()

	for _, entry := range entries {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		ep.callSubscriber(entry.subscriber, event)
	}
}

func (ep *EventPublisher) callSubscriber(sub EventSubscriber, event Event) {
	defer func() {
		if rec := recover(); rec != nil {
			ep.log.Warnf("event subscriber panicked on %s: %v", event.Type, rec)
		}
	}()
	sub(event)
}

// Shutdown stops the dispatch goroutine, draining buffered events first.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled || ep.cancel == nil {
		return nil
	}

	ep.cancel()

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level
// or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}
	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...EventType) EventFilter {
	typeSet := make(map[EventType]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByFamily creates a filter that only allows events for a specific
// backend family.
func FilterByFamily(family string) EventFilter {
	return func(event Event) bool {
		return event.Family == family
	}
}
