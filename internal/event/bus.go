package event

import (
	"fmt"
	"runtime/debug"
	"slices"
	"sync"

	"github.com/sustainet/sustainet/internal/logging"
)

// Handler is a function that handles an event.
type Handler func(Event)

// allEvents is the subscription type that matches every event.
const allEvents = "*"

type subscription struct {
	id        string
	eventType string
	handler   Handler
}

func (s subscription) matches(eventType string) bool {
	return s.eventType == eventType
}

// Bus is a synchronous pub-sub bus. The session publishes on it after
// releasing its lock, so handlers may read session state.
type Bus struct {
	mu     sync.RWMutex
	subs   []subscription // registration order
	nextID uint64
	logger *logging.Logger
}

// NewBus creates a new event bus. Handler panics are reported to logger;
// a nil logger discards them.
func NewBus(logger *logging.Logger) *Bus {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Bus{logger: logger}
}

// Subscribe registers handler for one event type and returns the
// subscription ID.
func (b *Bus) Subscribe(eventType string, handler Handler) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := fmt.Sprintf("sub-%d", b.nextID)
	b.subs = append(b.subs, subscription{id: id, eventType: eventType, handler: handler})
	return id
}

// SubscribeAll registers handler for every event type.
func (b *Bus) SubscribeAll(handler Handler) string {
	return b.Subscribe(allEvents, handler)
}

// Unsubscribe removes a subscription. It reports whether id was registered.
func (b *Bus) Unsubscribe(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := slices.IndexFunc(b.subs, func(s subscription) bool { return s.id == id })
	if i < 0 {
		return false
	}
	b.subs = slices.Delete(b.subs, i, i+1)
	return true
}

// Publish calls the handlers subscribed to the event's type, then the
// handlers subscribed to all events, each group in registration order.
// A panicking handler is logged and skipped.
func (b *Bus) Publish(event Event) {
	eventType := event.EventType()

	b.mu.RLock()
	targets := make([]subscription, 0, len(b.subs))
	for _, s := range b.subs {
		if s.matches(eventType) {
			targets = append(targets, s)
		}
	}
	for _, s := range b.subs {
		if s.eventType == allEvents {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	for _, s := range targets {
		b.deliver(s, event)
	}
}

func (b *Bus) deliver(s subscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked",
				"event_type", event.EventType(),
				"subscription", s.id,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()
	s.handler(event)
}

// Clear removes all subscriptions.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = nil
}

// SubscriptionCount returns the number of active subscriptions.
func (b *Bus) SubscriptionCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
