// Package events is a small in-process pub/sub for request lifecycle
// notifications. Sinks like the spreadsheet sync subscribe here instead
// of being called from the approval path directly.
package events

import (
	"sync"
	"time"

	"github.com/NYAHGERALD/don-miguel-vacation-manager/internal/model"
)

// Event types published by the vacation service.
const (
	TypeRequestSubmitted = "request.submitted"
	TypeRequestApproved  = "request.approved"
	TypeRequestDenied    = "request.denied"
	TypeRequestCancelled = "request.cancelled"
)

// Event carries one request state change.
type Event struct {
	Type      string
	Request   *model.VacationRequest
	OldStatus string
	At        time.Time
}

// Handler reacts to an event.
type Handler func(event Event)

// Bus provides in-process pub/sub for request events.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// SubscribeAll registers a handler for every request event type.
func (b *Bus) SubscribeAll(handler Handler) {
	for _, t := range []string{
		TypeRequestSubmitted, TypeRequestApproved,
		TypeRequestDenied, TypeRequestCancelled,
	} {
		b.Subscribe(t, handler)
	}
}

// Publish notifies subscribers of the event type. Handlers run
// synchronously; a handler that needs concurrency spawns its own.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.At.IsZero() {
		event.At = time.Now()
	}
	for _, handler := range handlers {
		handler(event)
	}
}
