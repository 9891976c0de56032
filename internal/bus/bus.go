// Package bus provides an internal event bus for component communication
package bus

import (
	"sync"
)

// EventType identifies different event types
type EventType string

// Event types for the lip-sync engine
const (
	// Utterance lifecycle
	EventTypeUtteranceStarted  EventType = "lipsync.utterance_started"
	EventTypeUtteranceDraining EventType = "lipsync.utterance_draining"
	EventTypeUtteranceIdle     EventType = "lipsync.utterance_idle"

	// Fallback cascade
	EventTypeSourceChanged EventType = "lipsync.source_changed"

	// Host TTS timing
	EventTypeBoundary EventType = "lipsync.boundary"

	// Configuration
	EventTypeConfigReloaded EventType = "config.reloaded"
)

// AllEventTypes lists every event the engine publishes.
var AllEventTypes = []EventType{
	EventTypeUtteranceStarted,
	EventTypeUtteranceDraining,
	EventTypeUtteranceIdle,
	EventTypeSourceChanged,
	EventTypeBoundary,
	EventTypeConfigReloaded,
}

// Event represents a bus event
type Event struct {
	Type EventType      `json:"type"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles events
type Handler func(Event)

// EventBus is a simple pub/sub event bus
type EventBus struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (b *EventBus) Subscribe(eventType EventType, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[eventType] = append(b.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (b *EventBus) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		b.Subscribe(et, handler)
	}
}

func (b *EventBus) snapshot(eventType EventType) []Handler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	handlers := make([]Handler, len(b.handlers[eventType]))
	copy(handlers, b.handlers[eventType])
	return handlers
}

// Publish sends an event to all subscribed handlers without waiting.
// Handlers run on their own goroutines, so events published back to back
// may be handled in any order. A nil bus drops the event.
func (b *EventBus) Publish(event Event) {
	if b == nil {
		return
	}
	for _, handler := range b.snapshot(event.Type) {
		go handler(event)
	}
}

// PublishSync sends an event and waits for all handlers to complete.
// Successive calls from one goroutine are handled in call order.
func (b *EventBus) PublishSync(event Event) {
	if b == nil {
		return
	}
	var wg sync.WaitGroup
	for _, handler := range b.snapshot(event.Type) {
		wg.Add(1)
		go func(h Handler) {
			defer wg.Done()
			h(event)
		}(handler)
	}
	wg.Wait()
}
