package service

import (
	"sync"

	"daf/internal/annotator"
)

// EventType defines the type of event
type EventType string

const (
	EventRunStarted        EventType = "run_started"
	EventSnapshotLoaded    EventType = "snapshot_loaded"
	EventPartitioned       EventType = "partitioned"
	EventAnnotatorStarted  EventType = "annotator_started"
	EventAnnotatorFinished EventType = "annotator_finished"
	EventAnnotatorFailed   EventType = "annotator_failed"
	EventSnapshotSaved     EventType = "snapshot_saved"
	EventRunFinished       EventType = "run_finished"
)

// Event represents an event that occurred during a run
type Event struct {
	Type    EventType   `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// EventBus allows publishing and subscribing to events
type EventBus struct {
	mu          sync.RWMutex
	subscribers []chan<- Event
}

// NewEventBus creates a new event bus
func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make([]chan<- Event, 0),
	}
}

// Subscribe adds a subscriber to receive events
func (eb *EventBus) Subscribe(ch chan<- Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()
	eb.subscribers = append(eb.subscribers, ch)
}

// Publish sends an event to all subscribers
func (eb *EventBus) Publish(event Event) {
	if eb == nil {
		return
	}
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Subscriber is slow, skip
		}
	}
}

// annotatorEvents maps registry lifecycle events onto bus event types
var annotatorEvents = map[string]EventType{
	annotator.EventStarted:  EventAnnotatorStarted,
	annotator.EventFinished: EventAnnotatorFinished,
	annotator.EventFailed:   EventAnnotatorFailed,
}

// annotatorHandler forwards registry events to the bus
func (eb *EventBus) annotatorHandler() annotator.EventFunc {
	return func(eventType string, payload interface{}) {
		t, ok := annotatorEvents[eventType]
		if !ok {
			t = EventType(eventType)
		}
		eb.Publish(Event{Type: t, Payload: payload})
	}
}
