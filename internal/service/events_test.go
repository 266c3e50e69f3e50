package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"daf/internal/annotator"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 1)
	bus.Subscribe(ch)

	bus.Publish(Event{Type: EventRunStarted})
	bus.Publish(Event{Type: EventRunFinished})

	assert.Equal(t, EventRunStarted, (<-ch).Type)
	assert.Len(t, ch, 0, "full subscribers are skipped")

	var nilBus *EventBus
	assert.NotPanics(t, func() { nilBus.Publish(Event{Type: EventRunStarted}) })
}

func TestAnnotatorHandler(t *testing.T) {
	bus := NewEventBus()
	ch := make(chan Event, 4)
	bus.Subscribe(ch)
	handler := bus.annotatorHandler()

	handler(annotator.EventStarted, map[string]interface{}{"annotator": "mac_annotator"})
	handler(annotator.EventFailed, nil)
	handler("custom", nil)

	assert.Equal(t, EventAnnotatorStarted, (<-ch).Type)
	assert.Equal(t, EventAnnotatorFailed, (<-ch).Type)
	assert.Equal(t, EventType("custom"), (<-ch).Type)
}
