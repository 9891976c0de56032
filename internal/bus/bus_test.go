package bus

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEventBus_PublishSync(t *testing.T) {
	b := NewEventBus()
	var calls int32
	b.SubscribeMultiple([]EventType{EventTypeUtteranceStarted, EventTypeUtteranceIdle}, func(e Event) {
		atomic.AddInt32(&calls, 1)
	})

	b.PublishSync(Event{Type: EventTypeUtteranceStarted})
	b.PublishSync(Event{Type: EventTypeUtteranceIdle})
	b.PublishSync(Event{Type: EventTypeBoundary})

	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEventBus_PublishAsync(t *testing.T) {
	b := NewEventBus()
	var wg sync.WaitGroup
	wg.Add(1)
	var got Event
	b.Subscribe(EventTypeSourceChanged, func(e Event) {
		got = e
		wg.Done()
	})

	b.Publish(Event{Type: EventTypeSourceChanged, Data: map[string]any{"to": "idle"}})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handler was not called")
	}
	assert.Equal(t, "idle", got.Data["to"])
}

func TestEventBus_PublishSyncKeepsOrder(t *testing.T) {
	b := NewEventBus()
	var got []EventType
	b.SubscribeMultiple(AllEventTypes, func(e Event) { got = append(got, e.Type) })

	want := []EventType{EventTypeSourceChanged, EventTypeUtteranceDraining, EventTypeUtteranceIdle}
	for _, et := range want {
		b.PublishSync(Event{Type: et})
	}

	assert.Equal(t, want, got)
}

func TestEventBus_Nil(t *testing.T) {
	var nilBus *EventBus
	assert.NotPanics(t, func() {
		nilBus.Publish(Event{Type: EventTypeBoundary})
		nilBus.PublishSync(Event{Type: EventTypeBoundary})
	})
}
