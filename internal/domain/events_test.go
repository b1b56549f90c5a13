package domain

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBaseEvent(t *testing.T) {
	aggregateID := uuid.New()
	event := NewBaseEvent("test.created", "TestAggregate", aggregateID)

	t.Run("EventID is unique", func(t *testing.T) {
		if event.EventID() == uuid.Nil {
			t.Error("EventID() should not be nil")
		}
	})

	t.Run("EventType", func(t *testing.T) {
		if event.EventType() != "test.created" {
			t.Errorf("EventType() = %q, want test.created", event.EventType())
		}
	})

	t.Run("OccurredAt is set", func(t *testing.T) {
		if event.OccurredAt().IsZero() {
			t.Error("OccurredAt() should not be zero")
		}
		if event.OccurredAt().After(time.Now()) {
			t.Error("OccurredAt() should not be in the future")
		}
	})

	t.Run("AggregateID", func(t *testing.T) {
		if event.AggregateID() != aggregateID {
			t.Errorf("AggregateID() = %v, want %v", event.AggregateID(), aggregateID)
		}
	})

	t.Run("AggregateType", func(t *testing.T) {
		if event.AggregateType() != "TestAggregate" {
			t.Errorf("AggregateType() = %q, want TestAggregate", event.AggregateType())
		}
	})
}

func TestEventDispatcher(t *testing.T) {
	t.Run("Subscribe and Publish", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		var received Event

		dispatcher.Subscribe("test.event", func(e Event) {
			received = e
		})

		event := NewBaseEvent("test.event", "Test", uuid.New())
		dispatcher.Publish(event)

		if received == nil {
			t.Fatal("Event handler was not called")
		}
		if received.EventType() != "test.event" {
			t.Errorf("Received event type = %q, want test.event", received.EventType())
		}
	})

	t.Run("Multiple handlers for same event type", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		callCount := 0
		mu := sync.Mutex{}

		for i := 0; i < 3; i++ {
			dispatcher.Subscribe("test.event", func(e Event) {
				mu.Lock()
				callCount++
				mu.Unlock()
			})
		}

		event := NewBaseEvent("test.event", "Test", uuid.New())
		dispatcher.Publish(event)

		if callCount != 3 {
			t.Errorf("Handler call count = %d, want 3", callCount)
		}
	})

	t.Run("SubscribeAll receives all events", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		var receivedEvents []Event
		mu := sync.Mutex{}

		dispatcher.SubscribeAll(func(e Event) {
			mu.Lock()
			receivedEvents = append(receivedEvents, e)
			mu.Unlock()
		})

		event1 := NewBaseEvent("event.type1", "Test", uuid.New())
		event2 := NewBaseEvent("event.type2", "Test", uuid.New())
		dispatcher.Publish(event1)
		dispatcher.Publish(event2)

		if len(receivedEvents) != 2 {
			t.Errorf("Received events count = %d, want 2", len(receivedEvents))
		}
	})

	t.Run("PublishAll dispatches multiple events", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		callCount := 0
		mu := sync.Mutex{}

		dispatcher.SubscribeAll(func(e Event) {
			mu.Lock()
			callCount++
			mu.Unlock()
		})

		events := []Event{
			NewBaseEvent("event.1", "Test", uuid.New()),
			NewBaseEvent("event.2", "Test", uuid.New()),
			NewBaseEvent("event.3", "Test", uuid.New()),
		}
		dispatcher.PublishAll(events)

		if callCount != 3 {
			t.Errorf("Handler call count = %d, want 3", callCount)
		}
	})

	t.Run("Unsubscribed events are ignored", func(t *testing.T) {
		dispatcher := NewEventDispatcher()
		called := false

		dispatcher.Subscribe("other.event", func(e Event) {
			called = true
		})

		event := NewBaseEvent("test.event", "Test", uuid.New())
		dispatcher.Publish(event)

		if called {
			t.Error("Handler should not be called for unsubscribed event type")
		}
	})
}

func TestContentValidatedEvent(t *testing.T) {
	id := uuid.New()
	actor := uuid.New()
	event := NewContentValidatedEvent(EntityQuest, id, ActionReject, actor)
	event.Reason = "low quality"

	if event.EventType() != EventContentValidated {
		t.Errorf("EventType() = %q, want %q", event.EventType(), EventContentValidated)
	}
	if event.AggregateID() != id {
		t.Errorf("AggregateID() = %v, want %v", event.AggregateID(), id)
	}
	if event.AggregateType() != "quests" {
		t.Errorf("AggregateType() = %q, want quests", event.AggregateType())
	}
	if event.ActorID != actor {
		t.Errorf("ActorID = %v, want %v", event.ActorID, actor)
	}
}

func TestDecodeEvent(t *testing.T) {
	t.Run("content validated round trip", func(t *testing.T) {
		author := uuid.New()
		original := NewContentValidatedEvent(EntityQuest, uuid.New(), ActionApprove, uuid.New())
		original.AuthorID = &author
		original.Name = "Intro to Go"

		data, err := json.Marshal(original)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}

		decoded, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent() error = %v", err)
		}
		got, ok := decoded.(ContentValidatedEvent)
		if !ok {
			t.Fatalf("DecodeEvent() type = %T, want ContentValidatedEvent", decoded)
		}
		if got.Action != ActionApprove {
			t.Errorf("Action = %q, want approve", got.Action)
		}
		if got.AuthorID == nil || *got.AuthorID != author {
			t.Errorf("AuthorID = %v, want %v", got.AuthorID, author)
		}
		if got.Name != "Intro to Go" {
			t.Errorf("Name = %q, want Intro to Go", got.Name)
		}
	})

	t.Run("level up", func(t *testing.T) {
		data, _ := json.Marshal(NewLeveledUpEvent(uuid.New(), 1, 4, 3200))

		decoded, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent() error = %v", err)
		}
		got, ok := decoded.(LeveledUpEvent)
		if !ok {
			t.Fatalf("DecodeEvent() type = %T, want LeveledUpEvent", decoded)
		}
		if got.Level != 4 || got.PreviousLevel != 1 {
			t.Errorf("levels = %d -> %d, want 1 -> 4", got.PreviousLevel, got.Level)
		}
	})

	t.Run("unknown type falls back to base event", func(t *testing.T) {
		data, _ := json.Marshal(NewBaseEvent("something.else", "Test", uuid.New()))

		decoded, err := DecodeEvent(data)
		if err != nil {
			t.Fatalf("DecodeEvent() error = %v", err)
		}
		if decoded.EventType() != "something.else" {
			t.Errorf("EventType() = %q, want something.else", decoded.EventType())
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		if _, err := DecodeEvent([]byte("{")); err == nil {
			t.Error("DecodeEvent() expected error for invalid json")
		}
	})
}
