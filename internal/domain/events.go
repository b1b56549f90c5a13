package domain

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// -----------------------------------------------------------------------------
// Event Interface and Base Event
// -----------------------------------------------------------------------------

// Event represents a domain event
type Event interface {
	// EventID returns the unique identifier for this event
	EventID() uuid.UUID
	// EventType returns the type name of this event
	EventType() string
	// OccurredAt returns when this event occurred
	OccurredAt() time.Time
	// AggregateID returns the ID of the aggregate that produced this event
	AggregateID() uuid.UUID
	// AggregateType returns the type of aggregate that produced this event
	AggregateType() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateUUID uuid.UUID `json:"aggregate_id"`
	AggregateName string    `json:"aggregate_type"`
}

// NewBaseEvent creates a new BaseEvent
func NewBaseEvent(eventType, aggregateType string, aggregateID uuid.UUID) BaseEvent {
	return BaseEvent{
		ID:            uuid.New(),
		Type:          eventType,
		Timestamp:     time.Now(),
		AggregateUUID: aggregateID,
		AggregateName: aggregateType,
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.ID }
func (e BaseEvent) EventType() string      { return e.Type }
func (e BaseEvent) OccurredAt() time.Time  { return e.Timestamp }
func (e BaseEvent) AggregateID() uuid.UUID { return e.AggregateUUID }
func (e BaseEvent) AggregateType() string  { return e.AggregateName }

// -----------------------------------------------------------------------------
// Event Handler and Dispatcher
// -----------------------------------------------------------------------------

// EventHandler processes domain events
type EventHandler func(event Event)

// EventDispatcher manages event subscriptions and publishing
type EventDispatcher struct {
	mu          sync.RWMutex
	handlers    map[string][]EventHandler
	allHandlers []EventHandler // handlers for all events
}

// NewEventDispatcher creates a new event dispatcher
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{
		handlers: make(map[string][]EventHandler),
	}
}

// Subscribe registers a handler for a specific event type
func (d *EventDispatcher) Subscribe(eventType string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventType] = append(d.handlers[eventType], handler)
}

// SubscribeAll registers a handler for all event types
func (d *EventDispatcher) SubscribeAll(handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.allHandlers = append(d.allHandlers, handler)
}

// Publish dispatches an event to all registered handlers
func (d *EventDispatcher) Publish(event Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if handlers, ok := d.handlers[event.EventType()]; ok {
		for _, h := range handlers {
			h(event)
		}
	}

	for _, h := range d.allHandlers {
		h(event)
	}
}

// PublishAll dispatches multiple events
func (d *EventDispatcher) PublishAll(events []Event) {
	for _, event := range events {
		d.Publish(event)
	}
}

// -----------------------------------------------------------------------------
// Content Events
// -----------------------------------------------------------------------------

// Event type names
const (
	EventContentValidated = "content.validated"
	EventLeveledUp        = "profile.leveled_up"
)

// ValidationAction names a transition of the validation workflow
type ValidationAction string

const (
	ActionApprove ValidationAction = "approve"
	ActionUpdate  ValidationAction = "update"
	ActionReject  ValidationAction = "reject"
	ActionMerge   ValidationAction = "merge"
	ActionDelete  ValidationAction = "delete"
)

// ContentValidatedEvent is published after an admin transition commits
type ContentValidatedEvent struct {
	BaseEvent
	EntityType EntityType       `json:"entity_type"`
	Action     ValidationAction `json:"action"`
	ActorID    uuid.UUID        `json:"actor_id"`
	AuthorID   *uuid.UUID       `json:"author_id,omitempty"`
	Name       string           `json:"name,omitempty"`
	Reason     string           `json:"reason,omitempty"`
	TargetID   *uuid.UUID       `json:"target_id,omitempty"`
	DraftMerge bool             `json:"draft_merge,omitempty"`
}

// NewContentValidatedEvent creates a new content validated event
func NewContentValidatedEvent(t EntityType, id uuid.UUID, action ValidationAction, actorID uuid.UUID) ContentValidatedEvent {
	return ContentValidatedEvent{
		BaseEvent:  NewBaseEvent(EventContentValidated, string(t), id),
		EntityType: t,
		Action:     action,
		ActorID:    actorID,
	}
}

// -----------------------------------------------------------------------------
// Profile Events
// -----------------------------------------------------------------------------

// LeveledUpEvent is published once per XP update that raises the level,
// carrying the highest level reached.
type LeveledUpEvent struct {
	BaseEvent
	PreviousLevel int `json:"previous_level"`
	Level         int `json:"level"`
	TotalXP       int `json:"total_xp"`
}

// NewLeveledUpEvent creates a new level up event
func NewLeveledUpEvent(userID uuid.UUID, previousLevel, level, totalXP int) LeveledUpEvent {
	return LeveledUpEvent{
		BaseEvent:     NewBaseEvent(EventLeveledUp, "Profile", userID),
		PreviousLevel: previousLevel,
		Level:         level,
		TotalXP:       totalXP,
	}
}

// DecodeEvent restores a typed event from its JSON form
func DecodeEvent(data []byte) (Event, error) {
	var base BaseEvent
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	switch base.Type {
	case EventContentValidated:
		var e ContentValidatedEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", base.Type, err)
		}
		return e, nil
	case EventLeveledUp:
		var e LeveledUpEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("decode %s: %w", base.Type, err)
		}
		return e, nil
	default:
		return base, nil
	}
}
