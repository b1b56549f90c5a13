package validation

import (
	"context"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// Expect is the prior state a transition was decided on. Stores apply a
// transition only while the record is still in this state and return
// domain.ErrConflict otherwise.
type Expect struct {
	Status      domain.Status
	IsValidated bool
	HasDraft    bool
}

// ExpectOf captures the current state of e
func ExpectOf(e *domain.Entity) Expect {
	return Expect{Status: e.Status, IsValidated: e.IsValidated, HasDraft: e.HasDraft}
}

// Tx is the set of writes a transition may perform atomically
type Tx interface {
	GetEntity(ctx context.Context, t domain.EntityType, id uuid.UUID) (*domain.Entity, error)
	GetQuest(ctx context.Context, id uuid.UUID) (*domain.Quest, error)
	// UpdateEntity sets columns on the record if it still matches expect.
	// updated_at is maintained by the store.
	UpdateEntity(ctx context.Context, t domain.EntityType, id uuid.UUID, expect Expect, set map[string]any) error
	// ReassignReferences points every ref row at to instead of from.
	// For user-scoped references, rows that would collide are dropped first.
	ReassignReferences(ctx context.Context, ref domain.Reference, from, to uuid.UUID) (int64, error)
	DeleteEntity(ctx context.Context, t domain.EntityType, id uuid.UUID) error
}

// Store persists validatable content
type Store interface {
	// InTx runs fn in a transaction, rolling back if it returns an error
	InTx(ctx context.Context, fn func(tx Tx) error) error
	// Pending lists records awaiting validation, newest first
	Pending(ctx context.Context) ([]domain.Entity, error)
}

// Publisher receives domain events after a transition commits
type Publisher interface {
	Publish(event domain.Event)
}
