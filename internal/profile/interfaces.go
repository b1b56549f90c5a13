package profile

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/leveling"
)

// Tx is the set of operations an XP update performs atomically
type Tx interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	GetQuest(ctx context.Context, id uuid.UUID) (*domain.Quest, error)
	// InsertCompletion records a completion, reporting false if it already existed
	InsertCompletion(ctx context.Context, userID, questID uuid.UUID, at time.Time) (bool, error)
	// DeleteCompletion removes a completion, reporting false if there was none
	DeleteCompletion(ctx context.Context, userID, questID uuid.UUID) (bool, error)
	// SetXP writes total_xp and level together, provided total_xp still
	// equals change.PreviousXP. Otherwise it returns domain.ErrConflict.
	SetXP(ctx context.Context, userID uuid.UUID, change leveling.Change) error
}

// Store persists profiles and quest completions
type Store interface {
	GetProfile(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	ListCompletions(ctx context.Context, userID uuid.UUID) ([]domain.Completion, error)
	InTx(ctx context.Context, fn func(tx Tx) error) error
}

// Publisher receives domain events after an XP update commits
type Publisher interface {
	Publish(event domain.Event)
}
