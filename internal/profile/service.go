// Package profile owns a user's XP and level.
//
// Every XP change goes through Service, which recomputes the level with
// the leveling package and writes both fields in the same statement.
package profile

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/leveling"
)

// MsgQuestUnavailable is returned when completing a quest that is not published
const MsgQuestUnavailable = "Quest is not available"

// View is a profile with its derived progress
type View struct {
	Profile   *domain.Profile   `json:"profile"`
	Progress  leveling.Progress `json:"progress"`
	Completed []uuid.UUID       `json:"completed_quest_ids"`
}

// Service handles profile business logic
type Service struct {
	store  Store
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new profile service. events may be nil.
func NewService(store Store, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Get returns the caller's profile, progress and completed quests
func (s *Service) Get(ctx context.Context, actor auth.Capability) (*View, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}

	p, err := s.store.GetProfile(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	completions, err := s.store.ListCompletions(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(completions))
	for _, c := range completions {
		ids = append(ids, c.QuestID)
	}

	return &View{
		Profile:   p,
		Progress:  leveling.LevelProgress(p.TotalXP, p.Level),
		Completed: ids,
	}, nil
}

// CompleteQuest marks a quest complete and awards its XP. Completing a
// quest twice awards nothing the second time.
func (s *Service) CompleteQuest(ctx context.Context, actor auth.Capability, questID uuid.UUID) (leveling.Change, error) {
	if err := actor.RequireUser(); err != nil {
		return leveling.Change{}, err
	}

	var change leveling.Change
	err := s.store.InTx(ctx, func(tx Tx) error {
		q, err := tx.GetQuest(ctx, questID)
		if err != nil {
			return err
		}
		if q.Status != domain.StatusPublished {
			return domain.NewInputError(MsgQuestUnavailable)
		}

		p, err := tx.GetProfile(ctx, actor.UserID)
		if err != nil {
			return err
		}

		inserted, err := tx.InsertCompletion(ctx, actor.UserID, questID, s.now().UTC())
		if err != nil {
			return err
		}
		if !inserted {
			change = leveling.Apply(p.TotalXP, 0)
			return nil
		}

		change = leveling.Apply(p.TotalXP, q.XPReward)
		return tx.SetXP(ctx, actor.UserID, change)
	})
	if err != nil {
		return leveling.Change{}, err
	}

	s.applied(actor.UserID, change)
	return change, nil
}

// UndoCompletion removes a completion and takes its XP back, never
// dropping below zero.
func (s *Service) UndoCompletion(ctx context.Context, actor auth.Capability, questID uuid.UUID) (leveling.Change, error) {
	if err := actor.RequireUser(); err != nil {
		return leveling.Change{}, err
	}

	var change leveling.Change
	err := s.store.InTx(ctx, func(tx Tx) error {
		q, err := tx.GetQuest(ctx, questID)
		if err != nil {
			return err
		}
		p, err := tx.GetProfile(ctx, actor.UserID)
		if err != nil {
			return err
		}

		deleted, err := tx.DeleteCompletion(ctx, actor.UserID, questID)
		if err != nil {
			return err
		}
		if !deleted {
			change = leveling.Apply(p.TotalXP, 0)
			return nil
		}

		change = leveling.Apply(p.TotalXP, -q.XPReward)
		return tx.SetXP(ctx, actor.UserID, change)
	})
	if err != nil {
		return leveling.Change{}, err
	}

	s.applied(actor.UserID, change)
	return change, nil
}

func (s *Service) applied(userID uuid.UUID, change leveling.Change) {
	if change.TotalXP == change.PreviousXP {
		return
	}
	s.logger.Info("xp updated",
		"user_id", userID,
		"previous_xp", change.PreviousXP,
		"total_xp", change.TotalXP,
		"level", change.Level,
	)

	if change.LeveledUp && s.events != nil {
		s.events.Publish(domain.NewLeveledUpEvent(userID, change.PreviousLevel, change.Level, change.TotalXP))
	}
}
