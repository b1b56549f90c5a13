// Package notify turns domain events into per-user notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// DefaultLimit caps List when no limit is given
const DefaultLimit = 50

// Store persists notifications
type Store interface {
	CreateNotification(ctx context.Context, n *domain.Notification) error
	ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error)
}

// Service builds and reads notifications
type Service struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new notification service
func NewService(store Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// Handle stores the notification an event implies, if any
func (s *Service) Handle(ctx context.Context, event domain.Event) error {
	n := s.Build(event)
	if n == nil {
		return nil
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return fmt.Errorf("store notification: %w", err)
	}
	s.logger.Info("notification created", "user_id", n.UserID, "kind", n.Kind, "event_id", event.EventID())
	return nil
}

// Build returns the notification for event, or nil when nobody is told
func (s *Service) Build(event domain.Event) *domain.Notification {
	switch e := event.(type) {
	case domain.ContentValidatedEvent:
		return s.forValidation(e)
	case domain.LeveledUpEvent:
		return s.notification(e.AggregateID(), domain.NotificationLevelUp,
			fmt.Sprintf("You reached level %d!", e.Level))
	default:
		return nil
	}
}

func (s *Service) forValidation(e domain.ContentValidatedEvent) *domain.Notification {
	if e.EntityType != domain.EntityQuest || e.AuthorID == nil {
		return nil
	}
	// Admins approving their own content do not need telling.
	if *e.AuthorID == e.ActorID {
		return nil
	}

	switch e.Action {
	case domain.ActionApprove, domain.ActionUpdate:
		msg := fmt.Sprintf("Your quest %q has been approved.", e.Name)
		if e.DraftMerge {
			msg = fmt.Sprintf("Your changes to %q have been approved.", e.Name)
		}
		return s.notification(*e.AuthorID, domain.NotificationQuestApproved, msg)
	case domain.ActionReject:
		msg := fmt.Sprintf("Your quest %q was not approved: %s", e.Name, e.Reason)
		if e.DraftMerge {
			msg = fmt.Sprintf("Your changes to %q were not approved: %s", e.Name, e.Reason)
		}
		return s.notification(*e.AuthorID, domain.NotificationQuestRejected, msg)
	default:
		return nil
	}
}

func (s *Service) notification(userID uuid.UUID, kind, message string) *domain.Notification {
	return &domain.Notification{
		ID:        uuid.New(),
		UserID:    userID,
		Kind:      kind,
		Message:   message,
		CreatedAt: s.now().UTC(),
	}
}

// List returns the caller's most recent notifications
func (s *Service) List(ctx context.Context, actor auth.Capability, limit int) ([]domain.Notification, error) {
	if err := actor.RequireUser(); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}
	return s.store.ListNotifications(ctx, actor.UserID, limit)
}
