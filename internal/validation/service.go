// Package validation implements the admin moderation workflow for
// organizations, quests and expeditions.
package validation

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// Admin routes refreshed after every transition
const (
	AdminPath            = "/admin"
	AdminValidationsPath = "/admin/validations"
)

// User-facing error messages
const (
	MsgInvalidType             = "Invalid type"
	MsgInvalidAction           = "Invalid action"
	MsgReasonRequired          = "Rejection reason is required"
	MsgReasonUnsupported       = "Rejection with reason is only supported for Quests"
	MsgTargetRequired          = "targetId is required"
	MsgInvalidTarget           = "Invalid targetId"
	MsgTargetNotFound          = "Merge target not found"
	MsgMergeIntoSelf           = "Cannot merge a record into itself"
	MsgInvalidDraftValuePrefix = "Invalid draft value for "
)

// draftDenylist holds system-managed quest columns a shadow draft may not overwrite
var draftDenylist = map[string]bool{
	"id":           true,
	"created_at":   true,
	"updated_at":   true,
	"edit_reason":  true,
	"is_validated": true,
	"status":       true,
	"author_id":    true,
	"draft_data":   true,
}

// MergeableDraftField reports whether a draft key may be copied onto the quest
func MergeableDraftField(key string) bool {
	if draftDenylist[key] {
		return false
	}
	_, ok := domain.ColumnOf(domain.EntityQuest, key)
	return ok
}

// Service applies validation transitions
type Service struct {
	store  Store
	cache  *cache.Cache
	events Publisher
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new validation service. events may be nil.
func NewService(store Store, c *cache.Cache, events Publisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		store:  store,
		cache:  c,
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

func checkType(t domain.EntityType) error {
	if _, ok := domain.ParseEntityType(string(t)); !ok {
		return domain.NewInputError(MsgInvalidType)
	}
	return nil
}

// Approve validates a record. A quest carrying a shadow draft has the
// draft merged into its live fields instead; its validated flag is left
// as is.
func (s *Service) Approve(ctx context.Context, actor auth.Capability, t domain.EntityType, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := checkType(t); err != nil {
		return err
	}

	event := domain.NewContentValidatedEvent(t, id, domain.ActionApprove, actor.UserID)
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.GetEntity(ctx, t, id)
		if err != nil {
			return err
		}
		event.Name, event.AuthorID = e.Name, e.AuthorID

		if t == domain.EntityQuest && e.HasDraft {
			q, err := tx.GetQuest(ctx, id)
			if err != nil {
				return err
			}
			set, err := s.draftColumns(q)
			if err != nil {
				return err
			}
			set["draft_data"] = nil
			event.DraftMerge = true
			if title, ok := set["title"].(string); ok {
				event.Name = title
			}
			return tx.UpdateEntity(ctx, t, id, ExpectOf(e), set)
		}

		return tx.UpdateEntity(ctx, t, id, ExpectOf(e), map[string]any{"is_validated": true})
	})
	if err != nil {
		return err
	}

	s.committed(ctx, event)
	return nil
}

// draftColumns returns the draft keys that may be written to the quest,
// converted to column values. Unknown and system keys are skipped.
func (s *Service) draftColumns(q *domain.Quest) (map[string]any, error) {
	set := make(map[string]any, len(q.DraftData))

	keys := make([]string, 0, len(q.DraftData))
	for k := range q.DraftData {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if !MergeableDraftField(key) {
			if !draftDenylist[key] {
				s.logger.Warn("ignoring unknown draft field", "quest_id", q.ID, "field", key)
			}
			continue
		}
		kind, _ := domain.ColumnOf(domain.EntityQuest, key)
		v, err := domain.NormalizeValue(kind, q.DraftData[key])
		if err != nil {
			return nil, domain.NewInputError(MsgInvalidDraftValuePrefix + key)
		}
		set[key] = v
	}
	return set, nil
}

// Update validates a record while applying admin corrections in the same write
func (s *Service) Update(ctx context.Context, actor auth.Capability, t domain.EntityType, id uuid.UUID, c domain.Corrections) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := checkType(t); err != nil {
		return err
	}

	set := c.Columns(t)
	set["is_validated"] = true

	event := domain.NewContentValidatedEvent(t, id, domain.ActionUpdate, actor.UserID)
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.GetEntity(ctx, t, id)
		if err != nil {
			return err
		}
		event.AuthorID = e.AuthorID
		event.Name = e.Name
		if name, ok := set[t.NameColumn()].(string); ok {
			event.Name = name
		}
		return tx.UpdateEntity(ctx, t, id, ExpectOf(e), set)
	})
	if err != nil {
		return err
	}

	s.committed(ctx, event)
	return nil
}

// Reject refuses a record with a reason. For a quest with a shadow draft
// only the draft is discarded; a quest awaiting first validation is
// archived.
func (s *Service) Reject(ctx context.Context, actor auth.Capability, t domain.EntityType, id uuid.UUID, reason string) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := checkType(t); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return domain.NewInputError(MsgReasonRequired)
	}
	if !t.SupportsRejectionReason() {
		return domain.NewInputError(MsgReasonUnsupported)
	}

	event := domain.NewContentValidatedEvent(t, id, domain.ActionReject, actor.UserID)
	event.Reason = reason
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.GetEntity(ctx, t, id)
		if err != nil {
			return err
		}
		event.Name, event.AuthorID = e.Name, e.AuthorID

		set := map[string]any{"rejection_reason": reason}
		if e.HasDraft {
			set["draft_data"] = nil
			event.DraftMerge = true
		} else {
			set["status"] = string(domain.StatusArchived)
			set["archived_at"] = s.now().UTC()
		}
		return tx.UpdateEntity(ctx, t, id, ExpectOf(e), set)
	})
	if err != nil {
		return err
	}

	s.committed(ctx, event)
	return nil
}

// Merge folds a duplicate into target: every reference to id is pointed
// at target and id is deleted, all in one transaction.
func (s *Service) Merge(ctx context.Context, actor auth.Capability, t domain.EntityType, id, target uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := checkType(t); err != nil {
		return err
	}
	if target == uuid.Nil {
		return domain.NewInputError(MsgTargetRequired)
	}
	if target == id {
		return domain.NewInputError(MsgMergeIntoSelf)
	}

	event := domain.NewContentValidatedEvent(t, id, domain.ActionMerge, actor.UserID)
	event.TargetID = &target
	err := s.store.InTx(ctx, func(tx Tx) error {
		source, err := tx.GetEntity(ctx, t, id)
		if err != nil {
			return err
		}
		event.Name, event.AuthorID = source.Name, source.AuthorID

		if _, err := tx.GetEntity(ctx, t, target); err != nil {
			if domain.IsNotFound(err) {
				return domain.NewInputError(MsgTargetNotFound)
			}
			return err
		}

		for _, ref := range domain.ReferencesTo(t) {
			n, err := tx.ReassignReferences(ctx, ref, id, target)
			if err != nil {
				return fmt.Errorf("reassign %s.%s: %w", ref.Table, ref.Column, err)
			}
			s.logger.Debug("reassigned references", "table", ref.Table, "column", ref.Column, "rows", n)
		}
		return tx.DeleteEntity(ctx, t, id)
	})
	if err != nil {
		return err
	}

	s.committed(ctx, event)
	return nil
}

// Delete removes a record outright. References are left to the schema's
// foreign key actions.
func (s *Service) Delete(ctx context.Context, actor auth.Capability, t domain.EntityType, id uuid.UUID) error {
	if err := actor.RequireAdmin(); err != nil {
		return err
	}
	if err := checkType(t); err != nil {
		return err
	}

	event := domain.NewContentValidatedEvent(t, id, domain.ActionDelete, actor.UserID)
	err := s.store.InTx(ctx, func(tx Tx) error {
		e, err := tx.GetEntity(ctx, t, id)
		if err != nil {
			return err
		}
		event.Name, event.AuthorID = e.Name, e.AuthorID
		return tx.DeleteEntity(ctx, t, id)
	})
	if err != nil {
		return err
	}

	s.committed(ctx, event)
	return nil
}

// Pending lists records awaiting an admin decision
func (s *Service) Pending(ctx context.Context, actor auth.Capability) ([]domain.Entity, error) {
	if err := actor.RequireAdmin(); err != nil {
		return nil, err
	}
	return cache.Load(s.cache, AdminValidationsPath, []string{cache.TagAdmin}, func() ([]domain.Entity, error) {
		return s.store.Pending(ctx)
	})
}

func (s *Service) committed(ctx context.Context, event domain.ContentValidatedEvent) {
	s.cache.InvalidateTags(ctx, cache.TagAdmin, cache.TagQuests, cache.TagExpeditions, cache.TagOrganizations)
	s.cache.RevalidatePaths(ctx, AdminPath, AdminValidationsPath)

	s.logger.Info("content validated",
		"type", event.EntityType,
		"id", event.AggregateID(),
		"action", event.Action,
		"actor", event.ActorID,
	)

	if s.events != nil {
		s.events.Publish(event)
	}
}
