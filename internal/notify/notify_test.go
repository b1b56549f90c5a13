package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	created   []domain.Notification
	createErr error
	lastLimit int
}

func (m *memoryStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, *n)
	return nil
}

func (m *memoryStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	m.lastLimit = limit
	var out []domain.Notification
	for _, n := range m.created {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func questEvent(action domain.ValidationAction, author *uuid.UUID) domain.ContentValidatedEvent {
	e := domain.NewContentValidatedEvent(domain.EntityQuest, uuid.New(), action, uuid.New())
	e.AuthorID = author
	e.Name = "Go Basics"
	return e
}

func TestService_Build(t *testing.T) {
	svc := NewService(&memoryStore{}, nil)
	author := uuid.New()

	tests := []struct {
		name     string
		event    domain.Event
		wantKind string
		wantMsg  string
	}{
		{
			name:     "approved",
			event:    questEvent(domain.ActionApprove, &author),
			wantKind: domain.NotificationQuestApproved,
			wantMsg:  `Your quest "Go Basics" has been approved.`,
		},
		{
			name: "draft approved",
			event: func() domain.Event {
				e := questEvent(domain.ActionApprove, &author)
				e.DraftMerge = true
				return e
			}(),
			wantKind: domain.NotificationQuestApproved,
			wantMsg:  `Your changes to "Go Basics" have been approved.`,
		},
		{
			name: "rejected",
			event: func() domain.Event {
				e := questEvent(domain.ActionReject, &author)
				e.Reason = "low quality"
				return e
			}(),
			wantKind: domain.NotificationQuestRejected,
			wantMsg:  `Your quest "Go Basics" was not approved: low quality`,
		},
		{
			name:     "level up",
			event:    domain.NewLeveledUpEvent(author, 2, 3, 2100),
			wantKind: domain.NotificationLevelUp,
			wantMsg:  "You reached level 3!",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := svc.Build(tt.event)
			require.NotNil(t, n)
			assert.Equal(t, author, n.UserID)
			assert.Equal(t, tt.wantKind, n.Kind)
			assert.Equal(t, tt.wantMsg, n.Message)
		})
	}
}

func TestService_Build_Silent(t *testing.T) {
	svc := NewService(&memoryStore{}, nil)
	author := uuid.New()

	self := questEvent(domain.ActionApprove, &author)
	self.ActorID = author

	org := domain.NewContentValidatedEvent(domain.EntityOrganization, uuid.New(), domain.ActionApprove, uuid.New())
	org.AuthorID = &author

	silent := map[string]domain.Event{
		"no author":     questEvent(domain.ActionApprove, nil),
		"merge":         questEvent(domain.ActionMerge, &author),
		"delete":        questEvent(domain.ActionDelete, &author),
		"own content":   self,
		"organization":  org,
		"unknown event": domain.NewBaseEvent("something", "Test", uuid.New()),
	}
	for name, event := range silent {
		assert.Nil(t, svc.Build(event), name)
	}
}

func TestService_Handle(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	author := uuid.New()

	require.NoError(t, svc.Handle(context.Background(), questEvent(domain.ActionApprove, &author)))
	require.Len(t, store.created, 1)

	require.NoError(t, svc.Handle(context.Background(), questEvent(domain.ActionDelete, &author)))
	assert.Len(t, store.created, 1)

	store.createErr = errors.New("db down")
	assert.Error(t, svc.Handle(context.Background(), questEvent(domain.ActionApprove, &author)))
}

func TestService_List(t *testing.T) {
	store := &memoryStore{}
	svc := NewService(store, nil)
	user := auth.Capability{Role: auth.RoleUser, UserID: uuid.New()}

	_, err := svc.List(context.Background(), auth.Guest, 10)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = svc.List(context.Background(), user, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultLimit, store.lastLimit)

	_, err = svc.List(context.Background(), user, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, store.lastLimit)
}
