package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// NotificationStore implements notification persistence backed by PostgreSQL.
type NotificationStore struct {
	db *DB
}

// NewNotificationStore creates a new PostgreSQL-backed notification store.
func NewNotificationStore(db *DB) *NotificationStore {
	return &NotificationStore{db: db}
}

// CreateNotification inserts a notification, filling ID and CreatedAt when unset.
func (s *NotificationStore) CreateNotification(ctx context.Context, n *domain.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, kind, message, created_at, read_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		n.ID, n.UserID, n.Kind, n.Message, n.CreatedAt, n.ReadAt)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns a user's newest notifications.
func (s *NotificationStore) ListNotifications(ctx context.Context, userID uuid.UUID, limit int) ([]domain.Notification, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, user_id, kind, message, created_at, read_at FROM notifications
		WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var n domain.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Kind, &n.Message, &n.CreatedAt, &n.ReadAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}
