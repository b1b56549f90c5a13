package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mindbreaker/mindbreaker/internal/cache"
)

// Notifier broadcasts cache invalidations to every instance listening on
// cache.Channel.
type Notifier struct {
	db *DB
}

// NewNotifier creates a notifier publishing through db.
func NewNotifier(db *DB) *Notifier {
	return &Notifier{db: db}
}

// Broadcast sends inv as a NOTIFY payload.
func (n *Notifier) Broadcast(ctx context.Context, inv cache.Invalidation) error {
	payload, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encode invalidation: %w", err)
	}
	if _, err := n.db.Pool.Exec(ctx, "SELECT pg_notify($1, $2)", cache.Channel, string(payload)); err != nil {
		return fmt.Errorf("notify %s: %w", cache.Channel, err)
	}
	return nil
}
