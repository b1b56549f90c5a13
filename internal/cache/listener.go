package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"
)

// Channel is the Postgres NOTIFY channel carrying invalidations
const Channel = "cache_invalidation"

const listenerPingInterval = 90 * time.Second

// Listener applies invalidations broadcast by other instances
type Listener struct {
	dsn    string
	cache  *Cache
	logger *slog.Logger
}

// NewListener creates a listener for the Postgres database at dsn
func NewListener(dsn string, c *Cache, logger *slog.Logger) *Listener {
	if logger == nil {
		logger = slog.Default()
	}
	return &Listener{dsn: dsn, cache: c, logger: logger}
}

// Run listens until ctx is cancelled
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("cache listener connection event", "event", ev, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(Channel); err != nil {
		return fmt.Errorf("listen %s: %w", Channel, err)
	}
	l.logger.Info("cache listener started", "channel", Channel)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			l.handle(n)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("cache listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (l *Listener) handle(n *pq.Notification) {
	// A nil notification follows a reconnect; messages may have been missed.
	if n == nil {
		l.cache.Purge()
		return
	}

	inv, err := DecodeInvalidation([]byte(n.Extra))
	if err != nil {
		l.logger.Warn("dropping malformed cache invalidation", "payload", n.Extra, "error", err)
		return
	}
	if inv.Origin == l.cache.Origin() {
		return
	}
	l.cache.Apply(inv)
}

// DecodeInvalidation parses a NOTIFY payload
func DecodeInvalidation(payload []byte) (Invalidation, error) {
	var inv Invalidation
	if err := json.Unmarshal(payload, &inv); err != nil {
		return Invalidation{}, err
	}
	return inv, nil
}
