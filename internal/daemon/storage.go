package daemon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mindbreaker/mindbreaker/internal/api"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/notify"
	"github.com/mindbreaker/mindbreaker/internal/seed"
	"github.com/mindbreaker/mindbreaker/internal/storage/postgres"
	"github.com/mindbreaker/mindbreaker/internal/storage/sqlite"
)

// Storage is the set of stores for the configured driver
type Storage struct {
	Content       api.ContentStore
	Profiles      api.ProfileStore
	Notifications notify.Store
	Seed          seed.Writer
	Ping          func(ctx context.Context) error
	// Broadcaster fans cache invalidations out to other instances.
	// Nil for single-instance drivers.
	Broadcaster cache.Broadcaster
	// ListenDSN is the connection string for receiving invalidations
	ListenDSN string
	close     func() error
}

// Close releases the database connection
func (s *Storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// OpenStorage connects to the configured database and applies migrations
func OpenStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	switch cfg.StorageDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("storage ready", "driver", cfg.StorageDriver)
		return &Storage{
			Content:       postgres.NewContentStore(db),
			Profiles:      postgres.NewProfileStore(db),
			Notifications: postgres.NewNotificationStore(db),
			Seed:          postgres.NewContentStore(db),
			Ping:          db.Ping,
			Broadcaster:   postgres.NewNotifier(db),
			ListenDSN:     cfg.DatabaseURL,
			close: func() error {
				db.Close()
				return nil
			},
		}, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		slog.Info("storage ready", "driver", cfg.StorageDriver, "path", cfg.SQLitePath)
		return &Storage{
			Content:       sqlite.NewContentStore(db),
			Profiles:      sqlite.NewProfileStore(db),
			Notifications: sqlite.NewNotificationStore(db),
			Seed:          sqlite.NewContentStore(db),
			Ping:          db.PingContext,
			close:         db.Close,
		}, nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}
