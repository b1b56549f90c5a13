package api

import (
	"context"
	"errors"
	"log/slog"

	"github.com/mindbreaker/mindbreaker/internal/auth"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/catalog"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/notify"
	"github.com/mindbreaker/mindbreaker/internal/profile"
	"github.com/mindbreaker/mindbreaker/internal/validation"
)

// ContentStore backs both the moderation workflow and the public catalog
type ContentStore interface {
	validation.Store
	catalog.Store
}

// ProfileStore backs XP updates and capability resolution
type ProfileStore interface {
	profile.Store
	auth.ProfileLookup
}

// App holds all application dependencies
type App struct {
	Config        *config.Config
	Cache         *cache.Cache
	Events        *domain.EventDispatcher
	Guard         *auth.Guard
	Validation    *validation.Service
	Profiles      *profile.Service
	Catalog       *catalog.Service
	Notifications *notify.Service
	ping          func(ctx context.Context) error
	logger        *slog.Logger
}

// AppConfig holds configuration for application initialization
type AppConfig struct {
	Config        *config.Config
	Content       ContentStore
	Profiles      ProfileStore
	Notifications notify.Store
	// Cache is created from Config.CacheSize when nil
	Cache *cache.Cache
	// Events is created when nil
	Events *domain.EventDispatcher
	// Ping reports database connectivity for /ready
	Ping   func(ctx context.Context) error
	Logger *slog.Logger
}

// NewApp creates a new application instance with all dependencies wired
func NewApp(cfg AppConfig) (*App, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Content == nil || cfg.Profiles == nil || cfg.Notifications == nil {
		return nil, errors.New("content, profile and notification stores are required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	c := cfg.Cache
	if c == nil {
		var err error
		if c, err = cache.New(cfg.Config.CacheSize, logger); err != nil {
			return nil, err
		}
	}

	events := cfg.Events
	if events == nil {
		events = domain.NewEventDispatcher()
	}

	ping := cfg.Ping
	if ping == nil {
		ping = func(context.Context) error { return nil }
	}

	return &App{
		Config:        cfg.Config,
		Cache:         c,
		Events:        events,
		Guard:         auth.NewGuard(cfg.Config.Secret(), cfg.Profiles, logger),
		Validation:    validation.NewService(cfg.Content, c, events, logger),
		Profiles:      profile.NewService(cfg.Profiles, events, logger),
		Catalog:       catalog.NewService(cfg.Content, c),
		Notifications: notify.NewService(cfg.Notifications, logger),
		ping:          ping,
		logger:        logger,
	}, nil
}

// DeliverInline records notifications in-process as events are
// published. Deployments with a broker forward events to it instead.
func (a *App) DeliverInline() {
	a.Events.SubscribeAll(func(event domain.Event) {
		if err := a.Notifications.Handle(context.Background(), event); err != nil {
			a.logger.Error("failed to record notification",
				"event_type", event.EventType(),
				"event_id", event.EventID(),
				"error", err,
			)
		}
	})
}
