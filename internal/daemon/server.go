// Package daemon assembles the MindBreaker HTTP server and the event
// worker from configuration.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mindbreaker/mindbreaker/internal/api"
	"github.com/mindbreaker/mindbreaker/internal/cache"
	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/domain"
	"github.com/mindbreaker/mindbreaker/internal/queue"
)

// Server represents the MindBreaker HTTP server
type Server struct {
	cfg      *config.Config
	server   *http.Server
	router   *api.Router
	app      *api.App
	storage  *Storage
	listener *cache.Listener
	broker   *queue.Connection
	producer *queue.Producer
	cancel   context.CancelFunc
	logger   *slog.Logger
}

// ServerConfig holds configuration for creating a new server
type ServerConfig struct {
	Config *config.Config
	Logger *slog.Logger
}

// NewServer creates a new server. The database is migrated before it
// returns.
func NewServer(ctx context.Context, cfg ServerConfig) (*Server, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:    cfg.Config,
		logger: logger,
	}

	storage, err := OpenStorage(ctx, cfg.Config)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}
	s.storage = storage

	c, err := cache.New(cfg.Config.CacheSize, logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("create cache: %w", err)
	}
	if storage.Broadcaster != nil {
		c.SetBroadcaster(storage.Broadcaster)
		s.listener = cache.NewListener(storage.ListenDSN, c, logger)
	}

	events := domain.NewEventDispatcher()
	s.app, err = api.NewApp(api.AppConfig{
		Config:        cfg.Config,
		Content:       storage.Content,
		Profiles:      storage.Profiles,
		Notifications: storage.Notifications,
		Cache:         c,
		Events:        events,
		Ping:          storage.Ping,
		Logger:        logger,
	})
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("create app: %w", err)
	}

	// With a broker, notifications are recorded by the worker
	if cfg.Config.RabbitMQURL != "" {
		s.broker, err = queue.NewConnection(cfg.Config.RabbitMQURL, logger)
		if err != nil {
			storage.Close()
			return nil, fmt.Errorf("connect broker: %w", err)
		}
		producerCfg := queue.DefaultProducerConfig()
		producerCfg.Logger = logger
		s.producer = queue.NewProducer(s.broker, producerCfg)
		events.SubscribeAll(s.producer.Forward())
	} else {
		s.app.DeliverInline()
	}

	s.router = api.NewRouter(s.app)
	s.server = &http.Server{
		Addr:         cfg.Config.Addr(),
		Handler:      s.router.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Handler returns the HTTP handler with middleware applied
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// App returns the wired application services
func (s *Server) App() *api.App {
	return s.app
}

// Start begins listening for cache invalidations and serves HTTP until
// Shutdown is called.
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	if s.listener != nil {
		go func() {
			if err := s.listener.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("cache listener stopped", "error", err)
			}
		}()
	}

	s.logger.Info("starting mindbreaker server",
		"addr", s.server.Addr,
		"storage", s.cfg.StorageDriver,
		"broker", s.broker != nil,
	)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server...")

	err := s.server.Shutdown(ctx)

	if s.cancel != nil {
		s.cancel()
	}
	if err := s.router.Close(); err != nil {
		s.logger.Warn("failed to close rate limiter", "error", err)
	}
	if s.producer != nil {
		if err := s.producer.Close(ctx); err != nil {
			s.logger.Warn("event publishes still in flight", "error", err)
		}
	}
	if s.broker != nil {
		if err := s.broker.Close(); err != nil {
			s.logger.Warn("failed to close broker connection", "error", err)
		}
	}
	if err := s.storage.Close(); err != nil {
		s.logger.Warn("failed to close storage", "error", err)
	}

	return err
}
