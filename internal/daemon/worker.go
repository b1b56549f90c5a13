package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mindbreaker/mindbreaker/internal/config"
	"github.com/mindbreaker/mindbreaker/internal/notify"
	"github.com/mindbreaker/mindbreaker/internal/queue"
)

// RunWorker consumes domain events from the broker and records the
// notifications they imply. It blocks until ctx is cancelled.
func RunWorker(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	if cfg.RabbitMQURL == "" {
		return errors.New(config.EnvPrefix + "RABBITMQ_URL must be set to run the worker")
	}
	if logger == nil {
		logger = slog.Default()
	}

	storage, err := OpenStorage(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer storage.Close()

	conn, err := queue.NewConnection(cfg.RabbitMQURL, logger)
	if err != nil {
		return fmt.Errorf("connect broker: %w", err)
	}
	defer conn.Close()

	notifications := notify.NewService(storage.Notifications, logger)
	consumer := queue.NewConsumer(conn, notifications.Handle, queue.ConsumerConfig{
		Workers: cfg.Workers,
		Logger:  logger,
	})
	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	logger.Info("worker started", "workers", cfg.Workers, "queue", queue.EventQueueName)
	<-ctx.Done()

	consumer.Stop()
	logger.Info("worker stopped")
	return nil
}
