package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
	"github.com/mindbreaker/mindbreaker/internal/domain"
)

// JSONPublisher sends a JSON body to a named queue
type JSONPublisher interface {
	PublishJSON(ctx context.Context, queue string, data any) error
}

// ProducerConfig tunes publish resilience
type ProducerConfig struct {
	MaxAttempts    int
	InitialDelay   time.Duration
	PublishTimeout time.Duration
	// TripAfter is the number of consecutive failures that opens the breaker
	TripAfter uint32
	Logger    *slog.Logger
}

// DefaultProducerConfig returns sensible defaults
func DefaultProducerConfig() ProducerConfig {
	return ProducerConfig{
		MaxAttempts:    3,
		InitialDelay:   200 * time.Millisecond,
		PublishTimeout: 5 * time.Second,
		TripAfter:      5,
	}
}

// Producer publishes domain events to the event queue with retry and a
// circuit breaker in front of the broker.
type Producer struct {
	pub     JSONPublisher
	breaker circuitbreaker.CircuitBreaker[struct{}]
	retrier retry.Retry[struct{}]
	timeout time.Duration
	logger  *slog.Logger

	mu      sync.Mutex
	closed  bool
	pending sync.WaitGroup
}

// NewProducer creates a new queue producer
func NewProducer(pub JSONPublisher, cfg ProducerConfig) *Producer {
	def := DefaultProducerConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = def.InitialDelay
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = def.PublishTimeout
	}
	if cfg.TripAfter == 0 {
		cfg.TripAfter = def.TripAfter
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	p := &Producer{
		pub:     pub,
		timeout: cfg.PublishTimeout,
		logger:  logger,
	}

	p.breaker = circuitbreaker.New[struct{}](circuitbreaker.Config{
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts circuitbreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.TripAfter
		},
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("event queue circuit breaker state change",
				"from", from.String(),
				"to", to.String())
		},
	})

	p.retrier = retry.New[struct{}](retry.Config{
		MaxAttempts:   cfg.MaxAttempts,
		InitialDelay:  cfg.InitialDelay,
		MaxDelay:      5 * time.Second,
		Multiplier:    2.0,
		BackoffPolicy: retry.BackoffExponential,
		Jitter:        true,
		IsRetryable:   isRetryable,
	})

	return p
}

// isRetryable treats broker and network failures as transient and
// encoding failures as permanent.
func isRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var unsupported *json.UnsupportedTypeError
	var marshaler *json.MarshalerError
	return !errors.As(err, &unsupported) && !errors.As(err, &marshaler)
}

// PublishEvent sends event to the event queue
func (p *Producer) PublishEvent(ctx context.Context, event domain.Event) error {
	if event == nil {
		return errors.New("nil event")
	}

	op := func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.pub.PublishJSON(ctx, EventQueueName, event)
	}

	_, err := p.breaker.Execute(ctx, func(ctx context.Context) (struct{}, error) {
		return p.retrier.Do(ctx, op)
	})
	if err != nil {
		return fmt.Errorf("failed to publish %s event: %w", event.EventType(), err)
	}

	p.logger.Debug("published event",
		"event_id", event.EventID(),
		"type", event.EventType(),
		"aggregate_id", event.AggregateID(),
	)
	return nil
}

// Forward returns a dispatcher handler that publishes every event in the
// background. Failures are logged and never reach the caller. Events
// arriving after Close are dropped.
func (p *Producer) Forward() domain.EventHandler {
	return func(event domain.Event) {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			p.logger.Warn("event dropped after producer close",
				"event_id", event.EventID(),
				"type", event.EventType(),
			)
			return
		}
		p.pending.Add(1)
		p.mu.Unlock()

		go func() {
			defer p.pending.Done()

			ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
			defer cancel()
			if err := p.PublishEvent(ctx, event); err != nil {
				p.logger.Error("event publish failed",
					"event_id", event.EventID(),
					"type", event.EventType(),
					"error", err,
				)
			}
		}()
	}
}

// Close stops accepting forwarded events and waits for in-flight
// publishes to finish or ctx to end.
func (p *Producer) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("wait for pending publishes: %w", ctx.Err())
	}
}
