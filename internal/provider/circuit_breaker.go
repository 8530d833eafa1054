package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/blastline/blastline/internal/config"
)

// BreakerState is the externally visible circuit breaker state.
type BreakerState string

const (
	BreakerClosed   BreakerState = "closed"
	BreakerHalfOpen BreakerState = "half_open"
	BreakerOpen     BreakerState = "open"
)

// breakerSet maintains one circuit breaker per instance so a misbehaving
// provider session cannot trip sends on healthy instances.
type breakerSet struct {
	cfg      *config.CircuitBreakerConfig
	logger   *zap.Logger
	mu       sync.Mutex
	breakers map[int64]*gobreaker.CircuitBreaker
}

func newBreakerSet(cfg *config.CircuitBreakerConfig, logger *zap.Logger) *breakerSet {
	return &breakerSet{
		cfg:      cfg,
		logger:   logger,
		breakers: make(map[int64]*gobreaker.CircuitBreaker),
	}
}

func (b *breakerSet) get(instanceID int64) *gobreaker.CircuitBreaker {
	b.mu.Lock()
	defer b.mu.Unlock()

	if cb, ok := b.breakers[instanceID]; ok {
		return cb
	}

	settings := gobreaker.Settings{
		Name:        fmt.Sprintf("provider-instance-%d", instanceID),
		MaxRequests: b.cfg.MaxRequests,
		Interval:    time.Duration(b.cfg.Interval) * time.Second,
		Timeout:     time.Duration(b.cfg.Timeout) * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= b.cfg.ConsecutiveFails && failureRatio >= b.cfg.FailureRatio
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			b.logger.Info("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			// A cancelled caller says nothing about provider health; a
			// pause or shutdown burst must not open the breaker.
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return true
			}
			// Rejections are the provider answering; only transport-level
			// failures should trip the breaker.
			var pe *Error
			if errors.As(err, &pe) {
				return !pe.Retryable || pe.Code != CodeTimeout
			}
			return false
		},
	}

	cb := gobreaker.NewCircuitBreaker(settings)
	b.breakers[instanceID] = cb
	return cb
}

// execute runs fn through the instance's breaker, translating breaker
// rejections into the retryable taxonomy.
func (b *breakerSet) execute(ctx context.Context, instanceID int64, fn func() error) error {
	// An already-dead context never reaches the breaker; its counts track
	// the provider, not the caller's lifecycle.
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := b.get(instanceID).Execute(func() (interface{}, error) {
		return nil, fn()
	})

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			b.logger.Warn("Circuit breaker rejected provider call",
				zap.Int64("instanceID", instanceID))
			return &Error{Code: CodeUnavailable, Message: "circuit breaker is open", Retryable: true}
		}
		return err
	}

	return nil
}

// state returns the breaker state for the instance, closed when the instance
// has never made a call.
func (b *breakerSet) state(instanceID int64) BreakerState {
	b.mu.Lock()
	cb, ok := b.breakers[instanceID]
	b.mu.Unlock()
	if !ok {
		return BreakerClosed
	}

	switch cb.State() {
	case gobreaker.StateOpen:
		return BreakerOpen
	case gobreaker.StateHalfOpen:
		return BreakerHalfOpen
	default:
		return BreakerClosed
	}
}
