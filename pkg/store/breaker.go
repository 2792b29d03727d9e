package store

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/vanderheijden86/topicmap/pkg/model"
)

// BreakerConfig holds configuration for the circuit breaker.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32        // trial requests allowed while half-open
	Interval         time.Duration // closed-state counter reset period
	Timeout          time.Duration // open-state duration before retrying
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns a default configuration for circuit breaker
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 0.6,
		MinRequests:      3,
	}
}

// BreakerStore guards a remote provider so an unreachable backend fails
// fast instead of stalling every autosave.
type BreakerStore struct {
	inner Provider
	cb    *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps inner.
func NewBreakerStore(inner Provider, cfg BreakerConfig, log *zap.Logger) *BreakerStore {
	if log == nil {
		log = zap.NewNop()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("store circuit breaker state changed",
				zap.String("name", name),
				zap.Stringer("from", from),
				zap.Stringer("to", to))
		},
		IsSuccessful: func(err error) bool {
			// An empty store or a cancelled caller says nothing about backend health.
			return err == nil ||
				errors.Is(err, ErrNoSnapshot) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &BreakerStore{inner: inner, cb: cb}
}

// Unwrap returns the guarded provider.
func (b *BreakerStore) Unwrap() Provider { return b.inner }

// State reports the breaker state.
func (b *BreakerStore) State() gobreaker.State { return b.cb.State() }

// Load forwards to the wrapped provider unless the breaker is open.
func (b *BreakerStore) Load(ctx context.Context) (model.Snapshot, error) {
	res, err := b.cb.Execute(func() (interface{}, error) {
		return b.inner.Load(ctx)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return model.Snapshot{}, loadErr("breaker", err)
		}
		return model.Snapshot{}, err
	}
	return res.(model.Snapshot), nil
}

// Save forwards to the wrapped provider unless the breaker is open.
func (b *BreakerStore) Save(ctx context.Context, s model.Snapshot) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.inner.Save(ctx, s)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return saveErr("breaker", err)
	}
	return err
}

// Watch forwards to the wrapped provider when it supports watching.
func (b *BreakerStore) Watch(ctx context.Context, fn func()) error {
	if w, ok := b.inner.(Watcher); ok {
		return w.Watch(ctx, fn)
	}
	<-ctx.Done()
	return nil
}
