// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/avelworks/pulsewatch/internal/logging"
	"github.com/avelworks/pulsewatch/internal/models"
)

// BreakerStore wraps a Store with a circuit breaker on the read paths. When
// the breaker is open every read returns ErrUnavailable immediately, which
// the report layer surfaces as a 503 instead of hammering a failing store.
//
// Writes bypass the breaker: they exist for seeding and are not on the
// report-serving path.
type BreakerStore struct {
	inner Store
	cb    *gobreaker.CircuitBreaker[any]
}

// BreakerSettings tunes the circuit breaker.
type BreakerSettings struct {
	// MaxFailures consecutive read failures open the circuit.
	MaxFailures uint32

	// Timeout is how long the circuit stays open before a half-open probe.
	Timeout time.Duration
}

// NewBreakerStore decorates inner with a circuit breaker.
func NewBreakerStore(inner Store, settings BreakerSettings) *BreakerStore {
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "counter-store",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state change")
		},
	})

	return &BreakerStore{inner: inner, cb: cb}
}

// execute runs fn through the breaker, folding breaker rejections into
// ErrUnavailable.
func (s *BreakerStore) execute(fn func() (any, error)) (any, error) {
	result, err := s.cb.Execute(fn)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
		}
		return nil, err
	}
	return result, nil
}

// ForEachUserDocument streams user documents through the breaker.
func (s *BreakerStore) ForEachUserDocument(ctx context.Context, fn func(userID string, data []byte) error) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.inner.ForEachUserDocument(ctx, fn)
	})
	return err
}

// ListRecentFailureEvents fetches a failure sub-log through the breaker.
func (s *BreakerStore) ListRecentFailureEvents(ctx context.Context, userID string, category models.FailureCategory, limit int) ([]models.FailureEvent, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.ListRecentFailureEvents(ctx, userID, category, limit)
	})
	if err != nil {
		return nil, err
	}
	events, ok := result.([]models.FailureEvent)
	if !ok && result != nil {
		return nil, fmt.Errorf("breaker: unexpected result type %T", result)
	}
	return events, nil
}

// CountUsers counts through the breaker.
func (s *BreakerStore) CountUsers(ctx context.Context) (int, error) {
	result, err := s.execute(func() (any, error) {
		return s.inner.CountUsers(ctx)
	})
	if err != nil {
		return 0, err
	}
	count, ok := result.(int)
	if !ok {
		return 0, fmt.Errorf("breaker: unexpected result type %T", result)
	}
	return count, nil
}

// PutUserRecord passes through to the inner store.
func (s *BreakerStore) PutUserRecord(ctx context.Context, raw models.RawUserRecord) error {
	return s.inner.PutUserRecord(ctx, raw)
}

// AppendFailureEvent passes through to the inner store.
func (s *BreakerStore) AppendFailureEvent(ctx context.Context, event models.FailureEvent) error {
	return s.inner.AppendFailureEvent(ctx, event)
}

// Close closes the inner store.
func (s *BreakerStore) Close() error {
	return s.inner.Close()
}
