// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package store provides access to the per-user counter documents and the
// per-user failure-event sub-logs.
//
// The documents are written by the producing application; Pulsewatch reads
// them as snapshots. The write methods exist for seeding test fixtures and
// local development data.
package store

import (
	"context"
	"errors"

	"github.com/avelworks/pulsewatch/internal/models"
)

// ErrUnavailable is returned when the store cannot be reached, including when
// the circuit breaker is open. Report computation fails closed on it: no
// partial results, no empty-set fallback.
var ErrUnavailable = errors.New("store unavailable")

// ErrNotFound is returned for lookups of keys that do not exist.
var ErrNotFound = errors.New("not found")

// Store is the counter store surface the analytics engine consumes.
type Store interface {
	// ForEachUserDocument streams every user counter document. The raw bytes
	// are handed to the callback so the caller decides how strictly to parse;
	// a callback error aborts the scan.
	ForEachUserDocument(ctx context.Context, fn func(userID string, data []byte) error) error

	// ListRecentFailureEvents returns up to limit events for one user and
	// category, most recent first. The sub-log is bounded; this is the
	// defined approximation, not exhaustive history.
	ListRecentFailureEvents(ctx context.Context, userID string, category models.FailureCategory, limit int) ([]models.FailureEvent, error)

	// CountUsers returns the number of user counter documents.
	CountUsers(ctx context.Context) (int, error)

	// PutUserRecord upserts one user counter document.
	PutUserRecord(ctx context.Context, raw models.RawUserRecord) error

	// AppendFailureEvent appends to a user's failure sub-log.
	AppendFailureEvent(ctx context.Context, event models.FailureEvent) error

	Close() error
}
