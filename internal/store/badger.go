// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package store

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/avelworks/pulsewatch/internal/models"
)

// Key prefixes for BadgerDB storage.
const (
	userKeyPrefix  = "user:"
	eventKeyPrefix = "evt:"
)

// BadgerStore implements Store on BadgerDB.
//
// Failure events are keyed with an inverted timestamp so a forward prefix
// iteration yields newest-first without buffering the whole sub-log.
type BadgerStore struct {
	db *badger.DB
}

// Open opens (or creates) a Badger-backed store at path. An empty path with
// inMemory set opens an ephemeral store, used by tests and local development.
func Open(path string, inMemory bool) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %q: %w", path, err)
	}
	return &BadgerStore{db: db}, nil
}

// NewBadgerStore wraps an already-open Badger handle.
func NewBadgerStore(db *badger.DB) *BadgerStore {
	return &BadgerStore{db: db}
}

// ForEachUserDocument streams every user counter document in key order.
func (s *BadgerStore) ForEachUserDocument(ctx context.Context, fn func(userID string, data []byte) error) error {
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			userID := string(item.Key()[len(prefix):])
			if err := item.Value(func(val []byte) error {
				return fn(userID, val)
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("scan user documents: %w", err)
	}
	return nil
}

// ListRecentFailureEvents returns up to limit events, most recent first.
func (s *BadgerStore) ListRecentFailureEvents(ctx context.Context, userID string, category models.FailureCategory, limit int) ([]models.FailureEvent, error) {
	if limit <= 0 {
		return nil, nil
	}

	var events []models.FailureEvent
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(fmt.Sprintf("%s%s:%s:", eventKeyPrefix, userID, category))
		for it.Seek(prefix); it.ValidForPrefix(prefix) && len(events) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var event models.FailureEvent
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &event)
			}); err != nil {
				// A corrupt sub-log entry is skipped, same as a malformed
				// counter document in a scan.
				continue
			}
			events = append(events, event)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list failure events for %s: %w", userID, err)
	}
	return events, nil
}

// CountUsers counts user counter documents without loading values.
func (s *BadgerStore) CountUsers(ctx context.Context) (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(userKeyPrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			count++
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// PutUserRecord upserts one user counter document.
func (s *BadgerStore) PutUserRecord(_ context.Context, raw models.RawUserRecord) error {
	if raw.UserID == "" {
		return fmt.Errorf("%w: empty user id", models.ErrMalformedRecord)
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal user record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(userKeyPrefix+raw.UserID), data)
	})
}

// AppendFailureEvent appends to a user's failure sub-log. Events with no
// usable timestamp are ordered by insertion time.
func (s *BadgerStore) AppendFailureEvent(_ context.Context, event models.FailureEvent) error {
	if event.UserID == "" {
		return fmt.Errorf("%w: empty user id", models.ErrMalformedRecord)
	}
	if _, err := models.ParseFailureCategory(string(event.Category)); err != nil {
		return err
	}

	at := time.Now()
	if event.Timestamp.Valid {
		at = event.Timestamp.Time
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal failure event: %w", err)
	}

	key := eventKey(event.UserID, event.Category, at.UnixNano(), uuid.New().String()[:8])
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// Close closes the underlying database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// eventKey builds "evt:<user>:<category>:<inverted-nanos>:<suffix>". The
// inverted timestamp makes lexicographic order equal newest-first; the random
// suffix keeps same-nanosecond events from colliding.
func eventKey(userID string, category models.FailureCategory, unixNano int64, suffix string) string {
	inverted := uint64(math.MaxInt64 - unixNano)
	return fmt.Sprintf("%s%s:%s:%020d:%s", eventKeyPrefix, userID, category, inverted, suffix)
}
