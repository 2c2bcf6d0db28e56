// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
)

func openTestStore(t *testing.T) *BadgerStore {
	t.Helper()

	s, err := Open("", true)
	if err != nil {
		t.Fatalf("open in-memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func flexTime(t time.Time) models.FlexTime {
	return models.FlexTime{Time: t, Valid: true}
}

func TestPutAndScanUserDocuments(t *testing.T) {

	s := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		raw := models.RawUserRecord{
			UserID:   fmt.Sprintf("user-%d", i),
			Counters: models.Counters{MessagesSent: int64(i * 10)},
		}
		if err := s.PutUserRecord(ctx, raw); err != nil {
			t.Fatalf("put user %d: %v", i, err)
		}
	}

	seen := map[string]bool{}
	err := s.ForEachUserDocument(ctx, func(userID string, data []byte) error {
		seen[userID] = true
		if len(data) == 0 {
			t.Errorf("empty document for %s", userID)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if len(seen) != 3 {
		t.Errorf("scanned %d users, want 3", len(seen))
	}

	count, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("CountUsers = %d, want 3", count)
	}
}

func TestPutUserRecordOverwrites(t *testing.T) {

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.PutUserRecord(ctx, models.RawUserRecord{UserID: "u1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.PutUserRecord(ctx, models.RawUserRecord{UserID: "u1", Device: "ios"}); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	count, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("CountUsers = %d after overwrite, want 1", count)
	}
}

func TestListRecentFailureEventsNewestFirst(t *testing.T) {

	s := openTestStore(t)
	ctx := context.Background()
	base := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		event := models.FailureEvent{
			UserID:    "u1",
			Category:  models.FailureVoice,
			Code:      fmt.Sprintf("code-%d", i),
			Timestamp: flexTime(base.Add(time.Duration(i) * time.Hour)),
		}
		if err := s.AppendFailureEvent(ctx, event); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	events, err := s.ListRecentFailureEvents(ctx, "u1", models.FailureVoice, 3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Code != "code-4" {
		t.Errorf("first event = %s, want newest code-4", events[0].Code)
	}
	if events[2].Code != "code-2" {
		t.Errorf("third event = %s, want code-2", events[2].Code)
	}
}

func TestListRecentFailureEventsScopedToUserAndCategory(t *testing.T) {

	s := openTestStore(t)
	ctx := context.Background()
	now := time.Now()

	events := []models.FailureEvent{
		{UserID: "u1", Category: models.FailureVoice, Timestamp: flexTime(now)},
		{UserID: "u1", Category: models.FailureImage, Timestamp: flexTime(now)},
		{UserID: "u2", Category: models.FailureVoice, Timestamp: flexTime(now)},
	}
	for i, event := range events {
		if err := s.AppendFailureEvent(ctx, event); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, err := s.ListRecentFailureEvents(ctx, "u1", models.FailureVoice, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d events, want exactly 1 for u1/voice", len(got))
	}
	if got[0].UserID != "u1" || got[0].Category != models.FailureVoice {
		t.Errorf("wrong event returned: %+v", got[0])
	}
}

func TestListRecentFailureEventsEmpty(t *testing.T) {

	s := openTestStore(t)

	events, err := s.ListRecentFailureEvents(context.Background(), "nobody", models.FailureGeneric, 10)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events for unknown user, want 0", len(events))
	}
}

func TestAppendFailureEventValidation(t *testing.T) {

	s := openTestStore(t)
	ctx := context.Background()

	if err := s.AppendFailureEvent(ctx, models.FailureEvent{Category: models.FailureVoice}); err == nil {
		t.Error("expected error for empty user id")
	}
	if err := s.AppendFailureEvent(ctx, models.FailureEvent{UserID: "u1", Category: "video"}); err == nil {
		t.Error("expected error for unknown category")
	}
}

func TestForEachUserDocumentHonorsContext(t *testing.T) {

	s := openTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	if err := s.PutUserRecord(ctx, models.RawUserRecord{UserID: "u1"}); err != nil {
		t.Fatalf("put: %v", err)
	}
	cancel()

	err := s.ForEachUserDocument(ctx, func(string, []byte) error { return nil })
	if err == nil {
		t.Error("expected context cancellation error")
	}
}
