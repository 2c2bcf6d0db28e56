// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"testing"

	"github.com/avelworks/pulsewatch/internal/models"
)

func TestMostAffectedUsers(t *testing.T) {

	records := []models.UserCounterRecord{
		{UserID: "clean", Counters: models.Counters{MessagesSent: 100}},
		{UserID: "worst", Counters: models.Counters{VoiceFailures: 5, GenericErrors: 3}},
		{UserID: "middle", Counters: models.Counters{ImageFailures: 4}},
		{UserID: "a-tied", Counters: models.Counters{GenericErrors: 4}},
	}

	affected, totalErrors, usersWithAny := MostAffectedUsers(records, 20)

	if totalErrors != 16 {
		t.Errorf("totalErrors = %d, want 16", totalErrors)
	}
	if usersWithAny != 3 {
		t.Errorf("usersWithAny = %d, want 3 (clean user excluded)", usersWithAny)
	}
	if len(affected) != 3 {
		t.Fatalf("got %d affected users, want 3", len(affected))
	}

	if affected[0].UserID != "worst" || affected[0].TotalErrors != 8 {
		t.Errorf("top user = %s/%d, want worst/8", affected[0].UserID, affected[0].TotalErrors)
	}
	// Tie on 4 errors breaks alphabetically.
	if affected[1].UserID != "a-tied" || affected[2].UserID != "middle" {
		t.Errorf("tie order = %s, %s, want a-tied then middle", affected[1].UserID, affected[2].UserID)
	}

	byCat := affected[0].ByCategory
	if byCat["voice"] != 5 || byCat["generic"] != 3 {
		t.Errorf("ByCategory = %v, want voice:5 generic:3", byCat)
	}
	if _, ok := byCat["image"]; ok {
		t.Error("zero-count category must be omitted from the breakdown")
	}
}

func TestMostAffectedUsersTruncatesToLimit(t *testing.T) {

	records := []models.UserCounterRecord{
		{UserID: "u1", Counters: models.Counters{GenericErrors: 3}},
		{UserID: "u2", Counters: models.Counters{GenericErrors: 2}},
		{UserID: "u3", Counters: models.Counters{GenericErrors: 1}},
	}

	affected, _, usersWithAny := MostAffectedUsers(records, 2)

	if len(affected) != 2 {
		t.Fatalf("got %d entries, want 2", len(affected))
	}
	// The count of users with errors is taken before truncation.
	if usersWithAny != 3 {
		t.Errorf("usersWithAny = %d, want 3", usersWithAny)
	}
}
