// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"testing"
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
)

func TestBuildBehaviorReport(t *testing.T) {

	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	old := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := now.Add(-time.Hour)

	rec := func(id, device, locale string, messages int64, last time.Time) models.UserCounterRecord {
		r := userRecord(id, old, last)
		r.Device = device
		r.Locale = locale
		r.Counters = models.Counters{MessagesSent: messages}
		return r
	}

	records := []models.UserCounterRecord{
		rec("u1", "ios", "en-US", 10, recent),
		rec("u2", "ios", "de-DE", 20, recent),
		rec("u3", "android", "en-US", 0, old),
	}

	report := BuildBehaviorReport(records, now)

	if report.TotalUsers != 3 {
		t.Errorf("TotalUsers = %d, want 3", report.TotalUsers)
	}
	if report.ActiveLast7Days != 2 {
		t.Errorf("ActiveLast7Days = %d, want 2", report.ActiveLast7Days)
	}
	if report.Totals.MessagesSent != 30 {
		t.Errorf("total MessagesSent = %d, want 30", report.Totals.MessagesSent)
	}

	if len(report.TopDevices) != 2 || report.TopDevices[0].Label != "ios" || report.TopDevices[0].Count != 2 {
		t.Errorf("TopDevices = %v, want ios:2 first", report.TopDevices)
	}
	if len(report.TopLocales) != 2 || report.TopLocales[0].Label != "en-US" {
		t.Errorf("TopLocales = %v, want en-US first", report.TopLocales)
	}

	// 30 messages over 2 weekly-active users.
	if report.MessagesPerActive == nil || *report.MessagesPerActive != 15 {
		t.Errorf("MessagesPerActive = %v, want 15", report.MessagesPerActive)
	}
}

func TestBuildBehaviorReportNoActiveUsers(t *testing.T) {

	now := time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)
	old := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	records := []models.UserCounterRecord{
		{UserID: "dormant", FirstSeenAt: timePtr(old), LastActiveAt: timePtr(old),
			Counters: models.Counters{MessagesSent: 50}},
	}

	report := BuildBehaviorReport(records, now)

	if report.MessagesPerActive != nil {
		t.Errorf("MessagesPerActive = %v, want nil with zero weekly actives", *report.MessagesPerActive)
	}
	if len(report.TopDevices) != 0 {
		t.Errorf("TopDevices = %v, want empty when no device tags exist", report.TopDevices)
	}
}

func TestTopEntriesCapsAtLimit(t *testing.T) {

	counts := map[string]int{"a": 1, "b": 2, "c": 3, "d": 4, "e": 5, "f": 6}
	entries := topEntries(counts, 5)

	if len(entries) != 5 {
		t.Fatalf("got %d entries, want 5", len(entries))
	}
	if entries[0].Label != "f" || entries[4].Label != "b" {
		t.Errorf("unexpected ordering: %v", entries)
	}
}
