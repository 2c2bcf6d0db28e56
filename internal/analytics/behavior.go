// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"sort"
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
)

// topDistributionEntries caps the device/locale breakdowns.
const topDistributionEntries = 5

// BuildBehaviorReport derives the engagement/behavior-insight view from one
// scan: activity windows, lifetime counter totals, and tag distributions.
func BuildBehaviorReport(records []models.UserCounterRecord, now time.Time) models.BehaviorReport {
	tallies := TallyEngagement(records, now)

	var totals models.Counters
	devices := map[string]int{}
	locales := map[string]int{}

	for _, rec := range records {
		totals.MessagesSent += rec.Counters.MessagesSent
		totals.ImagesGenerated += rec.Counters.ImagesGenerated
		totals.VoiceSessions += rec.Counters.VoiceSessions
		totals.AppOpens += rec.Counters.AppOpens
		totals.VoiceFailures += rec.Counters.VoiceFailures
		totals.ImageFailures += rec.Counters.ImageFailures
		totals.GenericErrors += rec.Counters.GenericErrors
		totals.PolicyViolations += rec.Counters.PolicyViolations

		if rec.Device != "" {
			devices[rec.Device]++
		}
		if rec.Locale != "" {
			locales[rec.Locale]++
		}
	}

	report := models.BehaviorReport{
		TotalUsers:      tallies.TotalUsers,
		ActiveToday:     tallies.ActiveToday,
		ActiveLast7Days: tallies.ActiveLast7d,
		NewLast7Days:    tallies.NewLast7d,
		Totals:          totals,
		TopDevices:      topEntries(devices, topDistributionEntries),
		TopLocales:      topEntries(locales, topDistributionEntries),
		GeneratedAt:     now,
	}

	if tallies.ActiveLast7d > 0 {
		perActive := float64(totals.MessagesSent) / float64(tallies.ActiveLast7d)
		report.MessagesPerActive = &perActive
	}
	return report
}

// topEntries returns the n highest-count labels, count descending with
// label ties broken alphabetically.
func topEntries(counts map[string]int, n int) []models.DistributionEntry {
	entries := make([]models.DistributionEntry, 0, len(counts))
	for label, count := range counts {
		entries = append(entries, models.DistributionEntry{Label: label, Count: count})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Label < entries[j].Label
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
