// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"sort"

	"github.com/avelworks/pulsewatch/internal/models"
)

// MostAffectedUsers ranks users by lifetime error exposure from their
// counters, total errors descending, and returns the top limit entries.
// Ties break on user ID so the ranking is deterministic.
func MostAffectedUsers(records []models.UserCounterRecord, limit int) ([]models.AffectedUser, int64, int) {
	affected := make([]models.AffectedUser, 0, len(records))
	var totalErrors int64

	for _, rec := range records {
		total := rec.Counters.VoiceFailures + rec.Counters.ImageFailures + rec.Counters.GenericErrors
		if total == 0 {
			continue
		}
		totalErrors += total

		byCategory := map[string]int64{}
		if rec.Counters.VoiceFailures > 0 {
			byCategory[string(models.FailureVoice)] = rec.Counters.VoiceFailures
		}
		if rec.Counters.ImageFailures > 0 {
			byCategory[string(models.FailureImage)] = rec.Counters.ImageFailures
		}
		if rec.Counters.GenericErrors > 0 {
			byCategory[string(models.FailureGeneric)] = rec.Counters.GenericErrors
		}

		affected = append(affected, models.AffectedUser{
			UserID:      rec.UserID,
			TotalErrors: total,
			ByCategory:  byCategory,
			LastActive:  rec.LastActiveAt,
		})
	}

	sort.Slice(affected, func(i, j int) bool {
		if affected[i].TotalErrors != affected[j].TotalErrors {
			return affected[i].TotalErrors > affected[j].TotalErrors
		}
		return affected[i].UserID < affected[j].UserID
	})

	usersWithAny := len(affected)
	if limit > 0 && len(affected) > limit {
		affected = affected[:limit]
	}
	return affected, totalErrors, usersWithAny
}
