// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/timewindow"
)

// EngagementTallies are the window-bucketed activity counts feeding the
// engagement and new-user baseline comparisons. Each user lands in at most one
// window per tally because last-active and first-use are single timestamps.
//
// Records with an unknown timestamp are excluded from the affected tally
// rather than defaulted to epoch.
type EngagementTallies struct {
	TotalUsers int

	// Daily engagement: yesterday start through now, versus the trailing
	// seven days before that.
	ActiveCurrent2d  int
	ActiveDailyBase  int
	DailyBaseDays    int
	CurrentDailyDays int

	// Weekly engagement: last 7 days versus the 7 before.
	ActiveLast7d  int
	ActivePrior7d int

	// New users: first-use in the last 7 days versus the 7 before.
	NewLast7d  int
	NewPrior7d int

	// Behavior-report extras.
	ActiveToday int
}

// TallyEngagement buckets the scanned records into the standard windows
// around now.
func TallyEngagement(records []models.UserCounterRecord, now time.Time) EngagementTallies {
	b := timewindow.DayBoundaries(now)
	dailyBaseStart := b.YesterdayStart.AddDate(0, 0, -7)

	t := EngagementTallies{
		TotalUsers:       len(records),
		CurrentDailyDays: 2,
		DailyBaseDays:    7,
	}

	for _, rec := range records {
		if rec.LastActiveAt != nil {
			last := *rec.LastActiveAt
			switch {
			case !last.Before(b.YesterdayStart):
				t.ActiveCurrent2d++
			case timewindow.InWindow(last, dailyBaseStart, b.YesterdayStart):
				t.ActiveDailyBase++
			}
			if !last.Before(b.TodayStart) {
				t.ActiveToday++
			}
			switch {
			case !last.Before(b.SevenDaysAgo):
				t.ActiveLast7d++
			case timewindow.InWindow(last, b.FourteenDaysAgo, b.SevenDaysAgo):
				t.ActivePrior7d++
			}
		}

		if rec.FirstSeenAt != nil {
			first := *rec.FirstSeenAt
			switch {
			case !first.Before(b.SevenDaysAgo):
				t.NewLast7d++
			case timewindow.InWindow(first, b.FourteenDaysAgo, b.SevenDaysAgo):
				t.NewPrior7d++
			}
		}
	}
	return t
}

// Comparisons turns the tallies into the three engagement baseline
// comparisons consumed by the alert classifier.
func (t EngagementTallies) Comparisons() (daily, weekly, newUsers models.BaselineComparison) {
	daily = Compare("daily_active_users",
		float64(t.ActiveCurrent2d), t.CurrentDailyDays,
		float64(t.ActiveDailyBase), t.DailyBaseDays)
	weekly = Compare("weekly_active_users",
		float64(t.ActiveLast7d), 7,
		float64(t.ActivePrior7d), 7)
	newUsers = Compare("new_users",
		float64(t.NewLast7d), 7,
		float64(t.NewPrior7d), 7)
	return daily, weekly, newUsers
}
