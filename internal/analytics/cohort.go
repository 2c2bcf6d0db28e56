// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"sort"
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/timewindow"
)

// retention horizons in days.
const (
	horizonDay1  = 1
	horizonDay7  = 7
	horizonDay30 = 30
)

// BuildCohorts groups users into ISO-week signup cohorts and computes day-N
// return counts and retention percentages.
//
// A user counts toward day-N when they were ever active at least N days after
// their first use; a single visit 40 days in counts toward all three horizons.
// A horizon's retention is nil until now - cohortWeekStart >= N days, so a
// young cohort never reports a numeric day-7 or day-30 value.
//
// Records with no first-use timestamp cannot be cohorted and are skipped.
// Output is sorted newest cohort first.
func BuildCohorts(records []models.UserCounterRecord, now time.Time, weeks int) []models.CohortWindow {
	if weeks < 1 {
		weeks = 1
	}
	// The current week plus weeks-1 full weeks back.
	cutoff := timewindow.WeekStart(now).AddDate(0, 0, -7*(weeks-1))

	type bucket struct {
		start time.Time
		size  int
		day1  int
		day7  int
		day30 int
	}
	buckets := make(map[string]*bucket)

	for _, rec := range records {
		if rec.FirstSeenAt == nil {
			continue
		}
		first := *rec.FirstSeenAt
		if first.Before(cutoff) || first.After(now) {
			continue
		}

		key := timewindow.ISOWeekKey(first)
		b, ok := buckets[key]
		if !ok {
			b = &bucket{start: timewindow.WeekStart(first)}
			buckets[key] = b
		}
		b.size++

		if rec.LastActiveAt == nil {
			continue
		}
		delta := timewindow.DaysBetween(first, *rec.LastActiveAt)
		if delta >= horizonDay1 {
			b.day1++
		}
		if delta >= horizonDay7 {
			b.day7++
		}
		if delta >= horizonDay30 {
			b.day30++
		}
	}

	cohorts := make([]models.CohortWindow, 0, len(buckets))
	for key, b := range buckets {
		cohortAge := timewindow.DaysBetween(b.start, now)
		cohorts = append(cohorts, models.CohortWindow{
			WeekKey:        key,
			WeekStart:      b.start,
			Size:           b.size,
			Day1Returned:   b.day1,
			Day7Returned:   b.day7,
			Day30Returned:  b.day30,
			Day1Retention:  retentionPct(b.day1, b.size, cohortAge, horizonDay1),
			Day7Retention:  retentionPct(b.day7, b.size, cohortAge, horizonDay7),
			Day30Retention: retentionPct(b.day30, b.size, cohortAge, horizonDay30),
		})
	}

	sort.Slice(cohorts, func(i, j int) bool {
		return cohorts[i].WeekStart.After(cohorts[j].WeekStart)
	})
	return cohorts
}

// retentionPct returns the percentage, or nil while the cohort is younger
// than the horizon.
func retentionPct(returned, size, cohortAgeDays, horizon int) *float64 {
	if cohortAgeDays < horizon || size == 0 {
		return nil
	}
	pct := float64(returned) / float64(size) * 100
	return &pct
}

// SummarizeCohorts aggregates across cohorts. Averages exclude cohorts whose
// value at a horizon is not yet measurable, from both numerator and
// denominator.
func SummarizeCohorts(cohorts []models.CohortWindow) models.RetentionSummary {
	summary := models.RetentionSummary{TotalCohorts: len(cohorts)}

	var day1, day7, day30 []float64
	for _, c := range cohorts {
		summary.TotalUsersTracked += c.Size
		if c.Day1Retention != nil {
			day1 = append(day1, *c.Day1Retention)
		}
		if c.Day7Retention != nil {
			day7 = append(day7, *c.Day7Retention)
		}
		if c.Day30Retention != nil {
			day30 = append(day30, *c.Day30Retention)
		}
	}

	summary.AvgDay1Retention = mean(day1)
	summary.AvgDay7Retention = mean(day7)
	summary.AvgDay30Retention = mean(day30)
	return summary
}

func mean(values []float64) *float64 {
	if len(values) == 0 {
		return nil
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	avg := sum / float64(len(values))
	return &avg
}
