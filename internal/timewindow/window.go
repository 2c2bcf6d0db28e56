// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package timewindow provides the boundary math shared by cohort grouping and
// baseline windows. Every function is a pure function of its input instant so
// callers can test against a fixed clock.
//
// Week handling follows ISO 8601: weeks start on Monday and the week
// containing the year's first Thursday is week 1. Cohort keys depend on this
// being stable across year boundaries and leap years.
package timewindow

import (
	"fmt"
	"time"
)

// Boundaries holds the midnight-aligned day boundaries used by the rolling
// baseline windows, all in the location of the reference instant.
type Boundaries struct {
	TodayStart      time.Time
	YesterdayStart  time.Time
	SevenDaysAgo    time.Time
	FourteenDaysAgo time.Time
}

// DayBoundaries computes the four standard boundaries for a reference instant.
func DayBoundaries(now time.Time) Boundaries {
	today := StartOfDay(now)
	return Boundaries{
		TodayStart:      today,
		YesterdayStart:  today.AddDate(0, 0, -1),
		SevenDaysAgo:    today.AddDate(0, 0, -7),
		FourteenDaysAgo: today.AddDate(0, 0, -14),
	}
}

// StartOfDay truncates an instant to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStart returns the Monday 00:00 of the ISO week containing t.
func WeekStart(t time.Time) time.Time {
	day := StartOfDay(t)
	// time.Weekday numbers Sunday as 0; ISO weeks start Monday.
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// ISOWeekKey formats the ISO year-week label for t, e.g. "2024-W10".
// The ISO year can differ from the calendar year near year boundaries.
func ISOWeekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DaysBetween returns floor((b - a) / 24h). Negative when b precedes a.
func DaysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d < 0 {
		return -int((-d) / (24 * time.Hour))
	}
	return int(d / (24 * time.Hour))
}

// InWindow reports whether t falls in the half-open interval [start, end).
func InWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
