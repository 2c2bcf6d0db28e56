// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package models

import "time"

// CohortWindow is one signup cohort: all users whose first recorded use falls
// in the same ISO week. Size is fixed at build time.
//
// Retention values are nil while the cohort is too young for the horizon to be
// measurable (now - cohort start < N days). The legacy wire format used -1 for
// this; the JSON here emits null instead.
type CohortWindow struct {
	WeekKey   string    `json:"week"`
	WeekStart time.Time `json:"week_start"`
	Size      int       `json:"size"`

	Day1Returned  int `json:"day1_returned"`
	Day7Returned  int `json:"day7_returned"`
	Day30Returned int `json:"day30_returned"`

	Day1Retention  *float64 `json:"day1_retention"`
	Day7Retention  *float64 `json:"day7_retention"`
	Day30Retention *float64 `json:"day30_retention"`
}

// RetentionSummary aggregates across cohorts. Averages exclude cohorts whose
// value for a horizon is not yet measurable.
type RetentionSummary struct {
	TotalCohorts      int      `json:"total_cohorts"`
	TotalUsersTracked int      `json:"total_users_tracked"`
	AvgDay1Retention  *float64 `json:"avg_day1_retention"`
	AvgDay7Retention  *float64 `json:"avg_day7_retention"`
	AvgDay30Retention *float64 `json:"avg_day30_retention"`
}

// RetentionReport is the payload of the retention endpoint. Cohorts are
// ordered newest first.
type RetentionReport struct {
	Cohorts     []CohortWindow   `json:"cohorts"`
	Summary     RetentionSummary `json:"summary"`
	WeeksWindow int              `json:"weeks_window"`
	GeneratedAt time.Time        `json:"generated_at"`
	Cached      bool             `json:"cached"`
}

// BaselineComparison compares a short current window against a trailing
// baseline window for one metric.
//
// DeviationPct is (current - baselineDailyRate) / baselineDailyRate * 100.
// When the baseline rate is zero and the current value is non-zero the
// deviation is defined as exactly 100 (a spike signal without a divide by
// zero); zero over zero is 0.
type BaselineComparison struct {
	Metric            string  `json:"metric"`
	CurrentValue      float64 `json:"current_value"`
	CurrentDays       int     `json:"current_days"`
	BaselineTotal     float64 `json:"baseline_total"`
	BaselineDays      int     `json:"baseline_days"`
	BaselineDailyRate float64 `json:"baseline_daily_rate"`
	DeviationPct      float64 `json:"deviation_pct"`
}

// AlertType enumerates the fixed set of alert conditions.
type AlertType string

const (
	AlertErrorSpike     AlertType = "error_spike"
	AlertNSFWSpike      AlertType = "nsfw_spike"
	AlertEngagementDrop AlertType = "engagement_drop"
	AlertRetentionDrop  AlertType = "retention_drop"
	AlertNewUsersDrop   AlertType = "new_users_drop"
)

// Severity ranks alerts. Ordering is total: critical sorts before warning,
// warning before info.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// Rank returns the sort rank of a severity (lower sorts first).
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	default:
		return 2
	}
}

// Alert is a severity-classified deviation. Alerts are ephemeral: every
// uncached computation produces a fresh set that fully replaces the prior one.
type Alert struct {
	ID            string    `json:"id"`
	Type          AlertType `json:"type"`
	Severity      Severity  `json:"severity"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Metric        string    `json:"metric"`
	CurrentValue  float64   `json:"current_value"`
	BaselineValue float64   `json:"baseline_value"`
	ChangePct     float64   `json:"change_pct"`
	AffectedUsers *int      `json:"affected_users,omitempty"`
	TriggeredAt   time.Time `json:"triggered_at"`
}

// AlertsReport is the payload of the alerts endpoint.
type AlertsReport struct {
	Alerts      []Alert              `json:"alerts"`
	Comparisons []BaselineComparison `json:"comparisons"`
	GeneratedAt time.Time            `json:"generated_at"`
	Cached      bool                 `json:"cached"`
}

// ErrorTypeSummary aggregates failure events sharing one normalized type key.
type ErrorTypeSummary struct {
	Type             string          `json:"type"`
	Category         FailureCategory `json:"category"`
	Count            int             `json:"count"`
	AffectedUsers    int             `json:"affected_users"`
	AvgRetryAttempts *float64        `json:"avg_retry_attempts,omitempty"`
	FirstSeen        *time.Time      `json:"first_seen,omitempty"`
	LastSeen         *time.Time      `json:"last_seen,omitempty"`
	Trend            string          `json:"trend"` // increasing, decreasing, stable
}

// AffectedUser summarizes one user's failure exposure for the "most affected"
// view.
type AffectedUser struct {
	UserID      string           `json:"user_id"`
	TotalErrors int64            `json:"total_errors"`
	ByCategory  map[string]int64 `json:"by_category"`
	LastActive  *time.Time       `json:"last_active,omitempty"`
}

// ErrorsReport is the payload of the errors endpoint. Types are sorted by
// count descending.
type ErrorsReport struct {
	Types        []ErrorTypeSummary `json:"types"`
	TotalEvents  int                `json:"total_events"`
	UsersScanned int                `json:"users_scanned"`
	DaysWindow   int                `json:"days_window"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Cached       bool               `json:"cached"`
}

// PerformanceReport is the payload of the performance endpoint. Users are
// sorted by total error count descending.
type PerformanceReport struct {
	MostAffected []AffectedUser `json:"most_affected"`
	TotalErrors  int64          `json:"total_errors"`
	UsersWithAny int            `json:"users_with_errors"`
	GeneratedAt  time.Time      `json:"generated_at"`
	Cached       bool           `json:"cached"`
}

// DistributionEntry is a labeled count for device/locale breakdowns.
type DistributionEntry struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// BehaviorReport is the payload of the behavior-insight endpoint.
type BehaviorReport struct {
	TotalUsers        int                 `json:"total_users"`
	ActiveToday       int                 `json:"active_today"`
	ActiveLast7Days   int                 `json:"active_last_7_days"`
	NewLast7Days      int                 `json:"new_last_7_days"`
	Totals            Counters            `json:"totals"`
	TopDevices        []DistributionEntry `json:"top_devices"`
	TopLocales        []DistributionEntry `json:"top_locales"`
	MessagesPerActive *float64            `json:"messages_per_active_user,omitempty"`
	GeneratedAt       time.Time           `json:"generated_at"`
	Cached            bool                `json:"cached"`
}

// RetentionValue converts a legacy sentinel into the optional representation:
// -1 (the historical "not yet measurable" marker) maps to nil, anything else
// to a pointer. Kept for input compatibility only; nothing here produces -1.
func RetentionValue(v float64) *float64 {
	if v == -1 {
		return nil
	}
	return &v
}
