// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package alerts turns baseline comparisons into severity-classified alerts
// through a fixed, ordered rule table.
//
// Every rule requires BOTH its deviation threshold and its absolute floor:
// the floor keeps small denominators from producing dramatic percentages (a
// jump from 1 to 2 failures is a 100% increase nobody should be paged for).
// At most one alert fires per alert type per run, and the final list is
// stable-sorted critical, warning, info with rule order preserved inside a
// severity.
package alerts

import (
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avelworks/pulsewatch/internal/models"
)

// Input carries everything one classification run needs. All comparisons are
// precomputed; the classifier itself is a pure function of this struct.
type Input struct {
	VoiceFailures    models.BaselineComparison
	PolicyViolations models.BaselineComparison
	DailyEngagement  models.BaselineComparison
	WeeklyEngagement models.BaselineComparison
	NewUsers         models.BaselineComparison

	// Distinct users with events in the current spike windows.
	VoiceFailureUsers    int
	PolicyViolationUsers int

	// Now gates the incomplete-day rule and stamps TriggeredAt.
	Now time.Time
}

// rule is one row of the fixed table. evaluate returns nil when the rule does
// not fire.
type rule struct {
	alertType models.AlertType
	evaluate  func(in Input) *models.Alert
}

// spikeThreshold and spikeFloor gate the error/nsfw spike rules; a deviation
// beyond spikeCritical upgrades them.
const (
	spikeThreshold = 50.0
	spikeCritical  = 100.0
	spikeFloor     = 3.0

	dailyDropThreshold = -30.0
	dailyDropCritical  = -50.0
	dailyDropFloor     = 10.0
	dailyDropMinHour   = 10

	weeklyDropThreshold = -20.0
	weeklyDropCritical  = -40.0
	weeklyDropFloor     = 5.0

	newUsersDropThreshold = -30.0
	newUsersDropWarning   = -40.0
	newUsersDropFloor     = 3.0
)

// ruleTable is evaluated in order; order matters for dedup and for severity
// ties in the final sort.
var ruleTable = []rule{
	{
		alertType: models.AlertErrorSpike,
		evaluate: func(in Input) *models.Alert {
			c := in.VoiceFailures
			if c.DeviationPct <= spikeThreshold || c.CurrentValue < spikeFloor {
				return nil
			}
			severity := models.SeverityWarning
			if c.DeviationPct > spikeCritical {
				severity = models.SeverityCritical
			}
			a := newAlert(models.AlertErrorSpike, severity, c, in.Now)
			a.Title = "Voice failure spike"
			a.Description = fmt.Sprintf("Voice failures in the last 24h are %.0f%% above the trailing baseline (%.0f vs %.1f/day).",
				c.DeviationPct, c.CurrentValue, c.BaselineDailyRate)
			a.AffectedUsers = intPtr(in.VoiceFailureUsers)
			return a
		},
	},
	{
		alertType: models.AlertNSFWSpike,
		evaluate: func(in Input) *models.Alert {
			c := in.PolicyViolations
			if c.DeviationPct <= spikeThreshold || c.CurrentValue < spikeFloor {
				return nil
			}
			severity := models.SeverityWarning
			if c.DeviationPct > spikeCritical {
				severity = models.SeverityCritical
			}
			a := newAlert(models.AlertNSFWSpike, severity, c, in.Now)
			a.Title = "Policy violation spike"
			a.Description = fmt.Sprintf("Policy-violation attempts in the last 24h are %.0f%% above the trailing baseline (%.0f vs %.1f/day).",
				c.DeviationPct, c.CurrentValue, c.BaselineDailyRate)
			a.AffectedUsers = intPtr(in.PolicyViolationUsers)
			return a
		},
	},
	{
		alertType: models.AlertEngagementDrop,
		evaluate: func(in Input) *models.Alert {
			// Before mid-morning today's data is too incomplete to trust.
			if in.Now.Hour() < dailyDropMinHour {
				return nil
			}
			c := in.DailyEngagement
			if c.DeviationPct >= dailyDropThreshold || c.BaselineDailyRate < dailyDropFloor {
				return nil
			}
			severity := models.SeverityWarning
			if c.DeviationPct < dailyDropCritical {
				severity = models.SeverityCritical
			}
			a := newAlert(models.AlertEngagementDrop, severity, c, in.Now)
			a.Title = "Daily engagement drop"
			a.Description = fmt.Sprintf("Daily active users are %.0f%% below the trailing baseline (%.0f vs %.1f/day).",
				-c.DeviationPct, c.CurrentValue, c.BaselineDailyRate)
			return a
		},
	},
	{
		alertType: models.AlertEngagementDrop,
		evaluate: func(in Input) *models.Alert {
			c := in.WeeklyEngagement
			if c.DeviationPct >= weeklyDropThreshold || c.BaselineDailyRate < weeklyDropFloor {
				return nil
			}
			severity := models.SeverityWarning
			if c.DeviationPct < weeklyDropCritical {
				severity = models.SeverityCritical
			}
			a := newAlert(models.AlertEngagementDrop, severity, c, in.Now)
			a.Title = "Weekly engagement drop"
			a.Description = fmt.Sprintf("Weekly active users are %.0f%% below the prior week (%.0f vs %.1f/day).",
				-c.DeviationPct, c.CurrentValue, c.BaselineDailyRate)
			return a
		},
	},
	{
		alertType: models.AlertNewUsersDrop,
		evaluate: func(in Input) *models.Alert {
			c := in.NewUsers
			if c.DeviationPct >= newUsersDropThreshold || c.BaselineDailyRate < newUsersDropFloor {
				return nil
			}
			severity := models.SeverityInfo
			if c.DeviationPct < newUsersDropWarning {
				severity = models.SeverityWarning
			}
			a := newAlert(models.AlertNewUsersDrop, severity, c, in.Now)
			a.Title = "New user signups down"
			a.Description = fmt.Sprintf("New users this week are %.0f%% below the prior week (%.0f vs %.1f/day).",
				-c.DeviationPct, c.CurrentValue, c.BaselineDailyRate)
			return a
		},
	},
}

// Classify evaluates the rule table against one run's comparisons. Each run
// fully replaces the prior alert set; nothing persists between runs.
func Classify(in Input) []models.Alert {
	var result []models.Alert
	fired := make(map[models.AlertType]bool)

	for _, r := range ruleTable {
		if fired[r.alertType] {
			continue
		}
		if a := r.evaluate(in); a != nil {
			fired[r.alertType] = true
			result = append(result, *a)
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Severity.Rank() < result[j].Severity.Rank()
	})
	return result
}

func newAlert(alertType models.AlertType, severity models.Severity, c models.BaselineComparison, now time.Time) *models.Alert {
	return &models.Alert{
		ID:            uuid.New().String(),
		Type:          alertType,
		Severity:      severity,
		Metric:        c.Metric,
		CurrentValue:  c.CurrentValue,
		BaselineValue: c.BaselineDailyRate,
		ChangePct:     c.DeviationPct,
		TriggeredAt:   now,
	}
}

func intPtr(v int) *int {
	return &v
}
