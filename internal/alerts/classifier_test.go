// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package alerts

import (
	"testing"
	"time"

	"github.com/avelworks/pulsewatch/internal/models"
)

func comparison(metric string, current float64, rate float64, deviation float64) models.BaselineComparison {
	return models.BaselineComparison{
		Metric:            metric,
		CurrentValue:      current,
		CurrentDays:       1,
		BaselineDailyRate: rate,
		DeviationPct:      deviation,
	}
}

// afternoon is past the incomplete-day gate for the daily engagement rule.
var afternoon = time.Date(2024, 3, 15, 14, 0, 0, 0, time.UTC)

func TestSpikeRules(t *testing.T) {

	tests := []struct {
		name         string
		voice        models.BaselineComparison
		wantFired    bool
		wantSeverity models.Severity
	}{
		{
			name:         "warning above threshold",
			voice:        comparison("voice_failures", 5, 2, 80),
			wantFired:    true,
			wantSeverity: models.SeverityWarning,
		},
		{
			name:         "critical above 100 percent",
			voice:        comparison("voice_failures", 4, 1, 300),
			wantFired:    true,
			wantSeverity: models.SeverityCritical,
		},
		{
			name: "floor suppresses tiny denominators",
			// 300% up but only 2 events: below the absolute floor.
			voice:     comparison("voice_failures", 2, 0.5, 300),
			wantFired: false,
		},
		{
			name:      "deviation at threshold does not fire",
			voice:     comparison("voice_failures", 9, 2, 50),
			wantFired: false,
		},
		{
			name:      "quiet baseline no deviation",
			voice:     comparison("voice_failures", 0, 0, 0),
			wantFired: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(Input{VoiceFailures: tt.voice, VoiceFailureUsers: 2, Now: afternoon})

			if !tt.wantFired {
				if len(got) != 0 {
					t.Fatalf("expected no alerts, got %+v", got)
				}
				return
			}
			if len(got) != 1 {
				t.Fatalf("got %d alerts, want 1", len(got))
			}
			a := got[0]
			if a.Type != models.AlertErrorSpike {
				t.Errorf("Type = %s, want error_spike", a.Type)
			}
			if a.Severity != tt.wantSeverity {
				t.Errorf("Severity = %s, want %s", a.Severity, tt.wantSeverity)
			}
			if a.AffectedUsers == nil || *a.AffectedUsers != 2 {
				t.Errorf("AffectedUsers = %v, want 2", a.AffectedUsers)
			}
			if a.ID == "" {
				t.Error("alert ID must be set")
			}
			if !a.TriggeredAt.Equal(afternoon) {
				t.Errorf("TriggeredAt = %v, want %v", a.TriggeredAt, afternoon)
			}
		})
	}
}

func TestPolicyViolationSpike(t *testing.T) {

	got := Classify(Input{
		PolicyViolations:     comparison("policy_violations", 6, 1, 500),
		PolicyViolationUsers: 3,
		Now:                  afternoon,
	})

	if len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	if got[0].Type != models.AlertNSFWSpike {
		t.Errorf("Type = %s, want nsfw_spike", got[0].Type)
	}
	if got[0].Severity != models.SeverityCritical {
		t.Errorf("Severity = %s, want critical for 500%%", got[0].Severity)
	}
	if got[0].AffectedUsers == nil || *got[0].AffectedUsers != 3 {
		t.Errorf("AffectedUsers = %v, want 3", got[0].AffectedUsers)
	}
}

func TestDailyEngagementDropGates(t *testing.T) {

	drop := comparison("daily_active_users", 4, 12, -66.7)

	t.Run("fires in the afternoon", func(t *testing.T) {
		got := Classify(Input{DailyEngagement: drop, Now: afternoon})
		if len(got) != 1 || got[0].Severity != models.SeverityCritical {
			t.Fatalf("want one critical engagement_drop, got %+v", got)
		}
	})

	t.Run("suppressed before mid-morning", func(t *testing.T) {
		earlyMorning := time.Date(2024, 3, 15, 7, 0, 0, 0, time.UTC)
		if got := Classify(Input{DailyEngagement: drop, Now: earlyMorning}); len(got) != 0 {
			t.Fatalf("incomplete-day data should not alert, got %+v", got)
		}
	})

	t.Run("floor suppresses small baselines", func(t *testing.T) {
		small := comparison("daily_active_users", 2, 6, -66.7)
		if got := Classify(Input{DailyEngagement: small, Now: afternoon}); len(got) != 0 {
			t.Fatalf("baseline below floor should not alert, got %+v", got)
		}
	})
}

func TestDailyEngagementBeatsWeekly(t *testing.T) {

	got := Classify(Input{
		DailyEngagement:  comparison("daily_active_users", 5, 15, -40),
		WeeklyEngagement: comparison("weekly_active_users", 10, 20, -50),
		Now:              afternoon,
	})

	if len(got) != 1 {
		t.Fatalf("got %d alerts, want one deduplicated engagement_drop", len(got))
	}
	if got[0].Metric != "daily_active_users" {
		t.Errorf("Metric = %q, want the daily rule to win the dedup", got[0].Metric)
	}
}

func TestWeeklyEngagementDropAlone(t *testing.T) {

	got := Classify(Input{
		WeeklyEngagement: comparison("weekly_active_users", 10, 20, -50),
		Now:              afternoon,
	})

	if len(got) != 1 {
		t.Fatalf("got %d alerts, want 1", len(got))
	}
	if got[0].Type != models.AlertEngagementDrop || got[0].Metric != "weekly_active_users" {
		t.Errorf("got %s/%s, want engagement_drop on the weekly metric", got[0].Type, got[0].Metric)
	}
	if got[0].Severity != models.SeverityCritical {
		t.Errorf("Severity = %s, want critical below -40%%", got[0].Severity)
	}
}

func TestNewUsersDropSeveritySplit(t *testing.T) {

	tests := []struct {
		name      string
		deviation float64
		want      models.Severity
	}{
		{"mild drop is informational", -35, models.SeverityInfo},
		{"steep drop is a warning", -55, models.SeverityWarning},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(Input{
				NewUsers: comparison("new_users", 3, 7, tt.deviation),
				Now:      afternoon,
			})
			if len(got) != 1 {
				t.Fatalf("got %d alerts, want 1", len(got))
			}
			if got[0].Type != models.AlertNewUsersDrop {
				t.Errorf("Type = %s, want new_users_drop", got[0].Type)
			}
			if got[0].Severity != tt.want {
				t.Errorf("Severity = %s, want %s", got[0].Severity, tt.want)
			}
		})
	}
}

func TestClassifySortsBySeverity(t *testing.T) {

	got := Classify(Input{
		// Warning spike.
		VoiceFailures: comparison("voice_failures", 5, 2, 80),
		// Critical weekly drop.
		WeeklyEngagement: comparison("weekly_active_users", 10, 20, -50),
		// Info new-users drop.
		NewUsers: comparison("new_users", 3, 7, -35),
		Now:      afternoon,
	})

	if len(got) != 3 {
		t.Fatalf("got %d alerts, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i-1].Severity.Rank() > got[i].Severity.Rank() {
			t.Fatalf("alerts not sorted by severity: %s before %s", got[i-1].Severity, got[i].Severity)
		}
	}
	if got[0].Type != models.AlertEngagementDrop {
		t.Errorf("first alert = %s, want the critical engagement_drop", got[0].Type)
	}
	if got[2].Type != models.AlertNewUsersDrop {
		t.Errorf("last alert = %s, want the info new_users_drop", got[2].Type)
	}
}

func TestQuietInputProducesNoAlerts(t *testing.T) {

	if got := Classify(Input{Now: afternoon}); len(got) != 0 {
		t.Fatalf("all-zero input should be quiet, got %+v", got)
	}
}
