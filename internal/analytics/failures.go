// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/timewindow"
)

// policyViolationCode is the normalized error code the producing application
// uses when logging a policy-violation attempt as a generic failure event.
// The nsfw spike detection windows on these events.
const policyViolationCode = "policy_violation"

// failureFetch is one user+category sub-query result.
type failureFetch struct {
	userID   string
	category models.FailureCategory
	events   []models.FailureEvent
}

// fetchFailureEvents fans out the bounded per-user sub-queries for every
// record with a non-zero counter in one of the requested categories.
//
// Each task writes into its own preallocated slot and results are merged
// after Wait, so no accumulator is shared across goroutines. Any sub-query
// failure aborts the whole fetch: partial aggregates are never returned.
func (s *Service) fetchFailureEvents(ctx context.Context, records []models.UserCounterRecord, categories []models.FailureCategory) ([]failureFetch, error) {
	type task struct {
		userID   string
		category models.FailureCategory
	}

	var tasks []task
	for _, rec := range records {
		for _, cat := range categories {
			if hasFailureEvents(rec.Counters, cat) {
				tasks = append(tasks, task{userID: rec.UserID, category: cat})
			}
		}
	}

	results := make([]failureFetch, len(tasks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.FanoutConcurrency)

	for i, tk := range tasks {
		g.Go(func() error {
			if s.limiter != nil {
				if err := s.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			events, err := s.store.ListRecentFailureEvents(gctx, tk.userID, tk.category, s.cfg.EventFetchLimit)
			if err != nil {
				return fmt.Errorf("failure sub-query for %s/%s: %w", tk.userID, tk.category, err)
			}
			results[i] = failureFetch{userID: tk.userID, category: tk.category, events: events}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// hasFailureEvents reports whether a user's counters indicate entries in the
// category's event log. Policy-violation attempts are logged as generic
// events under their own counter, so the generic log can be non-empty while
// generic_errors is zero.
func hasFailureEvents(c models.Counters, cat models.FailureCategory) bool {
	if cat == models.FailureGeneric {
		return c.GenericErrors+c.PolicyViolations > 0
	}
	return c.ForCategory(cat) > 0
}

// typeAccumulator collects one normalized error type across users.
type typeAccumulator struct {
	category   models.FailureCategory
	count      int
	users      map[string]struct{}
	retrySum   float64
	retryCount int
	firstSeen  *time.Time
	lastSeen   *time.Time
	last7d     int
	prior7d    int
}

// AggregateErrorTypes buckets fetched events by normalized type key within
// the [now - days, now] window and computes per-type stats and trends.
//
// Events with an unknown timestamp are excluded from window bucketing and
// trends, per the malformed-data tolerance rule.
func AggregateErrorTypes(fetches []failureFetch, now time.Time, days int) ([]models.ErrorTypeSummary, int) {
	windowStart := now.Add(-time.Duration(days) * 24 * time.Hour)
	sevenDaysAgo := now.Add(-7 * 24 * time.Hour)
	fourteenDaysAgo := now.Add(-14 * 24 * time.Hour)

	acc := make(map[string]*typeAccumulator)
	total := 0

	for _, fetch := range fetches {
		for _, event := range fetch.events {
			if !event.Timestamp.Valid {
				continue
			}
			at := event.Timestamp.Time

			key := event.TypeKey()
			a, ok := acc[key]
			if !ok {
				a = &typeAccumulator{category: event.Category, users: make(map[string]struct{})}
				acc[key] = a
			}

			// Trend windows are fixed at 7d/7d regardless of the report's
			// requested range.
			switch {
			case timewindow.InWindow(at, sevenDaysAgo, now.Add(time.Nanosecond)):
				a.last7d++
			case timewindow.InWindow(at, fourteenDaysAgo, sevenDaysAgo):
				a.prior7d++
			}

			if at.Before(windowStart) || at.After(now) {
				continue
			}

			a.count++
			total++
			a.users[fetch.userID] = struct{}{}
			if event.RetryAttempts != nil {
				a.retrySum += float64(*event.RetryAttempts)
				a.retryCount++
			}
			if a.firstSeen == nil || at.Before(*a.firstSeen) {
				t := at
				a.firstSeen = &t
			}
			if a.lastSeen == nil || at.After(*a.lastSeen) {
				t := at
				a.lastSeen = &t
			}
		}
	}

	summaries := make([]models.ErrorTypeSummary, 0, len(acc))
	for key, a := range acc {
		if a.count == 0 {
			continue
		}
		summary := models.ErrorTypeSummary{
			Type:          key,
			Category:      a.category,
			Count:         a.count,
			AffectedUsers: len(a.users),
			FirstSeen:     a.firstSeen,
			LastSeen:      a.lastSeen,
			Trend:         classifyTrend(a.last7d, a.prior7d),
		}
		if a.retryCount > 0 {
			avg := a.retrySum / float64(a.retryCount)
			summary.AvgRetryAttempts = &avg
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		if summaries[i].Count != summaries[j].Count {
			return summaries[i].Count > summaries[j].Count
		}
		return summaries[i].Type < summaries[j].Type
	})
	return summaries, total
}

// classifyTrend compares the trailing 7 days against the 7 before:
// >1.5x is increasing, <0.5x is decreasing, anything else is stable.
func classifyTrend(last7d, prior7d int) string {
	switch {
	case prior7d == 0 && last7d == 0:
		return "stable"
	case prior7d == 0:
		return "increasing"
	}
	ratio := float64(last7d) / float64(prior7d)
	switch {
	case ratio > 1.5:
		return "increasing"
	case ratio < 0.5:
		return "decreasing"
	default:
		return "stable"
	}
}

// SpikeWindows are the windowed event counts feeding the spike rules: a
// rolling 24h current window against the 6 trailing days before it.
type SpikeWindows struct {
	VoiceCurrent       int
	VoiceBaseline      int
	VoiceCurrentUsers  int
	PolicyCurrent      int
	PolicyBaseline     int
	PolicyCurrentUsers int
}

// TallySpikeWindows buckets fetched events into the spike-rule windows.
// Voice spikes count voice-category events; policy spikes count generic
// events carrying the policy-violation code.
func TallySpikeWindows(fetches []failureFetch, now time.Time) SpikeWindows {
	currentStart := now.Add(-24 * time.Hour)
	baselineStart := now.Add(-7 * 24 * time.Hour)

	var w SpikeWindows
	voiceUsers := make(map[string]struct{})
	policyUsers := make(map[string]struct{})

	for _, fetch := range fetches {
		for _, event := range fetch.events {
			if !event.Timestamp.Valid {
				continue
			}
			at := event.Timestamp.Time
			if at.Before(baselineStart) || at.After(now) {
				continue
			}
			inCurrent := !at.Before(currentStart)

			switch {
			case event.Category == models.FailureVoice:
				if inCurrent {
					w.VoiceCurrent++
					voiceUsers[fetch.userID] = struct{}{}
				} else {
					w.VoiceBaseline++
				}
			case event.Category == models.FailureGeneric && event.TypeKey() == "generic:"+policyViolationCode:
				if inCurrent {
					w.PolicyCurrent++
					policyUsers[fetch.userID] = struct{}{}
				} else {
					w.PolicyBaseline++
				}
			}
		}
	}

	w.VoiceCurrentUsers = len(voiceUsers)
	w.PolicyCurrentUsers = len(policyUsers)
	return w
}
