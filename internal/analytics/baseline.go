// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import "github.com/avelworks/pulsewatch/internal/models"

// Compare builds a BaselineComparison for one metric. The baseline daily rate
// is baselineTotal / baselineDays; the deviation compares the current window's
// daily rate against it, so multi-day current windows stay commensurable with
// the baseline.
//
// Divide-by-zero rule: zero baseline with zero current is 0 deviation; zero
// baseline with non-zero current is exactly 100 (a spike signal, not NaN).
func Compare(metric string, currentTotal float64, currentDays int, baselineTotal float64, baselineDays int) models.BaselineComparison {
	if currentDays < 1 {
		currentDays = 1
	}

	var baselineRate float64
	if baselineDays > 0 {
		baselineRate = baselineTotal / float64(baselineDays)
	}
	currentRate := currentTotal / float64(currentDays)

	var deviation float64
	switch {
	case baselineRate == 0 && currentRate == 0:
		deviation = 0
	case baselineRate == 0:
		deviation = 100
	default:
		deviation = (currentRate - baselineRate) / baselineRate * 100
	}

	return models.BaselineComparison{
		Metric:            metric,
		CurrentValue:      currentTotal,
		CurrentDays:       currentDays,
		BaselineTotal:     baselineTotal,
		BaselineDays:      baselineDays,
		BaselineDailyRate: baselineRate,
		DeviationPct:      deviation,
	}
}
