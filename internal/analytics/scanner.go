// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

package analytics

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/avelworks/pulsewatch/internal/logging"
	"github.com/avelworks/pulsewatch/internal/models"
	"github.com/avelworks/pulsewatch/internal/store"
)

// ScanResult is one full pass over the counter collection.
type ScanResult struct {
	Records   []models.UserCounterRecord
	Scanned   int
	Malformed int
}

// ScanUsers reads every user counter document and converts it through the
// validated-record boundary. Malformed documents are skipped and logged, never
// fatal: the collection spans several schema generations and one bad record
// must not abort the other 499. Store-level failures abort the whole scan.
func ScanUsers(ctx context.Context, st store.Store) (*ScanResult, error) {
	result := &ScanResult{}

	err := st.ForEachUserDocument(ctx, func(userID string, data []byte) error {
		result.Scanned++

		var raw models.RawUserRecord
		if err := json.Unmarshal(data, &raw); err != nil {
			result.Malformed++
			logging.Ctx(ctx).Warn().Str("user_id", userID).Err(err).Msg("skipping undecodable counter document")
			return nil
		}
		if raw.UserID == "" {
			raw.UserID = userID
		}

		rec, err := models.ParseUserRecord(raw)
		if err != nil {
			result.Malformed++
			logging.Ctx(ctx).Warn().Str("user_id", userID).Err(err).Msg("skipping malformed counter record")
			return nil
		}

		result.Records = append(result.Records, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", store.ErrUnavailable, err)
	}

	if result.Malformed > 0 {
		logging.Ctx(ctx).Info().
			Int("scanned", result.Scanned).
			Int("malformed", result.Malformed).
			Msg("counter scan completed with skipped records")
	}
	return result, nil
}
