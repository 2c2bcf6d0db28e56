// Pulsewatch - Usage Analytics Aggregation and Anomaly Alerting
// Copyright 2026 Avel Works
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/avelworks/pulsewatch

// Package models defines the data model shared by the store adapter, the
// analytics engine, and the API layer.
//
// The store holds documents written by the producing application over several
// schema generations, so raw records are deliberately loose: timestamps may be
// RFC 3339 strings, unix epoch seconds, or epoch milliseconds, and any optional
// field may be absent. ParseUserRecord is the single boundary where that
// looseness is converted into a validated UserCounterRecord; everything
// downstream works with the validated form only.
package models

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ErrMalformedRecord marks a record that cannot be converted into a validated
// form. Scans skip (and log) malformed records instead of aborting.
var ErrMalformedRecord = errors.New("malformed record")

// FailureCategory classifies a failure event by the subsystem that produced it.
type FailureCategory string

const (
	FailureVoice   FailureCategory = "voice"
	FailureImage   FailureCategory = "image"
	FailureGeneric FailureCategory = "generic"
)

// ParseFailureCategory validates a category string from a raw document or a
// query parameter.
func ParseFailureCategory(s string) (FailureCategory, error) {
	switch FailureCategory(strings.ToLower(strings.TrimSpace(s))) {
	case FailureVoice:
		return FailureVoice, nil
	case FailureImage:
		return FailureImage, nil
	case FailureGeneric:
		return FailureGeneric, nil
	default:
		return "", fmt.Errorf("%w: unknown failure category %q", ErrMalformedRecord, s)
	}
}

// FlexTime is a timestamp field that tolerates the representations found in
// historical store documents: RFC 3339 strings, unix seconds, unix
// milliseconds, and JSON null. The zero value means "unknown".
type FlexTime struct {
	Time  time.Time
	Valid bool
}

// epochMillisCutoff separates unix-second values from unix-millisecond values.
// Any number above this is interpreted as milliseconds (year ~2286 in seconds).
const epochMillisCutoff = 1e10

// UnmarshalJSON implements json.Unmarshaler with tolerant timestamp parsing.
func (f *FlexTime) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*f = FlexTime{}
		return nil
	}

	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(data, &str); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
		}
		t, err := time.Parse(time.RFC3339, str)
		if err != nil {
			// Some producers drop the timezone suffix.
			t, err = time.Parse("2006-01-02T15:04:05", str)
		}
		if err != nil {
			return fmt.Errorf("%w: unparseable timestamp %q", ErrMalformedRecord, str)
		}
		*f = FlexTime{Time: t.UTC(), Valid: true}
		return nil
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("%w: unparseable timestamp %s", ErrMalformedRecord, s)
	}
	if n <= 0 {
		*f = FlexTime{}
		return nil
	}
	if n > epochMillisCutoff {
		*f = FlexTime{Time: time.UnixMilli(int64(n)).UTC(), Valid: true}
		return nil
	}
	*f = FlexTime{Time: time.Unix(int64(n), 0).UTC(), Valid: true}
	return nil
}

// MarshalJSON writes RFC 3339 or null.
func (f FlexTime) MarshalJSON() ([]byte, error) {
	if !f.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(f.Time.Format(time.RFC3339))
}

// Ptr returns the timestamp as *time.Time, nil when unknown.
func (f FlexTime) Ptr() *time.Time {
	if !f.Valid {
		return nil
	}
	t := f.Time
	return &t
}

// Counters holds the monotonically increasing per-user usage counters.
// The producing application owns the writes; the engine treats these as
// read-only snapshots.
type Counters struct {
	MessagesSent     int64 `json:"messages_sent"`
	ImagesGenerated  int64 `json:"images_generated"`
	VoiceSessions    int64 `json:"voice_sessions"`
	AppOpens         int64 `json:"app_opens"`
	VoiceFailures    int64 `json:"voice_failures"`
	ImageFailures    int64 `json:"image_failures"`
	GenericErrors    int64 `json:"generic_errors"`
	PolicyViolations int64 `json:"policy_violations"`
}

// ForCategory returns the failure counter matching a category.
func (c Counters) ForCategory(cat FailureCategory) int64 {
	switch cat {
	case FailureVoice:
		return c.VoiceFailures
	case FailureImage:
		return c.ImageFailures
	default:
		return c.GenericErrors
	}
}

// RawUserRecord is the store-level document shape, prior to validation.
type RawUserRecord struct {
	UserID       string   `json:"user_id"`
	FirstSeenAt  FlexTime `json:"first_seen_at"`
	LastActiveAt FlexTime `json:"last_active_at"`
	Counters     Counters `json:"counters"`
	Device       string   `json:"device,omitempty"`
	AppVersion   string   `json:"app_version,omitempty"`
	Locale       string   `json:"locale,omitempty"`
}

// UserCounterRecord is the validated per-user aggregate consumed by the
// engine. Optional timestamps are nil when the source document had no usable
// value; window bucketing excludes them rather than defaulting to epoch.
type UserCounterRecord struct {
	UserID       string
	FirstSeenAt  *time.Time
	LastActiveAt *time.Time
	Counters     Counters
	Device       string
	AppVersion   string
	Locale       string
}

// ParseUserRecord converts a raw store document into a validated record.
// A missing user ID or negative counter makes the record malformed; missing
// timestamps are allowed and surface as nil.
func ParseUserRecord(raw RawUserRecord) (UserCounterRecord, error) {
	if strings.TrimSpace(raw.UserID) == "" {
		return UserCounterRecord{}, fmt.Errorf("%w: empty user id", ErrMalformedRecord)
	}
	for name, v := range map[string]int64{
		"messages_sent":     raw.Counters.MessagesSent,
		"images_generated":  raw.Counters.ImagesGenerated,
		"voice_sessions":    raw.Counters.VoiceSessions,
		"app_opens":         raw.Counters.AppOpens,
		"voice_failures":    raw.Counters.VoiceFailures,
		"image_failures":    raw.Counters.ImageFailures,
		"generic_errors":    raw.Counters.GenericErrors,
		"policy_violations": raw.Counters.PolicyViolations,
	} {
		if v < 0 {
			return UserCounterRecord{}, fmt.Errorf("%w: negative counter %s=%d for user %s", ErrMalformedRecord, name, v, raw.UserID)
		}
	}
	if raw.FirstSeenAt.Valid && raw.LastActiveAt.Valid && raw.LastActiveAt.Time.Before(raw.FirstSeenAt.Time) {
		return UserCounterRecord{}, fmt.Errorf("%w: last_active_at precedes first_seen_at for user %s", ErrMalformedRecord, raw.UserID)
	}

	return UserCounterRecord{
		UserID:       raw.UserID,
		FirstSeenAt:  raw.FirstSeenAt.Ptr(),
		LastActiveAt: raw.LastActiveAt.Ptr(),
		Counters:     raw.Counters,
		Device:       raw.Device,
		AppVersion:   raw.AppVersion,
		Locale:       raw.Locale,
	}, nil
}

// FailureEvent is one entry of a per-user failure sub-log. Fetches return the
// most-recent N entries only; aggregation over them is a defined
// approximation, not exhaustive history.
type FailureEvent struct {
	UserID        string          `json:"user_id"`
	Category      FailureCategory `json:"category"`
	Code          string          `json:"code,omitempty"`
	RetryAttempts *int            `json:"retry_attempts,omitempty"`
	Timestamp     FlexTime        `json:"timestamp"`
}

// TypeKey normalizes a failure event into an error-type bucket key:
// the category alone, or "category:code" when a sub-code is present.
func (e FailureEvent) TypeKey() string {
	code := strings.TrimSpace(strings.ToLower(e.Code))
	if code == "" {
		return string(e.Category)
	}
	return string(e.Category) + ":" + code
}
