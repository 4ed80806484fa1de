// Package status provides indexer health tracking with escalating backoff.
// Health is tracked per operation track: query failures must never block
// grabs of releases that were already found, so each track escalates and
// recovers independently.
package status

import (
	"fmt"
	"time"
)

// Track identifies which class of indexer operation health applies to.
type Track string

const (
	TrackQuery Track = "query"
	TrackGrab  Track = "grab"
)

// TrackStatus is the health record for one indexer on one track.
type TrackStatus struct {
	IndexerID         int64      `json:"indexerId"`
	Track             Track      `json:"track"`
	FailureCount      int        `json:"failureCount"`
	LastFailureReason string     `json:"lastFailureReason,omitempty"`
	LastFailureAt     *time.Time `json:"lastFailureAt,omitempty"`
	DisabledTill      *time.Time `json:"disabledTill,omitempty"`
	IsDisabled        bool       `json:"isDisabled"`
}

// BackoffConfig defines when failures disable an indexer and for how long.
type BackoffConfig struct {
	// FailuresBeforeDisable is how many consecutive failures a track
	// tolerates before the indexer is temporarily disabled on it.
	FailuresBeforeDisable int
	// Periods is the escalating backoff schedule. Escalations past the
	// end of the schedule stay at the final period.
	Periods []time.Duration
}

// DefaultBackoffConfig returns the default backoff configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		FailuresBeforeDisable: 3,
		Periods: []time.Duration{
			5 * time.Minute,
			15 * time.Minute,
			30 * time.Minute,
			1 * time.Hour,
			3 * time.Hour,
			6 * time.Hour,
			12 * time.Hour,
			24 * time.Hour,
		},
	}
}

// BackoffFor returns the backoff duration after the given consecutive
// failure count, or zero while the count is still below the threshold.
func (c BackoffConfig) BackoffFor(failureCount int) time.Duration {
	if failureCount < c.FailuresBeforeDisable || len(c.Periods) == 0 {
		return 0
	}
	level := failureCount - c.FailuresBeforeDisable
	if level >= len(c.Periods) {
		level = len(c.Periods) - 1
	}
	return c.Periods[level]
}

// HealthStatus represents the overall health of an indexer track.
type HealthStatus string

const (
	HealthStatusHealthy  HealthStatus = "healthy"
	HealthStatusWarning  HealthStatus = "warning"
	HealthStatusDisabled HealthStatus = "disabled"
)

// IndexerHealth provides a summary of indexer health on one track.
type IndexerHealth struct {
	IndexerID   int64        `json:"indexerId"`
	IndexerName string       `json:"indexerName,omitempty"`
	Track       Track        `json:"track"`
	Status      HealthStatus `json:"status"`
	Message     string       `json:"message,omitempty"`
	LastFailure *time.Time   `json:"lastFailure,omitempty"`
	DisabledFor *Duration    `json:"disabledFor,omitempty"`
}

// Duration is a JSON-serializable duration.
type Duration struct {
	time.Duration
}

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", d.String())), nil
}
