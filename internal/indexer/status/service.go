package status

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Service tracks indexer health per operation track.
type Service struct {
	db     *sql.DB
	config BackoffConfig
	logger zerolog.Logger
}

// NewService creates a new status service with default configuration.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return NewServiceWithConfig(db, DefaultBackoffConfig(), logger)
}

// NewServiceWithConfig creates a new status service with custom configuration.
func NewServiceWithConfig(db *sql.DB, config BackoffConfig, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		config: config,
		logger: logger.With().Str("component", "indexer-status").Logger(),
	}
}

// GetConfig returns the current backoff configuration.
func (s *Service) GetConfig() BackoffConfig {
	return s.config
}

// GetStatus retrieves the current status for an indexer track. Indexers
// without a record are healthy.
func (s *Service) GetStatus(ctx context.Context, indexerID int64, track Track) (*TrackStatus, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT indexer_id, track, failure_count, last_failure_reason, last_failure_at, disabled_till
		FROM indexer_status WHERE indexer_id = ? AND track = ?`, indexerID, track)

	status := &TrackStatus{}
	var trackName string
	var reason sql.NullString
	var lastFailureAt, disabledTill sql.NullTime
	err := row.Scan(&status.IndexerID, &trackName, &status.FailureCount, &reason, &lastFailureAt, &disabledTill)
	if errors.Is(err, sql.ErrNoRows) {
		return &TrackStatus{IndexerID: indexerID, Track: track}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting indexer %d %s status: %w", indexerID, track, err)
	}

	status.Track = Track(trackName)
	status.LastFailureReason = reason.String
	if lastFailureAt.Valid {
		t := lastFailureAt.Time
		status.LastFailureAt = &t
	}
	if disabledTill.Valid {
		t := disabledTill.Time
		status.DisabledTill = &t
		status.IsDisabled = t.After(time.Now())
	}
	return status, nil
}

// RecordFailure records a failed operation on a track. Once the consecutive
// failure count reaches the configured threshold the track is disabled,
// escalating through the backoff schedule on each further failure.
// The increment happens inside the upsert so concurrent failures for the
// same indexer never lose counts.
func (s *Service) RecordFailure(ctx context.Context, indexerID int64, track Track, opError error) error {
	now := time.Now().UTC()
	reason := ""
	if opError != nil {
		reason = opError.Error()
	}

	var newCount int
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO indexer_status (indexer_id, track, failure_count, last_failure_reason, last_failure_at, disabled_till)
		VALUES (?, ?, 1, ?, ?, NULL)
		ON CONFLICT(indexer_id, track) DO UPDATE SET
			failure_count = indexer_status.failure_count + 1,
			last_failure_reason = excluded.last_failure_reason,
			last_failure_at = excluded.last_failure_at
		RETURNING failure_count`,
		indexerID, track, reason, now,
	).Scan(&newCount)
	if err != nil {
		return fmt.Errorf("recording indexer %d %s failure: %w", indexerID, track, err)
	}

	var disabledTill sql.NullTime
	backoff := s.config.BackoffFor(newCount)
	if backoff > 0 {
		disabledTill = sql.NullTime{Time: now.Add(backoff), Valid: true}
		_, err = s.db.ExecContext(ctx, `
			UPDATE indexer_status SET disabled_till = ? WHERE indexer_id = ? AND track = ?`,
			disabledTill, indexerID, track,
		)
		if err != nil {
			return fmt.Errorf("disabling indexer %d %s: %w", indexerID, track, err)
		}
	}

	event := s.logger.Warn().
		Int64("indexerId", indexerID).
		Str("track", string(track)).
		Int("failureCount", newCount).
		Err(opError)
	if backoff > 0 {
		event.Dur("backoff", backoff).Time("disabledTill", disabledTill.Time).
			Msg("Indexer failure, applying backoff")
	} else {
		event.Msg("Indexer failure recorded")
	}
	return nil
}

// RecordSuccess records a successful operation and clears the failure
// state for the track.
func (s *Service) RecordSuccess(ctx context.Context, indexerID int64, track Track) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM indexer_status WHERE indexer_id = ? AND track = ?`, indexerID, track)
	if err != nil {
		return fmt.Errorf("clearing indexer %d %s status: %w", indexerID, track, err)
	}

	if affected, err := result.RowsAffected(); err == nil && affected > 0 {
		s.logger.Debug().
			Int64("indexerId", indexerID).
			Str("track", string(track)).
			Msg("Indexer recovered, failure state cleared")
	}
	return nil
}

// IsDisabled checks if an indexer track is currently in backoff.
func (s *Service) IsDisabled(ctx context.Context, indexerID int64, track Track) (bool, *time.Time, error) {
	status, err := s.GetStatus(ctx, indexerID, track)
	if err != nil {
		return false, nil, err
	}
	if status.DisabledTill == nil || time.Now().After(*status.DisabledTill) {
		return false, nil, nil
	}
	return true, status.DisabledTill, nil
}

// DisabledSet returns the IDs currently disabled on the given track.
func (s *Service) DisabledSet(ctx context.Context, track Track) (map[int64]time.Time, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT indexer_id, disabled_till FROM indexer_status
		WHERE track = ? AND disabled_till IS NOT NULL AND disabled_till > ?`,
		track, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("listing disabled indexers: %w", err)
	}
	defer rows.Close()

	disabled := make(map[int64]time.Time)
	for rows.Next() {
		var id int64
		var till time.Time
		if err := rows.Scan(&id, &till); err != nil {
			return nil, err
		}
		disabled[id] = till
	}
	return disabled, rows.Err()
}

// GetHealth returns the health summary for an indexer track.
func (s *Service) GetHealth(ctx context.Context, indexerID int64, indexerName string, track Track) (*IndexerHealth, error) {
	status, err := s.GetStatus(ctx, indexerID, track)
	if err != nil {
		return nil, err
	}

	health := &IndexerHealth{
		IndexerID:   indexerID,
		IndexerName: indexerName,
		Track:       track,
		LastFailure: status.LastFailureAt,
	}

	switch {
	case status.DisabledTill != nil && time.Now().Before(*status.DisabledTill):
		remaining := time.Until(*status.DisabledTill)
		health.Status = HealthStatusDisabled
		health.DisabledFor = &Duration{remaining}
		health.Message = fmt.Sprintf("Disabled for %s after %d failures", remaining.Round(time.Minute), status.FailureCount)
	case status.FailureCount > 0:
		health.Status = HealthStatusWarning
		health.Message = fmt.Sprintf("Experienced %d recent failure(s)", status.FailureCount)
	default:
		health.Status = HealthStatusHealthy
		health.Message = "Operating normally"
	}
	return health, nil
}

// ClearStatus clears all health state for an indexer on both tracks.
func (s *Service) ClearStatus(ctx context.Context, indexerID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM indexer_status WHERE indexer_id = ?`, indexerID); err != nil {
		return fmt.Errorf("clearing indexer %d status: %w", indexerID, err)
	}
	s.logger.Info().Int64("indexerId", indexerID).Msg("Cleared indexer status")
	return nil
}
