package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/release"
)

// ErrNotFound is returned when a grab record does not exist.
var ErrNotFound = errors.New("history entry not found")

// Service provides grab history and blocklist management.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new history service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "history").Logger(),
	}
}

// RecordGrab records a dispatched release and returns the new record.
func (s *Service) RecordGrab(ctx context.Context, input GrabInput) (*GrabRecord, error) {
	record := &GrabRecord{
		ID:          uuid.NewString(),
		EventID:     input.EventID,
		PartName:    input.PartName,
		Title:       input.Title,
		Indexer:     input.Indexer,
		GUID:        input.GUID,
		DownloadURL: input.DownloadURL,
		InfoHash:    strings.ToLower(input.InfoHash),
		Protocol:    input.Protocol,
		Quality:     input.Quality,
		Codec:       input.Codec,
		ClientName:  input.ClientName,
		DownloadID:  input.DownloadID,
		GrabbedAt:   time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO grab_history (id, event_id, part_name, title, indexer, guid, download_url, info_hash,
			protocol, quality, codec, client_name, download_id, grabbed_at, imported, file_exists)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, 0)`,
		record.ID, record.EventID, record.PartName, record.Title, record.Indexer, record.GUID,
		record.DownloadURL, record.InfoHash, string(record.Protocol), record.Quality, record.Codec,
		record.ClientName, record.DownloadID, record.GrabbedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("recording grab: %w", err)
	}

	s.logger.Info().
		Str("id", record.ID).
		Int64("eventId", record.EventID).
		Str("title", record.Title).
		Str("indexer", record.Indexer).
		Msg("Grab recorded")
	return record, nil
}

// GetGrab returns a grab record by ID.
func (s *Service) GetGrab(ctx context.Context, id string) (*GrabRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, part_name, title, indexer, guid, download_url, info_hash,
			protocol, quality, codec, client_name, download_id, grabbed_at, imported, file_exists
		FROM grab_history WHERE id = ?`, id)
	record, err := scanGrab(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

// ListGrabsForEvent returns the grabs for an event, newest first.
func (s *Service) ListGrabsForEvent(ctx context.Context, eventID int64) ([]*GrabRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, part_name, title, indexer, guid, download_url, info_hash,
			protocol, quality, codec, client_name, download_id, grabbed_at, imported, file_exists
		FROM grab_history WHERE event_id = ? ORDER BY grabbed_at DESC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("listing grabs for event %d: %w", eventID, err)
	}
	defer rows.Close()

	var records []*GrabRecord
	for rows.Next() {
		record, err := scanGrab(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// MarkImported flags a grab as imported into the library.
func (s *Service) MarkImported(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE grab_history SET imported = 1, file_exists = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("marking grab %s imported: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// AddToBlocklist records a release so future searches skip it.
func (s *Service) AddToBlocklist(ctx context.Context, input BlocklistInput) (*BlocklistItem, error) {
	item := &BlocklistItem{
		Title:     input.Title,
		Indexer:   input.Indexer,
		Protocol:  input.Protocol,
		InfoHash:  strings.ToLower(input.InfoHash),
		EventID:   input.EventID,
		PartName:  input.PartName,
		Reason:    input.Reason,
		BlockedAt: time.Now().UTC(),
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO blocklist (title, indexer, protocol, info_hash, event_id, part_name, reason, blocked_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Title, item.Indexer, string(item.Protocol), item.InfoHash,
		nullableID(item.EventID), item.PartName, item.Reason, item.BlockedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("adding to blocklist: %w", err)
	}
	item.ID, err = result.LastInsertId()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("title", item.Title).
		Str("indexer", item.Indexer).
		Str("reason", item.Reason).
		Msg("Release blocklisted")
	return item, nil
}

// IsBlocklisted checks a release against the blocklist. A torrent matches
// on info hash; any release matches on normalized title plus indexer, so a
// re-listed title with different separators still matches.
func (s *Service) IsBlocklisted(ctx context.Context, info types.ReleaseInfo) (bool, error) {
	if info.InfoHash != "" {
		var count int
		err := s.db.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM blocklist WHERE info_hash = ?`,
			strings.ToLower(info.InfoHash)).Scan(&count)
		if err != nil {
			return false, fmt.Errorf("checking blocklist by hash: %w", err)
		}
		if count > 0 {
			return true, nil
		}
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title FROM blocklist WHERE indexer = ?`, info.IndexerName)
	if err != nil {
		return false, fmt.Errorf("checking blocklist by title: %w", err)
	}
	defer rows.Close()

	want := release.NormalizeTitle(info.Title)
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return false, err
		}
		if release.NormalizeTitle(title) == want {
			return true, nil
		}
	}
	return false, rows.Err()
}

// ListBlocklist returns all blocklist items, newest first.
func (s *Service) ListBlocklist(ctx context.Context) ([]*BlocklistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, indexer, protocol, info_hash, event_id, part_name, reason, blocked_at
		FROM blocklist ORDER BY blocked_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing blocklist: %w", err)
	}
	defer rows.Close()

	var items []*BlocklistItem
	for rows.Next() {
		item := &BlocklistItem{}
		var protocol string
		var eventID sql.NullInt64
		if err := rows.Scan(&item.ID, &item.Title, &item.Indexer, &protocol, &item.InfoHash,
			&eventID, &item.PartName, &item.Reason, &item.BlockedAt); err != nil {
			return nil, err
		}
		item.Protocol = types.Protocol(protocol)
		item.EventID = eventID.Int64
		items = append(items, item)
	}
	return items, rows.Err()
}

// RemoveFromBlocklist deletes a blocklist item.
func (s *Service) RemoveFromBlocklist(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM blocklist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("removing blocklist item %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrab(row rowScanner) (*GrabRecord, error) {
	record := &GrabRecord{}
	var protocol string
	err := row.Scan(
		&record.ID, &record.EventID, &record.PartName, &record.Title, &record.Indexer,
		&record.GUID, &record.DownloadURL, &record.InfoHash, &protocol, &record.Quality,
		&record.Codec, &record.ClientName, &record.DownloadID, &record.GrabbedAt,
		&record.Imported, &record.FileExists,
	)
	if err != nil {
		return nil, err
	}
	record.Protocol = types.Protocol(protocol)
	return record, nil
}

func nullableID(id int64) sql.NullInt64 {
	if id == 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: id, Valid: true}
}
