// Package releasecache provides a short-TTL store of releases seen on
// indexer feeds and searches, keyed by GUID. Feed polls keep the cache
// warm so that searches can be answered without hitting every indexer.
package releasecache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/release"
)

// CachedRelease is a release entry with its cache metadata.
type CachedRelease struct {
	types.ReleaseInfo
	EventTitle  string    `json:"eventTitle"`
	SportPrefix string    `json:"sportPrefix"`
	Year        int       `json:"year"`
	Round       int       `json:"round"`
	CachedAt    time.Time `json:"cachedAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Cache stores releases with a fixed TTL.
type Cache struct {
	db     *sql.DB
	ttl    time.Duration
	logger zerolog.Logger
}

// New creates a release cache. A non-positive TTL falls back to one hour.
func New(db *sql.DB, ttl time.Duration, logger zerolog.Logger) *Cache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		db:     db,
		ttl:    ttl,
		logger: logger.With().Str("component", "release-cache").Logger(),
	}
}

// TTL returns the configured cache lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Store upserts releases into the cache. Re-storing a GUID refreshes its
// expiry and overwrites the entry, so repeated feed polls are idempotent.
func (c *Cache) Store(ctx context.Context, releases []types.ReleaseInfo, searchTerm string) error {
	if len(releases) == 0 {
		return nil
	}

	now := time.Now().UTC()
	expiresAt := now.Add(c.ttl)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting cache transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO release_cache (guid, title, raw_title, search_terms, indexer_id, indexer_name, protocol,
			download_url, info_url, size, seeders, peers, publish_date, info_hash,
			sport_prefix, year, round, cached_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guid) DO UPDATE SET
			title = excluded.title,
			raw_title = excluded.raw_title,
			search_terms = excluded.search_terms,
			indexer_id = excluded.indexer_id,
			indexer_name = excluded.indexer_name,
			protocol = excluded.protocol,
			download_url = excluded.download_url,
			info_url = excluded.info_url,
			size = excluded.size,
			seeders = excluded.seeders,
			peers = excluded.peers,
			publish_date = excluded.publish_date,
			info_hash = excluded.info_hash,
			sport_prefix = excluded.sport_prefix,
			year = excluded.year,
			round = excluded.round,
			expires_at = excluded.expires_at`)
	if err != nil {
		return fmt.Errorf("preparing cache upsert: %w", err)
	}
	defer stmt.Close()

	for _, info := range releases {
		if info.GUID == "" {
			continue
		}
		parsed := release.Parse(info.Title)
		prefix := release.SportPrefix(parsed.EventTitle)
		round := release.EventNumber(parsed.EventTitle)

		var publishDate any
		if !info.PublishDate.IsZero() {
			publishDate = info.PublishDate.UTC()
		}

		_, err := stmt.ExecContext(ctx,
			info.GUID, parsed.EventTitle, info.Title, searchTerm,
			info.IndexerID, info.IndexerName, string(info.Protocol),
			info.DownloadURL, info.InfoURL, info.Size, info.Seeders, info.Peers,
			publishDate, info.InfoHash, prefix, parsed.Year, round, now, expiresAt,
		)
		if err != nil {
			return fmt.Errorf("caching release %q: %w", info.GUID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing cache transaction: %w", err)
	}

	c.logger.Debug().Int("count", len(releases)).Time("expiresAt", expiresAt).Msg("Cached releases")
	return nil
}

// Lookup returns unexpired entries matching the search criteria. The query
// string is parsed the same way release titles are, so "UFC 300" matches
// entries whose titles carried the UFC prefix and round 300.
func (c *Cache) Lookup(ctx context.Context, criteria types.SearchCriteria) ([]CachedRelease, error) {
	parsed := release.Parse(criteria.Query)
	prefix := release.SportPrefix(parsed.EventTitle)
	if prefix == "" {
		return nil, nil
	}
	round := release.EventNumber(parsed.EventTitle)
	year := criteria.Year
	if year == 0 {
		year = parsed.Year
	}
	if round == 0 {
		round = criteria.Round
	}

	query := `
		SELECT guid, title, raw_title, indexer_id, indexer_name, protocol,
			download_url, info_url, size, seeders, peers, publish_date, info_hash,
			sport_prefix, year, round, cached_at, expires_at
		FROM release_cache
		WHERE expires_at > ? AND sport_prefix = ?`
	args := []any{time.Now().UTC(), prefix}

	if round > 0 {
		query += ` AND round = ?`
		args = append(args, round)
	}
	if year > 0 {
		// Feed titles often omit the year; keep entries without one.
		query += ` AND (year = ? OR year = 0)`
		args = append(args, year)
	}
	query += ` ORDER BY publish_date DESC`

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	defer rows.Close()

	var results []CachedRelease
	for rows.Next() {
		entry, err := scanCached(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, entry)
	}
	return results, rows.Err()
}

// Evict removes expired entries and returns how many were deleted.
func (c *Cache) Evict(ctx context.Context) (int64, error) {
	result, err := c.db.ExecContext(ctx, `DELETE FROM release_cache WHERE expires_at <= ?`, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("evicting cache entries: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		c.logger.Debug().Int64("deleted", deleted).Msg("Evicted expired cache entries")
	}
	return deleted, nil
}

// Count returns the number of unexpired entries.
func (c *Cache) Count(ctx context.Context) (int, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM release_cache WHERE expires_at > ?`, time.Now().UTC()).Scan(&count)
	return count, err
}

func scanCached(rows *sql.Rows) (CachedRelease, error) {
	var entry CachedRelease
	var protocol string
	var publishDate sql.NullTime
	err := rows.Scan(
		&entry.GUID, &entry.EventTitle, &entry.Title, &entry.IndexerID, &entry.IndexerName, &protocol,
		&entry.DownloadURL, &entry.InfoURL, &entry.Size, &entry.Seeders, &entry.Peers,
		&publishDate, &entry.InfoHash, &entry.SportPrefix, &entry.Year, &entry.Round,
		&entry.CachedAt, &entry.ExpiresAt,
	)
	if err != nil {
		return CachedRelease{}, fmt.Errorf("scanning cache entry: %w", err)
	}
	entry.Protocol = types.Protocol(protocol)
	if publishDate.Valid {
		entry.PublishDate = publishDate.Time
	}
	return entry, nil
}
