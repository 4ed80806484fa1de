// Package indexer manages configured indexers and their protocol clients.
package indexer

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/indexer/types"
)

// Service provides indexer configuration management.
type Service struct {
	db     *sql.DB
	logger zerolog.Logger
}

// NewService creates a new indexer service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:     db,
		logger: logger.With().Str("component", "indexer").Logger(),
	}
}

// CreateInput holds the fields for registering an indexer.
type CreateInput struct {
	Name       string            `json:"name"`
	Type       types.IndexerType `json:"type"`
	BaseURL    string            `json:"baseUrl"`
	APIPath    string            `json:"apiPath"`
	APIKey     string            `json:"apiKey"`
	Categories []int             `json:"categories"`
	Priority   int               `json:"priority"`
	Enabled    *bool             `json:"enabled"`
}

// Create registers a new indexer.
func (s *Service) Create(ctx context.Context, input CreateInput) (*types.IndexerDefinition, error) {
	if input.Name == "" || input.BaseURL == "" {
		return nil, NewConfigError(0, input.Name, "name and base URL are required")
	}
	if input.Type == "" {
		input.Type = types.IndexerTypeTorznab
	}
	if input.Type != types.IndexerTypeTorznab && input.Type != types.IndexerTypeNewznab {
		return nil, NewConfigError(0, input.Name, fmt.Sprintf("unknown indexer type %q", input.Type))
	}
	if input.APIPath == "" {
		input.APIPath = "/api"
	}
	if len(input.Categories) == 0 {
		input.Categories = SportCategories()
	}
	if input.Priority <= 0 {
		input.Priority = 25
	}
	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	protocol := types.ProtocolTorrent
	if input.Type == types.IndexerTypeNewznab {
		protocol = types.ProtocolUsenet
	}

	categoriesJSON, err := json.Marshal(input.Categories)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO indexers (name, type, base_url, api_path, api_key, categories, protocol, priority, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, string(input.Type), input.BaseURL, input.APIPath, input.APIKey,
		string(categoriesJSON), string(protocol), input.Priority, enabled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating indexer: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("id", id).Str("name", input.Name).Str("type", string(input.Type)).Msg("Indexer created")
	return s.Get(ctx, id)
}

// Get returns an indexer by ID.
func (s *Service) Get(ctx context.Context, id int64) (*types.IndexerDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, base_url, api_path, api_key, categories, protocol, priority, enabled, created_at, updated_at
		FROM indexers WHERE id = ?`, id)
	def, err := scanIndexer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, NewNotFoundError(fmt.Sprintf("indexer %d not found", id))
	}
	return def, err
}

// List returns all configured indexers.
func (s *Service) List(ctx context.Context) ([]*types.IndexerDefinition, error) {
	return s.list(ctx, `
		SELECT id, name, type, base_url, api_path, api_key, categories, protocol, priority, enabled, created_at, updated_at
		FROM indexers ORDER BY priority, name`)
}

// ListEnabled returns the indexers eligible for searching.
func (s *Service) ListEnabled(ctx context.Context) ([]*types.IndexerDefinition, error) {
	return s.list(ctx, `
		SELECT id, name, type, base_url, api_path, api_key, categories, protocol, priority, enabled, created_at, updated_at
		FROM indexers WHERE enabled = 1 ORDER BY priority, name`)
}

func (s *Service) list(ctx context.Context, query string) ([]*types.IndexerDefinition, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing indexers: %w", err)
	}
	defer rows.Close()

	var defs []*types.IndexerDefinition
	for rows.Next() {
		def, err := scanIndexer(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}
	return defs, rows.Err()
}

// UpdateInput holds the mutable indexer fields. Nil pointers keep the
// current value.
type UpdateInput struct {
	Name       *string `json:"name,omitempty"`
	BaseURL    *string `json:"baseUrl,omitempty"`
	APIPath    *string `json:"apiPath,omitempty"`
	APIKey     *string `json:"apiKey,omitempty"`
	Categories []int   `json:"categories,omitempty"`
	Priority   *int    `json:"priority,omitempty"`
	Enabled    *bool   `json:"enabled,omitempty"`
}

// Update modifies an existing indexer.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*types.IndexerDefinition, error) {
	def, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		def.Name = *input.Name
	}
	if input.BaseURL != nil {
		def.BaseURL = *input.BaseURL
	}
	if input.APIPath != nil {
		def.APIPath = *input.APIPath
	}
	if input.APIKey != nil {
		def.APIKey = *input.APIKey
	}
	if input.Categories != nil {
		def.Categories = input.Categories
	}
	if input.Priority != nil {
		def.Priority = *input.Priority
	}
	if input.Enabled != nil {
		def.Enabled = *input.Enabled
	}

	categoriesJSON, err := json.Marshal(def.Categories)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE indexers
		SET name = ?, base_url = ?, api_path = ?, api_key = ?, categories = ?, priority = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		def.Name, def.BaseURL, def.APIPath, def.APIKey, string(categoriesJSON),
		def.Priority, def.Enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating indexer %d: %w", id, err)
	}

	s.logger.Info().Int64("id", id).Str("name", def.Name).Msg("Indexer updated")
	return s.Get(ctx, id)
}

// Delete removes an indexer and its health state.
func (s *Service) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM indexers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting indexer %d: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return NewNotFoundError(fmt.Sprintf("indexer %d not found", id))
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM indexer_status WHERE indexer_id = ?`, id); err != nil {
		return fmt.Errorf("clearing indexer %d status: %w", id, err)
	}

	s.logger.Info().Int64("id", id).Msg("Indexer deleted")
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIndexer(row rowScanner) (*types.IndexerDefinition, error) {
	var def types.IndexerDefinition
	var indexerType, protocol, categoriesJSON string
	err := row.Scan(
		&def.ID, &def.Name, &indexerType, &def.BaseURL, &def.APIPath, &def.APIKey,
		&categoriesJSON, &protocol, &def.Priority, &def.Enabled, &def.CreatedAt, &def.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	def.Type = types.IndexerType(indexerType)
	def.Protocol = types.Protocol(protocol)
	if err := json.Unmarshal([]byte(categoriesJSON), &def.Categories); err != nil {
		return nil, fmt.Errorf("indexer %d: invalid categories: %w", def.ID, err)
	}
	return &def, nil
}
