package downloader

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/sportarr/sportarr/internal/downloader/types"
	indexertypes "github.com/sportarr/sportarr/internal/indexer/types"
)

// Registry errors.
var (
	ErrNotFound        = errors.New("download client not found")
	ErrNoEnabledClient = errors.New("no enabled download client for protocol")
	ErrValidation      = errors.New("invalid download client configuration")
)

// DownloadClient is a configured download client.
type DownloadClient struct {
	ID        int64
	Name      string
	Type      types.ClientType
	Host      string
	Port      int
	Username  string
	Password  string
	APIKey    string
	UseSSL    bool
	URLBase   string
	Category  string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Protocol returns the protocol the client serves.
func (c *DownloadClient) Protocol() types.Protocol {
	return types.ProtocolForClient(c.Type)
}

func (c *DownloadClient) clientConfig() *types.ClientConfig {
	return &types.ClientConfig{
		Host:     c.Host,
		Port:     c.Port,
		Username: c.Username,
		Password: c.Password,
		APIKey:   c.APIKey,
		UseSSL:   c.UseSSL,
		URLBase:  c.URLBase,
		Category: c.Category,
	}
}

// CreateInput holds the fields for registering a download client.
type CreateInput struct {
	Name     string
	Type     types.ClientType
	Host     string
	Port     int
	Username string
	Password string
	APIKey   string
	UseSSL   bool
	URLBase  string
	Category string
	Enabled  *bool
}

// UpdateInput holds optional fields for updating a download client.
type UpdateInput struct {
	Name     *string
	Host     *string
	Port     *int
	Username *string
	Password *string
	APIKey   *string
	UseSSL   *bool
	URLBase  *string
	Category *string
	Enabled  *bool
}

// Dispatch is the result of sending a release to a download client.
type Dispatch struct {
	ClientID   int64
	ClientName string
	ClientType types.ClientType
	DownloadID string
}

// clientBuilder builds a protocol client from a stored configuration.
// Tests swap it out for a mock.
type clientBuilder func(clientType types.ClientType, cfg *types.ClientConfig) (types.Client, error)

// Service manages download client configurations and dispatches releases.
type Service struct {
	db      *sql.DB
	logger  zerolog.Logger
	builder clientBuilder
}

// NewService creates a new download client service.
func NewService(db *sql.DB, logger zerolog.Logger) *Service {
	return &Service{
		db:      db,
		logger:  logger.With().Str("component", "downloader").Logger(),
		builder: NewClient,
	}
}

// NewServiceWithBuilder creates a service with a custom client builder.
func NewServiceWithBuilder(db *sql.DB, logger zerolog.Logger, builder clientBuilder) *Service {
	svc := NewService(db, logger)
	svc.builder = builder
	return svc
}

// Create registers a download client.
func (s *Service) Create(ctx context.Context, input CreateInput) (*DownloadClient, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	if !IsClientTypeSupported(input.Type) {
		return nil, fmt.Errorf("%w: unknown type %q", ErrValidation, input.Type)
	}
	if input.Host == "" {
		input.Host = "localhost"
	}

	enabled := true
	if input.Enabled != nil {
		enabled = *input.Enabled
	}

	now := time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO download_clients (name, type, host, port, username, password, api_key,
			use_ssl, url_base, category, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		input.Name, string(input.Type), input.Host, input.Port, input.Username, input.Password,
		input.APIKey, input.UseSSL, input.URLBase, input.Category, enabled, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating download client: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("id", id).
		Str("name", input.Name).
		Str("type", string(input.Type)).
		Msg("Download client created")
	return s.Get(ctx, id)
}

// Get returns a download client by ID.
func (s *Service) Get(ctx context.Context, id int64) (*DownloadClient, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, type, host, port, username, password, api_key,
			use_ssl, url_base, category, enabled, created_at, updated_at
		FROM download_clients WHERE id = ?`, id)
	client, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return client, err
}

// List returns all download clients.
func (s *Service) List(ctx context.Context) ([]*DownloadClient, error) {
	return s.list(ctx, `
		SELECT id, name, type, host, port, username, password, api_key,
			use_ssl, url_base, category, enabled, created_at, updated_at
		FROM download_clients ORDER BY name`)
}

// ListEnabled returns the enabled download clients.
func (s *Service) ListEnabled(ctx context.Context) ([]*DownloadClient, error) {
	return s.list(ctx, `
		SELECT id, name, type, host, port, username, password, api_key,
			use_ssl, url_base, category, enabled, created_at, updated_at
		FROM download_clients WHERE enabled = 1 ORDER BY name`)
}

// Update modifies a download client.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (*DownloadClient, error) {
	client, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		client.Name = *input.Name
	}
	if input.Host != nil {
		client.Host = *input.Host
	}
	if input.Port != nil {
		client.Port = *input.Port
	}
	if input.Username != nil {
		client.Username = *input.Username
	}
	if input.Password != nil {
		client.Password = *input.Password
	}
	if input.APIKey != nil {
		client.APIKey = *input.APIKey
	}
	if input.UseSSL != nil {
		client.UseSSL = *input.UseSSL
	}
	if input.URLBase != nil {
		client.URLBase = *input.URLBase
	}
	if input.Category != nil {
		client.Category = *input.Category
	}
	if input.Enabled != nil {
		client.Enabled = *input.Enabled
	}

	_, err = s.db.ExecContext(ctx, `
		UPDATE download_clients
		SET name = ?, host = ?, port = ?, username = ?, password = ?, api_key = ?,
			use_ssl = ?, url_base = ?, category = ?, enabled = ?, updated_at = ?
		WHERE id = ?`,
		client.Name, client.Host, client.Port, client.Username, client.Password, client.APIKey,
		client.UseSSL, client.URLBase, client.Category, client.Enabled, time.Now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("updating download client %d: %w", id, err)
	}
	return s.Get(ctx, id)
}

// Delete removes a download client.
func (s *Service) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM download_clients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting download client %d: %w", id, err)
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

// Test builds the client and verifies connectivity.
func (s *Service) Test(ctx context.Context, id int64) error {
	stored, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	client, err := s.builder(stored.Type, stored.clientConfig())
	if err != nil {
		return err
	}
	return client.Test(ctx)
}

// Dispatch sends a release to the first enabled client matching its
// protocol. Clients are tried in name order until one accepts.
func (s *Service) Dispatch(ctx context.Context, info indexertypes.ReleaseInfo) (*Dispatch, error) {
	clients, err := s.ListEnabled(ctx)
	if err != nil {
		return nil, err
	}

	protocol := types.Protocol(info.Protocol)
	var lastErr error
	for _, stored := range clients {
		if stored.Protocol() != protocol {
			continue
		}

		client, err := s.builder(stored.Type, stored.clientConfig())
		if err != nil {
			lastErr = err
			continue
		}

		downloadID, err := client.Add(ctx, types.AddOptions{
			URL:      info.DownloadURL,
			Name:     info.Title,
			Category: stored.Category,
		})
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("client", stored.Name).
				Str("title", info.Title).
				Msg("Download client rejected release")
			lastErr = err
			continue
		}

		s.logger.Info().
			Str("client", stored.Name).
			Str("title", info.Title).
			Str("downloadId", downloadID).
			Msg("Release sent to download client")
		return &Dispatch{
			ClientID:   stored.ID,
			ClientName: stored.Name,
			ClientType: stored.Type,
			DownloadID: downloadID,
		}, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("all download clients failed: %w", lastErr)
	}
	return nil, fmt.Errorf("%w: %s", ErrNoEnabledClient, protocol)
}

// Remove deletes a download from the client that accepted it.
func (s *Service) Remove(ctx context.Context, clientID int64, downloadID string, deleteFiles bool) error {
	stored, err := s.Get(ctx, clientID)
	if err != nil {
		return err
	}
	client, err := s.builder(stored.Type, stored.clientConfig())
	if err != nil {
		return err
	}
	return client.Remove(ctx, downloadID, deleteFiles)
}

func (s *Service) list(ctx context.Context, query string) ([]*DownloadClient, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing download clients: %w", err)
	}
	defer rows.Close()

	var clients []*DownloadClient
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return clients, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanClient(row rowScanner) (*DownloadClient, error) {
	client := &DownloadClient{}
	var clientType string
	err := row.Scan(
		&client.ID, &client.Name, &clientType, &client.Host, &client.Port,
		&client.Username, &client.Password, &client.APIKey, &client.UseSSL,
		&client.URLBase, &client.Category, &client.Enabled,
		&client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	client.Type = types.ClientType(clientType)
	return client, nil
}
