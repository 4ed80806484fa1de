// Package qbittorrent implements a qBittorrent WebUI client.
package qbittorrent

import (
	"context"
	"fmt"
	"time"

	qbt "github.com/autobrr/go-qbittorrent"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

// Config holds the configuration for a qBittorrent client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	URLBase  string
	Category string
}

// Client wraps the qBittorrent WebUI API.
type Client struct {
	config Config
	qbt    *qbt.Client
}

// Compile-time check that Client implements the downloader interface.
var _ types.Client = (*Client)(nil)

// New creates a new qBittorrent client.
func New(cfg *Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	host := fmt.Sprintf("%s://%s:%d%s", scheme, cfg.Host, cfg.Port, cfg.URLBase)

	return &Client{
		config: *cfg,
		qbt: qbt.NewClient(qbt.Config{
			Host:     host,
			Username: cfg.Username,
			Password: cfg.Password,
			Timeout:  30,
		}),
	}
}

// NewFromConfig creates a client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	return New(&Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		UseSSL:   cfg.UseSSL,
		URLBase:  cfg.URLBase,
		Category: cfg.Category,
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeQBittorrent
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test verifies the client connection and credentials.
func (c *Client) Test(ctx context.Context) error {
	if err := c.qbt.LoginCtx(ctx); err != nil {
		return fmt.Errorf("%w: %s", types.ErrAuthFailed, err)
	}
	return nil
}

// Add submits a torrent URL or file and returns its info hash when it can
// be determined from the client within a short window.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	if err := c.qbt.LoginCtx(ctx); err != nil {
		return "", fmt.Errorf("%w: %s", types.ErrAuthFailed, err)
	}

	options := map[string]string{}
	category := opts.Category
	if category == "" {
		category = c.config.Category
	}
	if category != "" {
		options["category"] = category
	}
	if opts.DownloadDir != "" {
		options["savepath"] = opts.DownloadDir
	}
	if opts.Paused {
		options["paused"] = "true"
	}

	switch {
	case opts.URL != "":
		if err := c.qbt.AddTorrentFromUrlCtx(ctx, opts.URL, options); err != nil {
			return "", fmt.Errorf("adding torrent: %w", err)
		}
	case len(opts.FileContent) > 0:
		if err := c.qbt.AddTorrentFromMemoryCtx(ctx, opts.FileContent, options); err != nil {
			return "", fmt.Errorf("adding torrent: %w", err)
		}
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}

	return c.findNewestHash(ctx, category)
}

// Remove deletes a torrent by info hash.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	if err := c.qbt.LoginCtx(ctx); err != nil {
		return fmt.Errorf("%w: %s", types.ErrAuthFailed, err)
	}
	if err := c.qbt.DeleteTorrentsCtx(ctx, []string{id}, deleteFiles); err != nil {
		return fmt.Errorf("removing torrent %s: %w", id, err)
	}
	return nil
}

// findNewestHash returns the hash of the most recently added torrent in
// the category. qBittorrent's add endpoint does not echo the hash back.
func (c *Client) findNewestHash(ctx context.Context, category string) (string, error) {
	torrents, err := c.qbt.GetTorrentsCtx(ctx, qbt.TorrentFilterOptions{Category: category})
	if err != nil {
		return "", fmt.Errorf("listing torrents: %w", err)
	}
	if len(torrents) == 0 {
		return "", nil
	}

	newest := torrents[0]
	for _, t := range torrents[1:] {
		if time.Unix(t.AddedOn, 0).After(time.Unix(newest.AddedOn, 0)) {
			newest = t
		}
	}
	return newest.Hash, nil
}
