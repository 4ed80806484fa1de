// Package deluge implements a Deluge daemon client.
package deluge

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"sync"

	delugeclient "github.com/gdm85/go-libdeluge"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

// Config holds the configuration for a Deluge client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	Category string
}

// Client talks to the Deluge daemon RPC port. The underlying protocol is
// a persistent connection; the client connects lazily and reconnects on
// demand.
type Client struct {
	config Config
	mu     sync.Mutex
	deluge *delugeclient.ClientV2
}

var _ types.Client = (*Client)(nil)

// New creates a new Deluge client.
func New(cfg *Config) *Client {
	return &Client{config: *cfg}
}

// NewFromConfig creates a client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	return New(&Config{
		Host:     cfg.Host,
		Port:     cfg.Port,
		Username: cfg.Username,
		Password: cfg.Password,
		Category: cfg.Category,
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeDeluge
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test verifies the daemon connection.
func (c *Client) Test(ctx context.Context) error {
	cl, err := c.connect(ctx)
	if err != nil {
		return err
	}
	if _, err := cl.DaemonVersion(); err != nil {
		c.disconnect()
		return fmt.Errorf("querying daemon version: %w", err)
	}
	return nil
}

// Add submits a torrent and returns its info hash.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	cl, err := c.connect(ctx)
	if err != nil {
		return "", err
	}

	options := &delugeclient.Options{}
	if opts.DownloadDir != "" {
		options.DownloadLocation = &opts.DownloadDir
	}
	if opts.Paused {
		options.AddPaused = &opts.Paused
	}

	var hash string
	switch {
	case strings.HasPrefix(opts.URL, "magnet:"):
		hash, err = cl.AddTorrentMagnet(opts.URL, options)
	case opts.URL != "":
		hash, err = cl.AddTorrentURL(opts.URL, options)
	case len(opts.FileContent) > 0:
		name := opts.Name
		if name == "" {
			name = "download.torrent"
		}
		encoded := base64.StdEncoding.EncodeToString(opts.FileContent)
		hash, err = cl.AddTorrentFile(name, encoded, options)
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}
	if err != nil {
		c.disconnect()
		return "", fmt.Errorf("adding torrent: %w", err)
	}

	c.applyLabel(cl, hash, opts.Category)
	return strings.ToLower(hash), nil
}

// Remove removes a torrent by info hash.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	cl, err := c.connect(ctx)
	if err != nil {
		return err
	}
	ok, err := cl.RemoveTorrent(id, deleteFiles)
	if err != nil {
		c.disconnect()
		return fmt.Errorf("removing torrent %s: %w", id, err)
	}
	if !ok {
		return types.ErrNotFound
	}
	return nil
}

// applyLabel sets the label when the label plugin is enabled. A missing
// plugin is not an error.
func (c *Client) applyLabel(cl *delugeclient.ClientV2, hash, category string) {
	if category == "" {
		category = c.config.Category
	}
	if category == "" || hash == "" {
		return
	}
	plugin, err := cl.LabelPlugin()
	if err != nil || plugin == nil {
		return
	}
	_ = plugin.SetTorrentLabel(hash, category)
}

func (c *Client) connect(ctx context.Context) (*delugeclient.ClientV2, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deluge != nil {
		return c.deluge, nil
	}

	cl := delugeclient.NewV2(delugeclient.Settings{
		Hostname: c.config.Host,
		Port:     uint(c.config.Port),
		Login:    c.config.Username,
		Password: c.config.Password,
	})
	if err := cl.Connect(); err != nil {
		return nil, fmt.Errorf("%w: %s", types.ErrNotConnected, err)
	}
	c.deluge = cl
	return cl, nil
}

func (c *Client) disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.deluge != nil {
		_ = c.deluge.Close()
		c.deluge = nil
	}
}
