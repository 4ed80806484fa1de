// Package rtorrent implements an rTorrent XML-RPC client.
package rtorrent

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	rtorrent "github.com/mrobinsn/go-rtorrent/rtorrent"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

// Config holds the configuration for an rTorrent client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	URLBase  string
	Category string
}

// Client wraps the rTorrent XML-RPC interface.
type Client struct {
	config   Config
	rtorrent *rtorrent.RTorrent
}

var _ types.Client = (*Client)(nil)

// New creates a new rTorrent client.
func New(cfg *Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	urlBase := cfg.URLBase
	if urlBase == "" {
		urlBase = "/RPC2"
	}

	var credentials string
	if cfg.Username != "" {
		credentials = url.UserPassword(cfg.Username, cfg.Password).String() + "@"
	}
	addr := fmt.Sprintf("%s://%s%s:%d%s", scheme, credentials, cfg.Host, cfg.Port, urlBase)

	return &Client{
		config:   *cfg,
		rtorrent: rtorrent.New(addr, false),
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
	return types.ClientTypeRTorrent
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test verifies the XML-RPC endpoint responds.
func (c *Client) Test(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := c.rtorrent.Name(); err != nil {
		return fmt.Errorf("%w: %s", types.ErrNotConnected, err)
	}
	return nil
}

// Add submits a torrent. rTorrent's add call does not echo the hash back;
// for magnets it comes from the URI, otherwise from the torrent list.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	args := c.fieldArgs(opts)

	switch {
	case opts.URL != "":
		if err := c.rtorrent.Add(opts.URL, args...); err != nil {
			return "", fmt.Errorf("adding torrent: %w", err)
		}
		if hash := extractMagnetHash(opts.URL); hash != "" {
			return hash, nil
		}
		return c.findHashByName(opts.Name)
	case len(opts.FileContent) > 0:
		if err := c.rtorrent.AddTorrent(opts.FileContent, args...); err != nil {
			return "", fmt.Errorf("adding torrent: %w", err)
		}
		return c.findHashByName(opts.Name)
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}
}

// Remove removes a torrent by info hash. rTorrent never deletes data from
// disk through the RPC interface, so deleteFiles is ignored.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	torrents, err := c.rtorrent.GetTorrents(rtorrent.ViewMain)
	if err != nil {
		return fmt.Errorf("listing torrents: %w", err)
	}
	for _, t := range torrents {
		if strings.EqualFold(t.Hash, id) {
			if err := c.rtorrent.Delete(t); err != nil {
				return fmt.Errorf("removing torrent %s: %w", id, err)
			}
			return nil
		}
	}
	return types.ErrNotFound
}

func (c *Client) fieldArgs(opts types.AddOptions) []*rtorrent.FieldValue {
	var args []*rtorrent.FieldValue
	if opts.Name != "" {
		args = append(args, rtorrent.DName.SetValue(opts.Name))
	}
	if opts.DownloadDir != "" {
		args = append(args, rtorrent.DBasePath.SetValue(opts.DownloadDir))
	}
	category := opts.Category
	if category == "" {
		category = c.config.Category
	}
	if category != "" {
		args = append(args, rtorrent.DLabel.SetValue(category))
	}
	return args
}

func (c *Client) findHashByName(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	torrents, err := c.rtorrent.GetTorrents(rtorrent.ViewMain)
	if err != nil {
		return "", fmt.Errorf("listing torrents: %w", err)
	}
	for _, t := range torrents {
		if strings.EqualFold(t.Name, name) {
			return strings.ToLower(t.Hash), nil
		}
	}
	return "", nil
}

func extractMagnetHash(magnetURL string) string {
	u, err := url.Parse(magnetURL)
	if err != nil {
		return ""
	}
	xt := u.Query().Get("xt")
	if !strings.HasPrefix(xt, "urn:btih:") {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(xt, "urn:btih:"))
}
