// Package transmission implements a Transmission RPC client.
package transmission

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

const sessionIDHeader = "X-Transmission-Session-Id"

// Config holds the configuration for a Transmission client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	URLBase  string
}

// Client implements the Transmission RPC protocol. A 409 response carries
// the session ID to retry with; the client caches it across calls.
type Client struct {
	config     Config
	sessionID  string
	httpClient *http.Client
}

var _ types.Client = (*Client)(nil)

// New creates a new Transmission client.
func New(cfg *Config) *Client {
	return &Client{
		config: *cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
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
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeTransmission
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test verifies the client connection.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.call(ctx, "session-get", nil)
	return err
}

// Add submits a torrent and returns its hash string.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	args := make(map[string]any)

	switch {
	case opts.URL != "":
		args["filename"] = opts.URL
	case len(opts.FileContent) > 0:
		args["metainfo"] = base64.StdEncoding.EncodeToString(opts.FileContent)
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}

	if opts.DownloadDir != "" {
		args["download-dir"] = opts.DownloadDir
	}
	if opts.Paused {
		args["paused"] = true
	}

	resp, err := c.call(ctx, "torrent-add", args)
	if err != nil {
		return "", err
	}
	return extractTorrentID(resp)
}

// Remove removes a torrent.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	args := map[string]any{
		"ids":               []string{id},
		"delete-local-data": deleteFiles,
	}
	_, err := c.call(ctx, "torrent-remove", args)
	return err
}

// rpcRequest represents a Transmission RPC request.
type rpcRequest struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// rpcResponse represents a Transmission RPC response.
type rpcResponse struct {
	Result    string         `json:"result"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, args map[string]any) (*rpcResponse, error) {
	req, err := c.buildRPCRequest(ctx, method, args)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return c.handleSessionConflict(ctx, resp, method, args)
	}
	return parseRPCResponse(resp)
}

func (c *Client) buildRPCRequest(ctx context.Context, method string, args map[string]any) (*http.Request, error) {
	scheme := "http"
	if c.config.UseSSL {
		scheme = "https"
	}
	url := fmt.Sprintf("%s://%s:%d%s/transmission/rpc", scheme, c.config.Host, c.config.Port, c.config.URLBase)

	body, err := json.Marshal(rpcRequest{Method: method, Arguments: args})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionIDHeader, c.sessionID)
	}
	if c.config.Username != "" {
		auth := base64.StdEncoding.EncodeToString([]byte(c.config.Username + ":" + c.config.Password))
		req.Header.Set("Authorization", "Basic "+auth)
	}
	return req, nil
}

func (c *Client) handleSessionConflict(ctx context.Context, resp *http.Response, method string, args map[string]any) (*rpcResponse, error) {
	c.sessionID = resp.Header.Get(sessionIDHeader)
	if c.sessionID == "" {
		return nil, fmt.Errorf("received 409 but no session ID in response")
	}
	return c.call(ctx, method, args)
}

func parseRPCResponse(resp *http.Response) (*rpcResponse, error) {
	if resp.StatusCode == http.StatusUnauthorized {
		return nil, types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	if rpcResp.Result != "success" {
		return nil, fmt.Errorf("RPC error: %s", rpcResp.Result)
	}
	return &rpcResp, nil
}

// extractTorrentID extracts the torrent hash from an add response.
// Transmission reports duplicates under a separate key.
func extractTorrentID(resp *rpcResponse) (string, error) {
	for _, key := range []string{"torrent-added", "torrent-duplicate"} {
		torrent, ok := resp.Arguments[key].(map[string]any)
		if !ok {
			continue
		}
		if hashString, ok := torrent["hashString"].(string); ok {
			return hashString, nil
		}
		if id, ok := torrent["id"].(float64); ok {
			return fmt.Sprintf("%d", int(id)), nil
		}
	}
	return "", fmt.Errorf("could not extract torrent ID from response")
}
