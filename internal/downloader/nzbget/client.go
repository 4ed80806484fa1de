// Package nzbget implements an NZBGet JSON-RPC client.
package nzbget

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"net/http"
	"strconv"
	"time"

	nzb "github.com/andrewstuart/go-nzb"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

// Config holds the configuration for an NZBGet client.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	URLBase  string
	Category string
}

// Client talks to the NZBGet JSON-RPC interface.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

var _ types.Client = (*Client)(nil)

type rpcRequest struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	ID     int             `json:"id"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// New creates a new NZBGet client.
func New(cfg *Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	port := cfg.Port
	if port == 0 {
		port = 6789
	}

	return &Client{
		config:  *cfg,
		baseURL: fmt.Sprintf("%s://%s:%d%s/jsonrpc", scheme, cfg.Host, port, cfg.URLBase),
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
		Category: cfg.Category,
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeNZBGet
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolUsenet
}

// Test verifies the connection by querying the daemon version.
func (c *Client) Test(ctx context.Context) error {
	result, err := c.call(ctx, "version", []any{})
	if err != nil {
		return err
	}
	var version string
	if err := json.Unmarshal(result, &version); err != nil {
		return fmt.Errorf("decoding version: %w", err)
	}
	return nil
}

// Add submits an NZB and returns its queue ID. The append call accepts
// either a URL or base64 file content in the same parameter.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	var content, filename string
	switch {
	case opts.URL != "":
		content = opts.URL
		filename = opts.Name
	case len(opts.FileContent) > 0:
		content = base64.StdEncoding.EncodeToString(opts.FileContent)
		filename = opts.Name
		if filename == "" {
			filename = nzbName(opts.FileContent)
		}
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}
	if filename == "" {
		filename = "download.nzb"
	}

	category := opts.Category
	if category == "" {
		category = c.config.Category
	}

	params := []any{
		filename,    // NZBFilename
		content,     // Content: base64 NZB or URL
		category,    // Category
		0,           // Priority
		false,       // AddToTop
		opts.Paused, // AddPaused
		"",          // DupeKey
		0,           // DupeScore
		"SCORE",     // DupeMode
	}

	result, err := c.call(ctx, "append", params)
	if err != nil {
		return "", err
	}

	var nzbID int
	if err := json.Unmarshal(result, &nzbID); err != nil {
		return "", fmt.Errorf("decoding append result: %w", err)
	}
	if nzbID <= 0 {
		return "", fmt.Errorf("append rejected")
	}
	return strconv.Itoa(nzbID), nil
}

// Remove deletes a download from the queue.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	nzbID, err := strconv.Atoi(id)
	if err != nil {
		return fmt.Errorf("invalid queue ID %q: %w", id, err)
	}

	action := "GroupDelete"
	if deleteFiles {
		action = "GroupFinalDelete"
	}

	result, err := c.call(ctx, "editqueue", []any{action, 0, "", []int{nzbID}})
	if err != nil {
		return err
	}

	var ok bool
	if err := json.Unmarshal(result, &ok); err != nil {
		return fmt.Errorf("decoding editqueue result: %w", err)
	}
	if !ok {
		return types.ErrNotFound
	}
	return nil
}

func (c *Client) call(ctx context.Context, method string, params []any) (json.RawMessage, error) {
	body, err := json.Marshal(rpcRequest{Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.config.Username != "" {
		req.SetBasicAuth(c.config.Username, c.config.Password)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&rpcResp); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if rpcResp.Error != nil {
		return nil, fmt.Errorf("RPC error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return rpcResp.Result, nil
}

// nzbName derives a display name from the NZB file metadata.
func nzbName(content []byte) string {
	var doc nzb.NZB
	if err := xml.Unmarshal(content, &doc); err != nil {
		return ""
	}
	if name, ok := doc.Meta["name"]; ok && name != "" {
		return name + ".nzb"
	}
	return ""
}
