// Package sabnzbd implements a SABnzbd API client.
package sabnzbd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

// Config holds the configuration for a SABnzbd client.
type Config struct {
	Host     string
	Port     int
	APIKey   string
	UseSSL   bool
	URLBase  string
	Category string
}

// Client talks to the SABnzbd JSON API. Authentication is the API key
// passed on every request.
type Client struct {
	config     Config
	baseURL    string
	httpClient *http.Client
}

var _ types.Client = (*Client)(nil)

type addResult struct {
	Status bool     `json:"status"`
	NzoIDs []string `json:"nzo_ids"`
	Error  string   `json:"error"`
}

type basicResult struct {
	Status bool   `json:"status"`
	Error  string `json:"error"`
}

// New creates a new SABnzbd client.
func New(cfg *Config) *Client {
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	port := cfg.Port
	if port == 0 {
		port = 8080
	}

	return &Client{
		config:  *cfg,
		baseURL: fmt.Sprintf("%s://%s:%d%s/api", scheme, cfg.Host, port, cfg.URLBase),
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
		APIKey:   cfg.APIKey,
		UseSSL:   cfg.UseSSL,
		URLBase:  cfg.URLBase,
		Category: cfg.Category,
	})
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeSABnzbd
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolUsenet
}

// Test verifies the API key against the version endpoint.
func (c *Client) Test(ctx context.Context) error {
	params := url.Values{}
	params.Set("mode", "version")

	body, err := c.get(ctx, params)
	if err != nil {
		return err
	}

	var result struct {
		Version string `json:"version"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding version response: %w", err)
	}
	if result.Error != "" {
		return fmt.Errorf("%w: %s", types.ErrAuthFailed, result.Error)
	}
	return nil
}

// Add submits an NZB and returns its queue ID.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	switch {
	case opts.URL != "":
		return c.addURL(ctx, opts)
	case len(opts.FileContent) > 0:
		return c.addFile(ctx, opts)
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}
}

// Remove deletes a download from the queue. SABnzbd manages its own
// files, so deleteFiles maps to del_files.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	params := url.Values{}
	params.Set("mode", "queue")
	params.Set("name", "delete")
	params.Set("value", id)
	if deleteFiles {
		params.Set("del_files", "1")
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return err
	}

	var result basicResult
	if err := json.Unmarshal(body, &result); err != nil {
		return fmt.Errorf("decoding delete response: %w", err)
	}
	if !result.Status {
		return types.ErrNotFound
	}
	return nil
}

func (c *Client) addURL(ctx context.Context, opts types.AddOptions) (string, error) {
	params := url.Values{}
	params.Set("mode", "addurl")
	params.Set("name", opts.URL)
	c.applyAddParams(params, opts)

	body, err := c.get(ctx, params)
	if err != nil {
		return "", err
	}
	return parseAddResult(body)
}

func (c *Client) addFile(ctx context.Context, opts types.AddOptions) (string, error) {
	name := opts.Name
	if name == "" {
		name = "download.nzb"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("name", name)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(opts.FileContent); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("mode", "addfile")
	c.applyAddParams(params, opts)
	params.Set("output", "json")
	params.Set("apikey", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"?"+params.Encode(), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("uploading nzb: %w", err)
	}
	defer resp.Body.Close()

	body, err := readAPIResponse(resp)
	if err != nil {
		return "", err
	}
	return parseAddResult(body)
}

func (c *Client) applyAddParams(params url.Values, opts types.AddOptions) {
	if opts.Name != "" {
		params.Set("nzbname", opts.Name)
	}
	category := opts.Category
	if category == "" {
		category = c.config.Category
	}
	if category != "" {
		params.Set("cat", category)
	}
	if opts.Paused {
		// priority -2 adds the entry paused
		params.Set("priority", "-2")
	}
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	params.Set("output", "json")
	params.Set("apikey", c.config.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), http.NoBody)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	return readAPIResponse(resp)
}

func readAPIResponse(resp *http.Response) ([]byte, error) {
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func parseAddResult(body []byte) (string, error) {
	var result addResult
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("decoding add response: %w", err)
	}
	if !result.Status {
		if result.Error != "" {
			return "", fmt.Errorf("add rejected: %s", result.Error)
		}
		return "", fmt.Errorf("add rejected")
	}
	if len(result.NzoIDs) == 0 {
		return "", fmt.Errorf("no queue ID in response")
	}
	return result.NzoIDs[0], nil
}
