// Package torznab implements the Torznab/Newznab HTTP query protocol used
// by most indexers. Both dialects share the same query surface; only the
// payload protocol (torrent vs usenet) differs.
package torznab

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sportarr/sportarr/internal/indexer"
	"github.com/sportarr/sportarr/internal/indexer/types"
)

const (
	userAgent       = "Sportarr/1.0"
	maxResponseSize = 10 * 1024 * 1024 // 10 MB
)

// APIError is an error document returned by the indexer API.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("indexer API error %d: %s", e.Code, e.Description)
}

// IsAuthError reports whether the API error code indicates bad credentials.
// Codes 100-199 are account/apikey errors in the Newznab specification.
func (e *APIError) IsAuthError() bool {
	return e.Code >= 100 && e.Code < 200
}

// Client queries a single Torznab or Newznab indexer.
type Client struct {
	def    *types.IndexerDefinition
	client *http.Client
}

// NewClient creates a client for the given indexer definition.
func NewClient(def *types.IndexerDefinition, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		def:    def,
		client: &http.Client{Timeout: timeout},
	}
}

// Definition returns the indexer definition this client was built from.
func (c *Client) Definition() *types.IndexerDefinition {
	return c.def
}

// Query runs a search against the indexer. An empty criteria query polls
// the feed (RSS mode) instead of searching.
func (c *Client) Query(ctx context.Context, criteria types.SearchCriteria) ([]types.ReleaseInfo, error) {
	params := url.Values{}
	params.Set("t", "search")
	if c.def.APIKey != "" {
		params.Set("apikey", c.def.APIKey)
	}
	if criteria.Query != "" {
		params.Set("q", criteria.Query)
	}

	categories := criteria.Categories
	if len(categories) == 0 {
		categories = c.def.Categories
	}
	if len(categories) > 0 {
		params.Set("cat", joinCategories(categories))
	}

	if criteria.Limit > 0 {
		params.Set("limit", strconv.Itoa(criteria.Limit))
	}
	if criteria.Offset > 0 {
		params.Set("offset", strconv.Itoa(criteria.Offset))
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	releases, err := ParseFeed(body, c.def)
	if err != nil {
		return nil, c.wrapAPIError(err)
	}
	return releases, nil
}

// Caps fetches the indexer capabilities document.
func (c *Client) Caps(ctx context.Context) (*types.Capabilities, error) {
	params := url.Values{}
	params.Set("t", "caps")
	if c.def.APIKey != "" {
		params.Set("apikey", c.def.APIKey)
	}

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	caps, err := ParseCaps(body)
	if err != nil {
		return nil, c.wrapAPIError(err)
	}
	return caps, nil
}

// Test verifies connectivity and credentials via the caps endpoint.
func (c *Client) Test(ctx context.Context) error {
	_, err := c.Caps(ctx)
	return err
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	endpoint := strings.TrimRight(c.def.BaseURL, "/") + c.def.APIPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, indexer.NewConfigError(c.def.ID, c.def.Name, err.Error())
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, indexer.NewNetworkError(c.def.ID, c.def.Name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, indexer.NewRateLimitError(c.def.ID, c.def.Name)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, indexer.NewAuthError(c.def.ID, c.def.Name, fmt.Errorf("HTTP %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, indexer.NewSearchError(c.def.ID, c.def.Name, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, indexer.NewNetworkError(c.def.ID, c.def.Name, err)
	}
	return body, nil
}

// wrapAPIError converts feed-level failures into categorized indexer errors.
func (c *Client) wrapAPIError(err error) error {
	if apiErr, ok := err.(*APIError); ok {
		if apiErr.IsAuthError() {
			return indexer.NewAuthError(c.def.ID, c.def.Name, apiErr)
		}
		return indexer.NewSearchError(c.def.ID, c.def.Name, apiErr)
	}
	return indexer.NewParseError(c.def.ID, c.def.Name, "invalid feed response", err)
}

func joinCategories(categories []int) string {
	parts := make([]string, len(categories))
	for i, cat := range categories {
		parts[i] = strconv.Itoa(cat)
	}
	return strings.Join(parts, ",")
}
