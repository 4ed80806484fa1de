// Package utorrent implements a uTorrent WebUI client.
package utorrent

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // BitTorrent info hashes are SHA1
	"encoding/hex"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

var _ types.Client = (*Client)(nil)

// Client talks to the uTorrent WebUI. Every action needs a CSRF token
// fetched from token.html; the token is cached and refreshed on 401/400.
type Client struct {
	config     types.ClientConfig
	httpClient *http.Client
	baseURL    string
	token      string
	tokenMu    sync.RWMutex
}

// NewFromConfig creates a client from a ClientConfig.
func NewFromConfig(cfg *types.ClientConfig) *Client {
	jar, _ := cookiejar.New(nil)

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}

	urlBase := cfg.URLBase
	if urlBase == "" {
		urlBase = "/gui/"
	}
	urlBase = strings.TrimSuffix(urlBase, "/") + "/"

	return &Client{
		config: *cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
			Jar:     jar,
		},
		baseURL: fmt.Sprintf("%s://%s:%d%s", scheme, cfg.Host, cfg.Port, urlBase),
	}
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeUTorrent
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test verifies connectivity and credentials.
func (c *Client) Test(ctx context.Context) error {
	if err := c.fetchToken(ctx); err != nil {
		return err
	}
	params := url.Values{}
	params.Set("action", "getsettings")
	_, err := c.doRequest(ctx, params)
	return err
}

// Add submits a torrent and returns its info hash.
func (c *Client) Add(ctx context.Context, opts types.AddOptions) (string, error) {
	switch {
	case len(opts.FileContent) > 0:
		return c.addFile(ctx, opts)
	case opts.URL != "":
		return c.addURL(ctx, opts)
	default:
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}
}

// Remove removes a torrent by info hash.
func (c *Client) Remove(ctx context.Context, id string, deleteFiles bool) error {
	action := "remove"
	if deleteFiles {
		action = "removedata"
	}

	params := url.Values{}
	params.Set("action", action)
	params.Set("hash", strings.ToUpper(id))

	_, err := c.doRequest(ctx, params)
	return err
}

func (c *Client) addURL(ctx context.Context, opts types.AddOptions) (string, error) {
	hash := extractMagnetHash(opts.URL)

	params := url.Values{}
	params.Set("action", "add-url")
	params.Set("s", opts.URL)

	if _, err := c.doRequest(ctx, params); err != nil {
		return "", err
	}

	if hash != "" {
		if err := c.setLabel(ctx, hash, opts.Category); err != nil {
			return "", err
		}
	}
	return strings.ToLower(hash), nil
}

func (c *Client) addFile(ctx context.Context, opts types.AddOptions) (string, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("torrent_file", "file.torrent")
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(opts.FileContent); err != nil {
		return "", err
	}
	if err := mw.Close(); err != nil {
		return "", err
	}

	reqURL := c.baseURL + "?token=" + token + "&action=add-file"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, &buf)
	if err != nil {
		return "", err
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		if err := c.fetchToken(ctx); err != nil {
			return "", err
		}
		return c.addFile(ctx, opts)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("add file failed: %s", string(body))
	}

	hash := extractInfoHash(opts.FileContent)
	if hash != "" {
		if err := c.setLabel(ctx, hash, opts.Category); err != nil {
			return "", err
		}
	}
	return strings.ToLower(hash), nil
}

func (c *Client) setLabel(ctx context.Context, hash, category string) error {
	if category == "" {
		category = c.config.Category
	}
	if category == "" {
		return nil
	}

	params := url.Values{}
	params.Set("action", "setprops")
	params.Set("hash", strings.ToUpper(hash))
	params.Set("s", "label")
	params.Set("v", category)

	_, err := c.doRequest(ctx, params)
	return err
}

func (c *Client) fetchToken(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"token.html", http.NoBody)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return types.ErrAuthFailed
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("token fetch failed: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	token := parseToken(string(body))
	if token == "" {
		return fmt.Errorf("token not found in response")
	}

	c.tokenMu.Lock()
	c.token = token
	c.tokenMu.Unlock()

	return nil
}

func (c *Client) getToken(ctx context.Context) (string, error) {
	c.tokenMu.RLock()
	token := c.token
	c.tokenMu.RUnlock()

	if token == "" {
		if err := c.fetchToken(ctx); err != nil {
			return "", err
		}
		c.tokenMu.RLock()
		token = c.token
		c.tokenMu.RUnlock()
	}

	return token, nil
}

func (c *Client) doRequest(ctx context.Context, params url.Values) ([]byte, error) {
	token, err := c.getToken(ctx)
	if err != nil {
		return nil, err
	}

	params.Set("token", token)
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.config.Username, c.config.Password)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusBadRequest {
		if err := c.fetchToken(ctx); err != nil {
			return nil, err
		}
		return c.doRequest(ctx, params)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("request failed: %s", string(body))
	}

	return io.ReadAll(resp.Body)
}

// parseToken pulls the token out of the token.html div.
func parseToken(html string) string {
	start := strings.Index(html, ">")
	if start == -1 {
		return ""
	}
	end := strings.Index(html[start+1:], "</")
	if end == -1 {
		return ""
	}
	return html[start+1 : start+1+end]
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
	return strings.ToUpper(strings.TrimPrefix(xt, "urn:btih:"))
}

// extractInfoHash computes the SHA1 info hash from raw torrent bytes by
// locating the bencoded info dictionary and hashing it.
func extractInfoHash(torrentData []byte) string {
	infoKey := []byte("4:info")
	idx := bytes.Index(torrentData, infoKey)
	if idx < 0 {
		return ""
	}
	infoStart := idx + len(infoKey)
	if infoStart >= len(torrentData) {
		return ""
	}
	infoBytes := torrentData[infoStart:]
	end := findBencodeEnd(infoBytes)
	if end <= 0 {
		return ""
	}
	h := sha1.Sum(infoBytes[:end]) //nolint:gosec // BitTorrent info hashes are SHA1
	return strings.ToUpper(hex.EncodeToString(h[:]))
}

// findBencodeEnd returns the length of the bencoded value at position 0.
func findBencodeEnd(data []byte) int {
	if len(data) == 0 {
		return -1
	}
	switch data[0] {
	case 'd', 'l':
		pos := 1
		for pos < len(data) && data[pos] != 'e' {
			if data[0] == 'd' {
				// dict keys are always strings
				n := findBencodeEnd(data[pos:])
				if n <= 0 {
					return -1
				}
				pos += n
			}
			n := findBencodeEnd(data[pos:])
			if n <= 0 {
				return -1
			}
			pos += n
		}
		if pos >= len(data) {
			return -1
		}
		return pos + 1
	case 'i':
		end := bytes.IndexByte(data[1:], 'e')
		if end < 0 {
			return -1
		}
		return end + 2
	default:
		colon := bytes.IndexByte(data, ':')
		if colon < 0 {
			return -1
		}
		length, err := strconv.Atoi(string(data[:colon]))
		if err != nil {
			return -1
		}
		return colon + 1 + length
	}
}
