// Package mock provides an in-memory download client for tests and dry runs.
package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

var _ types.Client = (*Client)(nil)

// Download is a submission the mock client accepted.
type Download struct {
	ID      string
	Options types.AddOptions
}

// Client records submissions in memory. Error fields inject failures for
// tests.
type Client struct {
	mu        sync.Mutex
	downloads map[string]Download
	nextID    int

	TestErr   error
	AddErr    error
	RemoveErr error
}

// New creates a new mock client.
func New() *Client {
	return &Client{
		downloads: make(map[string]Download),
	}
}

// NewFromConfig creates a mock client, ignoring the configuration.
func NewFromConfig(_ *types.ClientConfig) *Client {
	return New()
}

// Type returns the client type.
func (c *Client) Type() types.ClientType {
	return types.ClientTypeMock
}

// Protocol returns the protocol.
func (c *Client) Protocol() types.Protocol {
	return types.ProtocolTorrent
}

// Test returns the injected test error, if any.
func (c *Client) Test(_ context.Context) error {
	return c.TestErr
}

// Add records the submission and returns a generated ID.
func (c *Client) Add(_ context.Context, opts types.AddOptions) (string, error) {
	if c.AddErr != nil {
		return "", c.AddErr
	}
	if opts.URL == "" && len(opts.FileContent) == 0 {
		return "", fmt.Errorf("either URL or FileContent must be provided")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextID++
	id := fmt.Sprintf("mock-%d", c.nextID)
	c.downloads[id] = Download{ID: id, Options: opts}
	return id, nil
}

// Remove deletes a recorded submission.
func (c *Client) Remove(_ context.Context, id string, _ bool) error {
	if c.RemoveErr != nil {
		return c.RemoveErr
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.downloads[id]; !ok {
		return types.ErrNotFound
	}
	delete(c.downloads, id)
	return nil
}

// Downloads returns the recorded submissions.
func (c *Client) Downloads() []Download {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]Download, 0, len(c.downloads))
	for _, d := range c.downloads {
		out = append(out, d)
	}
	return out
}
