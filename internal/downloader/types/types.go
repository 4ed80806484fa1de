// Package types defines shared types for download clients.
package types

import (
	"context"
	"errors"
)

// Common errors for download clients.
var (
	ErrNotConnected = errors.New("client not connected")
	ErrAuthFailed   = errors.New("authentication failed")
	ErrNotFound     = errors.New("download not found")
)

// Protocol represents the download protocol.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// ClientType represents the type of download client.
type ClientType string

const (
	ClientTypeQBittorrent  ClientType = "qbittorrent"
	ClientTypeTransmission ClientType = "transmission"
	ClientTypeDeluge       ClientType = "deluge"
	ClientTypeRTorrent     ClientType = "rtorrent"
	ClientTypeUTorrent     ClientType = "utorrent"
	ClientTypeSABnzbd      ClientType = "sabnzbd"
	ClientTypeNZBGet       ClientType = "nzbget"
	ClientTypeMock         ClientType = "mock" // In-memory client for tests and dry runs
)

// ProtocolForClient returns the protocol for a given client type.
func ProtocolForClient(clientType ClientType) Protocol {
	switch clientType {
	case ClientTypeQBittorrent, ClientTypeTransmission, ClientTypeDeluge,
		ClientTypeRTorrent, ClientTypeUTorrent, ClientTypeMock:
		return ProtocolTorrent
	case ClientTypeSABnzbd, ClientTypeNZBGet:
		return ProtocolUsenet
	default:
		return ""
	}
}

// ClientConfig holds common configuration for all download clients.
type ClientConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	UseSSL   bool
	APIKey   string // For clients that use API keys (SABnzbd, NZBGet)
	URLBase  string // Path prefix when the client sits behind a proxy
	Category string // Default category/label for downloads
}

// Client is the uniform surface the dispatcher works against. Backends
// differ widely in their APIs; everything beyond submit, test, and remove
// stays backend-internal.
type Client interface {
	Type() ClientType
	Protocol() Protocol

	// Test verifies connectivity and credentials.
	Test(ctx context.Context) error

	// Add submits a download and returns the client-side ID
	// (the info hash for torrent clients, the queue ID for usenet ones).
	Add(ctx context.Context, opts AddOptions) (string, error)

	// Remove deletes a download, optionally with its files.
	Remove(ctx context.Context, id string, deleteFiles bool) error
}

// AddOptions specifies options for adding a download.
type AddOptions struct {
	URL         string // URL to a torrent/nzb file, or a magnet link
	FileContent []byte // Raw torrent/nzb file content
	Name        string // Display name for the download
	Category    string // Category/label, overrides the client default
	DownloadDir string // Override the default download directory
	Paused      bool   // Add in paused state
}
