// Package types contains shared type definitions for indexer packages.
package types

import "time"

// Protocol represents the download protocol.
type Protocol string

const (
	ProtocolTorrent Protocol = "torrent"
	ProtocolUsenet  Protocol = "usenet"
)

// IndexerType represents the type of indexer API.
type IndexerType string

const (
	IndexerTypeTorznab IndexerType = "torznab"
	IndexerTypeNewznab IndexerType = "newznab"
)

// IndexerDefinition represents a configured indexer.
type IndexerDefinition struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Type       IndexerType `json:"type"`
	BaseURL    string      `json:"baseUrl"`
	APIPath    string      `json:"apiPath"`
	APIKey     string      `json:"apiKey,omitempty"`
	Categories []int       `json:"categories"`
	Protocol   Protocol    `json:"protocol"`
	Priority   int         `json:"priority"` // 1-50, lower = preferred
	Enabled    bool        `json:"enabled"`
	CreatedAt  time.Time   `json:"createdAt,omitempty"`
	UpdatedAt  time.Time   `json:"updatedAt,omitempty"`
}

// SearchCriteria defines search parameters.
type SearchCriteria struct {
	Query      string `json:"query,omitempty"`
	Year       int    `json:"year,omitempty"`
	Round      int    `json:"round,omitempty"`
	Categories []int  `json:"categories,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// IsRSS reports whether the criteria describe a feed poll rather than a
// query search.
func (c SearchCriteria) IsRSS() bool {
	return c.Query == ""
}

// ReleaseInfo represents a search result from an indexer.
type ReleaseInfo struct {
	GUID        string    `json:"guid"`
	Title       string    `json:"title"`
	DownloadURL string    `json:"downloadUrl"`
	InfoURL     string    `json:"infoUrl,omitempty"`
	Size        int64     `json:"size"`
	PublishDate time.Time `json:"publishDate"`
	Categories  []int     `json:"categories,omitempty"`

	IndexerID   int64    `json:"indexerId"`
	IndexerName string   `json:"indexer"`
	Protocol    Protocol `json:"protocol"`

	// Torrent-specific. Zero for usenet releases.
	Seeders  int    `json:"seeders,omitempty"`
	Peers    int    `json:"peers,omitempty"`
	InfoHash string `json:"infoHash,omitempty"`

	IndexerFlags []string `json:"indexerFlags,omitempty"`
}

// Capabilities describes what an indexer endpoint supports.
type Capabilities struct {
	SupportsSearch bool              `json:"supportsSearch"`
	SupportsRSS    bool              `json:"supportsRss"`
	SearchParams   []string          `json:"searchParams,omitempty"`
	Categories     []CategoryMapping `json:"categories,omitempty"`
}

// CategoryMapping maps indexer categories to standard Newznab categories.
type CategoryMapping struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
