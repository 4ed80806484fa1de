// Package history records grab events and maintains the blocklist of
// releases that must never be grabbed again.
package history

import (
	"time"

	"github.com/sportarr/sportarr/internal/indexer/types"
)

// GrabRecord is one dispatched release.
type GrabRecord struct {
	ID          string         `json:"id"`
	EventID     int64          `json:"eventId"`
	PartName    string         `json:"partName,omitempty"`
	Title       string         `json:"title"`
	Indexer     string         `json:"indexer"`
	GUID        string         `json:"guid"`
	DownloadURL string         `json:"downloadUrl"`
	InfoHash    string         `json:"infoHash,omitempty"`
	Protocol    types.Protocol `json:"protocol"`
	Quality     string         `json:"quality,omitempty"`
	Codec       string         `json:"codec,omitempty"`
	ClientName  string         `json:"clientName,omitempty"`
	DownloadID  string         `json:"downloadId,omitempty"`
	GrabbedAt   time.Time      `json:"grabbedAt"`
	Imported    bool           `json:"imported"`
	FileExists  bool           `json:"fileExists"`
}

// GrabInput holds the fields for recording a grab.
type GrabInput struct {
	EventID     int64
	PartName    string
	Title       string
	Indexer     string
	GUID        string
	DownloadURL string
	InfoHash    string
	Protocol    types.Protocol
	Quality     string
	Codec       string
	ClientName  string
	DownloadID  string
}

// BlocklistItem is a release barred from future grabs. Torrents are keyed
// by info hash when available; usenet releases by title and indexer.
type BlocklistItem struct {
	ID        int64          `json:"id"`
	Title     string         `json:"title"`
	Indexer   string         `json:"indexer"`
	Protocol  types.Protocol `json:"protocol"`
	InfoHash  string         `json:"infoHash,omitempty"`
	EventID   int64          `json:"eventId,omitempty"`
	PartName  string         `json:"partName,omitempty"`
	Reason    string         `json:"reason,omitempty"`
	BlockedAt time.Time      `json:"blockedAt"`
}

// BlocklistInput holds the fields for blocklisting a release.
type BlocklistInput struct {
	Title    string
	Indexer  string
	Protocol types.Protocol
	InfoHash string
	EventID  int64
	PartName string
	Reason   string
}
