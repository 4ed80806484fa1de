// Package downloader manages download clients and dispatches releases to
// them.
package downloader

import (
	"fmt"

	"github.com/sportarr/sportarr/internal/downloader/deluge"
	"github.com/sportarr/sportarr/internal/downloader/mock"
	"github.com/sportarr/sportarr/internal/downloader/nzbget"
	"github.com/sportarr/sportarr/internal/downloader/qbittorrent"
	"github.com/sportarr/sportarr/internal/downloader/rtorrent"
	"github.com/sportarr/sportarr/internal/downloader/sabnzbd"
	"github.com/sportarr/sportarr/internal/downloader/transmission"
	"github.com/sportarr/sportarr/internal/downloader/types"
	"github.com/sportarr/sportarr/internal/downloader/utorrent"
)

// ErrUnsupportedClient is returned for unknown client types.
var ErrUnsupportedClient = fmt.Errorf("unsupported download client type")

// NewClient creates a download client for the given type.
func NewClient(clientType types.ClientType, cfg *types.ClientConfig) (types.Client, error) {
	switch clientType {
	case types.ClientTypeQBittorrent:
		return qbittorrent.NewFromConfig(cfg), nil
	case types.ClientTypeTransmission:
		return transmission.NewFromConfig(cfg), nil
	case types.ClientTypeDeluge:
		return deluge.NewFromConfig(cfg), nil
	case types.ClientTypeRTorrent:
		return rtorrent.NewFromConfig(cfg), nil
	case types.ClientTypeUTorrent:
		return utorrent.NewFromConfig(cfg), nil
	case types.ClientTypeSABnzbd:
		return sabnzbd.NewFromConfig(cfg), nil
	case types.ClientTypeNZBGet:
		return nzbget.NewFromConfig(cfg), nil
	case types.ClientTypeMock:
		return mock.NewFromConfig(cfg), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedClient, clientType)
	}
}

// SupportedClientTypes returns the client types the factory can build.
func SupportedClientTypes() []types.ClientType {
	return []types.ClientType{
		types.ClientTypeQBittorrent,
		types.ClientTypeTransmission,
		types.ClientTypeDeluge,
		types.ClientTypeRTorrent,
		types.ClientTypeUTorrent,
		types.ClientTypeSABnzbd,
		types.ClientTypeNZBGet,
		types.ClientTypeMock,
	}
}

// IsClientTypeSupported reports whether the factory can build the type.
func IsClientTypeSupported(clientType types.ClientType) bool {
	for _, t := range SupportedClientTypes() {
		if t == clientType {
			return true
		}
	}
	return false
}
