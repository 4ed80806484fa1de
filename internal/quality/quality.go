// Package quality defines the quality tier ladder, quality profiles, and
// custom formats used when evaluating releases.
package quality

import (
	"github.com/sportarr/sportarr/internal/release"
)

// Quality represents a quality tier.
type Quality struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Source     string `json:"source"`     // "tv", "dvd", "webrip", "webdl", "bluray", "remux"
	Resolution int    `json:"resolution"` // 480, 576, 720, 1080, 2160
	Weight     int    `json:"weight"`     // Higher = better quality
}

// Score returns the quality contribution to a release's total score.
func (q Quality) Score() int {
	return q.Weight * 10
}

// PredefinedQualities is the standard quality ladder, ordered by weight.
// For a fixed source, higher resolution always has higher weight, and for a
// fixed resolution, tv < webrip < webdl < bluray < remux.
var PredefinedQualities = []Quality{
	{ID: 1, Name: "SDTV", Source: "tv", Resolution: 480, Weight: 1},
	{ID: 2, Name: "DVD", Source: "dvd", Resolution: 480, Weight: 2},
	{ID: 3, Name: "WEBRip-480p", Source: "webrip", Resolution: 480, Weight: 3},
	{ID: 4, Name: "WEBDL-480p", Source: "webdl", Resolution: 480, Weight: 4},
	{ID: 5, Name: "HDTV-576p", Source: "tv", Resolution: 576, Weight: 5},
	{ID: 6, Name: "HDTV-720p", Source: "tv", Resolution: 720, Weight: 6},
	{ID: 7, Name: "WEBRip-720p", Source: "webrip", Resolution: 720, Weight: 7},
	{ID: 8, Name: "WEBDL-720p", Source: "webdl", Resolution: 720, Weight: 8},
	{ID: 9, Name: "Bluray-720p", Source: "bluray", Resolution: 720, Weight: 9},
	{ID: 10, Name: "HDTV-1080p", Source: "tv", Resolution: 1080, Weight: 10},
	{ID: 11, Name: "WEBRip-1080p", Source: "webrip", Resolution: 1080, Weight: 11},
	{ID: 12, Name: "WEBDL-1080p", Source: "webdl", Resolution: 1080, Weight: 12},
	{ID: 13, Name: "Bluray-1080p", Source: "bluray", Resolution: 1080, Weight: 13},
	{ID: 14, Name: "Remux-1080p", Source: "remux", Resolution: 1080, Weight: 14},
	{ID: 15, Name: "HDTV-2160p", Source: "tv", Resolution: 2160, Weight: 15},
	{ID: 16, Name: "WEBRip-2160p", Source: "webrip", Resolution: 2160, Weight: 16},
	{ID: 17, Name: "WEBDL-2160p", Source: "webdl", Resolution: 2160, Weight: 17},
	{ID: 18, Name: "Bluray-2160p", Source: "bluray", Resolution: 2160, Weight: 18},
	{ID: 19, Name: "Remux-2160p", Source: "remux", Resolution: 2160, Weight: 19},
}

// qualityByID is a lookup map for qualities by ID.
var qualityByID map[int]Quality

func init() {
	qualityByID = make(map[int]Quality)
	for _, q := range PredefinedQualities {
		qualityByID[q.ID] = q
	}
}

// GetQualityByID returns a quality by its ID.
func GetQualityByID(id int) (Quality, bool) {
	q, ok := qualityByID[id]
	return q, ok
}

// GetQualityByName finds a quality by name.
func GetQualityByName(name string) (Quality, bool) {
	for _, q := range PredefinedQualities {
		if q.Name == name {
			return q, true
		}
	}
	return Quality{}, false
}

// sourceMapping maps parsed sources to quality source identifiers.
var sourceMapping = map[release.Source]string{
	release.SourceSDTV:        "tv",
	release.SourceHDTV:        "tv",
	release.SourceDVD:         "dvd",
	release.SourceWEBRip:      "webrip",
	release.SourceWEBDL:       "webdl",
	release.SourceBluray:      "bluray",
	release.SourceBlurayRemux: "remux",
}

// resolutionMapping maps parsed resolutions to pixel heights.
var resolutionMapping = map[release.Resolution]int{
	release.Resolution480p:  480,
	release.Resolution576p:  576,
	release.Resolution720p:  720,
	release.Resolution1080p: 1080,
	release.Resolution2160p: 2160,
}

// MatchQuality maps a parsed release onto the quality ladder. An exact
// source+resolution match wins; otherwise the best tier sharing the
// resolution, then the source, is used. Returns false when neither the
// source nor the resolution was recognized.
func MatchQuality(parsed release.ParsedRelease) (Quality, bool) {
	source := sourceMapping[parsed.Source]
	resolution := resolutionMapping[parsed.Resolution]

	// SDTV titles rarely carry an explicit resolution.
	if resolution == 0 && parsed.Source == release.SourceSDTV {
		resolution = 480
	}

	if source != "" && resolution > 0 {
		for _, q := range PredefinedQualities {
			if q.Source == source && q.Resolution == resolution {
				return q, true
			}
		}
	}

	if resolution > 0 {
		if best, ok := bestQuality(func(q Quality) bool { return q.Resolution == resolution }); ok {
			return best, true
		}
	}

	if source != "" {
		if best, ok := bestQuality(func(q Quality) bool { return q.Source == source }); ok {
			return best, true
		}
	}

	return Quality{}, false
}

func bestQuality(matches func(q Quality) bool) (Quality, bool) {
	var best Quality
	found := false
	for _, q := range PredefinedQualities {
		if matches(q) && (!found || q.Weight > best.Weight) {
			best = q
			found = true
		}
	}
	return best, found
}
