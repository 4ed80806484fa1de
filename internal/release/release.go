// Package release provides parsing of free-text release titles into
// structured attributes. Parsing is a pure function over its input: it
// never fails, and fields that cannot be recognized resolve to their
// unknown values.
package release

import "time"

// Resolution is the video resolution recognized from a release title.
type Resolution string

const (
	Resolution480p    Resolution = "480p"
	Resolution576p    Resolution = "576p"
	Resolution720p    Resolution = "720p"
	Resolution1080p   Resolution = "1080p"
	Resolution2160p   Resolution = "2160p"
	ResolutionUnknown Resolution = "unknown"
)

// Source is the media source recognized from a release title.
type Source string

const (
	SourceSDTV        Source = "SDTV"
	SourceDVD         Source = "DVD"
	SourceHDTV        Source = "HDTV"
	SourceWEBDL       Source = "WEBDL"
	SourceWEBRip      Source = "WEBRip"
	SourceBluray      Source = "Bluray"
	SourceBlurayRemux Source = "BlurayRemux"
	SourceUnknown     Source = "unknown"
)

// VideoCodec is the video codec recognized from a release title.
// Aliases are normalized: H264/h.264/AVC map to x264, HEVC/H265/h.265 to x265.
type VideoCodec string

const (
	CodecX264    VideoCodec = "x264"
	CodecX265    VideoCodec = "x265"
	CodecUnknown VideoCodec = "unknown"
)

// ParsedRelease is the structured form of a raw release title.
type ParsedRelease struct {
	RawTitle   string     `json:"rawTitle"`
	EventTitle string     `json:"eventTitle"`
	Resolution Resolution `json:"resolution"`
	Source     Source     `json:"source"`
	VideoCodec VideoCodec `json:"videoCodec"`
	AudioCodec string     `json:"audioCodec,omitempty"`
	ReleaseGroup string   `json:"releaseGroup,omitempty"`
	Edition    string     `json:"edition,omitempty"`
	Language   string     `json:"language,omitempty"`
	Proper     bool       `json:"proper,omitempty"`
	AirDate    *time.Time `json:"airDate,omitempty"`
	Year       int        `json:"year,omitempty"`
}

// HasDate reports whether a full air date was recognized.
func (p *ParsedRelease) HasDate() bool {
	return p.AirDate != nil
}
