package release

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Regex patterns for parsing
var (
	// Full date: 2024.04.13 or 2024-04-13. Takes priority over year-only.
	fullDatePattern = regexp.MustCompile(`(?:^|[\.\s_-])((?:19|20)\d{2})[\.\s_-](\d{2})[\.\s_-](\d{2})(?:[\.\s_-]|$)`)

	// Year only: standalone 4-digit year.
	yearPattern = regexp.MustCompile(`(?:^|[\.\s_-])((?:19|20)\d{2})(?:[\.\s_-]|$)`)

	// Resolution patterns (order matters - most specific first)
	resolutionOrder    = []Resolution{Resolution2160p, Resolution1080p, Resolution720p, Resolution576p, Resolution480p}
	resolutionPatterns = map[Resolution]*regexp.Regexp{
		Resolution2160p: regexp.MustCompile(`(?i)(2160p|4k|uhd)`),
		Resolution1080p: regexp.MustCompile(`(?i)1080[pi]`),
		Resolution720p:  regexp.MustCompile(`(?i)720p`),
		Resolution576p:  regexp.MustCompile(`(?i)576[pi]`),
		Resolution480p:  regexp.MustCompile(`(?i)(480p|[\.\s_-]sd[\.\s_-])`),
	}

	// Source patterns (order matters - remux must be checked before bluray,
	// webdl before a bare "web" token)
	sourceOrder    = []Source{SourceBlurayRemux, SourceBluray, SourceWEBRip, SourceWEBDL, SourceHDTV, SourceDVD, SourceSDTV}
	sourcePatterns = map[Source]*regexp.Regexp{
		SourceBlurayRemux: regexp.MustCompile(`(?i)((blu-?ray|bd)[\.\s_-]?remux|[\.\s_-]remux[\.\s_-])`),
		SourceBluray:      regexp.MustCompile(`(?i)(blu-?ray|bdrip|brrip)`),
		SourceWEBRip:      regexp.MustCompile(`(?i)web-?rip`),
		SourceWEBDL:       regexp.MustCompile(`(?i)(web-?dl|[\.\s_-]web[\.\s_-])`),
		SourceHDTV:        regexp.MustCompile(`(?i)hdtv`),
		SourceDVD:         regexp.MustCompile(`(?i)(dvdrip|dvd-?r[\.\s_-]|[\.\s_-]dvd[\.\s_-])`),
		SourceSDTV:        regexp.MustCompile(`(?i)(sdtv|pdtv|dsr)`),
	}

	// Codec patterns with alias normalization
	codecOrder    = []VideoCodec{CodecX265, CodecX264}
	codecPatterns = map[VideoCodec]*regexp.Regexp{
		CodecX265: regexp.MustCompile(`(?i)(x265|h\.?265|hevc)`),
		CodecX264: regexp.MustCompile(`(?i)(x264|h\.?264|avc)`),
	}

	// Audio patterns (order matters - more specific first)
	audioOrder    = []string{"Atmos", "TrueHD", "DTS-HD", "DTS", "DD+", "DD", "AAC", "FLAC", "MP3"}
	audioPatterns = map[string]*regexp.Regexp{
		"Atmos":  regexp.MustCompile(`(?i)atmos`),
		"TrueHD": regexp.MustCompile(`(?i)truehd`),
		"DTS-HD": regexp.MustCompile(`(?i)dts[\.\-]?hd([\.\-]?ma)?`),
		"DTS":    regexp.MustCompile(`(?i)[\.\s\-]dts[\.\s\-]`),
		"DD+":    regexp.MustCompile(`(?i)(ddp|dd\+|e[\.\-]?ac[\.\-]?3)`),
		"DD":     regexp.MustCompile(`(?i)(dd[25]\.[01]|[\.\s\-]ac[\.\-]?3[\.\s\-])`),
		"AAC":    regexp.MustCompile(`(?i)[\.\s\-]aac(?:[\.\s\-]|$)`),
		"FLAC":   regexp.MustCompile(`(?i)[\.\s\-]flac(?:[\.\s\-]|$)`),
		"MP3":    regexp.MustCompile(`(?i)[\.\s\-]mp3(?:[\.\s\-]|$)`),
	}

	properPattern   = regexp.MustCompile(`(?i)(?:^|[\.\s_-])(proper|repack|rerip)(?:[\.\s_-]|$)`)
	editionPattern  = regexp.MustCompile(`(?i)(?:^|[\.\s_-])(extended|unrated|uncut|limited|internal|remastered)(?:[\.\s_-]|$)`)
	languagePattern = regexp.MustCompile(`(?i)(?:^|[\.\s_-])(german|french|spanish|italian|nordic|dutch|multi)(?:[\.\s_-]|$)`)

	// Release group: trailing dash-delimited token. A short stoplist keeps
	// source suffixes like WEB-DL from being mistaken for a group.
	groupPattern  = regexp.MustCompile(`-([A-Za-z0-9]+)(?:\s*\[[^\]]*\])?$`)
	groupStoplist = map[string]struct{}{
		"dl": {}, "rip": {}, "hd": {}, "web": {}, "cam": {}, "remux": {},
	}

	cleanupPattern = regexp.MustCompile(`[\.\s_-]+`)

	eventNumberPattern = regexp.MustCompile(`(?:^|\s)(\d{1,4})(?:\s|$)`)
)

// Parse parses a raw release title into structured attributes.
// It never fails; unrecognized fields resolve to unknown/zero values.
func Parse(rawTitle string) ParsedRelease {
	parsed := ParsedRelease{
		RawTitle:   rawTitle,
		Resolution: ResolutionUnknown,
		Source:     SourceUnknown,
		VideoCodec: CodecUnknown,
	}

	// Earliest recognized token marks the end of the event title.
	titleEnd := len(rawTitle)

	// Full date takes priority over year-only
	if m := fullDatePattern.FindStringSubmatchIndex(rawTitle); m != nil {
		year, _ := strconv.Atoi(rawTitle[m[2]:m[3]])
		month, _ := strconv.Atoi(rawTitle[m[4]:m[5]])
		day, _ := strconv.Atoi(rawTitle[m[6]:m[7]])
		if month >= 1 && month <= 12 && day >= 1 && day <= 31 {
			date := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
			parsed.AirDate = &date
			parsed.Year = year
			titleEnd = min(titleEnd, m[2])
		}
	}
	if parsed.AirDate == nil {
		if m := yearPattern.FindStringSubmatchIndex(rawTitle); m != nil {
			parsed.Year, _ = strconv.Atoi(rawTitle[m[2]:m[3]])
			titleEnd = min(titleEnd, m[2])
		}
	}

	for _, res := range resolutionOrder {
		if loc := resolutionPatterns[res].FindStringIndex(rawTitle); loc != nil {
			parsed.Resolution = res
			titleEnd = min(titleEnd, loc[0])
			break
		}
	}

	for _, src := range sourceOrder {
		if loc := sourcePatterns[src].FindStringIndex(rawTitle); loc != nil {
			parsed.Source = src
			titleEnd = min(titleEnd, loc[0])
			break
		}
	}

	for _, codec := range codecOrder {
		if loc := codecPatterns[codec].FindStringIndex(rawTitle); loc != nil {
			parsed.VideoCodec = codec
			titleEnd = min(titleEnd, loc[0])
			break
		}
	}

	for _, audio := range audioOrder {
		if loc := audioPatterns[audio].FindStringIndex(rawTitle); loc != nil {
			parsed.AudioCodec = audio
			titleEnd = min(titleEnd, loc[0])
			break
		}
	}

	if m := properPattern.FindStringSubmatchIndex(rawTitle); m != nil {
		parsed.Proper = true
		titleEnd = min(titleEnd, m[2])
	}
	if m := editionPattern.FindStringSubmatch(rawTitle); m != nil {
		parsed.Edition = strings.ToUpper(m[1])
		loc := editionPattern.FindStringSubmatchIndex(rawTitle)
		titleEnd = min(titleEnd, loc[2])
	}
	if m := languagePattern.FindStringSubmatch(rawTitle); m != nil {
		parsed.Language = strings.ToUpper(m[1])
		loc := languagePattern.FindStringSubmatchIndex(rawTitle)
		titleEnd = min(titleEnd, loc[2])
	}

	if m := groupPattern.FindStringSubmatch(rawTitle); m != nil {
		if _, stopped := groupStoplist[strings.ToLower(m[1])]; !stopped {
			parsed.ReleaseGroup = m[1]
		}
	}

	parsed.EventTitle = cleanTitle(rawTitle[:titleEnd])
	if parsed.EventTitle == "" {
		parsed.EventTitle = cleanTitle(rawTitle)
	}

	return parsed
}

// BuildQualityString joins the recognized quality attributes into a single
// display string, or returns "Unknown" when nothing was recognized.
func BuildQualityString(parsed ParsedRelease) string {
	parts := make([]string, 0, 5)

	if parsed.Resolution != ResolutionUnknown {
		parts = append(parts, string(parsed.Resolution))
	}
	if parsed.Source != SourceUnknown {
		parts = append(parts, string(parsed.Source))
	}
	if parsed.VideoCodec != CodecUnknown {
		parts = append(parts, string(parsed.VideoCodec))
	}
	if parsed.AudioCodec != "" {
		parts = append(parts, parsed.AudioCodec)
	}
	if parsed.Proper {
		parts = append(parts, "PROPER")
	}

	if len(parts) == 0 {
		return "Unknown"
	}
	return strings.Join(parts, " ")
}

// SportPrefix derives the organization/league prefix from an event title:
// the leading alphabetic tokens before the first number, uppercased.
// "UFC 300" yields "UFC"; "Formula 1" yields "FORMULA".
func SportPrefix(eventTitle string) string {
	tokens := strings.Fields(eventTitle)
	prefix := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, err := strconv.Atoi(tok); err == nil {
			break
		}
		prefix = append(prefix, strings.ToUpper(tok))
	}
	return strings.Join(prefix, " ")
}

// EventNumber derives the event/round number from an event title: the first
// standalone number that is not a plausible year. Returns 0 when absent.
func EventNumber(eventTitle string) int {
	for _, m := range eventNumberPattern.FindAllStringSubmatch(" "+eventTitle+" ", -1) {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n >= 1900 && n <= 2100 {
			continue
		}
		return n
	}
	return 0
}

// cleanTitle cleans up a parsed title by replacing separators with spaces.
func cleanTitle(title string) string {
	cleaned := cleanupPattern.ReplaceAllString(title, " ")
	return strings.TrimSpace(cleaned)
}

// NormalizeTitle lowercases a release title and collapses separator
// characters so equivalent titles compare equal regardless of how the
// uploader delimited them.
func NormalizeTitle(title string) string {
	return strings.ToLower(cleanTitle(title))
}
