package torznab

import (
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/sportarr/sportarr/internal/indexer/types"
)

// Feed structures. The torznab: and newznab: extension attributes share the
// local element name "attr", so one set of structs covers both dialects.

type rssFeed struct {
	XMLName xml.Name   `xml:"rss"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title string    `xml:"title"`
	Items []rssItem `xml:"item"`
}

type rssItem struct {
	Title     string       `xml:"title"`
	Link      string       `xml:"link"`
	GUID      string       `xml:"guid"`
	PubDate   string       `xml:"pubDate"`
	Size      int64        `xml:"size"`
	Comments  string       `xml:"comments"`
	Enclosure rssEnclosure `xml:"enclosure"`
	Attrs     []extAttr    `xml:"attr"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type extAttr struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

type errorResponse struct {
	XMLName     xml.Name `xml:"error"`
	Code        int      `xml:"code,attr"`
	Description string   `xml:"description,attr"`
}

// ParseFeed parses a Torznab/Newznab search response into release infos.
// Items without a usable download URL are skipped.
func ParseFeed(data []byte, def *types.IndexerDefinition) ([]types.ReleaseInfo, error) {
	if apiErr := parseError(data); apiErr != nil {
		return nil, apiErr
	}

	var feed rssFeed
	if err := xml.Unmarshal(data, &feed); err != nil {
		return nil, err
	}

	results := make([]types.ReleaseInfo, 0, len(feed.Channel.Items))
	for _, item := range feed.Channel.Items {
		downloadURL := item.Link
		if downloadURL == "" {
			downloadURL = item.Enclosure.URL
		}
		if downloadURL == "" {
			continue
		}

		guid := item.GUID
		if guid == "" {
			guid = downloadURL
		}

		size := item.Size
		if size == 0 {
			size = item.Enclosure.Length
		}

		info := types.ReleaseInfo{
			GUID:        guid,
			Title:       item.Title,
			DownloadURL: downloadURL,
			InfoURL:     item.Comments,
			Size:        size,
			PublishDate: parseDate(item.PubDate),
			IndexerID:   def.ID,
			IndexerName: def.Name,
			Protocol:    def.Protocol,
		}
		applyAttrs(&info, item.Attrs)

		results = append(results, info)
	}

	return results, nil
}

// parseError detects the Torznab error document returned in place of a feed.
func parseError(data []byte) *APIError {
	var resp errorResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil
	}
	return &APIError{Code: resp.Code, Description: resp.Description}
}

func applyAttrs(info *types.ReleaseInfo, attrs []extAttr) {
	for _, attr := range attrs {
		switch strings.ToLower(attr.Name) {
		case "seeders":
			info.Seeders, _ = strconv.Atoi(attr.Value)
		case "peers", "leechers":
			info.Peers, _ = strconv.Atoi(attr.Value)
		case "infohash":
			info.InfoHash = strings.ToLower(attr.Value)
		case "size":
			if v, err := strconv.ParseInt(attr.Value, 10, 64); err == nil && v > 0 {
				info.Size = v
			}
		case "category":
			if v, err := strconv.Atoi(attr.Value); err == nil {
				info.Categories = append(info.Categories, v)
			}
		case "downloadvolumefactor":
			if attr.Value == "0" {
				info.IndexerFlags = append(info.IndexerFlags, "freeleech")
			}
		case "tag", "flag":
			if attr.Value != "" {
				info.IndexerFlags = append(info.IndexerFlags, strings.ToLower(attr.Value))
			}
		}
	}
}

// Capabilities document (t=caps).

type capsResponse struct {
	XMLName    xml.Name       `xml:"caps"`
	Searching  capsSearching  `xml:"searching"`
	Categories capsCategories `xml:"categories"`
}

type capsSearching struct {
	Search capsSearchMode `xml:"search"`
}

type capsSearchMode struct {
	Available       string `xml:"available,attr"`
	SupportedParams string `xml:"supportedParams,attr"`
}

type capsCategories struct {
	Categories []capsCategory `xml:"category"`
}

type capsCategory struct {
	ID   int    `xml:"id,attr"`
	Name string `xml:"name,attr"`
}

// ParseCaps parses a t=caps response.
func ParseCaps(data []byte) (*types.Capabilities, error) {
	if apiErr := parseError(data); apiErr != nil {
		return nil, apiErr
	}

	var resp capsResponse
	if err := xml.Unmarshal(data, &resp); err != nil {
		return nil, err
	}

	caps := &types.Capabilities{
		SupportsSearch: resp.Searching.Search.Available == "yes",
		SupportsRSS:    true,
	}
	if resp.Searching.Search.SupportedParams != "" {
		caps.SearchParams = strings.Split(resp.Searching.Search.SupportedParams, ",")
	}
	for _, cat := range resp.Categories.Categories {
		caps.Categories = append(caps.Categories, types.CategoryMapping{ID: cat.ID, Name: cat.Name})
	}
	return caps, nil
}

func parseDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}
