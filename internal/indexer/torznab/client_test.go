package torznab

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sportarr/sportarr/internal/indexer"
	"github.com/sportarr/sportarr/internal/indexer/types"
)

const sampleFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:torznab="http://torznab.com/schemas/2015/feed">
  <channel>
    <title>Test Indexer</title>
    <item>
      <title>UFC.300.2024.04.13.1080p.WEB-DL.x264-GROUP</title>
      <guid>https://indexer.example/details/abc123</guid>
      <link>https://indexer.example/download/abc123.torrent</link>
      <comments>https://indexer.example/details/abc123</comments>
      <pubDate>Sat, 13 Apr 2024 23:45:00 +0000</pubDate>
      <size>4294967296</size>
      <torznab:attr name="seeders" value="42"/>
      <torznab:attr name="peers" value="50"/>
      <torznab:attr name="infohash" value="AABBCCDDEEFF00112233445566778899AABBCCDD"/>
      <torznab:attr name="category" value="5060"/>
      <torznab:attr name="downloadvolumefactor" value="0"/>
    </item>
    <item>
      <title>Broken item without download link</title>
      <guid>https://indexer.example/details/nolink</guid>
    </item>
    <item>
      <title>UFC.300.720p.HDTV.x264-OTHER</title>
      <enclosure url="https://indexer.example/download/def456.torrent" length="1073741824" type="application/x-bittorrent"/>
      <torznab:attr name="seeders" value="5"/>
    </item>
  </channel>
</rss>`

const sampleCaps = `<?xml version="1.0" encoding="UTF-8"?>
<caps>
  <searching>
    <search available="yes" supportedParams="q,cat"/>
  </searching>
  <categories>
    <category id="5000" name="TV"/>
    <category id="5060" name="TV/Sport"/>
  </categories>
</caps>`

func testDefinition(baseURL string) *types.IndexerDefinition {
	return &types.IndexerDefinition{
		ID:         7,
		Name:       "Test Indexer",
		Type:       types.IndexerTypeTorznab,
		BaseURL:    baseURL,
		APIPath:    "/api",
		APIKey:     "secret",
		Categories: []int{5060},
		Protocol:   types.ProtocolTorrent,
	}
}

func TestClientQuery(t *testing.T) {
	var gotQuery map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{}
		for key := range r.URL.Query() {
			gotQuery[key] = r.URL.Query().Get(key)
		}
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	releases, err := client.Query(context.Background(), types.SearchCriteria{
		Query: "UFC 300",
		Limit: 100,
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}

	if gotQuery["t"] != "search" {
		t.Errorf("t = %q, want search", gotQuery["t"])
	}
	if gotQuery["apikey"] != "secret" {
		t.Errorf("apikey = %q, want secret", gotQuery["apikey"])
	}
	if gotQuery["q"] != "UFC 300" {
		t.Errorf("q = %q, want UFC 300", gotQuery["q"])
	}
	if gotQuery["cat"] != "5060" {
		t.Errorf("cat = %q, want 5060", gotQuery["cat"])
	}
	if gotQuery["limit"] != "100" {
		t.Errorf("limit = %q, want 100", gotQuery["limit"])
	}

	// The item without any download URL must be dropped.
	if len(releases) != 2 {
		t.Fatalf("got %d releases, want 2", len(releases))
	}

	first := releases[0]
	if first.Title != "UFC.300.2024.04.13.1080p.WEB-DL.x264-GROUP" {
		t.Errorf("unexpected title %q", first.Title)
	}
	if first.GUID != "https://indexer.example/details/abc123" {
		t.Errorf("unexpected guid %q", first.GUID)
	}
	if first.Size != 4294967296 {
		t.Errorf("size = %d", first.Size)
	}
	if first.Seeders != 42 || first.Peers != 50 {
		t.Errorf("seeders/peers = %d/%d, want 42/50", first.Seeders, first.Peers)
	}
	if first.InfoHash != "aabbccddeeff00112233445566778899aabbccdd" {
		t.Errorf("infohash not lowercased: %q", first.InfoHash)
	}
	if len(first.Categories) != 1 || first.Categories[0] != 5060 {
		t.Errorf("categories = %v", first.Categories)
	}
	if len(first.IndexerFlags) != 1 || first.IndexerFlags[0] != "freeleech" {
		t.Errorf("flags = %v, want [freeleech]", first.IndexerFlags)
	}
	if first.IndexerID != 7 || first.IndexerName != "Test Indexer" {
		t.Errorf("indexer attribution = %d/%q", first.IndexerID, first.IndexerName)
	}
	if first.Protocol != types.ProtocolTorrent {
		t.Errorf("protocol = %q", first.Protocol)
	}
	if first.PublishDate.IsZero() {
		t.Error("publish date not parsed")
	}

	// Enclosure fallback for download URL and size.
	second := releases[1]
	if second.DownloadURL != "https://indexer.example/download/def456.torrent" {
		t.Errorf("enclosure download URL not used: %q", second.DownloadURL)
	}
	if second.Size != 1073741824 {
		t.Errorf("enclosure size not used: %d", second.Size)
	}
	if second.GUID != second.DownloadURL {
		t.Errorf("missing guid should fall back to download URL, got %q", second.GUID)
	}
}

func TestClientQueryRSSOmitsQueryParam(t *testing.T) {
	var hasQ bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasQ = r.URL.Query()["q"]
		w.Write([]byte(sampleFeed))
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	if _, err := client.Query(context.Background(), types.SearchCriteria{}); err != nil {
		t.Fatalf("Query: %v", err)
	}
	if hasQ {
		t.Error("RSS poll must not send a q parameter")
	}
}

func TestClientQueryAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<error code="100" description="Incorrect user credentials"/>`))
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	_, err := client.Query(context.Background(), types.SearchCriteria{Query: "UFC"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !indexer.IsAuthError(err) {
		t.Errorf("error code 100 should map to auth error, got %v", err)
	}
}

func TestClientQueryHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		wantCode string
	}{
		{"rate limited", http.StatusTooManyRequests, indexer.ErrCodeRateLimit},
		{"unauthorized", http.StatusUnauthorized, indexer.ErrCodeAuthentication},
		{"server error", http.StatusInternalServerError, indexer.ErrCodeSearch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewClient(testDefinition(server.URL), 5*time.Second)
			_, err := client.Query(context.Background(), types.SearchCriteria{Query: "UFC"})
			if err == nil {
				t.Fatal("expected error")
			}
			if got := indexer.GetErrorCode(err); got != tt.wantCode {
				t.Errorf("error code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestClientQueryContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.Query(ctx, types.SearchCriteria{Query: "UFC"})
	if err == nil {
		t.Fatal("expected error on context timeout")
	}
	var indexerErr *indexer.IndexerError
	if !errors.As(err, &indexerErr) || indexerErr.Code != indexer.ErrCodeNetwork {
		t.Errorf("timeout should map to network error, got %v", err)
	}
}

func TestClientCaps(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("t") != "caps" {
			t.Errorf("t = %q, want caps", r.URL.Query().Get("t"))
		}
		w.Write([]byte(sampleCaps))
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	caps, err := client.Caps(context.Background())
	if err != nil {
		t.Fatalf("Caps: %v", err)
	}

	if !caps.SupportsSearch {
		t.Error("SupportsSearch should be true")
	}
	if len(caps.SearchParams) != 2 {
		t.Errorf("search params = %v", caps.SearchParams)
	}
	if len(caps.Categories) != 2 || caps.Categories[1].ID != 5060 {
		t.Errorf("categories = %v", caps.Categories)
	}
}

func TestClientTest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(sampleCaps))
	}))
	defer server.Close()

	client := NewClient(testDefinition(server.URL), 5*time.Second)
	if err := client.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
}
