package history

import (
	"context"
	"errors"
	"testing"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/testutil"
)

func TestRecordAndListGrabs(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	record, err := svc.RecordGrab(ctx, GrabInput{
		EventID:     42,
		PartName:    "Main Card",
		Title:       "UFC.300.2024.04.13.1080p.WEB-DL.x264-GROUP",
		Indexer:     "Test Indexer",
		GUID:        "guid-1",
		DownloadURL: "https://indexer.example/dl/1",
		InfoHash:    "AABB00",
		Protocol:    types.ProtocolTorrent,
		Quality:     "1080p WEBDL x264",
		ClientName:  "qbittorrent",
		DownloadID:  "hash-in-client",
	})
	if err != nil {
		t.Fatalf("RecordGrab: %v", err)
	}
	if record.ID == "" {
		t.Fatal("record should get a generated ID")
	}
	if record.InfoHash != "aabb00" {
		t.Errorf("info hash not lowercased: %q", record.InfoHash)
	}

	got, err := svc.GetGrab(ctx, record.ID)
	if err != nil {
		t.Fatalf("GetGrab: %v", err)
	}
	if got.Title != record.Title || got.EventID != 42 || got.Imported {
		t.Errorf("unexpected record %+v", got)
	}

	list, err := svc.ListGrabsForEvent(ctx, 42)
	if err != nil {
		t.Fatalf("ListGrabsForEvent: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("got %d records, want 1", len(list))
	}

	empty, err := svc.ListGrabsForEvent(ctx, 999)
	if err != nil {
		t.Fatalf("ListGrabsForEvent: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unexpected records for unknown event: %v", empty)
	}
}

func TestMarkImported(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	record, err := svc.RecordGrab(ctx, GrabInput{
		EventID: 1, Title: "UFC.300.1080p", Indexer: "Idx", GUID: "g",
		DownloadURL: "u", Protocol: types.ProtocolTorrent,
	})
	if err != nil {
		t.Fatalf("RecordGrab: %v", err)
	}

	if err := svc.MarkImported(ctx, record.ID); err != nil {
		t.Fatalf("MarkImported: %v", err)
	}
	got, _ := svc.GetGrab(ctx, record.ID)
	if !got.Imported || !got.FileExists {
		t.Errorf("record not marked imported: %+v", got)
	}

	if err := svc.MarkImported(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("MarkImported(missing) = %v, want not found", err)
	}
}

func TestBlocklistByInfoHash(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	if _, err := svc.AddToBlocklist(ctx, BlocklistInput{
		Title:    "UFC.300.1080p.WEB-DL.x264-GROUP",
		Indexer:  "Indexer A",
		Protocol: types.ProtocolTorrent,
		InfoHash: "AABBCC",
		Reason:   "failed download",
	}); err != nil {
		t.Fatalf("AddToBlocklist: %v", err)
	}

	// Same hash from a different indexer with a different title still matches.
	blocked, err := svc.IsBlocklisted(ctx, types.ReleaseInfo{
		Title:       "UFC 300 repost",
		IndexerName: "Indexer B",
		InfoHash:    "aabbcc",
	})
	if err != nil {
		t.Fatalf("IsBlocklisted: %v", err)
	}
	if !blocked {
		t.Error("release with blocklisted info hash should match")
	}

	clean, err := svc.IsBlocklisted(ctx, types.ReleaseInfo{
		Title:       "UFC.301.1080p.WEB-DL.x264-GROUP",
		IndexerName: "Indexer A",
		InfoHash:    "ddeeff",
	})
	if err != nil {
		t.Fatalf("IsBlocklisted: %v", err)
	}
	if clean {
		t.Error("unrelated release should not be blocklisted")
	}
}

func TestBlocklistByTitleAndIndexer(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	if _, err := svc.AddToBlocklist(ctx, BlocklistInput{
		Title:    "UFC.300.Main.Card.1080p.WEB-DL-GROUP",
		Indexer:  "NZB Indexer",
		Protocol: types.ProtocolUsenet,
		Reason:   "incomplete",
	}); err != nil {
		t.Fatalf("AddToBlocklist: %v", err)
	}

	blocked, err := svc.IsBlocklisted(ctx, types.ReleaseInfo{
		Title:       "UFC.300.Main.Card.1080p.WEB-DL-GROUP",
		IndexerName: "NZB Indexer",
	})
	if err != nil {
		t.Fatalf("IsBlocklisted: %v", err)
	}
	if !blocked {
		t.Error("usenet release should match on title and indexer")
	}

	// Same title on a different indexer is a different release.
	otherIndexer, err := svc.IsBlocklisted(ctx, types.ReleaseInfo{
		Title:       "UFC.300.Main.Card.1080p.WEB-DL-GROUP",
		IndexerName: "Other Indexer",
	})
	if err != nil {
		t.Fatalf("IsBlocklisted: %v", err)
	}
	if otherIndexer {
		t.Error("title match alone must not blocklist a different indexer")
	}
}

func TestBlocklistTitleMatchIsNormalized(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	if _, err := svc.AddToBlocklist(ctx, BlocklistInput{
		Title:    "UFC.300.Main.Card.1080p.WEB-DL-GROUP",
		Indexer:  "NZB Indexer",
		Protocol: types.ProtocolUsenet,
		Reason:   "incomplete",
	}); err != nil {
		t.Fatalf("AddToBlocklist: %v", err)
	}

	// The same release re-listed with different separators and casing.
	blocked, err := svc.IsBlocklisted(ctx, types.ReleaseInfo{
		Title:       "ufc 300 main card 1080p web dl group",
		IndexerName: "NZB Indexer",
	})
	if err != nil {
		t.Fatalf("IsBlocklisted: %v", err)
	}
	if !blocked {
		t.Error("separator and case changes must not defeat the title match")
	}
}

func TestBlocklistListAndRemove(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()
	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	item, err := svc.AddToBlocklist(ctx, BlocklistInput{
		Title: "Bad.Release", Indexer: "Idx", Protocol: types.ProtocolTorrent, EventID: 7,
	})
	if err != nil {
		t.Fatalf("AddToBlocklist: %v", err)
	}

	items, err := svc.ListBlocklist(ctx)
	if err != nil {
		t.Fatalf("ListBlocklist: %v", err)
	}
	if len(items) != 1 || items[0].EventID != 7 {
		t.Errorf("list = %+v", items)
	}

	if err := svc.RemoveFromBlocklist(ctx, item.ID); err != nil {
		t.Fatalf("RemoveFromBlocklist: %v", err)
	}
	if err := svc.RemoveFromBlocklist(ctx, item.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second remove = %v, want not found", err)
	}
}
