package indexer

import (
	"context"
	"errors"
	"testing"

	"github.com/sportarr/sportarr/internal/indexer/types"
	"github.com/sportarr/sportarr/internal/testutil"
)

func TestServiceCreateDefaults(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	def, err := svc.Create(context.Background(), CreateInput{
		Name:    "MyIndexer",
		BaseURL: "https://indexer.example",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if def.Type != types.IndexerTypeTorznab {
		t.Errorf("type = %q, want torznab default", def.Type)
	}
	if def.Protocol != types.ProtocolTorrent {
		t.Errorf("protocol = %q, want torrent", def.Protocol)
	}
	if def.APIPath != "/api" {
		t.Errorf("api path = %q", def.APIPath)
	}
	if len(def.Categories) != 1 || def.Categories[0] != CategoryTVSport {
		t.Errorf("categories = %v, want sport default", def.Categories)
	}
	if def.Priority != 25 {
		t.Errorf("priority = %d, want 25", def.Priority)
	}
	if !def.Enabled {
		t.Error("indexer should be enabled by default")
	}
}

func TestServiceCreateNewznab(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	def, err := svc.Create(context.Background(), CreateInput{
		Name:    "UsenetIndexer",
		Type:    types.IndexerTypeNewznab,
		BaseURL: "https://nzb.example",
		APIKey:  "key",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if def.Protocol != types.ProtocolUsenet {
		t.Errorf("newznab indexer protocol = %q, want usenet", def.Protocol)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)

	if _, err := svc.Create(context.Background(), CreateInput{Name: "NoURL"}); err == nil {
		t.Error("expected error for missing base URL")
	}
	_, err := svc.Create(context.Background(), CreateInput{
		Name: "BadType", BaseURL: "https://x.example", Type: "jackett",
	})
	if err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestServiceUpdateAndList(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateInput{Name: "A", BaseURL: "https://a.example", Priority: 10})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := svc.Create(ctx, CreateInput{Name: "B", BaseURL: "https://b.example", Priority: 5}); err != nil {
		t.Fatalf("Create: %v", err)
	}

	disabled := false
	updated, err := svc.Update(ctx, a.ID, UpdateInput{Enabled: &disabled})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Enabled {
		t.Error("indexer should be disabled after update")
	}

	all, err := svc.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("List returned %d indexers, want 2", len(all))
	}
	if all[0].Name != "B" {
		t.Errorf("list should order by priority, got %q first", all[0].Name)
	}

	enabled, err := svc.ListEnabled(ctx)
	if err != nil {
		t.Fatalf("ListEnabled: %v", err)
	}
	if len(enabled) != 1 || enabled[0].Name != "B" {
		t.Errorf("ListEnabled = %v, want only B", enabled)
	}
}

func TestServiceDelete(t *testing.T) {
	tdb := testutil.NewTestDB(t)
	defer tdb.Close()

	svc := NewService(tdb.Conn, tdb.Logger)
	ctx := context.Background()

	def, err := svc.Create(ctx, CreateInput{Name: "Gone", BaseURL: "https://gone.example"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := svc.Delete(ctx, def.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	if _, err := svc.Get(ctx, def.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want not found", err)
	}
	if err := svc.Delete(ctx, def.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete = %v, want not found", err)
	}
}
