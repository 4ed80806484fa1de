package utorrent

import (
	"context"
	"crypto/sha1" //nolint:gosec // BitTorrent info hashes are SHA1
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

const testToken = "token-123"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())

	return NewFromConfig(&types.ClientConfig{
		Host:     u.Hostname(),
		Port:     port,
		Username: "admin",
		Password: "pass",
		Category: "sport",
	})
}

// guiHandler serves token.html and records action requests.
func guiHandler(t *testing.T, actions *[]url.Values) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "token.html") {
			fmt.Fprintf(w, `<html><div id='token'>%s</div></html>`, testToken)
			return
		}
		if r.URL.Query().Get("token") != testToken {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		*actions = append(*actions, r.URL.Query())
		fmt.Fprint(w, `{"build": 30303}`)
	})
}

func TestAddMagnetSetsLabel(t *testing.T) {
	var actions []url.Values
	client := newTestClient(t, guiHandler(t, &actions))

	magnet := "magnet:?xt=urn:btih:AABBCCDDEEFF00112233445566778899AABBCCDD&dn=UFC.300"
	id, err := client.Add(context.Background(), types.AddOptions{URL: magnet})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "aabbccddeeff00112233445566778899aabbccdd" {
		t.Errorf("id = %q", id)
	}

	if len(actions) != 2 {
		t.Fatalf("got %d actions, want add-url and setprops", len(actions))
	}
	if actions[0].Get("action") != "add-url" || actions[0].Get("s") != magnet {
		t.Errorf("first action = %v", actions[0])
	}
	if actions[1].Get("action") != "setprops" || actions[1].Get("v") != "sport" {
		t.Errorf("second action = %v", actions[1])
	}
	if actions[1].Get("hash") != "AABBCCDDEEFF00112233445566778899AABBCCDD" {
		t.Errorf("setprops hash = %q", actions[1].Get("hash"))
	}
}

func TestAddFileComputesInfoHash(t *testing.T) {
	infoDict := "d6:lengthi100e4:name4:test12:piece lengthi16384e6:pieces0:e"
	torrent := []byte("d8:announce3:url4:info" + infoDict + "e")
	sum := sha1.Sum([]byte(infoDict)) //nolint:gosec // BitTorrent info hashes are SHA1
	wantHash := hex.EncodeToString(sum[:])

	uploaded := false
	var actions []url.Values
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "token.html") {
			fmt.Fprintf(w, `<div>%s</div>`, testToken)
			return
		}
		if r.URL.Query().Get("action") == "add-file" {
			uploaded = true
			if err := r.ParseMultipartForm(1 << 20); err != nil {
				t.Fatalf("parsing multipart form: %v", err)
			}
			if _, _, err := r.FormFile("torrent_file"); err != nil {
				t.Errorf("missing torrent_file field: %v", err)
			}
			fmt.Fprint(w, `{}`)
			return
		}
		actions = append(actions, r.URL.Query())
		fmt.Fprint(w, `{}`)
	}))

	id, err := client.Add(context.Background(), types.AddOptions{FileContent: torrent})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != wantHash {
		t.Errorf("id = %q, want %q", id, wantHash)
	}
	if !uploaded {
		t.Error("file was never uploaded")
	}
	if len(actions) != 1 || actions[0].Get("action") != "setprops" {
		t.Errorf("expected a setprops call, got %v", actions)
	}
}

func TestTokenRefreshOnBadRequest(t *testing.T) {
	tokens := []string{"stale", "fresh"}
	issued := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "token.html") {
			fmt.Fprintf(w, `<div>%s</div>`, tokens[issued])
			issued++
			return
		}
		if r.URL.Query().Get("token") != "fresh" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fmt.Fprint(w, `{}`)
	}))

	if err := client.Remove(context.Background(), "aabb", false); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if issued != 2 {
		t.Errorf("fetched %d tokens, want 2 (initial plus refresh)", issued)
	}
}

func TestAuthFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	err := client.Test(context.Background())
	if !errors.Is(err, types.ErrAuthFailed) {
		t.Errorf("Test = %v, want auth failure", err)
	}
}

func TestRemoveDataAction(t *testing.T) {
	var actions []url.Values
	client := newTestClient(t, guiHandler(t, &actions))

	if err := client.Remove(context.Background(), "aabbcc", true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if len(actions) != 1 || actions[0].Get("action") != "removedata" {
		t.Errorf("actions = %v, want removedata", actions)
	}
	if actions[0].Get("hash") != "AABBCC" {
		t.Errorf("hash = %q, want uppercase", actions[0].Get("hash"))
	}
}

func TestExtractInfoHashInvalid(t *testing.T) {
	if got := extractInfoHash([]byte("not a torrent")); got != "" {
		t.Errorf("extractInfoHash = %q, want empty", got)
	}
	if got := extractInfoHash([]byte("d4:infod4:name")); got != "" {
		t.Errorf("truncated torrent should yield empty hash, got %q", got)
	}
}
