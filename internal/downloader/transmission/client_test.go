package transmission

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/sportarr/sportarr/internal/downloader/types"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatal(err)
	}
	port, _ := strconv.Atoi(u.Port())

	return New(&Config{Host: u.Hostname(), Port: port})
}

func rpcHandler(t *testing.T, handle func(req rpcRequest) rpcResponse) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transmission/rpc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req rpcRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if err := json.NewEncoder(w).Encode(handle(req)); err != nil {
			t.Fatal(err)
		}
	})
}

func TestAddReturnsHashString(t *testing.T) {
	var gotMethod string
	var gotArgs map[string]any
	client := newTestClient(t, rpcHandler(t, func(req rpcRequest) rpcResponse {
		gotMethod = req.Method
		gotArgs = req.Arguments
		return rpcResponse{
			Result: "success",
			Arguments: map[string]any{
				"torrent-added": map[string]any{
					"hashString": "aabbccdd",
					"id":         float64(12),
				},
			},
		}
	}))

	id, err := client.Add(context.Background(), types.AddOptions{
		URL:         "https://indexer.example/dl/1.torrent",
		DownloadDir: "/downloads/sport",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "aabbccdd" {
		t.Errorf("id = %q, want aabbccdd", id)
	}
	if gotMethod != "torrent-add" {
		t.Errorf("method = %q", gotMethod)
	}
	if gotArgs["filename"] != "https://indexer.example/dl/1.torrent" {
		t.Errorf("filename = %v", gotArgs["filename"])
	}
	if gotArgs["download-dir"] != "/downloads/sport" {
		t.Errorf("download-dir = %v", gotArgs["download-dir"])
	}
}

func TestAddDuplicateStillReturnsHash(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, func(req rpcRequest) rpcResponse {
		return rpcResponse{
			Result: "success",
			Arguments: map[string]any{
				"torrent-duplicate": map[string]any{"hashString": "eeff0011"},
			},
		}
	}))

	id, err := client.Add(context.Background(), types.AddOptions{URL: "magnet:?xt=urn:btih:eeff0011"})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "eeff0011" {
		t.Errorf("id = %q, want eeff0011", id)
	}
}

func TestSessionConflictRetry(t *testing.T) {
	const sessionID = "session-abc"
	requests := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.Header.Get(sessionIDHeader) != sessionID {
			w.Header().Set(sessionIDHeader, sessionID)
			w.WriteHeader(http.StatusConflict)
			return
		}
		_ = json.NewEncoder(w).Encode(rpcResponse{Result: "success"})
	}))

	if err := client.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
	if requests != 2 {
		t.Errorf("got %d requests, want 2 (conflict then retry)", requests)
	}

	// The session ID is cached for the next call.
	if err := client.Test(context.Background()); err != nil {
		t.Fatalf("second Test: %v", err)
	}
	if requests != 3 {
		t.Errorf("got %d requests, want 3", requests)
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

func TestRPCErrorResult(t *testing.T) {
	client := newTestClient(t, rpcHandler(t, func(req rpcRequest) rpcResponse {
		return rpcResponse{Result: "invalid or corrupt torrent file"}
	}))

	_, err := client.Add(context.Background(), types.AddOptions{URL: "https://x.example/bad.torrent"})
	if err == nil {
		t.Fatal("expected error for non-success result")
	}
}

func TestRemoveSendsDeleteFlag(t *testing.T) {
	var gotArgs map[string]any
	client := newTestClient(t, rpcHandler(t, func(req rpcRequest) rpcResponse {
		if req.Method == "torrent-remove" {
			gotArgs = req.Arguments
		}
		return rpcResponse{Result: "success"}
	}))

	if err := client.Remove(context.Background(), "aabb", true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if gotArgs["delete-local-data"] != true {
		t.Errorf("delete-local-data = %v, want true", gotArgs["delete-local-data"])
	}
}

func TestAddRequiresSource(t *testing.T) {
	client := New(&Config{Host: "localhost", Port: 9091})
	if _, err := client.Add(context.Background(), types.AddOptions{}); err == nil {
		t.Fatal("expected error when neither URL nor FileContent is set")
	}
}
