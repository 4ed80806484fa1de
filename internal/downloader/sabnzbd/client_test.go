package sabnzbd

import (
	"context"
	"errors"
	"fmt"
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

	return New(&Config{Host: u.Hostname(), Port: port, APIKey: "secret", Category: "sport"})
}

func TestAddURL(t *testing.T) {
	var gotQuery url.Values
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"status": true, "nzo_ids": ["SABnzbd_nzo_kjx1ab"]}`)
	}))

	id, err := client.Add(context.Background(), types.AddOptions{
		URL:  "https://indexer.example/dl/1.nzb",
		Name: "UFC.300.1080p",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "SABnzbd_nzo_kjx1ab" {
		t.Errorf("id = %q", id)
	}
	if gotQuery.Get("mode") != "addurl" {
		t.Errorf("mode = %q", gotQuery.Get("mode"))
	}
	if gotQuery.Get("name") != "https://indexer.example/dl/1.nzb" {
		t.Errorf("name = %q", gotQuery.Get("name"))
	}
	if gotQuery.Get("apikey") != "secret" {
		t.Errorf("apikey = %q", gotQuery.Get("apikey"))
	}
	if gotQuery.Get("cat") != "sport" {
		t.Errorf("cat = %q, want client default category", gotQuery.Get("cat"))
	}
	if gotQuery.Get("nzbname") != "UFC.300.1080p" {
		t.Errorf("nzbname = %q", gotQuery.Get("nzbname"))
	}
}

func TestAddFileUploadsMultipart(t *testing.T) {
	content := []byte("<nzb>fake</nzb>")
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s", r.Method)
		}
		if r.URL.Query().Get("mode") != "addfile" {
			t.Errorf("mode = %q", r.URL.Query().Get("mode"))
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parsing multipart form: %v", err)
		}
		file, header, err := r.FormFile("name")
		if err != nil {
			t.Fatalf("reading file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "UFC.300.nzb" {
			t.Errorf("filename = %q", header.Filename)
		}
		fmt.Fprint(w, `{"status": true, "nzo_ids": ["SABnzbd_nzo_up1"]}`)
	}))

	id, err := client.Add(context.Background(), types.AddOptions{
		FileContent: content,
		Name:        "UFC.300.nzb",
	})
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if id != "SABnzbd_nzo_up1" {
		t.Errorf("id = %q", id)
	}
}

func TestAddRejected(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": false, "error": "no api key"}`)
	}))

	if _, err := client.Add(context.Background(), types.AddOptions{URL: "https://x.example/1.nzb"}); err == nil {
		t.Fatal("expected error for rejected add")
	}
}

func TestRemove(t *testing.T) {
	var gotQuery url.Values
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		fmt.Fprint(w, `{"status": true}`)
	}))

	if err := client.Remove(context.Background(), "SABnzbd_nzo_kjx1ab", true); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if gotQuery.Get("mode") != "queue" || gotQuery.Get("name") != "delete" {
		t.Errorf("unexpected query %v", gotQuery)
	}
	if gotQuery.Get("value") != "SABnzbd_nzo_kjx1ab" {
		t.Errorf("value = %q", gotQuery.Get("value"))
	}
	if gotQuery.Get("del_files") != "1" {
		t.Errorf("del_files = %q", gotQuery.Get("del_files"))
	}
}

func TestRemoveUnknownID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": false}`)
	}))

	err := client.Remove(context.Background(), "missing", false)
	if !errors.Is(err, types.ErrNotFound) {
		t.Errorf("Remove = %v, want not found", err)
	}
}

func TestTestAuthFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))

	err := client.Test(context.Background())
	if !errors.Is(err, types.ErrAuthFailed) {
		t.Errorf("Test = %v, want auth failure", err)
	}
}

func TestTestOK(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("mode") != "version" {
			t.Errorf("mode = %q", r.URL.Query().Get("mode"))
		}
		fmt.Fprint(w, `{"version": "4.3.2"}`)
	}))

	if err := client.Test(context.Background()); err != nil {
		t.Fatalf("Test: %v", err)
	}
}
