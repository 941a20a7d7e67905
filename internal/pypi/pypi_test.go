package pypi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/git-pkgs/freshness/internal/core"
)

func TestFetchMetadata(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/requests/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := map[string]interface{}{
			"info": map[string]interface{}{
				"name":    "requests",
				"version": "2.32.3",
			},
			"releases": map[string]interface{}{
				"2.31.0": []map[string]interface{}{
					{"upload_time_iso_8601": "2023-05-22T15:12:42.313790Z", "yanked": false},
					{"upload_time_iso_8601": "2023-05-22T15:12:44.175862Z", "yanked": false},
				},
				"2.32.3": []map[string]interface{}{
					{"upload_time_iso_8601": "2024-05-29T15:37:47.027440Z", "yanked": false},
				},
				"2.32.0": []map[string]interface{}{
					{"upload_time_iso_8601": "2024-05-20T18:00:00.000000Z", "yanked": true},
				},
				"0.0.1": []map[string]interface{}{},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	src := New(server.URL, core.DefaultClient())
	meta, err := src.FetchMetadata(context.Background(), "requests")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}

	if meta.Name != "requests" {
		t.Errorf("name = %q, want %q", meta.Name, "requests")
	}
	if meta.Latest != "2.32.3" {
		t.Errorf("latest = %q, want %q", meta.Latest, "2.32.3")
	}
	// The fileless registration must not appear as a version.
	if len(meta.Versions) != 3 {
		t.Errorf("len(versions) = %d, want 3", len(meta.Versions))
	}

	pv := meta.Version("2.31.0")
	if pv == nil {
		t.Fatal("version 2.31.0 missing")
	}
	// Earliest file upload wins.
	want := time.Date(2023, 5, 22, 15, 12, 42, 313790000, time.UTC)
	if !pv.PublishedAt.Equal(want) {
		t.Errorf("publishedAt = %v, want %v", pv.PublishedAt, want)
	}

	if yanked := meta.Version("2.32.0"); yanked == nil || yanked.Status != core.StatusYanked {
		t.Errorf("version 2.32.0 = %+v, want yanked", yanked)
	}
}

func TestFetchMetadataNormalizesName(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pypi/typing-extensions/json" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		resp := map[string]interface{}{
			"info": map[string]interface{}{"name": "typing_extensions", "version": "4.12.2"},
			"releases": map[string]interface{}{
				"4.12.2": []map[string]interface{}{
					{"upload_time_iso_8601": "2024-06-07T18:52:13.000000Z", "yanked": false},
				},
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	src := New(server.URL, core.DefaultClient())
	meta, err := src.FetchMetadata(context.Background(), "Typing.Extensions")
	if err != nil {
		t.Fatalf("FetchMetadata failed: %v", err)
	}
	if meta.Name != "typing_extensions" {
		t.Errorf("name = %q, want %q", meta.Name, "typing_extensions")
	}
}

func TestFetchMetadataNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	src := New(server.URL, core.DefaultClient())
	_, err := src.FetchMetadata(context.Background(), "no-such-package")

	var notFound *core.NotFoundError
	if !errors.As(err, &notFound) {
		t.Errorf("FetchMetadata = %v, want *NotFoundError", err)
	}
}

func TestFetchMetadataNoReleases(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"info":{"name":"ghost","version":""},"releases":{}}`))
	}))
	defer server.Close()

	src := New(server.URL, core.DefaultClient())
	_, err := src.FetchMetadata(context.Background(), "ghost")

	var parseErr *core.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("FetchMetadata = %v, want *ParseError", err)
	}
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"requests", "requests"},
		{"Typing.Extensions", "typing-extensions"},
		{"zope__interface", "zope-interface"},
		{"ruamel.yaml.clib", "ruamel-yaml-clib"},
	}
	for _, tt := range tests {
		if got := normalizeName(tt.in); got != tt.want {
			t.Errorf("normalizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
