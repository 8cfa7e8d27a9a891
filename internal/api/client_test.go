package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/glebovdev/lullaby-cli/internal/catalog"
	"github.com/glebovdev/lullaby-cli/internal/quality"
)

func setupTestServer(handler http.HandlerFunc) (*httptest.Server, *CatalogClient) {
	server := httptest.NewServer(handler)
	return server, NewCatalogClient(server.URL)
}

func TestGetTracks(t *testing.T) {
	expectedTracks := []catalog.Track{
		{
			ID:       "ocean",
			Name:     "Ocean Waves",
			Category: catalog.CategoryNature,
			URLs: map[quality.Tier]string{
				quality.High: "https://cdn.example.com/ocean-hq.mp3",
				quality.Low:  "https://cdn.example.com/ocean-lq.mp3",
			},
			DurationSeconds: 600,
		},
		{
			ID:       "shush",
			Name:     "Shush",
			Category: catalog.CategoryWhiteNoise,
			URLs:     map[quality.Tier]string{quality.Medium: "https://cdn.example.com/shush.mp3"},
		},
	}

	server, client := setupTestServer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tracks.json" {
			t.Errorf("Expected path /tracks.json, got %s", r.URL.Path)
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "Lullaby-CLI/") {
			t.Errorf("User-Agent = %q", ua)
		}

		response := struct {
			Tracks []catalog.Track `json:"tracks"`
		}{
			Tracks: expectedTracks,
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(response)
	})
	defer server.Close()

	tracks, err := client.GetTracks(context.Background())
	if err != nil {
		t.Fatalf("GetTracks() error = %v", err)
	}

	if len(tracks) != len(expectedTracks) {
		t.Fatalf("GetTracks() returned %d tracks, want %d", len(tracks), len(expectedTracks))
	}

	for i, tr := range tracks {
		if tr.ID != expectedTracks[i].ID {
			t.Errorf("tracks[%d].ID = %q, want %q", i, tr.ID, expectedTracks[i].ID)
		}
		if tr.Category != expectedTracks[i].Category {
			t.Errorf("tracks[%d].Category = %q, want %q", i, tr.Category, expectedTracks[i].Category)
		}
	}
	if got := tracks[0].URLs[quality.Low]; got != "https://cdn.example.com/ocean-lq.mp3" {
		t.Errorf("tracks[0] low url = %q", got)
	}

	cat, err := client.GetCatalog(context.Background())
	if err != nil {
		t.Fatalf("GetCatalog() error = %v", err)
	}
	shush, ok := cat.Get("shush")
	if !ok {
		t.Fatal("catalog missing shush")
	}
	if shush.URL(quality.High) != "https://cdn.example.com/shush.mp3" {
		t.Errorf("missing tier should inherit the available url, got %q", shush.URL(quality.High))
	}
}

func TestGetTracksErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"invalid json", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte("not valid json"))
		}},
		{"server error", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := setupTestServer(tt.handler)
			defer server.Close()

			if _, err := client.GetTracks(context.Background()); err == nil {
				t.Error("GetTracks() should return an error")
			}
		})
	}
}

func TestGetCatalogRejectsInvalidTracks(t *testing.T) {
	server, client := setupTestServer(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":[{"id":"x","name":"X","category":"polka","urls":{"high":"a.mp3"}}]}`))
	})
	defer server.Close()

	_, err := client.GetCatalog(context.Background())
	if !errors.Is(err, catalog.ErrInvalidTrack) {
		t.Errorf("GetCatalog() error = %v, want ErrInvalidTrack", err)
	}
}

func TestGetCatalogEmpty(t *testing.T) {
	server, client := setupTestServer(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":[]}`))
	})
	defer server.Close()

	if _, err := client.GetCatalog(context.Background()); err == nil {
		t.Error("GetCatalog() should reject an empty catalog")
	}
}

func TestGetTracksCancelled(t *testing.T) {
	server, client := setupTestServer(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tracks":[]}`))
	})
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := client.GetTracks(ctx); err == nil {
		t.Error("GetTracks() with cancelled context should fail")
	}
}
