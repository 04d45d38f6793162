// Package testutil provides httptest-backed mocks for the external platforms.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// MockSpotifyServer mocks the Spotify Web API with per-path handlers.
type MockSpotifyServer struct {
	*httptest.Server
	Handlers map[string]http.HandlerFunc
}

// NewMockSpotifyServer creates a new mock Spotify API server. Unhandled paths
// return 404.
func NewMockSpotifyServer(t *testing.T) *MockSpotifyServer {
	t.Helper()
	m := &MockSpotifyServer{
		Handlers: make(map[string]http.HandlerFunc),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := m.Handlers[r.URL.Path]; ok {
			handler(w, r)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	t.Cleanup(m.Close)
	return m
}

// TrackJSON is the wire shape of one track in mock responses.
func TrackJSON(id, uri, name, artist string) map[string]any {
	return map[string]any{
		"id":   id,
		"uri":  uri,
		"name": name,
		"artists": []map[string]string{
			{"name": artist},
		},
	}
}

// MockPlaylistItems serves pages of playlist tracks keyed by offset for
// /playlists/<id>/tracks. Offsets without a page return an empty items list.
func (m *MockSpotifyServer) MockPlaylistItems(playlistID string, pages map[string][]map[string]any) {
	m.Handlers["/playlists/"+playlistID+"/tracks"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		items := []map[string]any{}
		for _, t := range pages[r.URL.Query().Get("offset")] {
			items = append(items, map[string]any{"track": t})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"items": items}) //nolint:errcheck // test mock response
	}
}

// MockCurrentlyPlaying serves /me/player/currently-playing; a nil track
// answers 204 like the real API when nothing plays.
func (m *MockSpotifyServer) MockCurrentlyPlaying(track map[string]any) {
	m.Handlers["/me/player/currently-playing"] = func(w http.ResponseWriter, r *http.Request) {
		if track == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"item": track}) //nolint:errcheck // test mock response
	}
}

// MockSearch serves /search with the given ranked matches.
func (m *MockSpotifyServer) MockSearch(tracks []map[string]any) {
	m.Handlers["/search"] = func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck // test mock response
			"tracks": map[string]any{"items": tracks},
		})
	}
}
