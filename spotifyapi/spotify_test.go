package spotifyapi

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/onnwee/bopper/testutil"
)

func newTestClient(m *testutil.MockSpotifyServer) *Client {
	return &Client{BaseURL: m.URL}
}

func TestPlaylistItemsParsesPage(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.MockPlaylistItems("pl1", map[string][]map[string]any{
		"0": {
			testutil.TrackJSON("t1", "spotify:track:t1", "One", "Artist A"),
			testutil.TrackJSON("t2", "spotify:track:t2", "Two", "Artist B"),
		},
	})
	c := newTestClient(m)

	tracks, err := c.PlaylistItems(context.Background(), "pl1", 0, 100)
	if err != nil {
		t.Fatalf("PlaylistItems: %v", err)
	}
	if len(tracks) != 2 {
		t.Fatalf("tracks = %d, want 2", len(tracks))
	}
	if tracks[0].ID != "t1" || tracks[0].Name != "One" || tracks[0].Artist != "Artist A" {
		t.Fatalf("tracks[0] = %+v", tracks[0])
	}
	if tracks[1].URI != "spotify:track:t2" {
		t.Fatalf("tracks[1].URI = %q", tracks[1].URI)
	}
}

func TestPlaylistItemsEmptyPageBeyondEnd(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.MockPlaylistItems("pl1", map[string][]map[string]any{
		"0": {testutil.TrackJSON("t1", "spotify:track:t1", "One", "A")},
	})
	c := newTestClient(m)

	tracks, err := c.PlaylistItems(context.Background(), "pl1", 100, 100)
	if err != nil {
		t.Fatalf("PlaylistItems: %v", err)
	}
	if len(tracks) != 0 {
		t.Fatalf("tracks = %d, want 0", len(tracks))
	}
}

func TestAddPlaylistItemsSendsURIsAndPosition(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	var got struct {
		URIs     []string `json:"uris"`
		Position int      `json:"position"`
	}
	m.Handlers["/playlists/pl1/tracks"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}
	c := newTestClient(m)

	err := c.AddPlaylistItems(context.Background(), "pl1", []string{"spotify:track:t9"}, 4)
	if err != nil {
		t.Fatalf("AddPlaylistItems: %v", err)
	}
	if len(got.URIs) != 1 || got.URIs[0] != "spotify:track:t9" {
		t.Fatalf("uris = %v", got.URIs)
	}
	if got.Position != 4 {
		t.Fatalf("position = %d, want 4", got.Position)
	}
}

func TestAddPlaylistItemsRejectsEmptyInput(t *testing.T) {
	c := &Client{}
	if err := c.AddPlaylistItems(context.Background(), "", []string{"u"}, 0); err == nil {
		t.Error("accepted empty playlist id")
	}
	if err := c.AddPlaylistItems(context.Background(), "pl1", nil, 0); err == nil {
		t.Error("accepted empty uri list")
	}
}

func TestRemovePlaylistOccurrencesSendsPositions(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	var got struct {
		Tracks []struct {
			URI       string `json:"uri"`
			Positions []int  `json:"positions"`
		} `json:"tracks"`
	}
	m.Handlers["/playlists/pl1/tracks"] = func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}
	c := newTestClient(m)

	err := c.RemovePlaylistOccurrences(context.Background(), "pl1", "spotify:track:t3", []int{5})
	if err != nil {
		t.Fatalf("RemovePlaylistOccurrences: %v", err)
	}
	if len(got.Tracks) != 1 {
		t.Fatalf("tracks = %d, want 1", len(got.Tracks))
	}
	if got.Tracks[0].URI != "spotify:track:t3" || got.Tracks[0].Positions[0] != 5 {
		t.Fatalf("removal = %+v", got.Tracks[0])
	}
}

func TestCurrentlyPlayingTrack(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.MockCurrentlyPlaying(testutil.TrackJSON("t1", "spotify:track:t1", "One", "A"))
	c := newTestClient(m)

	track, err := c.CurrentlyPlaying(context.Background())
	if err != nil {
		t.Fatalf("CurrentlyPlaying: %v", err)
	}
	if track == nil || track.ID != "t1" {
		t.Fatalf("track = %+v, want id t1", track)
	}
}

func TestCurrentlyPlayingNothing(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.MockCurrentlyPlaying(nil)
	c := newTestClient(m)

	track, err := c.CurrentlyPlaying(context.Background())
	if err != nil {
		t.Fatalf("CurrentlyPlaying: %v", err)
	}
	if track != nil {
		t.Fatalf("track = %+v, want nil on 204", track)
	}
}

func TestSearchReturnsRankedMatches(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.MockSearch([]map[string]any{
		testutil.TrackJSON("t7", "spotify:track:t7", "Best Match", "A"),
		testutil.TrackJSON("t8", "spotify:track:t8", "Second", "B"),
	})
	c := newTestClient(m)

	tracks, err := c.Search(context.Background(), "best match", 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(tracks) != 2 || tracks[0].ID != "t7" {
		t.Fatalf("tracks = %+v, want t7 first", tracks)
	}
}

func TestErrorResponseIncludesStatusAndBody(t *testing.T) {
	m := testutil.NewMockSpotifyServer(t)
	m.Handlers["/search"] = func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}
	c := newTestClient(m)

	_, err := c.Search(context.Background(), "q", 1)
	if err == nil {
		t.Fatal("Search succeeded on 429")
	}
	if !strings.Contains(err.Error(), "429") || !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("err = %v, want status and body", err)
	}
}
