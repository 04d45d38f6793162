// Package spotifyapi contains minimal helpers to interact with the Spotify Web
// API: paginated playlist reads, positional playlist mutation, currently
// playing lookup, and track search. Authentication goes through
// golang.org/x/oauth2 (see auth.go), which also refreshes the token.
//
// The SDK route was considered and rejected: the queue resolver needs
// insert-at-position and remove-by-(uri, positions), which the ecosystem
// Spotify client does not expose for inserts.
package spotifyapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/onnwee/bopper/playlist"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Client is a thin wrapper over the Web API. HTTPClient must be authorized
// (an *http.Client from oauth2); BaseURL is overridable for tests.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
}

func (c *Client) base() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return defaultBaseURL
}

func (c *Client) http() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return http.DefaultClient
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(b)
	}
	u := c.base() + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, rdr)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http().Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Warn("failed to close response body", slog.Any("err", err))
		}
	}()
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("spotify %s %s failed: %s: %s", method, path, resp.Status, string(b))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// apiTrack is the wire shape shared by playlist items, search results, and the
// player endpoint.
type apiTrack struct {
	ID      string `json:"id"`
	URI     string `json:"uri"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"artists"`
}

func (t apiTrack) track() playlist.Track {
	artist := ""
	if len(t.Artists) > 0 {
		artist = t.Artists[0].Name
	}
	return playlist.Track{ID: t.ID, URI: t.URI, Name: t.Name, Artist: artist}
}

// PlaylistItems fetches one page of playlist tracks. Callers loop with a
// growing offset until an empty page comes back.
func (c *Client) PlaylistItems(ctx context.Context, playlistID string, offset, limit int) ([]playlist.Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("playlistID empty")
	}
	q := url.Values{}
	q.Set("offset", strconv.Itoa(offset))
	q.Set("limit", strconv.Itoa(limit))
	q.Set("fields", "items(track(id,uri,name,artists(name))),total")
	q.Set("additional_types", "track")
	var body struct {
		Items []struct {
			Track apiTrack `json:"track"`
		} `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/playlists/"+playlistID+"/tracks", q, nil, &body); err != nil {
		return nil, err
	}
	out := make([]playlist.Track, 0, len(body.Items))
	for _, it := range body.Items {
		out = append(out, it.Track.track())
	}
	return out, nil
}

// AddPlaylistItems inserts the given track URIs before the playlist position,
// i.e. the number of tracks that will precede them. The resolver's insertion
// index maps to it directly.
func (c *Client) AddPlaylistItems(ctx context.Context, playlistID string, uris []string, position int) error {
	if playlistID == "" {
		return fmt.Errorf("playlistID empty")
	}
	if len(uris) == 0 {
		return fmt.Errorf("no uris to add")
	}
	body := struct {
		URIs     []string `json:"uris"`
		Position int      `json:"position"`
	}{URIs: uris, Position: position}
	return c.do(ctx, http.MethodPost, "/playlists/"+playlistID+"/tracks", nil, body, nil)
}

// RemovePlaylistOccurrences removes the occurrences of one track URI at the
// given playlist positions.
func (c *Client) RemovePlaylistOccurrences(ctx context.Context, playlistID, uri string, positions []int) error {
	if playlistID == "" {
		return fmt.Errorf("playlistID empty")
	}
	type occurrence struct {
		URI       string `json:"uri"`
		Positions []int  `json:"positions"`
	}
	body := struct {
		Tracks []occurrence `json:"tracks"`
	}{Tracks: []occurrence{{URI: uri, Positions: positions}}}
	return c.do(ctx, http.MethodDelete, "/playlists/"+playlistID+"/tracks", nil, body, nil)
}

// CurrentlyPlaying returns the track the player reports as playing, or nil
// when nothing is (the API answers 204, or a non-track item).
func (c *Client) CurrentlyPlaying(ctx context.Context) (*playlist.Track, error) {
	var body struct {
		Item *apiTrack `json:"item"`
	}
	if err := c.do(ctx, http.MethodGet, "/me/player/currently-playing", nil, nil, &body); err != nil {
		return nil, err
	}
	if body.Item == nil || body.Item.ID == "" {
		return nil, nil
	}
	t := body.Item.track()
	return &t, nil
}

// Search returns up to limit track matches for a free-text query, best match
// first.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]playlist.Track, error) {
	if limit <= 0 {
		limit = 1
	}
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "track")
	q.Set("limit", strconv.Itoa(limit))
	var body struct {
		Tracks struct {
			Items []apiTrack `json:"items"`
		} `json:"tracks"`
	}
	if err := c.do(ctx, http.MethodGet, "/search", q, nil, &body); err != nil {
		return nil, err
	}
	out := make([]playlist.Track, 0, len(body.Tracks.Items))
	for _, t := range body.Tracks.Items {
		out = append(out, t.track())
	}
	return out, nil
}
