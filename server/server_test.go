package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/onnwee/bopper/bot"
	"github.com/onnwee/bopper/config"
	"github.com/onnwee/bopper/playlist"
)

type fakeStore struct {
	tracks []playlist.Track
}

func (f *fakeStore) PlaylistItems(ctx context.Context, playlistID string, offset, limit int) ([]playlist.Track, error) {
	if offset >= len(f.tracks) {
		return nil, nil
	}
	end := offset + limit
	if end > len(f.tracks) {
		end = len(f.tracks)
	}
	return f.tracks[offset:end], nil
}

func (f *fakeStore) AddPlaylistItems(ctx context.Context, playlistID string, uris []string, position int) error {
	return nil
}

func (f *fakeStore) RemovePlaylistOccurrences(ctx context.Context, playlistID, uri string, positions []int) error {
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) CurrentlyPlaying(ctx context.Context) (*playlist.Track, error) { return nil, nil }
func (fakeCatalog) Search(ctx context.Context, query string, limit int) ([]playlist.Track, error) {
	return nil, nil
}

func newTestServer(t *testing.T, adminToken string) (*httptest.Server, *bot.Session) {
	t.Helper()
	cfg := &config.Config{
		TwitchChannel:       "somechannel",
		TwitchClientSecret:  "twitch-secret-value",
		SpotifyClientSecret: "spotify-secret-value",
		SpotifyPlaylist:     "pl1",
		SignalBot:           "Streamlabs",
		TipRegex:            config.DefaultTipRegex,
		BitsRegex:           config.DefaultBitsRegex,
		GiftedRegex:         config.DefaultGiftedRegex,
		AmountTip:           100.00,
		RequestCmd:          "request",
		SongCmd:             "song",
		CreditCmd:           "credit",
		AdminToken:          adminToken,
		RequestTimeout:      time.Second,
	}
	store := &fakeStore{tracks: []playlist.Track{
		{ID: "a", URI: "spotify:track:a", Name: "Alpha", Artist: "Ann"},
	}}
	sess, err := bot.New(cfg, store, fakeCatalog{}, nil)
	if err != nil {
		t.Fatalf("bot.New: %v", err)
	}
	if err := sess.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	srv := httptest.NewServer(NewMux(sess, cfg, func() {}))
	t.Cleanup(srv.Close)
	return srv, sess
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}

func TestStatusReportsSessionState(t *testing.T) {
	srv, sess := newTestServer(t, "")
	sess.Give("ann")

	resp, err := http.Get(srv.URL + "/status")
	if err != nil {
		t.Fatalf("GET /status: %v", err)
	}
	defer resp.Body.Close()

	var got bot.Status
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Channel != "somechannel" || got.CacheSize != 1 || got.LedgerSize != 1 {
		t.Fatalf("status = %+v", got)
	}
}

func TestTippersEndpoint(t *testing.T) {
	srv, sess := newTestServer(t, "")
	sess.Give("ann")
	sess.Give("ann")

	resp, err := http.Get(srv.URL + "/api/tippers")
	if err != nil {
		t.Fatalf("GET /api/tippers: %v", err)
	}
	defer resp.Body.Close()

	var got []struct {
		Identity string `json:"identity"`
		Credit   int    `json:"credit"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Identity != "ann" || got[0].Credit != 2 {
		t.Fatalf("tippers = %+v", got)
	}
}

func TestPlaylistEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/playlist")
	if err != nil {
		t.Fatalf("GET /api/playlist: %v", err)
	}
	defer resp.Body.Close()

	var got []playlist.Entry
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0].Track.Name != "Alpha" {
		t.Fatalf("playlist = %+v", got)
	}
}

func TestCommandEndpointRunsConsoleCommands(t *testing.T) {
	srv, sess := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/command?cmd=give+ann")
	if err != nil {
		t.Fatalf("GET /api/command: %v", err)
	}
	defer resp.Body.Close()

	var got map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(got["output"], "ann now has 1") {
		t.Fatalf("output = %q", got["output"])
	}
	if got := sess.Tippers(); len(got) != 1 {
		t.Fatalf("ledger = %+v", got)
	}
}

func TestCommandEndpointRequiresCmd(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/command")
	if err != nil {
		t.Fatalf("GET /api/command: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestCommandEndpointAdminToken(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")

	resp, err := http.Get(srv.URL + "/api/command?cmd=tippers")
	if err != nil {
		t.Fatalf("GET without token: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/command?cmd=tippers", nil)
	req.Header.Set("X-Admin-Token", "sekrit")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with token: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status with token = %d, want 200", resp.StatusCode)
	}
}

func TestConfigEndpointOmitsSecrets(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["twitch_channel"] != "somechannel" || got["signal_bot"] != "Streamlabs" {
		t.Fatalf("config = %v", got)
	}
	if strings.Contains(string(body), "secret-value") {
		t.Fatalf("config body leaks credentials: %s", body)
	}
}

func TestConfigEndpointRequiresAdminToken(t *testing.T) {
	srv, _ := newTestServer(t, "sekrit")

	resp, err := http.Get(srv.URL + "/api/config")
	if err != nil {
		t.Fatalf("GET /api/config: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status without token = %d, want 401", resp.StatusCode)
	}
}

func TestCorrelationIDEchoedAndGenerated(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.Header.Get("X-Correlation-ID") == "" {
		t.Fatal("no generated correlation id")
	}

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/healthz", nil)
	req.Header.Set("X-Correlation-ID", "corr-123")
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET with corr: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Correlation-ID"); got != "corr-123" {
		t.Fatalf("correlation id = %q, want corr-123", got)
	}
}

func TestMetricsEndpointServes(t *testing.T) {
	srv, _ := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
}
