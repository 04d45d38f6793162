package bot

import (
	"context"
	"log/slog"

	"github.com/onnwee/bopper/ledger"
	"github.com/onnwee/bopper/playlist"
	"github.com/onnwee/bopper/telemetry"
)

// Console and web-console operations. Same locking discipline as the chat
// handlers: one operation at a time.

// Reset reverts the bot to its startup state: ledger cleared, requested tracks
// removed from the external playlist, cache rebuilt.
func (s *Session) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ledger.Reset()
	telemetry.SetLedgerSize(0)
	if err := s.clean(ctx); err != nil {
		return err
	}
	return s.rebuild(ctx)
}

// Refresh is Reset without touching the ledger: supporters keep their credit.
func (s *Session) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.clean(ctx); err != nil {
		return err
	}
	return s.rebuild(ctx)
}

// clean removes requested tracks from the external playlist when the
// clean_playlist flag is on. Caller holds the lock.
func (s *Session) clean(ctx context.Context) error {
	if !s.cfg.CleanPlaylist {
		return nil
	}
	slog.Info("removing requested songs from playlist")
	removed, err := s.cache.Clean(ctx, s.store, s.playlistID)
	if telemetry.TracksCleaned != nil {
		telemetry.TracksCleaned.Add(float64(removed))
	}
	telemetry.SetPendingRequests(s.cache.Pending())
	return err
}

// rebuild refetches the playlist cache. Caller holds the lock.
func (s *Session) rebuild(ctx context.Context) error {
	slog.Info("caching playlist", slog.String("playlist", s.playlistID))
	if err := s.cache.Rebuild(ctx, s.store, s.playlistID); err != nil {
		return err
	}
	if telemetry.CacheRebuilds != nil {
		telemetry.CacheRebuilds.Inc()
	}
	telemetry.SetPendingRequests(s.cache.Pending())
	return nil
}

// Give grants one credit (console "give <username>").
func (s *Session) Give(identity string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	balance := s.ledger.Grant(identity)
	if telemetry.CreditsGranted != nil {
		telemetry.CreditsGranted.Inc()
	}
	telemetry.SetLedgerSize(s.ledger.Len())
	return balance
}

// Tippers returns the ledger dump.
func (s *Session) Tippers() []ledger.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ledger.Snapshot()
}

// PlaylistEntries returns the cache dump.
func (s *Session) PlaylistEntries() []playlist.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cache.Entries()
}

// Start enables song requests; the credit command follows its configured flag.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestEnabled = true
	s.creditEnabled = !s.cfg.DisableCreditCmd
	slog.Info("requests enabled")
}

// Stop disables song requests and the credit command.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requestEnabled = false
	s.creditEnabled = false
	slog.Info("requests disabled")
}

// Status is a point-in-time snapshot for the status endpoint.
type Status struct {
	Channel        string `json:"channel"`
	CacheSize      int    `json:"cache_size"`
	Pending        int    `json:"pending_requests"`
	LedgerSize     int    `json:"ledger_size"`
	RequestEnabled bool   `json:"request_enabled"`
	SongEnabled    bool   `json:"song_enabled"`
	CreditEnabled  bool   `json:"credit_enabled"`
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Channel:        s.cfg.TwitchChannel,
		CacheSize:      s.cache.Len(),
		Pending:        s.cache.Pending(),
		LedgerSize:     s.ledger.Len(),
		RequestEnabled: s.requestEnabled,
		SongEnabled:    s.songEnabled,
		CreditEnabled:  s.creditEnabled,
	}
}

// Shutdown restores the curator's playlist (when enabled) and drops the cache.
func (s *Session) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.clean(ctx)
	s.cache.Clear()
	return err
}
