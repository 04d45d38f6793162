package bot

import (
	"errors"
	"log/slog"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/onnwee/bopper/playlist"
	"github.com/onnwee/bopper/telemetry"
)

// handleAlert credits supporters from signal-bot donation announcements.
// Parsing is gated on the request flag: the console stop command pauses the
// whole credit/request surface, not just placements.
func (s *Session) handleAlert(sender, text string) {
	if !s.requestEnabled {
		return
	}
	for _, ev := range s.parser.Parse(sender, text) {
		balance := s.ledger.Credit(ev.Payer, ev.Tokens)
		if telemetry.CreditEventsParsed != nil {
			telemetry.CreditEventsParsed.Inc()
			telemetry.CreditsGranted.Add(float64(ev.Tokens))
		}
		telemetry.SetLedgerSize(s.ledger.Len())
		slog.Info("credit granted",
			slog.String("payer", ev.Payer),
			slog.String("kind", string(ev.Kind)),
			slog.Int("tokens", ev.Tokens),
			slog.Int("balance", balance))
		s.reply(s.cfg.NotifyMessage, map[string]string{
			"username": ev.Payer,
			"credit":   strconv.Itoa(balance),
		})
	}
}

// handleRequest runs the full dispatch: balance check, play cursor lookup,
// insertion index resolution, catalog search, external insert, cache insert,
// debit, reply. The debit happens only after the insert succeeded, so a
// failed search or a platform error never costs the supporter a credit.
func (s *Session) handleRequest(user, query string) {
	if !s.requestEnabled {
		return
	}
	start := time.Now()
	defer func() {
		if telemetry.RequestDuration != nil {
			telemetry.RequestDuration.Observe(time.Since(start).Seconds())
		}
	}()

	if s.ledger.Balance(user) < 1 {
		s.rejected()
		s.reply(s.cfg.NoCreditMessage, map[string]string{"username": user})
		return
	}

	ctx, cancel := s.callCtx()
	defer cancel()
	ctx, span := telemetry.StartSpan(ctx, "bot", "handle_request",
		attribute.String("user", user))
	defer span.End()

	current, err := s.catalog.CurrentlyPlaying(ctx)
	if err != nil {
		slog.Error("currently playing lookup failed", slog.Any("err", err))
		telemetry.RecordError(span, err)
		s.rejected()
		s.reply(s.cfg.ErrorMessage, map[string]string{"username": user})
		return
	}
	if current == nil {
		s.rejected()
		s.reply(s.cfg.NoSongMessage, map[string]string{"username": user})
		return
	}

	ci, err := s.cache.ResolveInsertIndex(current.ID)
	if err != nil {
		if errors.Is(err, playlist.ErrNotFound) {
			// The current track left the tracked window (curator edit?);
			// the playlist needs a refresh before requests can be placed.
			slog.Warn("current track not in cache; refresh needed", slog.String("track", current.ID))
		} else {
			slog.Error("resolve insert index", slog.Any("err", err))
		}
		s.rejected()
		s.reply(s.cfg.ErrorMessage, map[string]string{"username": user})
		return
	}

	matches, err := s.catalog.Search(ctx, query, 1)
	if err != nil {
		slog.Error("catalog search failed", slog.String("query", query), slog.Any("err", err))
		telemetry.RecordError(span, err)
		s.rejected()
		s.reply(s.cfg.ErrorMessage, map[string]string{"username": user})
		return
	}
	if len(matches) == 0 {
		s.rejected()
		s.reply(s.cfg.NoMatchMessage, map[string]string{"username": user})
		return
	}

	uris := make([]string, len(matches))
	for i, t := range matches {
		uris[i] = t.URI
	}
	if err := s.store.AddPlaylistItems(ctx, s.playlistID, uris, ci); err != nil {
		slog.Error("playlist insert failed", slog.Any("err", err))
		telemetry.RecordError(span, err)
		s.rejected()
		s.reply(s.cfg.ErrorMessage, map[string]string{"username": user})
		return
	}

	for i, t := range matches {
		s.cache.InsertAt(ci+i, t)
		if telemetry.TracksInserted != nil {
			telemetry.TracksInserted.Inc()
		}
		slog.Info("track inserted",
			slog.String("user", user),
			slog.String("name", t.Name),
			slog.String("artist", t.Artist),
			slog.Int("pos", ci+i))
		s.reply(s.cfg.RequestMessage, map[string]string{
			"username": user,
			"name":     t.Name,
			"artist":   t.Artist,
		})
	}

	if err := s.ledger.Debit(user); err != nil {
		// Balance was checked at entry and nothing ran concurrently, so this
		// cannot happen; log it loudly if it ever does.
		slog.Error("debit after insert failed", slog.String("user", user), slog.Any("err", err))
	}
	telemetry.SetSpanSuccess(span)
	if telemetry.RequestsHandled != nil {
		telemetry.RequestsHandled.Inc()
	}
	telemetry.SetPendingRequests(s.cache.Pending())
}

func (s *Session) rejected() {
	if telemetry.RequestsRejected != nil {
		telemetry.RequestsRejected.Inc()
	}
}

// handleSong replies with the currently playing track.
func (s *Session) handleSong(user string) {
	if !s.songEnabled {
		return
	}
	ctx, cancel := s.callCtx()
	defer cancel()

	current, err := s.catalog.CurrentlyPlaying(ctx)
	if err != nil {
		slog.Error("currently playing lookup failed", slog.Any("err", err))
		s.reply(s.cfg.ErrorMessage, map[string]string{"username": user})
		return
	}
	if current == nil {
		s.reply(s.cfg.NoSongMessage, map[string]string{"username": user})
		return
	}
	s.reply(s.cfg.SongMessage, map[string]string{
		"username": user,
		"name":     current.Name,
		"artist":   current.Artist,
	})
}

// handleCredit replies with the supporter's balance.
func (s *Session) handleCredit(user string) {
	if !s.creditEnabled {
		return
	}
	s.reply(s.cfg.CreditMessage, map[string]string{
		"username": user,
		"credit":   strconv.Itoa(s.ledger.Balance(user)),
	})
}
