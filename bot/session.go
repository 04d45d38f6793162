// Package bot wires the ledger, alert parser, and playlist cache into the
// command handlers behind the chat and console surfaces. A single Session is
// constructed at startup and passed to every handler; its mutex serializes all
// event handling end to end, which is what makes the lock-free ledger and
// cache safe.
package bot

import (
	"context"
	"strings"
	"sync"

	"github.com/onnwee/bopper/alerts"
	"github.com/onnwee/bopper/config"
	"github.com/onnwee/bopper/ledger"
	"github.com/onnwee/bopper/playlist"
	"github.com/onnwee/bopper/telemetry"
)

// Catalog is the track lookup side of the music platform.
type Catalog interface {
	CurrentlyPlaying(ctx context.Context) (*playlist.Track, error)
	Search(ctx context.Context, query string, limit int) ([]playlist.Track, error)
}

// Replier sends a line back to the chat channel.
type Replier interface {
	Say(text string)
}

// Session is the long-lived bot state. All exported methods lock for their
// whole duration: one donation alert, chat command, or console command is
// processed at a time, in arrival order.
type Session struct {
	mu sync.Mutex

	cfg        *config.Config
	playlistID string

	ledger *ledger.Ledger
	cache  *playlist.Cache
	parser *alerts.Parser

	store   playlist.Store
	catalog Catalog
	replier Replier

	requestEnabled bool
	songEnabled    bool
	creditEnabled  bool
}

func New(cfg *config.Config, store playlist.Store, catalog Catalog, replier Replier) (*Session, error) {
	playlistID, err := cfg.PlaylistID()
	if err != nil {
		return nil, err
	}
	parser, err := alerts.New(cfg.SignalBot, cfg.TipRegex, cfg.BitsRegex, cfg.GiftedRegex, alerts.Thresholds{
		Tip:        cfg.AmountTip,
		Bits:       cfg.AmountBits,
		GiftedTier: [3]int{cfg.AmountGiftedTier1, cfg.AmountGiftedTier2, cfg.AmountGiftedTier3},
	}, cfg.CumulativeCredit)
	if err != nil {
		return nil, err
	}
	return &Session{
		cfg:        cfg,
		playlistID: playlistID,
		ledger:     ledger.New(ledger.Policy{Cumulative: cfg.CumulativeCredit, Rearm: cfg.CreditRearm}),
		cache:      playlist.NewCache(),
		parser:     parser,
		store:      store,
		catalog:    catalog,
		replier:    replier,

		requestEnabled: !cfg.DisableRequestCmd,
		songEnabled:    !cfg.DisableSongCmd,
		creditEnabled:  !cfg.DisableCreditCmd,
	}, nil
}

// Bootstrap performs the initial playlist cache fill. A failure here is fatal
// at startup (the bot never runs with an unsynced cache).
func (s *Session) Bootstrap(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.cache.Rebuild(ctx, s.store, s.playlistID); err != nil {
		return err
	}
	if telemetry.CacheRebuilds != nil {
		telemetry.CacheRebuilds.Inc()
	}
	telemetry.SetPendingRequests(s.cache.Pending())
	return nil
}

// HandleMessage is the single entry point for inbound chat lines: commands
// prefixed with "!" are dispatched to their handler, everything else is
// offered to the donation-alert parser.
func (s *Session) HandleMessage(sender, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if keyword, param, ok := splitCommand(text); ok {
		switch keyword {
		case s.cfg.RequestCmd:
			s.handleRequest(sender, param)
		case s.cfg.SongCmd:
			s.handleSong(sender)
		case s.cfg.CreditCmd:
			s.handleCredit(sender)
		}
		return
	}
	s.handleAlert(sender, text)
}

// splitCommand extracts the keyword and parameter text of a "!keyword rest"
// chat command.
func splitCommand(text string) (keyword, param string, ok bool) {
	if !strings.HasPrefix(text, "!") {
		return "", "", false
	}
	rest := strings.TrimPrefix(text, "!")
	fields := strings.SplitN(rest, " ", 2)
	if fields[0] == "" {
		return "", "", false
	}
	if len(fields) == 2 {
		param = strings.TrimSpace(fields[1])
	}
	return fields[0], param, true
}

// callCtx bounds one external platform call so a hung request fails this event
// instead of stalling the whole timeline.
func (s *Session) callCtx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.cfg.RequestTimeout)
}

// reply renders a configured message template and sends it to chat.
func (s *Session) reply(tmpl string, vals map[string]string) {
	if s.replier == nil {
		return
	}
	s.replier.Say(render(tmpl, vals))
}

// render substitutes {placeholder} occurrences in a reply template.
func render(tmpl string, vals map[string]string) string {
	pairs := make([]string, 0, len(vals)*2)
	for k, v := range vals {
		pairs = append(pairs, "{"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(tmpl)
}
