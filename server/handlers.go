package server

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/onnwee/bopper/bot"
	"github.com/onnwee/bopper/config"
	"github.com/onnwee/bopper/console"
)

type handlers struct {
	sess *bot.Session
	cfg  *config.Config
	quit func()
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", slog.Any("err", err))
	}
}

func (h *handlers) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sess.Status())
}

func (h *handlers) handleTippers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sess.Tippers())
}

func (h *handlers) handlePlaylist(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.sess.PlaylistEntries())
}

// handleConfig returns the non-secret runtime configuration. Credentials and
// tokens are never included; changing config requires a restart with new
// env/YAML values.
func (h *handlers) handleConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"twitch_channel":      h.cfg.TwitchChannel,
		"signal_bot":          h.cfg.SignalBot,
		"tip_regex":           h.cfg.TipRegex,
		"bits_regex":          h.cfg.BitsRegex,
		"gifted_regex":        h.cfg.GiftedRegex,
		"amount_tip":          h.cfg.AmountTip,
		"amount_bits":         h.cfg.AmountBits,
		"amount_gifted_tier1": h.cfg.AmountGiftedTier1,
		"amount_gifted_tier2": h.cfg.AmountGiftedTier2,
		"amount_gifted_tier3": h.cfg.AmountGiftedTier3,
		"cumulative_credit":   h.cfg.CumulativeCredit,
		"credit_rearm":        h.cfg.CreditRearm,
		"clean_playlist":      h.cfg.CleanPlaylist,
		"request_cmd":         h.cfg.RequestCmd,
		"song_cmd":            h.cfg.SongCmd,
		"credit_cmd":          h.cfg.CreditCmd,
		"request_timeout":     h.cfg.RequestTimeout.String(),
	})
}

// handleCommand executes one console command (?cmd=... or form value) and
// returns its output. Long-running commands (reset/refresh) run within the
// request context.
func (h *handlers) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cmd := r.FormValue("cmd")
	if cmd == "" {
		http.Error(w, "missing cmd", http.StatusBadRequest)
		return
	}
	out := console.Execute(r.Context(), h.sess, cmd, h.quit)
	writeJSON(w, map[string]string{"output": out})
}

// adminAuth guards mutating endpoints with the X-Admin-Token header. With no
// token configured the guard is off (local/dev mode).
func adminAuth(next http.Handler, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		got := r.Header.Get("X-Admin-Token")
		if got != "" && subtle.ConstantTimeCompare([]byte(got), []byte(token)) == 1 {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "unauthorized", http.StatusUnauthorized)
	})
}
