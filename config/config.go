// Package config loads the bot configuration and provides a typed Config used across
// the process. Values come from an optional YAML file (CONFIG_FILE) with environment
// variables taking precedence, and defaults are applied so the binary can run locally
// with minimal setup. Credentials are validated up front by Validate; the bot refuses
// to start on a bad config rather than failing mid-event.
package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default recognizer patterns for Streamlabs-style chat alerts. Deployments
// override these because the alert bot's phrasing and language vary per channel.
// Each pattern must expose the named groups the parser extracts.
const (
	DefaultTipRegex    = `^Thank you (?P<payer>\S+) for tipping \$(?P<amount>[0-9]+(?:\.[0-9]{1,2})?)!$`
	DefaultBitsRegex   = `^Thank you (?P<payer>\S+) for donating (?P<amount>[1-9][0-9]*) bits$`
	DefaultGiftedRegex = `^(?P<payer>\S+) just gifted (?P<amount>[1-9][0-9]*) Tier (?P<tier>[1-3]) subscriptions!$`
)

var (
	playlistURLPattern = regexp.MustCompile(`open\.spotify\.com/playlist/([A-Za-z0-9]+)`)
	playlistIDPattern  = regexp.MustCompile(`^[A-Za-z0-9]+$`)
)

type Config struct {
	// Twitch
	TwitchClientID     string `yaml:"twitch_client_id"`
	TwitchClientSecret string `yaml:"twitch_client_secret"`
	TwitchBotUsername  string `yaml:"twitch_bot_username"`
	TwitchOAuthToken   string `yaml:"twitch_oauth_token"`
	TwitchChannel      string `yaml:"twitch_channel"`
	TwitchRedirectURI  string `yaml:"twitch_redirect_uri"`
	TwitchScopes       string `yaml:"twitch_scopes"`

	// Spotify
	SpotifyClientID     string `yaml:"spotify_client_id"`
	SpotifyClientSecret string `yaml:"spotify_client_secret"`
	SpotifyPlaylist     string `yaml:"spotify_playlist"` // playlist URL or bare ID
	SpotifyRedirectURI  string `yaml:"spotify_redirect_uri"`

	// Donation alerts
	SignalBot   string `yaml:"signal_bot"`
	TipRegex    string `yaml:"tip_regex"`
	BitsRegex   string `yaml:"bits_regex"`
	GiftedRegex string `yaml:"gifted_regex"`

	// Costs (one song request credit per threshold)
	AmountTip         float64 `yaml:"amount_tip"`
	AmountBits        int     `yaml:"amount_bits"`
	AmountGiftedTier1 int     `yaml:"amount_gifted_tier1"`
	AmountGiftedTier2 int     `yaml:"amount_gifted_tier2"`
	AmountGiftedTier3 int     `yaml:"amount_gifted_tier3"`

	// Credit policy
	CumulativeCredit bool `yaml:"cumulative_credit"`
	CreditRearm      bool `yaml:"credit_rearm"`

	// Chat commands
	RequestCmd        string `yaml:"request_cmd"`
	SongCmd           string `yaml:"song_cmd"`
	CreditCmd         string `yaml:"credit_cmd"`
	DisableRequestCmd bool   `yaml:"disable_request_cmd"`
	DisableSongCmd    bool   `yaml:"disable_song_cmd"`
	DisableCreditCmd  bool   `yaml:"disable_credit_cmd"`

	CleanPlaylist bool `yaml:"clean_playlist"`

	// Reply templates; placeholders: {username} {credit} {name} {artist}
	CreditMessage   string `yaml:"credit_message"`
	SongMessage     string `yaml:"song_message"`
	NoSongMessage   string `yaml:"no_song_message"`
	RequestMessage  string `yaml:"request_message"`
	NotifyMessage   string `yaml:"notify_message"`
	NoCreditMessage string `yaml:"no_credit_message"`
	NoMatchMessage  string `yaml:"no_match_message"`
	ErrorMessage    string `yaml:"error_message"`

	// Web console
	WebConsole bool   `yaml:"web_console"`
	HTTPAddr   string `yaml:"http_addr"`
	AdminToken string `yaml:"admin_token"`

	// Bound on every external platform call made while handling one event.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// Load builds the config: defaults, then the YAML file named by CONFIG_FILE (if any),
// then environment variable overrides. It does not validate; call Validate before use.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		TwitchRedirectURI:  "http://localhost:17563/callback",
		TwitchScopes:       "chat:read chat:edit",
		SpotifyRedirectURI: "http://localhost:3000/callback",

		SignalBot:   "Streamlabs",
		TipRegex:    DefaultTipRegex,
		BitsRegex:   DefaultBitsRegex,
		GiftedRegex: DefaultGiftedRegex,

		AmountTip:         100.00,
		AmountBits:        10000,
		AmountGiftedTier1: 20,
		AmountGiftedTier2: 10,
		AmountGiftedTier3: 5,

		CumulativeCredit: true,
		CreditRearm:      true,

		RequestCmd: "request",
		SongCmd:    "song",
		CreditCmd:  "credit",

		CleanPlaylist: true,

		CreditMessage:   "@{username}, you have {credit} song request credit(s).",
		SongMessage:     "@{username}, current song is {name} by {artist}.",
		NoSongMessage:   "@{username}, there is currently no song playing.",
		RequestMessage:  "@{username}, added {name} by {artist} to the playlist.",
		NotifyMessage:   "@{username}, you now have {credit} song request credit(s).",
		NoCreditMessage: "@{username}, you have no song request credits.",
		NoMatchMessage:  "@{username}, no song matched your request.",
		ErrorMessage:    "@{username}, something went wrong, please try again.",

		HTTPAddr:       ":8080",
		RequestTimeout: 10 * time.Second,
	}
}

func applyEnv(cfg *Config) {
	setStr(&cfg.TwitchClientID, "TWITCH_CLIENT_ID")
	setStr(&cfg.TwitchClientSecret, "TWITCH_CLIENT_SECRET")
	setStr(&cfg.TwitchBotUsername, "TWITCH_BOT_USERNAME")
	setStr(&cfg.TwitchOAuthToken, "TWITCH_OAUTH_TOKEN")
	setStr(&cfg.TwitchChannel, "TWITCH_CHANNEL")
	setStr(&cfg.TwitchRedirectURI, "TWITCH_REDIRECT_URI")
	setStr(&cfg.TwitchScopes, "TWITCH_SCOPES")

	setStr(&cfg.SpotifyClientID, "SPOTIFY_CLIENT_ID")
	setStr(&cfg.SpotifyClientSecret, "SPOTIFY_CLIENT_SECRET")
	setStr(&cfg.SpotifyPlaylist, "SPOTIFY_PLAYLIST")
	setStr(&cfg.SpotifyRedirectURI, "SPOTIFY_REDIRECT_URI")

	setStr(&cfg.SignalBot, "SIGNAL_BOT")
	setStr(&cfg.TipRegex, "TIP_REGEX")
	setStr(&cfg.BitsRegex, "BITS_REGEX")
	setStr(&cfg.GiftedRegex, "GIFTED_REGEX")

	setFloat(&cfg.AmountTip, "AMOUNT_TIP")
	setInt(&cfg.AmountBits, "AMOUNT_BITS")
	setInt(&cfg.AmountGiftedTier1, "AMOUNT_GIFTED_TIER1")
	setInt(&cfg.AmountGiftedTier2, "AMOUNT_GIFTED_TIER2")
	setInt(&cfg.AmountGiftedTier3, "AMOUNT_GIFTED_TIER3")

	setBool(&cfg.CumulativeCredit, "CUMULATIVE_CREDIT")
	setBool(&cfg.CreditRearm, "CREDIT_REARM")

	setStr(&cfg.RequestCmd, "REQUEST_CMD")
	setStr(&cfg.SongCmd, "SONG_CMD")
	setStr(&cfg.CreditCmd, "CREDIT_CMD")
	setBool(&cfg.DisableRequestCmd, "DISABLE_REQUEST_CMD")
	setBool(&cfg.DisableSongCmd, "DISABLE_SONG_CMD")
	setBool(&cfg.DisableCreditCmd, "DISABLE_CREDIT_CMD")

	setBool(&cfg.CleanPlaylist, "CLEAN_PLAYLIST")

	setStr(&cfg.CreditMessage, "CREDIT_MESSAGE")
	setStr(&cfg.SongMessage, "SONG_MESSAGE")
	setStr(&cfg.NoSongMessage, "NO_SONG_MESSAGE")
	setStr(&cfg.RequestMessage, "REQUEST_MESSAGE")
	setStr(&cfg.NotifyMessage, "NOTIFY_MESSAGE")
	setStr(&cfg.NoCreditMessage, "NO_CREDIT_MESSAGE")
	setStr(&cfg.NoMatchMessage, "NO_MATCH_MESSAGE")
	setStr(&cfg.ErrorMessage, "ERROR_MESSAGE")

	setBool(&cfg.WebConsole, "WEB_CONSOLE")
	setStr(&cfg.HTTPAddr, "HTTP_ADDR")
	setStr(&cfg.AdminToken, "ADMIN_TOKEN")

	if v := os.Getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.RequestTimeout = d
		}
	}
}

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

// PlaylistID extracts the Spotify playlist ID from SpotifyPlaylist, which may be
// a share URL (https://open.spotify.com/playlist/<id>?si=...), a spotify:playlist:
// URI, or a bare ID.
func (c *Config) PlaylistID() (string, error) {
	s := c.SpotifyPlaylist
	if s == "" {
		return "", fmt.Errorf("spotify playlist not configured")
	}
	if m := playlistURLPattern.FindStringSubmatch(s); m != nil {
		return m[1], nil
	}
	if rest, ok := strings.CutPrefix(s, "spotify:playlist:"); ok && rest != "" {
		return rest, nil
	}
	if playlistIDPattern.MatchString(s) {
		return s, nil
	}
	return "", fmt.Errorf("invalid spotify playlist %q", s)
}

// Validate checks everything the bot needs before entering the event loop.
func (c *Config) Validate() error {
	if c.TwitchClientID == "" || c.TwitchClientSecret == "" {
		return fmt.Errorf("missing twitch credentials: require TWITCH_CLIENT_ID, TWITCH_CLIENT_SECRET")
	}
	if c.TwitchBotUsername == "" {
		return fmt.Errorf("missing TWITCH_BOT_USERNAME")
	}
	if c.TwitchChannel == "" {
		return fmt.Errorf("missing TWITCH_CHANNEL")
	}
	if c.SpotifyClientID == "" || c.SpotifyClientSecret == "" {
		return fmt.Errorf("missing spotify credentials: require SPOTIFY_CLIENT_ID, SPOTIFY_CLIENT_SECRET")
	}
	if _, err := c.PlaylistID(); err != nil {
		return err
	}
	for name, pat := range map[string]string{"tip_regex": c.TipRegex, "bits_regex": c.BitsRegex, "gifted_regex": c.GiftedRegex} {
		re, err := regexp.Compile(pat)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if err := requireGroups(re, name); err != nil {
			return err
		}
	}
	if c.RequestCmd == "" || c.SongCmd == "" || c.CreditCmd == "" {
		return fmt.Errorf("chat command keywords must be non-empty")
	}
	return nil
}

func requireGroups(re *regexp.Regexp, name string) error {
	need := map[string]bool{"payer": false, "amount": false}
	if name == "gifted_regex" {
		need["tier"] = false
	}
	for _, g := range re.SubexpNames() {
		if _, ok := need[g]; ok {
			need[g] = true
		}
	}
	for g, ok := range need {
		if !ok {
			return fmt.Errorf("%s must define a (?P<%s>...) capture group", name, g)
		}
	}
	return nil
}
