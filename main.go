// Command bopper is a Twitch song-request bot. It credits viewers with
// song-request tokens for donations announced in chat by a signal bot and
// lets them spend one token per request to insert a Spotify track right
// after the currently playing song, FIFO among pending requests. On
// reset, refresh, and exit it removes exactly the tracks it inserted,
// restoring the curator's playlist.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/onnwee/bopper/bot"
	"github.com/onnwee/bopper/chat"
	"github.com/onnwee/bopper/config"
	"github.com/onnwee/bopper/console"
	"github.com/onnwee/bopper/server"
	"github.com/onnwee/bopper/spotifyapi"
	"github.com/onnwee/bopper/telemetry"
	"github.com/onnwee/bopper/twitchapi"
)

func main() {
	// Load .env file if present (local dev convenience only)
	_ = godotenv.Load()

	initLogger()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	telemetry.Init()

	shutdownTracing, err := telemetry.InitTracing("bopper", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Spotify authorization-code flow; blocks until the consent callback lands.
	spotify, err := spotifyapi.Authenticate(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.SpotifyRedirectURI)
	if err != nil {
		slog.Error("spotify auth failed", slog.Any("err", err))
		os.Exit(1)
	}

	ircToken, err := twitchapi.AcquireUserToken(ctx, cfg.TwitchClientID, cfg.TwitchClientSecret, cfg.TwitchRedirectURI, cfg.TwitchScopes, cfg.TwitchOAuthToken)
	if err != nil {
		slog.Error("twitch auth failed", slog.Any("err", err))
		os.Exit(1)
	}

	chatClient := chat.New(cfg.TwitchBotUsername, ircToken, cfg.TwitchChannel)

	sess, err := bot.New(cfg, spotify, spotify, chatClient)
	if err != nil {
		slog.Error("session init failed", slog.Any("err", err))
		os.Exit(1)
	}

	// Initial playlist cache fill; the bot never runs with an unsynced cache.
	bootCtx, cancelBoot := context.WithTimeout(ctx, time.Minute)
	err = sess.Bootstrap(bootCtx)
	cancelBoot()
	if err != nil {
		slog.Error("playlist cache fill failed", slog.Any("err", err))
		os.Exit(1)
	}

	chatClient.OnMessage(func(m chat.Message) {
		sess.HandleMessage(m.Sender, m.Text)
	})
	go func() {
		if err := chatClient.Run(ctx); err != nil {
			slog.Error("twitch chat connection failed", slog.Any("err", err))
			stop()
		}
	}()

	if cfg.WebConsole {
		go func() {
			if err := server.Start(ctx, sess, cfg, stop); err != nil {
				slog.Error("web console exited", slog.Any("err", err))
			}
		}()
	}

	fmt.Println("bopper has started.")
	go console.Run(ctx, sess, os.Stdin, os.Stdout, func() { stop() })

	<-ctx.Done()
	slog.Info("shutting down")

	cleanupCtx, cancelCleanup := context.WithTimeout(context.Background(), time.Minute)
	defer cancelCleanup()
	if err := sess.Shutdown(cleanupCtx); err != nil {
		slog.Error("playlist cleanup failed", slog.Any("err", err))
	}
}

// initLogger configures logging (level + format). Defaults: level=info, format=text.
func initLogger() {
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	var handler slog.Handler
	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))
}
