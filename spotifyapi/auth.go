package spotifyapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// Endpoint is Spotify's OAuth2 endpoint.
var Endpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.spotify.com/authorize",
	TokenURL: "https://accounts.spotify.com/api/token",
}

// Scopes required by the bot: read the player cursor, modify the playlist.
var Scopes = []string{
	"user-read-currently-playing",
	"playlist-modify-private",
	"playlist-modify-public",
}

// Authenticate runs the OAuth2 authorization-code flow: it serves the
// configured redirect URI on a temporary local listener, prints the consent
// URL for the streamer to open, exchanges the code, and returns a Client whose
// token refreshes itself. It blocks until the callback arrives or ctx is done.
func Authenticate(ctx context.Context, clientID, clientSecret, redirectURI string) (*Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("missing spotify client id/secret")
	}
	ru, err := url.Parse(redirectURI)
	if err != nil || ru.Host == "" {
		return nil, fmt.Errorf("invalid spotify redirect uri %q", redirectURI)
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint:     Endpoint,
	}

	state := uuid.New().String()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	path := ru.Path
	if path == "" {
		path = "/"
	}
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("state") != state {
			http.Error(w, "state mismatch", http.StatusForbidden)
			errCh <- errors.New("spotify auth state mismatch")
			return
		}
		if e := r.FormValue("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			errCh <- fmt.Errorf("spotify authorization denied: %s", e)
			return
		}
		fmt.Fprint(w, "Login completed. You can close this window.")
		codeCh <- r.FormValue("code")
	})

	ln, err := net.Listen("tcp", ru.Host)
	if err != nil {
		return nil, fmt.Errorf("listen on %s for spotify callback: %w", ru.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("spotify callback server error", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("spotify callback server shutdown", slog.Any("err", err))
		}
	}()

	fmt.Println("Log in to Spotify by visiting the following page in your browser:")
	fmt.Println(conf.AuthCodeURL(state))

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("spotify code exchange: %w", err)
	}
	slog.Info("spotify authenticated")

	// The token source lives beyond this call; detach it from ctx cancellation.
	return &Client{HTTPClient: conf.Client(context.WithoutCancel(ctx), tok)}, nil
}
