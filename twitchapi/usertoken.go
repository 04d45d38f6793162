package twitchapi

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AcquireUserToken obtains an IRC-ready user token ("oauth:" prefixed) via the
// authorization-code flow, serving the redirect URI on a temporary local
// listener and blocking until the streamer completes the consent page or ctx
// is done. When a token is already configured it is returned as-is (normalized
// to carry the prefix gempir expects).
func AcquireUserToken(ctx context.Context, clientID, clientSecret, redirectURI, scopes, existing string) (string, error) {
	if existing != "" {
		return NormalizeIRCToken(existing), nil
	}
	if clientID == "" || clientSecret == "" {
		return "", errors.New("missing twitch client id/secret")
	}
	ru, err := url.Parse(redirectURI)
	if err != nil || ru.Host == "" {
		return "", fmt.Errorf("invalid twitch redirect uri %q", redirectURI)
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
			errCh <- errors.New("twitch auth state mismatch")
			return
		}
		if e := r.FormValue("error"); e != "" {
			http.Error(w, "authorization denied", http.StatusForbidden)
			errCh <- fmt.Errorf("twitch authorization denied: %s", e)
			return
		}
		fmt.Fprint(w, "Login completed. You can close this window.")
		codeCh <- r.FormValue("code")
	})

	ln, err := net.Listen("tcp", ru.Host)
	if err != nil {
		return "", fmt.Errorf("listen on %s for twitch callback: %w", ru.Host, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("twitch callback server error", slog.Any("err", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("twitch callback server shutdown", slog.Any("err", err))
		}
	}()

	authURL, err := BuildAuthorizeURL(clientID, redirectURI, scopes, state)
	if err != nil {
		return "", err
	}
	fmt.Println("Log in to Twitch by visiting the following page in your browser:")
	fmt.Println(authURL)

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return "", err
	case <-ctx.Done():
		return "", ctx.Err()
	}

	res, err := ExchangeAuthCode(ctx, clientID, clientSecret, code, redirectURI)
	if err != nil {
		return "", err
	}
	slog.Info("twitch authenticated", slog.Time("expires", ComputeExpiry(res.ExpiresIn)))
	return NormalizeIRCToken(res.AccessToken), nil
}

// NormalizeIRCToken ensures the "oauth:" prefix the IRC client requires.
func NormalizeIRCToken(tok string) string {
	if strings.HasPrefix(tok, "oauth:") {
		return tok
	}
	return "oauth:" + tok
}
