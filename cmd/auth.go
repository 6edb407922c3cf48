package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/chantify/internal/server"
	"github.com/desertthunder/chantify/internal/services"
	"github.com/desertthunder/chantify/internal/shared"
	"github.com/desertthunder/chantify/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin runs the Spotify OAuth flow and caches the token locally.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify
	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: Spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	spotify, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return fmt.Errorf("failed to create Spotify service: %w", err)
	}

	token, err := r.doOAuth(spotify)
	if err != nil {
		return err
	}

	spotify.SetToken(ctx, token)
	r.music = spotify
	r.engine = tasks.NewChannelEngine(r.source, r.music, r.cache)

	if err := shared.SaveToken(creds.TokenPath, token); err != nil {
		return err
	}

	userID, err := spotify.CurrentUserID(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Logged in as %s\n", userID)
	r.writePlain("✓ Token saved to %s\n", creds.TokenPath)
	return nil
}

// AuthStatus reports whether a cached token still grants API access.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	creds := r.config.Credentials.Spotify

	token, err := shared.LoadToken(creds.TokenPath)
	if err != nil {
		r.writePlain("✗ Not authenticated (%v)\n", err)
		r.writePlain("Run 'chantify auth login' to connect Spotify.\n")
		return nil
	}

	if r.music == nil {
		return fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	if oauthSvc, ok := r.music.(services.OAuthService); ok {
		oauthSvc.SetToken(ctx, token)
	}

	userID, err := r.music.CurrentUserID(ctx)
	if err != nil {
		r.writePlain("✗ Token present but rejected: %v\n", err)
		r.writePlain("Run 'chantify auth login' to reauthorize.\n")
		return nil
	}

	r.writePlain("✓ Authenticated as %s\n", userID)
	if !token.Expiry.IsZero() {
		r.writePlain("Token expiry: %s\n", token.Expiry.Format(time.RFC3339))
	}
	return nil
}

// doOAuth executes the authorization code flow against a loopback HTTP
// server derived from the configured redirect URI.
func (r *Runner) doOAuth(oauthSvc services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, err
	}

	addr, err := r.config.Credentials.Spotify.CallbackAddr()
	if err != nil {
		return nil, err
	}

	authURL := oauthSvc.GetAuthURL(state)
	handler := server.NewOAuthHandler(oauthSvc.OAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.RequestLogger(r.logger))
	router.Handler(handler)

	httpServer := &http.Server{Addr: addr, Handler: router}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult
	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}
	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}

// authCommand manages Spotify authentication.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify and cache the token",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Check the cached token against the API",
				Action: r.AuthStatus,
			},
		},
	}
}
