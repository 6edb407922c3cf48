package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/chantify/internal/services"
	"github.com/desertthunder/chantify/internal/shared"
	"github.com/urfave/cli/v3"
)

// loadRunnerConfig reads path when it exists, falling back to the
// embedded defaults. A file that exists but fails to parse is reported;
// proceeding silently would surface much later as missing credentials.
func loadRunnerConfig(path string, logger *log.Logger) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		return shared.DefaultConfig()
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		logger.Warn("failed to load config, using defaults", "path", path, "error", err)
		return shared.DefaultConfig()
	}
	return config
}

func main() {
	logger := shared.NewLogger(nil)
	config := loadRunnerConfig("config.toml", logger)

	var music services.MusicService
	if config.Credentials.Spotify.ClientID != "" && config.Credentials.Spotify.ClientSecret != "" {
		if svc, err := services.NewSpotifyService(config.Credentials.Spotify.Map()); err == nil {
			if token, err := shared.LoadToken(config.Credentials.Spotify.TokenPath); err == nil {
				svc.SetToken(context.Background(), token)
			}
			music = svc
		}
	}

	source := services.NewTelegramService(config.Credentials.Telegram.ProxyURL)

	runner := NewRunner(RunnerOpts{
		Config: config,
		Source: source,
		Music:  music,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "chantify",
		Usage:    "Mirror a Telegram channel's audio posts to a Spotify playlist",
		Version:  "0.3.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}
