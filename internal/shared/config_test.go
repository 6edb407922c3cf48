package shared

import (
	"os"
	"path/filepath"
	"testing"
)

func TestConfig(t *testing.T) {
	t.Run("DefaultConfig", func(t *testing.T) {
		config := DefaultConfig()

		if config.Database.Path != "chantify.db" {
			t.Errorf("expected database path chantify.db, got %s", config.Database.Path)
		}

		if config.Credentials.Telegram.ProxyURL != "http://localhost:8081" {
			t.Errorf("expected telegram proxy URL http://localhost:8081, got %s", config.Credentials.Telegram.ProxyURL)
		}

		if config.Extractor.OutputPath != "musics.json" {
			t.Errorf("expected output path musics.json, got %s", config.Extractor.OutputPath)
		}

		if config.Extractor.MessageLimit != 10000 {
			t.Errorf("expected message limit 10000, got %d", config.Extractor.MessageLimit)
		}

		if config.Sync.SimilarityThreshold != 0.6 {
			t.Errorf("expected similarity threshold 0.6, got %f", config.Sync.SimilarityThreshold)
		}

		if config.Sync.Workers != 5 {
			t.Errorf("expected 5 workers, got %d", config.Sync.Workers)
		}

		if config.Sync.BatchSize != 100 {
			t.Errorf("expected batch size 100, got %d", config.Sync.BatchSize)
		}
	})

	t.Run("CreateConfigFile", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		if err := CreateConfigFile(configPath); err != nil {
			t.Fatalf("failed to create config file: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load created config: %v", err)
		}

		defaultConfig := DefaultConfig()
		if config.Database.Path != defaultConfig.Database.Path {
			t.Errorf("created config database path doesn't match default")
		}

		if err := CreateConfigFile(configPath); err == nil {
			t.Error("creating config file again should fail")
		}
	})

	t.Run("LoadConfig", func(t *testing.T) {
		tmpDir := t.TempDir()
		configPath := filepath.Join(tmpDir, "config.toml")

		testConfig := `[credentials.spotify]
client_id = "test_client_id"
client_secret = "test_secret"
redirect_uri = "http://localhost:9090/callback"
token_path = "/tmp/token.json"

[credentials.telegram]
proxy_url = "http://localhost:9091"

[extractor]
output_path = "custom.json"
message_limit = 500

[sync]
similarity_threshold = 0.8
workers = 2

[database]
path = "/custom/path.db"
`
		if err := os.WriteFile(configPath, []byte(testConfig), 0644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		config, err := LoadConfig(configPath)
		if err != nil {
			t.Fatalf("failed to load config: %v", err)
		}

		if config.Credentials.Spotify.ClientID != "test_client_id" {
			t.Errorf("expected client_id test_client_id, got %s", config.Credentials.Spotify.ClientID)
		}
		if config.Credentials.Telegram.ProxyURL != "http://localhost:9091" {
			t.Errorf("expected proxy URL http://localhost:9091, got %s", config.Credentials.Telegram.ProxyURL)
		}
		if config.Extractor.MessageLimit != 500 {
			t.Errorf("expected message limit 500, got %d", config.Extractor.MessageLimit)
		}
		if config.Sync.SimilarityThreshold != 0.8 {
			t.Errorf("expected threshold 0.8, got %f", config.Sync.SimilarityThreshold)
		}
		if config.Database.Path != "/custom/path.db" {
			t.Errorf("expected database path /custom/path.db, got %s", config.Database.Path)
		}
	})

	t.Run("LoadConfig missing file", func(t *testing.T) {
		if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})

	t.Run("SpotifyConfig Map", func(t *testing.T) {
		c := SpotifyConfig{
			ClientID:     "id",
			ClientSecret: "secret",
			RedirectURI:  "http://localhost:8080/callback",
			ProxyURL:     "socks5://localhost:1080",
		}

		m := c.Map()
		if m["client_id"] != "id" || m["client_secret"] != "secret" {
			t.Errorf("unexpected credentials map: %v", m)
		}
		if m["proxy_url"] != "socks5://localhost:1080" {
			t.Errorf("expected proxy_url in map, got %v", m)
		}
	})

	t.Run("SpotifyConfig CallbackAddr", func(t *testing.T) {
		c := SpotifyConfig{RedirectURI: "http://localhost:8080/callback"}
		addr, err := c.CallbackAddr()
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if addr != "localhost:8080" {
			t.Errorf("expected localhost:8080, got %s", addr)
		}

		c.RedirectURI = "not a url"
		if _, err := c.CallbackAddr(); err == nil {
			t.Error("expected error for invalid redirect URI")
		}
	})
}
