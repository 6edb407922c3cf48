package shared

import (
	_ "embed"
	"fmt"
	"net/url"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Extractor   ExtractorConfig   `toml:"extractor"`
	Sync        SyncConfig        `toml:"sync"`
	Database    DatabaseConfig    `toml:"database"`
}

// CredentialsConfig contains service-specific credentials.
type CredentialsConfig struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Telegram TelegramConfig `toml:"telegram"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
	TokenPath    string `toml:"token_path"`
	ProxyURL     string `toml:"proxy_url"`
}

// Map flattens the Spotify credentials into the form NewSpotifyService
// expects.
func (c SpotifyConfig) Map() map[string]string {
	return map[string]string{
		"client_id":     c.ClientID,
		"client_secret": c.ClientSecret,
		"redirect_uri":  c.RedirectURI,
		"proxy_url":     c.ProxyURL,
	}
}

// CallbackAddr derives the loopback listen address from the redirect URI.
func (c SpotifyConfig) CallbackAddr() (string, error) {
	u, err := url.Parse(c.RedirectURI)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: invalid redirect_uri %q", ErrInvalidConfig, c.RedirectURI)
	}
	return u.Host, nil
}

// TelegramConfig contains settings for the telethon proxy sidecar.
type TelegramConfig struct {
	ProxyURL string `toml:"proxy_url"`
}

// ExtractorConfig contains extract-stage settings.
type ExtractorConfig struct {
	OutputPath   string `toml:"output_path"`
	AvatarPath   string `toml:"avatar_path"`
	MessageLimit int    `toml:"message_limit"`
}

// SyncConfig contains sync-stage settings.
type SyncConfig struct {
	SimilarityThreshold float64 `toml:"similarity_threshold"`
	Workers             int     `toml:"workers"`
	BatchSize           int     `toml:"batch_size"`
	BatchDelaySeconds   int     `toml:"batch_delay_seconds"`
}

// DatabaseConfig contains match-cache database settings.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// LoadConfig reads and parses a TOML configuration file from the specified path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &config, nil
}

// DefaultConfig returns a Config with sensible defaults loaded from the embedded example config.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
