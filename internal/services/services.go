// package services defines interfaces for the two external collaborators
//
// Telegram (via the telethon proxy sidecar) and Spotify
package services

import (
	"context"

	"github.com/desertthunder/chantify/internal/models"
	"golang.org/x/oauth2"
)

// ChannelSource is the consumed surface of the messaging platform: resolve
// a channel, fetch its avatar, and read audio message metadata.
type ChannelSource interface {
	// ResolveChannel resolves a channel handle (without "@") to its info.
	// Implementations retry internally on platform flood-wait signals.
	ResolveChannel(ctx context.Context, handle string) (*models.ChannelInfo, error)

	// DownloadAvatar saves the channel's avatar image to the given local
	// path. Returns the written path, or an error when the channel has no
	// avatar or the download fails.
	DownloadAvatar(ctx context.Context, handle, path string) (string, error)

	// ChannelAudio returns metadata for the channel's audio messages in
	// ascending message-ID order, scanning at most limit messages.
	ChannelAudio(ctx context.Context, handle string, limit int) ([]models.AudioRecord, error)

	// Name returns the service name for logging.
	Name() string
}

// OAuthService is implemented by services that authenticate users through
// an OAuth2 authorization code flow with a loopback callback.
type OAuthService interface {
	// GetAuthURL returns the provider authorization URL for the given
	// CSRF state token.
	GetAuthURL(state string) string

	// OAuthConfig exposes the OAuth2 config for the callback handler's
	// code exchange.
	OAuthConfig() *oauth2.Config

	// SetToken installs an obtained or restored token.
	SetToken(ctx context.Context, token *oauth2.Token)
}

// MusicService is the consumed surface of the streaming service: identity,
// playlist CRUD, cover upload, and track search.
type MusicService interface {
	// CurrentUserID returns the authenticated account's user ID.
	CurrentUserID(ctx context.Context) (string, error)

	// CreatePlaylist creates a playlist owned by the authenticated account
	// and returns its ID.
	CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error)

	// UploadCoverImage sets the playlist cover from raw JPEG bytes.
	UploadCoverImage(ctx context.Context, playlistID string, image []byte) error

	// PlaylistTrackURIs lists the URIs of every track currently in the
	// playlist.
	PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error)

	// RemoveTracks removes the given track URIs from the playlist.
	RemoveTracks(ctx context.Context, playlistID string, uris []string) error

	// AddTracks appends the given track URIs to the playlist. Callers must
	// respect the 100-URI per-call cap.
	AddTracks(ctx context.Context, playlistID string, uris []string) error

	// SearchTrack issues a top-1 track search for the free-text query.
	// Returns nil (not an error) when the catalog has no results.
	SearchTrack(ctx context.Context, query string) (*models.SearchCandidate, error)

	// Name returns the service name for logging.
	Name() string
}
