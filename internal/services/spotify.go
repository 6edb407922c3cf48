// Spotify API implementation of [MusicService]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	// Documented per-call maximum for playlist add/remove item calls.
	spotifyTrackBatchMax = 100
)

// RateLimitError is returned when Spotify answers 429. RetryAfter carries
// the server-mandated backoff from the Retry-After header.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return shared.ErrRateLimited
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Public      bool   `json:"public"`
	URI         string `json:"uri"`
}

type playlistItem struct {
	Track SpotifyTrack `json:"track"`
}

type playlistItemsPage struct {
	Items []playlistItem `json:"items"`
	Next  *string        `json:"next"`
}

type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [MusicService] against the Spotify Web API.
// Uses [oauth2] for authentication; the oauth2 client refreshes expired
// tokens transparently.
type SpotifyService struct {
	config     *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
	baseClient *http.Client
	userID     string
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// An optional "proxy_url" credential routes all API traffic through a
// SOCKS or HTTP proxy.
func NewSpotifyService(credentials map[string]string) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://localhost:8080/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			"playlist-modify-public",
			"playlist-modify-private",
			"ugc-image-upload",
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	baseClient := http.DefaultClient
	if proxyURL, ok := credentials["proxy_url"]; ok && proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid proxy_url: %v", shared.ErrInvalidConfig, err)
		}
		baseClient = &http.Client{
			Transport: &http.Transport{Proxy: http.ProxyURL(parsed)},
		}
	}

	return &SpotifyService{
		config:     config,
		httpClient: baseClient,
		baseClient: baseClient,
	}, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthConfig exposes the underlying OAuth2 config for the callback server.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// Authenticate performs OAuth2 authentication with Spotify. Expects either an "access_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken, ok := credentials["access_token"]; ok && accessToken != "" {
		s.SetToken(ctx, &oauth2.Token{AccessToken: accessToken})
		return nil
	}

	if authCode, ok := credentials["auth_code"]; ok && authCode != "" {
		token, err := s.config.Exchange(s.clientContext(ctx), authCode)
		if err != nil {
			return fmt.Errorf("%w: code exchange: %v", shared.ErrAuthFailed, err)
		}
		s.SetToken(ctx, token)
		return nil
	}

	return fmt.Errorf("%w: need access_token or auth_code", shared.ErrMissingCredentials)
}

// SetToken installs a previously obtained token, e.g. one restored from
// the token cache file.
func (s *SpotifyService) SetToken(ctx context.Context, token *oauth2.Token) {
	s.token = token
	s.httpClient = s.config.Client(s.clientContext(ctx), token)
}

// clientContext threads the proxy-aware base client into oauth2 so token
// exchanges and refreshes go through the same transport as API calls.
func (s *SpotifyService) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.baseClient)
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A 429 response is surfaced as *RateLimitError so callers can back off.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}

	apiURL := spotifyBaseURL + endpoint

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, apiURL, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: spotify status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// retryAfter reads the Retry-After header, defaulting to one second when
// absent or unparseable.
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return time.Second
}

// CurrentUserID returns the authenticated user's ID, cached after the
// first call.
func (s *SpotifyService) CurrentUserID(ctx context.Context) (string, error) {
	if s.userID != "" {
		return s.userID, nil
	}

	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return "", err
	}

	s.userID = user.ID
	return user.ID, nil
}

// CreatePlaylist creates a playlist owned by the authenticated account and returns its ID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	userID, err := s.CurrentUserID(ctx)
	if err != nil {
		return "", err
	}

	body := struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Public      bool   `json:"public"`
	}{Name: name, Description: description, Public: public}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return "", err
	}

	return playlist.ID, nil
}

// UploadCoverImage sets the playlist cover image from raw JPEG bytes.
//
// The image endpoint takes a base64 body rather than JSON, so this
// bypasses doRequest.
func (s *SpotifyService) UploadCoverImage(ctx context.Context, playlistID string, image []byte) error {
	if s.token == nil {
		return fmt.Errorf("%w: call Authenticate first", shared.ErrNotAuthenticated)
	}
	if len(image) == 0 {
		return fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}

	encoded := base64.StdEncoding.EncodeToString(image)
	apiURL := fmt.Sprintf("%s/playlists/%s/images", spotifyBaseURL, url.PathEscape(playlistID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, apiURL, bytes.NewReader([]byte(encoded)))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "image/jpeg")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return &RateLimitError{RetryAfter: retryAfter(resp)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: cover upload status %d", shared.ErrAPIRequest, resp.StatusCode)
	}

	return nil
}

// PlaylistTrackURIs lists the URIs of every track currently in the
// playlist, following pagination.
func (s *SpotifyService) PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error) {
	var uris []string
	endpoint := fmt.Sprintf("/playlists/%s/tracks?fields=items(track(uri)),next&limit=100", url.PathEscape(playlistID))

	for {
		var page playlistItemsPage
		if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track.URI != "" {
				uris = append(uris, item.Track.URI)
			}
		}

		if page.Next == nil || *page.Next == "" {
			break
		}
		next, err := nextPageEndpoint(*page.Next)
		if err != nil {
			return nil, err
		}
		endpoint = next
	}

	return uris, nil
}

// nextPageEndpoint converts an absolute pagination URL from the API into
// an endpoint relative to the versioned base, rejecting URLs that do not
// carry the expected /v1 prefix.
func nextPageEndpoint(next string) (string, error) {
	u, err := url.Parse(next)
	if err != nil {
		return "", fmt.Errorf("failed to parse pagination URL: %w", err)
	}

	endpoint := strings.TrimPrefix(u.Path, "/v1")
	if endpoint == u.Path {
		return "", fmt.Errorf("%w: unexpected pagination URL %q", shared.ErrAPIRequest, next)
	}
	if u.RawQuery != "" {
		endpoint += "?" + u.RawQuery
	}
	return endpoint, nil
}

// RemoveTracks removes the given track URIs from the playlist, chunking
// at the API's per-call cap.
func (s *SpotifyService) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))

	for start := 0; start < len(uris); start += spotifyTrackBatchMax {
		end := min(start+spotifyTrackBatchMax, len(uris))

		type trackRef struct {
			URI string `json:"uri"`
		}
		body := struct {
			Tracks []trackRef `json:"tracks"`
		}{}
		for _, uri := range uris[start:end] {
			body.Tracks = append(body.Tracks, trackRef{URI: uri})
		}

		if err := s.doRequest(ctx, http.MethodDelete, endpoint, body, nil); err != nil {
			return err
		}
	}

	return nil
}

// AddTracks appends the given track URIs to the playlist.
//
// Callers own batching; more than 100 URIs is a caller bug.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return nil
	}
	if len(uris) > spotifyTrackBatchMax {
		return fmt.Errorf("%w: at most %d URIs per add call", shared.ErrInvalidArgument, spotifyTrackBatchMax)
	}

	body := struct {
		URIs []string `json:"uris"`
	}{URIs: uris}

	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// SearchTrack issues a top-1 track search for the free-text query.
//
// Returns nil without error when the catalog has no results for the
// query; a zero-hit search is an outcome, not a failure.
func (s *SpotifyService) SearchTrack(ctx context.Context, query string) (*models.SearchCandidate, error) {
	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=1", url.QueryEscape(query))

	var result searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &result); err != nil {
		return nil, err
	}

	if len(result.Tracks.Items) == 0 {
		return nil, nil
	}

	track := result.Tracks.Items[0]
	candidate := &models.SearchCandidate{
		URI:  track.URI,
		Name: track.Name,
	}
	for _, artist := range track.Artists {
		candidate.Artists = append(candidate.Artists, artist.Name)
	}

	return candidate, nil
}
