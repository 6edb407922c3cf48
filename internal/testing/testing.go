// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"testing"

	"github.com/desertthunder/chantify/internal/models"
)

// MockChannelSource is a test double for [services.ChannelSource].
// Function fields override individual operations; unset fields return
// empty success values.
type MockChannelSource struct {
	ResolveChannelFunc func(ctx context.Context, handle string) (*models.ChannelInfo, error)
	DownloadAvatarFunc func(ctx context.Context, handle, path string) (string, error)
	ChannelAudioFunc   func(ctx context.Context, handle string, limit int) ([]models.AudioRecord, error)
}

func (m *MockChannelSource) ResolveChannel(ctx context.Context, handle string) (*models.ChannelInfo, error) {
	if m.ResolveChannelFunc != nil {
		return m.ResolveChannelFunc(ctx, handle)
	}
	return &models.ChannelInfo{Username: handle}, nil
}

func (m *MockChannelSource) DownloadAvatar(ctx context.Context, handle, path string) (string, error) {
	if m.DownloadAvatarFunc != nil {
		return m.DownloadAvatarFunc(ctx, handle, path)
	}
	return path, nil
}

func (m *MockChannelSource) ChannelAudio(ctx context.Context, handle string, limit int) ([]models.AudioRecord, error) {
	if m.ChannelAudioFunc != nil {
		return m.ChannelAudioFunc(ctx, handle, limit)
	}
	return nil, nil
}

func (m *MockChannelSource) Name() string { return "mock-source" }

// MockMusicService is a test double for [services.MusicService].
type MockMusicService struct {
	CurrentUserIDFunc     func(ctx context.Context) (string, error)
	CreatePlaylistFunc    func(ctx context.Context, name, description string, public bool) (string, error)
	UploadCoverImageFunc  func(ctx context.Context, playlistID string, image []byte) error
	PlaylistTrackURIsFunc func(ctx context.Context, playlistID string) ([]string, error)
	RemoveTracksFunc      func(ctx context.Context, playlistID string, uris []string) error
	AddTracksFunc         func(ctx context.Context, playlistID string, uris []string) error
	SearchTrackFunc       func(ctx context.Context, query string) (*models.SearchCandidate, error)
}

func (m *MockMusicService) CurrentUserID(ctx context.Context) (string, error) {
	if m.CurrentUserIDFunc != nil {
		return m.CurrentUserIDFunc(ctx)
	}
	return "mock-user", nil
}

func (m *MockMusicService) CreatePlaylist(ctx context.Context, name, description string, public bool) (string, error) {
	if m.CreatePlaylistFunc != nil {
		return m.CreatePlaylistFunc(ctx, name, description, public)
	}
	return "mock-playlist", nil
}

func (m *MockMusicService) UploadCoverImage(ctx context.Context, playlistID string, image []byte) error {
	if m.UploadCoverImageFunc != nil {
		return m.UploadCoverImageFunc(ctx, playlistID, image)
	}
	return nil
}

func (m *MockMusicService) PlaylistTrackURIs(ctx context.Context, playlistID string) ([]string, error) {
	if m.PlaylistTrackURIsFunc != nil {
		return m.PlaylistTrackURIsFunc(ctx, playlistID)
	}
	return nil, nil
}

func (m *MockMusicService) RemoveTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.RemoveTracksFunc != nil {
		return m.RemoveTracksFunc(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockMusicService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if m.AddTracksFunc != nil {
		return m.AddTracksFunc(ctx, playlistID, uris)
	}
	return nil
}

func (m *MockMusicService) SearchTrack(ctx context.Context, query string) (*models.SearchCandidate, error) {
	if m.SearchTrackFunc != nil {
		return m.SearchTrackFunc(ctx, query)
	}
	return nil, nil
}

func (m *MockMusicService) Name() string { return "mock-music" }

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
