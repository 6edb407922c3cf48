package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/services"
	"github.com/desertthunder/chantify/internal/shared"
	mocks "github.com/desertthunder/chantify/internal/testing"
)

// memoryCache is an in-memory MatchCache for engine tests.
type memoryCache struct {
	mu      sync.Mutex
	entries map[string]models.MatchResult
	stores  int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[string]models.MatchResult{}}
}

func (c *memoryCache) Lookup(channel, query string) (string, string, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[channel+"|"+query]
	if !ok {
		return "", "", 0, false
	}
	return entry.URI, entry.Candidate, entry.Similarity, true
}

func (c *memoryCache) Store(channel, query, uri, candidate string, similarity float64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores++
	c.entries[channel+"|"+query] = models.MatchResult{URI: uri, Candidate: candidate, Similarity: similarity}
	return nil
}

// echoSearch returns a candidate whose display string equals the query,
// so similarity is always 1.0.
func echoSearch(ctx context.Context, query string) (*models.SearchCandidate, error) {
	parts := strings.SplitN(query, " - ", 2)
	candidate := &models.SearchCandidate{
		URI:  "spotify:track:" + strings.ReplaceAll(query, " ", ""),
		Name: parts[0],
	}
	if len(parts) == 2 {
		candidate.Artists = []string{parts[1]}
	}
	return candidate, nil
}

func fastOpts() SyncOpts {
	return SyncOpts{
		BatchDelay:   time.Millisecond,
		RetryBase:    time.Millisecond,
		SearchPerSec: 10000,
	}
}

func TestChannelEngine_CreatePlaylist(t *testing.T) {
	ctx := context.Background()
	info := models.ChannelInfo{Title: "Salvation Radio", Username: "songofsalvation"}

	t.Run("creates a public playlist with the channel description", func(t *testing.T) {
		var gotName, gotDesc string
		var gotPublic bool
		music := &mocks.MockMusicService{
			CreatePlaylistFunc: func(ctx context.Context, name, description string, public bool) (string, error) {
				gotName, gotDesc, gotPublic = name, description, public
				return "pl123", nil
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		id, err := engine.CreatePlaylist(ctx, nil, info)
		if err != nil {
			t.Fatalf("CreatePlaylist failed: %v", err)
		}
		if id != "pl123" {
			t.Errorf("Expected playlist ID pl123, got %s", id)
		}
		if gotName != "Salvation Radio (@songofsalvation)" {
			t.Errorf("Unexpected playlist name: %s", gotName)
		}
		if !strings.Contains(gotDesc, "t.me/songofsalvation") {
			t.Errorf("Expected description to embed the channel link, got %q", gotDesc)
		}
		if !strings.Contains(gotDesc, "Salvation Radio") {
			t.Errorf("Expected description to embed the channel title, got %q", gotDesc)
		}
		if !gotPublic {
			t.Error("Expected a public playlist")
		}
	})

	t.Run("uploads the avatar as cover art", func(t *testing.T) {
		avatar := filepath.Join(t.TempDir(), "image.jpg")
		if err := os.WriteFile(avatar, []byte("jpeg-bytes"), 0o644); err != nil {
			t.Fatalf("Failed to write avatar: %v", err)
		}

		var uploaded []byte
		music := &mocks.MockMusicService{
			UploadCoverImageFunc: func(ctx context.Context, playlistID string, image []byte) error {
				uploaded = image
				return nil
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		withAvatar := info
		withAvatar.AvatarPath = avatar
		if _, err := engine.CreatePlaylist(ctx, nil, withAvatar); err != nil {
			t.Fatalf("CreatePlaylist failed: %v", err)
		}
		if string(uploaded) != "jpeg-bytes" {
			t.Errorf("Expected avatar bytes to be uploaded, got %q", uploaded)
		}
	})

	t.Run("cover upload failure is non-fatal", func(t *testing.T) {
		avatar := filepath.Join(t.TempDir(), "image.jpg")
		if err := os.WriteFile(avatar, []byte("jpeg-bytes"), 0o644); err != nil {
			t.Fatalf("Failed to write avatar: %v", err)
		}

		music := &mocks.MockMusicService{
			UploadCoverImageFunc: func(ctx context.Context, playlistID string, image []byte) error {
				return errors.New("image too large")
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		withAvatar := info
		withAvatar.AvatarPath = avatar
		if _, err := engine.CreatePlaylist(ctx, nil, withAvatar); err != nil {
			t.Fatalf("Expected cover failure to be swallowed, got %v", err)
		}
	})

	t.Run("creation failure wraps ErrPlaylistCreate", func(t *testing.T) {
		music := &mocks.MockMusicService{
			CreatePlaylistFunc: func(ctx context.Context, name, description string, public bool) (string, error) {
				return "", errors.New("insufficient scope")
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		_, err := engine.CreatePlaylist(ctx, nil, info)
		if !errors.Is(err, shared.ErrPlaylistCreate) {
			t.Errorf("Expected ErrPlaylistCreate, got %v", err)
		}
	})
}

func TestChannelEngine_SyncTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("full replacement removes existing tracks before adding", func(t *testing.T) {
		var removed []string
		var added []string
		var mu sync.Mutex

		music := &mocks.MockMusicService{
			PlaylistTrackURIsFunc: func(ctx context.Context, playlistID string) ([]string, error) {
				return []string{"spotify:track:stale1", "spotify:track:stale2"}, nil
			},
			RemoveTracksFunc: func(ctx context.Context, playlistID string, uris []string) error {
				removed = append(removed, uris...)
				return nil
			},
			AddTracksFunc: func(ctx context.Context, playlistID string, uris []string) error {
				mu.Lock()
				defer mu.Unlock()
				added = append(added, uris...)
				return nil
			},
			SearchTrackFunc: echoSearch,
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{
			{Artist: "Radiohead", Title: "Karma Police", MessageID: 1},
			{Artist: "Portishead", Title: "Roads", MessageID: 2},
		}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if len(removed) != 2 {
			t.Errorf("Expected 2 removed URIs, got %d", len(removed))
		}
		if report.Removed != 2 {
			t.Errorf("Expected Removed=2, got %d", report.Removed)
		}
		if report.Attempted != 2 || report.Added != 2 {
			t.Errorf("Expected Attempted=2 Added=2, got %d/%d", report.Attempted, report.Added)
		}
		if len(added) != 2 {
			t.Errorf("Expected 2 added URIs, got %d", len(added))
		}
	})

	t.Run("records without both title and artist are excluded", func(t *testing.T) {
		var searches int32
		var mu sync.Mutex
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				mu.Lock()
				searches++
				mu.Unlock()
				return echoSearch(ctx, query)
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{
			{Artist: "Radiohead", Title: "Karma Police", MessageID: 1},
			{Artist: "", Title: "voice-note.ogg", MessageID: 2},
			{Artist: "Unknown", Title: "", MessageID: 3},
		}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if report.Attempted != 1 {
			t.Errorf("Expected Attempted=1, got %d", report.Attempted)
		}
		if searches != 1 {
			t.Errorf("Expected exactly 1 search, got %d", searches)
		}
	})

	t.Run("adds are chunked at 100 and sequential", func(t *testing.T) {
		var mu sync.Mutex
		var batchSizes []int
		music := &mocks.MockMusicService{
			AddTracksFunc: func(ctx context.Context, playlistID string, uris []string) error {
				mu.Lock()
				defer mu.Unlock()
				batchSizes = append(batchSizes, len(uris))
				return nil
			},
			SearchTrackFunc: echoSearch,
		}
		engine := NewChannelEngine(nil, music, nil)

		records := make([]models.AudioRecord, 250)
		for i := range records {
			records[i] = models.AudioRecord{
				Artist:    fmt.Sprintf("Artist %03d", i),
				Title:     fmt.Sprintf("Track %03d", i),
				MessageID: int64(i + 1),
			}
		}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if len(batchSizes) != 3 {
			t.Fatalf("Expected 3 add calls, got %d", len(batchSizes))
		}
		if batchSizes[0] != 100 || batchSizes[1] != 100 || batchSizes[2] != 50 {
			t.Errorf("Expected batches 100/100/50, got %v", batchSizes)
		}
		if report.Added != 250 {
			t.Errorf("Expected Added=250, got %d", report.Added)
		}
	})

	t.Run("rate limited searches are retried with backoff", func(t *testing.T) {
		var mu sync.Mutex
		calls := 0
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				mu.Lock()
				calls++
				n := calls
				mu.Unlock()
				if n <= 2 {
					return nil, &services.RateLimitError{RetryAfter: time.Millisecond}
				}
				return echoSearch(ctx, query)
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{{Artist: "Radiohead", Title: "Karma Police", MessageID: 1}}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if calls != 3 {
			t.Errorf("Expected 3 search attempts, got %d", calls)
		}
		if report.Added != 1 {
			t.Errorf("Expected the retried track to be added, got Added=%d", report.Added)
		}
	})

	t.Run("persistent rate limiting marks the track unmatched without aborting", func(t *testing.T) {
		var mu sync.Mutex
		perQuery := map[string]int{}
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				mu.Lock()
				perQuery[query]++
				mu.Unlock()
				if strings.HasPrefix(query, "Cursed") {
					return nil, &services.RateLimitError{RetryAfter: time.Millisecond}
				}
				return echoSearch(ctx, query)
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{
			{Artist: "Radiohead", Title: "Karma Police", MessageID: 1},
			{Artist: "Nobody", Title: "Cursed Song", MessageID: 2},
			{Artist: "Portishead", Title: "Roads", MessageID: 3},
		}
		opts := fastOpts()
		opts.Workers = 1
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, opts)
		if err != nil {
			t.Fatalf("Expected the sync to survive a failed query, got %v", err)
		}
		if report.Added != 2 {
			t.Errorf("Expected 2 added tracks, got %d", report.Added)
		}
		if got := perQuery["Cursed Song - Nobody"]; got != maxSearchAttempts {
			t.Errorf("Expected %d attempts for the rate limited query, got %d", maxSearchAttempts, got)
		}

		var failed *models.MatchResult
		for i := range report.Matches {
			if report.Matches[i].MessageID == 2 {
				failed = &report.Matches[i]
			}
		}
		if failed == nil || failed.Err == nil {
			t.Fatal("Expected the rate limited record to carry an error")
		}
		if !errors.Is(failed.Err, shared.ErrRateLimited) {
			t.Errorf("Expected ErrRateLimited, got %v", failed.Err)
		}
	})

	t.Run("zero search results are not retried", func(t *testing.T) {
		var mu sync.Mutex
		calls := 0
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return nil, nil
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{{Artist: "Obscure", Title: "Demo Tape", MessageID: 1}}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if calls != 1 {
			t.Errorf("Expected a single search, got %d", calls)
		}
		if report.Added != 0 {
			t.Errorf("Expected no adds, got %d", report.Added)
		}
		if len(report.Matches) != 1 || report.Matches[0].Accepted {
			t.Error("Expected a single unaccepted match result")
		}
	})

	t.Run("low similarity candidates are rejected", func(t *testing.T) {
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				return &models.SearchCandidate{
					URI:     "spotify:track:wrong",
					Name:    "Completely Unrelated",
					Artists: []string{"Someone Else"},
				}, nil
			},
		}
		cache := newMemoryCache()
		engine := NewChannelEngine(nil, music, cache)

		records := []models.AudioRecord{{Artist: "Radiohead", Title: "Karma Police", MessageID: 1}}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if report.Added != 0 {
			t.Errorf("Expected no adds below the threshold, got %d", report.Added)
		}
		if cache.stores != 0 {
			t.Errorf("Expected no cache store for a rejected match, got %d", cache.stores)
		}
		m := report.Matches[0]
		if m.Accepted || m.Candidate == "" || m.Similarity >= 0.6 {
			t.Errorf("Expected a recorded low confidence candidate, got %+v", m)
		}
	})

	t.Run("cache hits skip the search", func(t *testing.T) {
		cache := newMemoryCache()
		if err := cache.Store("songofsalvation", "Karma Police - Radiohead", "spotify:track:kp", "Karma Police - Radiohead", 1.0); err != nil {
			t.Fatalf("Failed to seed cache: %v", err)
		}

		var mu sync.Mutex
		calls := 0
		music := &mocks.MockMusicService{
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				mu.Lock()
				calls++
				mu.Unlock()
				return echoSearch(ctx, query)
			},
		}
		engine := NewChannelEngine(nil, music, cache)

		records := []models.AudioRecord{{Artist: "Radiohead", Title: "Karma Police", MessageID: 1}}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if calls != 0 {
			t.Errorf("Expected no searches on a cache hit, got %d", calls)
		}
		if report.Added != 1 {
			t.Errorf("Expected the cached match to be added, got Added=%d", report.Added)
		}
		if !report.Matches[0].FromCache {
			t.Error("Expected match to be flagged FromCache")
		}
	})

	t.Run("accepted matches are stored in the cache", func(t *testing.T) {
		cache := newMemoryCache()
		music := &mocks.MockMusicService{SearchTrackFunc: echoSearch}
		engine := NewChannelEngine(nil, music, cache)

		records := []models.AudioRecord{{Artist: "Portishead", Title: "Roads", MessageID: 1}}
		if _, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts()); err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if _, _, _, ok := cache.Lookup("songofsalvation", "Roads - Portishead"); !ok {
			t.Error("Expected the accepted match to be cached")
		}
	})

	t.Run("clear failure aborts the sync", func(t *testing.T) {
		music := &mocks.MockMusicService{
			PlaylistTrackURIsFunc: func(ctx context.Context, playlistID string) ([]string, error) {
				return []string{"spotify:track:stale"}, nil
			},
			RemoveTracksFunc: func(ctx context.Context, playlistID string, uris []string) error {
				return errors.New("server error")
			},
		}
		engine := NewChannelEngine(nil, music, nil)

		records := []models.AudioRecord{{Artist: "Radiohead", Title: "Karma Police", MessageID: 1}}
		if _, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts()); err == nil {
			t.Fatal("Expected an error when clearing fails")
		}
	})

	t.Run("end to end channel sync", func(t *testing.T) {
		var mu sync.Mutex
		var added []string
		music := &mocks.MockMusicService{
			PlaylistTrackURIsFunc: func(ctx context.Context, playlistID string) ([]string, error) {
				return []string{"spotify:track:old"}, nil
			},
			AddTracksFunc: func(ctx context.Context, playlistID string, uris []string) error {
				mu.Lock()
				defer mu.Unlock()
				added = append(added, uris...)
				return nil
			},
			SearchTrackFunc: func(ctx context.Context, query string) (*models.SearchCandidate, error) {
				switch query {
				case "Amazing Grace - Aretha Franklin":
					return &models.SearchCandidate{
						URI:     "spotify:track:ag",
						Name:    "Amazing Grace",
						Artists: []string{"Aretha Franklin"},
					}, nil
				case "How Great Thou Art - Carrie Underwood":
					return &models.SearchCandidate{
						URI:     "spotify:track:hgta",
						Name:    "How Great Thou Art (Live)",
						Artists: []string{"Carrie Underwood", "Vince Gill"},
					}, nil
				default:
					return nil, nil
				}
			},
		}
		engine := NewChannelEngine(nil, music, newMemoryCache())

		records := []models.AudioRecord{
			{Artist: "Aretha Franklin", Title: "Amazing Grace", MessageID: 1},
			{Artist: "Carrie Underwood", Title: "How Great Thou Art", MessageID: 2},
			{Artist: "", Title: "sermon-clip.mp3", MessageID: 3},
			{Artist: "Unknown Artist", Title: "Untraceable Hymn", MessageID: 4},
		}
		report, err := engine.SyncTracks(ctx, nil, "pl123", "songofsalvation", records, fastOpts())
		if err != nil {
			t.Fatalf("SyncTracks failed: %v", err)
		}
		if report.Removed != 1 {
			t.Errorf("Expected Removed=1, got %d", report.Removed)
		}
		if report.Attempted != 3 {
			t.Errorf("Expected Attempted=3, got %d", report.Attempted)
		}
		if report.Added != 2 {
			t.Errorf("Expected Added=2, got %d", report.Added)
		}
		mu.Lock()
		defer mu.Unlock()
		if len(added) != 2 {
			t.Errorf("Expected 2 URIs added, got %v", added)
		}
	})
}

func TestChunkURIs(t *testing.T) {
	t.Run("empty input yields no batches", func(t *testing.T) {
		if batches := chunkURIs(nil, 100); batches != nil {
			t.Errorf("Expected nil batches, got %v", batches)
		}
	})

	t.Run("exact multiple", func(t *testing.T) {
		uris := make([]string, 200)
		batches := chunkURIs(uris, 100)
		if len(batches) != 2 || len(batches[0]) != 100 || len(batches[1]) != 100 {
			t.Errorf("Expected 2 batches of 100, got %d batches", len(batches))
		}
	})

	t.Run("remainder batch", func(t *testing.T) {
		uris := make([]string, 101)
		batches := chunkURIs(uris, 100)
		if len(batches) != 2 || len(batches[1]) != 1 {
			t.Errorf("Expected trailing batch of 1, got %v sizes", len(batches))
		}
	})
}
