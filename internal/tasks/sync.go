package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/desertthunder/chantify/internal/matcher"
	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/services"
	"github.com/desertthunder/chantify/internal/shared"
	"golang.org/x/time/rate"
)

// CreatePlaylist creates the public playlist for the channel and uploads
// its avatar as cover art.
//
// Playlist creation failure is fatal; a missing or unreadable avatar is
// not, the sync just proceeds without cover art.
func (e *ChannelEngine) CreatePlaylist(ctx context.Context, progress chan<- ProgressUpdate, info models.ChannelInfo) (string, error) {
	if e.music == nil {
		return "", fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	name := info.PlaylistName()
	e.sendProgress(progress, createPlaylistUpdate(name))

	playlistID, err := e.music.CreatePlaylist(ctx, name, playlistDescription(info), true)
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrPlaylistCreate, err)
	}

	if info.AvatarPath != "" {
		if image, err := os.ReadFile(info.AvatarPath); err == nil {
			// Upload failures are swallowed: cover art is cosmetic.
			_ = e.music.UploadCoverImage(ctx, playlistID, image)
		}
	}

	return playlistID, nil
}

// playlistDescription renders the fixed description template embedding
// the channel handle and title.
func playlistDescription(info models.ChannelInfo) string {
	if info.Username == "" {
		return fmt.Sprintf("Automatically generated from audio tracks posted in %s.", info.Title)
	}
	return fmt.Sprintf("Automatically generated from audio tracks posted in t.me/%s (%s).", info.Username, info.Title)
}

// SyncTracks reconciles the playlist against the extracted records.
//
// The playlist is fully cleared first; membership is always derived by
// replacement, never by diffing against what is already there. Records
// missing a title or artist are skipped entirely. Searches run on a
// bounded worker pool whose per-worker results are merged by a single
// collecting goroutine, so no counters or slices are shared between
// workers. Accepted URIs are added in sequential batches of at most 100
// with a fixed pacing delay between calls.
//
// A single query failing permanently never aborts the batch; it is
// recorded as unmatched in the report.
func (e *ChannelEngine) SyncTracks(ctx context.Context, progress chan<- ProgressUpdate, playlistID, channel string, records []models.AudioRecord, opts SyncOpts) (*models.SyncReport, error) {
	if e.music == nil {
		return nil, fmt.Errorf("%w: Spotify service not initialized", shared.ErrServiceUnavailable)
	}

	opts = opts.withDefaults()
	report := &models.SyncReport{PlaylistID: playlistID}

	// Full-replacement semantics: clear before any search logically
	// issues an add.
	existing, err := e.music.PlaylistTrackURIs(ctx, playlistID)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlist tracks: %w", err)
	}
	if len(existing) > 0 {
		if err := e.music.RemoveTracks(ctx, playlistID, existing); err != nil {
			return nil, fmt.Errorf("failed to clear playlist: %w", err)
		}
	}
	report.Removed = len(existing)
	e.sendProgress(progress, clearPlaylistUpdate(len(existing)))

	var queryable []models.AudioRecord
	for _, rec := range records {
		if rec.Queryable() {
			queryable = append(queryable, rec)
		}
	}
	report.Attempted = len(queryable)

	if len(queryable) == 0 {
		return report, nil
	}

	limiter := rate.NewLimiter(rate.Limit(opts.SearchPerSec), 1)
	jobs := make(chan models.AudioRecord, len(queryable))
	results := make(chan models.MatchResult, len(queryable))

	var wg sync.WaitGroup
	for i := 0; i < opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					results <- models.MatchResult{MessageID: rec.MessageID, Source: rec.Query(), Err: err}
					continue
				}
				results <- e.matchOne(ctx, channel, rec, opts)
			}
		}()
	}

	for _, rec := range queryable {
		jobs <- rec
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	// Single collector: merges worker outcomes without shared state.
	var accepted []string
	step := 0
	for res := range results {
		step++
		e.sendProgress(progress, matchUpdate(step, len(queryable), res))
		report.Matches = append(report.Matches, res)
		if res.Accepted {
			accepted = append(accepted, res.URI)
		}
	}

	batches := chunkURIs(accepted, opts.BatchSize)
	for i, batch := range batches {
		if i > 0 {
			select {
			case <-ctx.Done():
				return report, ctx.Err()
			case <-time.After(opts.BatchDelay):
			}
		}

		if err := e.music.AddTracks(ctx, playlistID, batch); err != nil {
			return report, fmt.Errorf("failed to add batch %d/%d: %w", i+1, len(batches), err)
		}

		report.Added += len(batch)
		e.sendProgress(progress, addBatchUpdate(i+1, len(batches), len(batch)))
	}

	return report, nil
}

// matchOne resolves a single record: cache lookup, top-1 search with
// bounded retry, similarity gate.
func (e *ChannelEngine) matchOne(ctx context.Context, channel string, rec models.AudioRecord, opts SyncOpts) models.MatchResult {
	query := rec.Query()
	res := models.MatchResult{MessageID: rec.MessageID, Source: query}

	if e.cache != nil {
		if uri, candidate, similarity, ok := e.cache.Lookup(channel, query); ok {
			res.URI = uri
			res.Candidate = candidate
			res.Similarity = similarity
			res.Accepted = true
			res.FromCache = true
			return res
		}
	}

	candidate, err := e.searchWithRetry(ctx, query, opts)
	if err != nil {
		res.Err = err
		return res
	}
	if candidate == nil {
		// Zero results is a recorded outcome, never retried.
		return res
	}

	res.Candidate = candidate.Display()
	res.Similarity = matcher.Ratio(query, res.Candidate)
	if res.Similarity >= opts.Threshold {
		res.Accepted = true
		res.URI = candidate.URI
		if e.cache != nil {
			// Cache errors degrade to a fresh search next run.
			_ = e.cache.Store(channel, query, candidate.URI, res.Candidate, res.Similarity)
		}
	}

	return res
}

// searchWithRetry performs the top-1 search, retrying only rate-limit
// errors with exponential backoff (base × 2^attempt) up to the attempt
// ceiling. Any other error fails immediately.
func (e *ChannelEngine) searchWithRetry(ctx context.Context, query string, opts SyncOpts) (*models.SearchCandidate, error) {
	for attempt := 0; attempt < maxSearchAttempts; attempt++ {
		candidate, err := e.music.SearchTrack(ctx, query)
		if err == nil {
			return candidate, nil
		}

		var rl *services.RateLimitError
		if !errors.As(err, &rl) {
			return nil, err
		}

		delay := opts.RetryBase * (1 << attempt)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	return nil, fmt.Errorf("%w: search abandoned after %d attempts", shared.ErrRateLimited, maxSearchAttempts)
}

// chunkURIs partitions uris into batches of at most size elements.
func chunkURIs(uris []string, size int) [][]string {
	var batches [][]string
	for start := 0; start < len(uris); start += size {
		end := min(start+size, len(uris))
		batches = append(batches, uris[start:end])
	}
	return batches
}
