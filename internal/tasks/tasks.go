// package tasks implements the extract and sync stages.
//
// The core abstraction is ChannelEngine, which orchestrates channel
// scraping and playlist reconciliation. Operations emit progress updates
// via channels for non-blocking status reporting to the CLI layer.
package tasks

import (
	"time"

	"github.com/desertthunder/chantify/internal/services"
)

// Default tuning values, overridable via [SyncOpts].
const (
	// DefaultWorkers is the search pool size. Tried 20; Spotify's rate
	// limiter pushes retries past any throughput gain. 5 is the stable
	// point.
	DefaultWorkers = 5

	// DefaultBatchSize is Spotify's documented per-call cap for playlist
	// add calls.
	DefaultBatchSize = 100

	defaultBatchDelay   = time.Second
	defaultRetryBase    = time.Second
	maxSearchAttempts   = 3
	defaultSearchPerSec = 10.0
	defaultThreshold    = 0.6
)

// MatchCache persists resolved query → track URI matches across runs, so
// re-syncing a channel skips searches that already succeeded.
//
// Implemented by repositories.MatchRepository. Cache failures are
// swallowed by the engine; a broken cache degrades to fresh searches.
type MatchCache interface {
	// Lookup returns the cached URI, candidate string, and similarity for
	// a channel/query pair, or ok=false on a miss.
	Lookup(channel, query string) (uri, candidate string, similarity float64, ok bool)

	// Store records an accepted match.
	Store(channel, query, uri, candidate string, similarity float64) error
}

// ChannelEngine holds the two service clients and the optional match
// cache. Both stages hang off it.
type ChannelEngine struct {
	source services.ChannelSource
	music  services.MusicService
	cache  MatchCache
}

// NewChannelEngine creates a new ChannelEngine with the provided services.
// cache may be nil to disable match caching.
func NewChannelEngine(source services.ChannelSource, music services.MusicService, cache MatchCache) *ChannelEngine {
	return &ChannelEngine{
		source: source,
		music:  music,
		cache:  cache,
	}
}

// sendProgress sends a progress update through the channel without blocking.
// Uses select with default so progress reporting never stalls execution.
func (e *ChannelEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// SyncOpts tunes the sync stage. Zero values fall back to the defaults
// above.
type SyncOpts struct {
	Threshold    float64       // similarity acceptance gate
	Workers      int           // concurrent search workers
	BatchSize    int           // URIs per add call, capped at 100
	BatchDelay   time.Duration // pacing between sequential add calls
	RetryBase    time.Duration // base delay for search backoff (doubles per attempt)
	SearchPerSec float64       // search rate across all workers
}

func (o SyncOpts) withDefaults() SyncOpts {
	if o.Threshold <= 0 {
		o.Threshold = defaultThreshold
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.BatchSize <= 0 || o.BatchSize > DefaultBatchSize {
		o.BatchSize = DefaultBatchSize
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = defaultBatchDelay
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	if o.SearchPerSec <= 0 {
		o.SearchPerSec = defaultSearchPerSec
	}
	return o
}
