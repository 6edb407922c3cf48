// package models defines the data model shared between the extraction and sync stages
package models

import (
	"strings"
	"time"
)

// DocumentTimeLayout is the timestamp format used inside the intermediate
// document.
const DocumentTimeLayout = "2006-01-02 15:04:05"

// AudioRecord is the metadata extracted from a single audio message.
//
// Identity is MessageID, assigned by Telegram and unique within a channel.
// Records are created during extraction and never mutated afterwards.
type AudioRecord struct {
	Artist      string  `json:"artist"`
	Title       string  `json:"title"`
	FileName    string  `json:"file_name"`
	DurationSec int     `json:"duration_seconds"`
	FileSizeMB  float64 `json:"file_size_mb"`
	MimeType    string  `json:"mime_type"`
	MessageID   int64   `json:"message_id"`
	Date        string  `json:"date"`
	Caption     string  `json:"caption"`
}

// Queryable reports whether the record carries enough metadata to be
// searched on Spotify. Records with only a filename are logged during
// extraction but never queried.
func (r AudioRecord) Queryable() bool {
	return r.Title != "" && r.Artist != ""
}

// Query returns the free-text search string for the record.
func (r AudioRecord) Query() string {
	return r.Title + " - " + r.Artist
}

// ChannelInfo describes the scraped Telegram channel, captured once per
// extraction run.
type ChannelInfo struct {
	Title       string `json:"title"`
	Username    string `json:"username"`
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Subscribers int    `json:"subscribers,omitempty"`
	AvatarPath  string `json:"avatar_path,omitempty"`
}

// PlaylistName derives the human-readable Spotify playlist name for the
// channel, preferring "Title (@username)" and degrading when one part is
// missing.
func (c ChannelInfo) PlaylistName() string {
	switch {
	case c.Title != "" && c.Username != "":
		return c.Title + " (@" + c.Username + ")"
	case c.Title != "":
		return c.Title
	default:
		return "@" + c.Username
	}
}

// ExtractionResult is the document handed from the extract stage to the
// sync stage. It is persisted as JSON and is the sole contract between
// the two stages; field names are load-bearing.
type ExtractionResult struct {
	ScrapedAt   string        `json:"scraped_at"`
	ChannelInfo ChannelInfo   `json:"channel_info"`
	TotalFiles  int           `json:"total_files"`
	AudioFiles  []AudioRecord `json:"audio_files"`
}

// NewExtractionResult bundles channel info and records into a document,
// stamping the scrape time.
func NewExtractionResult(info ChannelInfo, records []AudioRecord, at time.Time) *ExtractionResult {
	return &ExtractionResult{
		ScrapedAt:   at.Format(DocumentTimeLayout),
		ChannelInfo: info,
		TotalFiles:  len(records),
		AudioFiles:  records,
	}
}

// QueryableRecords returns the records eligible for Spotify matching, in
// document order.
func (e *ExtractionResult) QueryableRecords() []AudioRecord {
	var out []AudioRecord
	for _, r := range e.AudioFiles {
		if r.Queryable() {
			out = append(out, r)
		}
	}
	return out
}

// SearchCandidate is a single ranked result from the Spotify track
// search. Candidates are ephemeral and never persisted.
type SearchCandidate struct {
	URI     string
	Name    string
	Artists []string
}

// Display renders the candidate in the same "{name} - {artists}" shape as
// [AudioRecord.Query], so the two strings score against each other.
func (c SearchCandidate) Display() string {
	return c.Name + " - " + strings.Join(c.Artists, ", ")
}

// MatchResult records the outcome of matching one query string against
// its best search candidate. Used for acceptance decisions and reporting
// only.
type MatchResult struct {
	MessageID  int64
	Source     string  // "{title} - {artist}" built from the record
	Candidate  string  // "{name} - {artists}" built from the search result, empty if none
	URI        string  // accepted track URI, empty unless Accepted
	Similarity float64 // ratio in [0,1]
	Accepted   bool
	FromCache  bool
	Err        error
}

// CachedMatch is a persisted match cache entry, surfaced by the cache
// inspection commands.
type CachedMatch struct {
	Channel    string    `json:"channel"`
	Query      string    `json:"query"`
	URI        string    `json:"uri"`
	Candidate  string    `json:"candidate"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// SyncReport summarizes a full playlist sync for caller-visible
// reporting.
type SyncReport struct {
	PlaylistID string
	Attempted  int
	Added      int
	Removed    int
	Matches    []MatchResult
}

// PlaylistURL returns the public URL of the synced playlist.
func (s *SyncReport) PlaylistURL() string {
	return "https://open.spotify.com/playlist/" + s.PlaylistID
}
