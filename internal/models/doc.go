// Package models defines the domain entities for the channel-to-playlist sync service.
//
// The central type is [ExtractionResult], the JSON document written by the
// extract stage and read by the sync stage. Its field names (`scraped_at`,
// `channel_info`, `total_files`, `audio_files`) are a file-format contract:
// external tooling inspects the document directly, so they never change.
//
// [SearchCandidate] and [MatchResult] are transient types used during
// reconciliation and are never persisted.
package models
