package tasks

import (
	"fmt"

	"github.com/desertthunder/chantify/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	ResolveChannel Phase = iota
	FetchAvatar
	ScanMessages
	WriteDocument
	CreatePlaylist
	ClearPlaylist
	SearchTracks
	AddBatch
)

func (p Phase) String() string {
	switch p {
	case ResolveChannel:
		return "resolve_channel"
	case FetchAvatar:
		return "fetch_avatar"
	case ScanMessages:
		return "scan_messages"
	case WriteDocument:
		return "write_document"
	case CreatePlaylist:
		return "create_playlist"
	case ClearPlaylist:
		return "clear_playlist"
	case SearchTracks:
		return "search_tracks"
	case AddBatch:
		return "add_batch"
	default:
		return ""
	}
}

func resolveChannelUpdate(handle string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveChannel,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Resolving channel @%s...", handle),
	}
}

func channelResolvedUpdate(info *models.ChannelInfo) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ResolveChannel,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Scanning channel: %s", info.Title),
		Data:    info,
	}
}

func fetchAvatarUpdate(ok bool, path string) ProgressUpdate {
	msg := "No avatar available for this channel"
	if ok {
		msg = fmt.Sprintf("Avatar saved to %s", path)
	}
	return ProgressUpdate{Phase: FetchAvatar, Step: 1, Total: 1, Message: msg}
}

func scanUpdate(found, limit int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ScanMessages,
		Step:    found,
		Total:   limit,
		Message: fmt.Sprintf("Found %d audio files (scanning up to %d messages)...", found, limit),
	}
}

func writeDocumentUpdate(path string, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   WriteDocument,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved %d records to %s", total, path),
	}
}

func createPlaylistUpdate(name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Creating playlist %q...", name),
	}
}

func clearPlaylistUpdate(removed int) ProgressUpdate {
	msg := "Playlist already empty"
	if removed > 0 {
		msg = fmt.Sprintf("Removed %d existing tracks", removed)
	}
	return ProgressUpdate{Phase: ClearPlaylist, Step: 1, Total: 1, Message: msg}
}

func matchUpdate(step, total int, m models.MatchResult) ProgressUpdate {
	var msg string
	switch {
	case m.Err != nil:
		msg = fmt.Sprintf("[%d/%d] search failed: %s", step, total, m.Source)
	case m.FromCache:
		msg = fmt.Sprintf("[%d/%d] cached: %s", step, total, m.Source)
	case m.Accepted:
		msg = fmt.Sprintf("[%d/%d] matched: %s (%.0f%%)", step, total, m.Source, m.Similarity*100)
	case m.Candidate == "":
		msg = fmt.Sprintf("[%d/%d] not found: %s", step, total, m.Source)
	default:
		msg = fmt.Sprintf("[%d/%d] low confidence: %s -> %s (%.0f%%)", step, total, m.Source, m.Candidate, m.Similarity*100)
	}
	return ProgressUpdate{Phase: SearchTracks, Step: step, Total: total, Message: msg, Data: m}
}

func addBatchUpdate(batch, batches, size int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddBatch,
		Step:    batch,
		Total:   batches,
		Message: fmt.Sprintf("Batch %d/%d: added %d tracks", batch, batches, size),
	}
}
