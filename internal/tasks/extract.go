package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
)

// ExtractOpts configures a single extraction run.
type ExtractOpts struct {
	MessageLimit int    // messages to scan, most recent first
	AvatarPath   string // local path for the channel avatar
}

// Extract scrapes audio metadata from the channel's message history.
//
// The channel handle is resolved first (retrying out flood waits inside
// the source client), then the avatar is fetched, then audio message
// metadata is collected in ascending message-ID order. Avatar failures
// are non-fatal and leave AvatarPath empty in the returned ChannelInfo.
//
// The caller persists the result; Extract only produces the structure.
func (e *ChannelEngine) Extract(ctx context.Context, progress chan<- ProgressUpdate, handle string, opts ExtractOpts) (*models.ExtractionResult, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: Telegram service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.MessageLimit <= 0 {
		opts.MessageLimit = 10000
	}

	e.sendProgress(progress, resolveChannelUpdate(handle))

	info, err := e.source.ResolveChannel(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve channel @%s: %w", handle, err)
	}

	e.sendProgress(progress, channelResolvedUpdate(info))

	if opts.AvatarPath != "" {
		path, err := e.source.DownloadAvatar(ctx, handle, opts.AvatarPath)
		if err == nil {
			info.AvatarPath = path
		}
		e.sendProgress(progress, fetchAvatarUpdate(err == nil, path))
	}

	records, err := e.source.ChannelAudio(ctx, handle, opts.MessageLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to scan channel audio: %w", err)
	}

	e.sendProgress(progress, scanUpdate(len(records), opts.MessageLimit))

	return models.NewExtractionResult(*info, records, time.Now()), nil
}
