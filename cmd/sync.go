package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/chantify/internal/formatter"
	"github.com/desertthunder/chantify/internal/models"
	"github.com/desertthunder/chantify/internal/shared"
	"github.com/desertthunder/chantify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// SyncRun builds a Spotify playlist from a previously extracted document.
func (r *Runner) SyncRun(ctx context.Context, cmd *cli.Command) error {
	if r.music == nil {
		return fmt.Errorf("%w: Spotify service not initialized, run 'chantify auth login' first", shared.ErrServiceUnavailable)
	}

	input := cmd.String("input")
	if input == "" {
		// The run command writes the document to --output first.
		input = cmd.String("output")
	}
	if input == "" {
		input = r.config.Extractor.OutputPath
	}

	result, err := formatter.ReadDocument(input)
	if err != nil {
		return err
	}

	r.logger.Info("starting sync", "channel", result.ChannelInfo.Username, "records", result.TotalFiles)

	if !cmd.Bool("no-cache") {
		r.openCache()
	}

	playlistID := cmd.String("playlist")
	if playlistID == "" {
		playlistID, err = r.engine.CreatePlaylist(ctx, nil, result.ChannelInfo)
		if err != nil {
			return err
		}
		r.writePlain("Created playlist %q\n", result.ChannelInfo.PlaylistName())
	}

	report, err := r.syncDocument(ctx, playlistID, result, cmd)
	if err != nil {
		return err
	}

	r.printReport(report)
	return nil
}

// syncDocument runs the reconciliation with progress streamed to the
// terminal.
func (r *Runner) syncDocument(ctx context.Context, playlistID string, result *models.ExtractionResult, cmd *cli.Command) (*models.SyncReport, error) {
	progressCh := make(chan tasks.ProgressUpdate, 50)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	opts := tasks.SyncOpts{
		Threshold:  r.config.Sync.SimilarityThreshold,
		Workers:    r.config.Sync.Workers,
		BatchSize:  r.config.Sync.BatchSize,
		BatchDelay: time.Duration(r.config.Sync.BatchDelaySeconds) * time.Second,
	}
	if threshold := cmd.Float64("threshold"); threshold > 0 {
		opts.Threshold = threshold
	}
	if workers := cmd.Int("workers"); workers > 0 {
		opts.Workers = workers
	}

	report, err := r.engine.SyncTracks(ctx, progressCh, playlistID, result.ChannelInfo.Username, result.AudioFiles, opts)

	// The drain goroutine must finish before anyone else writes to
	// r.output.
	close(progressCh)
	<-drained

	return report, err
}

// printReport writes the post-sync summary.
func (r *Runner) printReport(report *models.SyncReport) {
	unmatched := 0
	cached := 0
	for _, m := range report.Matches {
		if !m.Accepted {
			unmatched++
		}
		if m.FromCache {
			cached++
		}
	}

	r.writePlain("\n")
	r.writePlainHeader("Sync Complete")
	r.writePlain("Searched: %d tracks\n", report.Attempted)
	r.writePlain("Added: %d tracks\n", report.Added)
	if cached > 0 {
		r.writePlain("From cache: %d tracks\n", cached)
	}
	if report.Removed > 0 {
		r.writePlain("Replaced: %d stale tracks\n", report.Removed)
	}

	if unmatched > 0 {
		r.writePlain("\nUnmatched (%d):\n", unmatched)
		for _, m := range report.Matches {
			if m.Accepted {
				continue
			}
			switch {
			case m.Err != nil:
				r.writePlain("  - %s (search failed)\n", m.Source)
			case m.Candidate == "":
				r.writePlain("  - %s (no results)\n", m.Source)
			default:
				r.writePlain("  - %s (best: %s, %.0f%%)\n", m.Source, m.Candidate, m.Similarity*100)
			}
		}
	}

	r.writePlain("\nPlaylist: %s\n", report.PlaylistURL())
}

// RunAll chains extraction and sync in one invocation.
func (r *Runner) RunAll(ctx context.Context, cmd *cli.Command) error {
	if err := r.ExtractRun(ctx, cmd); err != nil {
		return err
	}
	r.writePlain("\n")
	return r.SyncRun(ctx, cmd)
}

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "input",
			Aliases: []string{"i"},
			Usage:   "Path to the extraction document",
		},
		&cli.StringFlag{
			Name:  "playlist",
			Usage: "Sync into an existing playlist instead of creating one",
		},
		&cli.Float64Flag{
			Name:  "threshold",
			Usage: "Similarity acceptance threshold (0..1)",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent search workers",
		},
		&cli.BoolFlag{
			Name:  "no-cache",
			Usage: "Skip the local match cache",
		},
	}
}

// syncCommand reconciles a Spotify playlist from an extraction document.
func syncCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "sync",
		Usage:  "Build a Spotify playlist from an extraction document",
		Flags:  syncFlags(),
		Action: r.SyncRun,
	}
}

// runCommand chains extract and sync.
func runCommand(r *Runner) *cli.Command {
	flags := []cli.Flag{
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Path for the extraction document",
		},
		&cli.StringFlag{
			Name:  "avatar",
			Usage: "Path for the channel avatar image",
		},
		&cli.IntFlag{
			Name:  "limit",
			Usage: "Maximum number of messages to scan",
		},
		&cli.BoolFlag{
			Name:  "csv",
			Usage: "Also export the records as CSV",
		},
	}
	flags = append(flags, syncFlags()...)

	return &cli.Command{
		Name:      "run",
		Usage:     "Extract a channel and sync it to Spotify in one step",
		ArgsUsage: "<channel>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "channel", UsageText: "Channel handle, with or without @"},
		},
		Flags:  flags,
		Action: r.RunAll,
	}
}
