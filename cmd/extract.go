package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/chantify/internal/formatter"
	"github.com/desertthunder/chantify/internal/shared"
	"github.com/desertthunder/chantify/internal/tasks"
	"github.com/urfave/cli/v3"
)

// ExtractRun scrapes a channel's audio metadata into the local document.
func (r *Runner) ExtractRun(ctx context.Context, cmd *cli.Command) error {
	handle := strings.TrimPrefix(cmd.StringArg("channel"), "@")
	if handle == "" {
		return fmt.Errorf("%w: channel handle", shared.ErrMissingArgument)
	}

	output := cmd.String("output")
	if output == "" {
		output = r.config.Extractor.OutputPath
	}
	avatar := cmd.String("avatar")
	if avatar == "" {
		avatar = r.config.Extractor.AvatarPath
	}
	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Extractor.MessageLimit
	}

	r.logger.Info("starting extraction", "channel", handle, "limit", limit)

	progressCh := make(chan tasks.ProgressUpdate, 50)
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for update := range progressCh {
			r.writePlain("%s\n", update.Message)
		}
	}()

	result, err := r.engine.Extract(ctx, progressCh, handle, tasks.ExtractOpts{
		MessageLimit: limit,
		AvatarPath:   avatar,
	})

	// The drain goroutine must finish before anyone else writes to
	// r.output.
	close(progressCh)
	<-drained

	if err != nil {
		return err
	}

	if err := formatter.WriteDocument(result, output); err != nil {
		return err
	}

	queryable := len(result.QueryableRecords())

	r.writePlain("\n")
	r.writePlainHeader("Extraction Complete")
	r.writePlain("Channel: %s (@%s)\n", result.ChannelInfo.Title, result.ChannelInfo.Username)
	r.writePlain("Audio files: %d\n", result.TotalFiles)
	r.writePlain("Searchable (title + artist): %d\n", queryable)
	if skipped := result.TotalFiles - queryable; skipped > 0 {
		r.writePlain("Filename only (skipped during sync): %d\n", skipped)
	}
	r.writePlain("Document: %s\n", output)

	if cmd.Bool("csv") {
		path, err := formatter.WriteCSVExport(result, strings.TrimSuffix(output, ".json"))
		if err != nil {
			return err
		}
		r.writePlain("CSV export: %s\n", path)
	}

	return nil
}

// extractCommand scrapes audio metadata from a Telegram channel.
func extractCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "extract",
		Usage:     "Scrape audio metadata from a Telegram channel",
		ArgsUsage: "<channel>",
		Arguments: []cli.Argument{
			&cli.StringArg{Name: "channel", UsageText: "Channel handle, with or without @"},
		},
		Flags: []cli.Flag{
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
		},
		Action: r.ExtractRun,
	}
}
