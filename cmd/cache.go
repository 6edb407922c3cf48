package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"
)

// CacheList prints cached matches, optionally scoped to one channel.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	repo := r.openCache()
	if repo == nil {
		return fmt.Errorf("match cache unavailable")
	}

	channel := cmd.String("channel")
	matches, err := repo.List(channel)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(matches, cmd.Bool("pretty"))
	}

	if len(matches) == 0 {
		r.writePlain("Match cache is empty.\n")
		return nil
	}

	r.writePlain("Cached matches: %d\n\n", len(matches))
	for i, m := range matches {
		r.writePlain("%d. [%s] %s\n", i+1, m.Channel, m.Query)
		r.writePlain("   → %s (%.0f%%)\n", m.Candidate, m.Similarity*100)
		r.writePlain("   %s\n", m.URI)
	}

	return nil
}

// CacheClear deletes cached matches for a channel or the whole cache.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo := r.openCache()
	if repo == nil {
		return fmt.Errorf("match cache unavailable")
	}

	channel := cmd.String("channel")
	if channel == "" && !cmd.Bool("all") {
		return fmt.Errorf("pass --channel to clear one channel or --all to wipe the cache")
	}

	deleted, err := repo.Clear(channel)
	if err != nil {
		return err
	}

	r.logger.Info("cleared match cache", "channel", channel, "deleted", deleted)
	r.writePlain("✓ Removed %d cached matches\n", deleted)
	return nil
}

// cacheCommand inspects and prunes the local match cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the local match cache",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List cached matches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "channel",
						Usage: "Only show matches for this channel",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output as JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Indent JSON output",
					},
				},
				Action: r.CacheList,
			},
			{
				Name:  "clear",
				Usage: "Delete cached matches",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "channel",
						Usage: "Clear matches for this channel only",
					},
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Clear the entire cache",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}
