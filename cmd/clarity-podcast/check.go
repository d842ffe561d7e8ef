package main

import (
	"fmt"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/mmcdole/gofeed"
	"github.com/spf13/cobra"

	"clarity-podcast/internal/catalog"
	"clarity-podcast/internal/config"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate the catalog and the feed generated from it",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx.logger)
			if err != nil {
				return err
			}
			episodes, bad, err := store.Check()
			if err != nil {
				return err
			}
			if len(bad) > 0 {
				for _, recErr := range bad {
					fmt.Fprintf(cmd.ErrOrStderr(), "catalog %s: %v\n", store.Path(), recErr)
				}
				return fmt.Errorf("catalog %s: %d unreadable records", store.Path(), len(bad))
			}
			if id, dup := catalog.FirstDuplicateID(episodes); dup {
				return fmt.Errorf("catalog %s: duplicate episode id %d", store.Path(), id)
			}

			renderer, err := newFeedRenderer(ctx.logger)
			if err != nil {
				return err
			}
			data, err := renderer.Render(episodes, "http", config.FeedListenAddr())
			if err != nil {
				return fmt.Errorf("render feed: %w", err)
			}

			parsed, err := gofeed.NewParser().ParseString(string(data))
			if err != nil {
				return fmt.Errorf("parse generated feed: %w", err)
			}
			if len(parsed.Items) != len(episodes) {
				return fmt.Errorf("generated feed has %d items for %d episodes", len(parsed.Items), len(episodes))
			}

			undated := 0
			rows := make([][]string, 0, len(episodes))
			for i, ep := range episodes {
				item := parsed.Items[i]
				published := "-"
				if item.PublishedParsed != nil {
					published = item.PublishedParsed.Format("2006-01-02")
				} else {
					undated++
				}
				enclosure := "-"
				if len(item.Enclosures) > 0 {
					enclosure = item.Enclosures[0].URL
				}
				rows = append(rows, []string{
					strconv.Itoa(ep.ID),
					ep.Title,
					published,
					ep.Duration,
					humanize.Bytes(uint64(max(ep.FileSize, 0))),
					enclosure,
				})
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"ID", "Title", "Published", "Duration", "Size", "Enclosure"}, rows, 0, 4))
			}
			fmt.Fprintf(out, "%d episodes, feed %s OK\n", len(episodes), humanize.Bytes(uint64(len(data))))
			if undated > 0 {
				fmt.Fprintf(out, "%d episodes have no usable pubDate\n", undated)
			}
			return nil
		},
	}
}
