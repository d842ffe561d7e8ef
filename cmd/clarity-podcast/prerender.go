package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPrerenderCommand(ctx *commandContext) *cobra.Command {
	var overwrite bool

	cmd := &cobra.Command{
		Use:   "prerender",
		Short: "Write episode pages from the catalog's Markdown show notes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx.logger)
			if err != nil {
				return err
			}
			episodes, err := store.LoadStrict()
			if err != nil {
				return err
			}
			renderer, _, err := newPageRenderer(ctx.logger)
			if err != nil {
				return err
			}

			result, err := renderer.Prerender(episodes, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d pages, kept %d existing\n", len(result.Written), len(result.Skipped))
			return nil
		},
	}

	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace pages that already exist")
	return cmd
}
