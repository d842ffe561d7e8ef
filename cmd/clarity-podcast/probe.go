package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"clarity-podcast/internal/config"
	"clarity-podcast/internal/fsutil"
	"clarity-podcast/internal/metadata"
	"clarity-podcast/internal/models"
)

var probeHeaders = []string{"ID", "Audio", "Type", "Tag title", "Catalog size", "File size", "Catalog duration", "File duration", "Status"}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var write bool

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Compare catalog sizes, durations and titles with the audio files on disk",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx.logger)
			if err != nil {
				return err
			}
			publicDir, err := config.ResolvePublicDir()
			if err != nil {
				return fmt.Errorf("resolve public dir: %w", err)
			}

			var rows [][]string
			inspect := func(episodes []models.Episode) error {
				rows = make([][]string, 0, len(episodes))
				for i := range episodes {
					rows = append(rows, probeEpisode(ctx, publicDir, &episodes[i], write))
				}
				return nil
			}

			changed := 0
			if write {
				changed, err = store.Update(inspect)
				if err != nil {
					return err
				}
			} else {
				episodes, err := store.LoadStrict()
				if err != nil {
					return err
				}
				_ = inspect(episodes)
			}

			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable(probeHeaders, rows, 0, 4, 5))
			}
			if changed == 0 {
				fmt.Fprintln(out, "catalog unchanged")
				return nil
			}
			fmt.Fprintf(out, "updated %d episodes in %s\n", changed, store.Path())
			return nil
		},
	}

	cmd.Flags().BoolVar(&write, "write", false, "Write observed sizes and durations back to the catalog")
	return cmd
}

// probeEpisode returns the table row for ep. With write set, size and
// duration are copied from the file into ep; the tag title is only reported.
func probeEpisode(ctx *commandContext, publicDir string, ep *models.Episode, write bool) []string {
	row := []string{strconv.Itoa(ep.ID), ep.AudioURL, "", "", humanize.Bytes(uint64(max(ep.FileSize, 0))), "", ep.Duration, "", ""}
	status := &row[len(row)-1]

	path, ok := localAudioPath(publicDir, ep.AudioURL)
	if !ok {
		*status = "not local"
		return row
	}
	info, err := metadata.Probe(path)
	if err != nil {
		ctx.logger.Warn("unable to probe audio", "id", ep.ID, "path", path, "err", err)
		*status = "missing"
		return row
	}

	observed := metadata.FormatDuration(info.Duration)
	row[2] = info.MIMEType
	row[3] = info.Title
	row[5] = humanize.Bytes(uint64(info.SizeBytes))
	row[7] = observed

	var stale, differs []string
	if info.SizeBytes != ep.FileSize {
		stale = append(stale, "size")
	}
	if observed != "" && observed != ep.Duration {
		stale = append(stale, "duration")
	}
	if info.Title != "" && !strings.EqualFold(info.Title, strings.TrimSpace(ep.Title)) {
		differs = append(differs, "title")
	}

	var parts []string
	if len(stale) > 0 && write {
		ep.FileSize = info.SizeBytes
		if observed != "" {
			ep.Duration = observed
		}
		parts = append(parts, "updated")
	} else {
		differs = append(stale, differs...)
	}
	if len(differs) > 0 {
		parts = append(parts, "differs: "+strings.Join(differs, ", "))
	}
	if len(parts) == 0 {
		parts = append(parts, "ok")
	}
	if !info.IsMPEGAudio() {
		parts = append(parts, "not audio/mpeg")
	}
	*status = strings.Join(parts, "; ")
	return row
}

// localAudioPath maps an episode's site-relative audio URL onto the public
// directory. Absolute URLs and paths escaping the directory are rejected.
func localAudioPath(publicDir, audioURL string) (string, bool) {
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" || strings.Contains(audioURL, "://") {
		return "", false
	}
	path := filepath.Join(publicDir, filepath.FromSlash(strings.TrimPrefix(audioURL, "/")))
	if !fsutil.WithinRoot(publicDir, path) {
		return "", false
	}
	return path, true
}
