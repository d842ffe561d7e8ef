package pages

import (
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	mdparser "github.com/gomarkdown/markdown/parser"

	"clarity-podcast/internal/models"
)

// PrerenderResult summarises a Prerender run.
type PrerenderResult struct {
	Written []int
	Skipped []int
}

// Prerender writes a detail page for every episode into the episodes
// directory, rendering the episode content as Markdown show notes. Existing
// files are left alone unless overwrite is set, so hand-edited pages survive.
func (r *Renderer) Prerender(episodes []models.Episode, overwrite bool) (PrerenderResult, error) {
	var result PrerenderResult
	if r.cfg.EpisodesDir == "" {
		return result, errors.New("episodes directory not configured")
	}
	if err := os.MkdirAll(r.cfg.EpisodesDir, 0o755); err != nil {
		return result, err
	}

	for _, ep := range episodes {
		path, err := r.prerenderedPath(strconv.Itoa(ep.ID))
		if err != nil {
			return result, fmt.Errorf("episode %d: %w", ep.ID, err)
		}

		if !overwrite {
			if _, err := os.Stat(path); err == nil {
				result.Skipped = append(result.Skipped, ep.ID)
				continue
			} else if !errors.Is(err, fs.ErrNotExist) {
				return result, err
			}
		}

		body, err := r.renderEpisode(ep, template.HTML(MarkdownToHTML(ep.Content)))
		if err != nil {
			return result, fmt.Errorf("render episode %d: %w", ep.ID, err)
		}

		if err := os.WriteFile(path, body, 0o644); err != nil {
			return result, err
		}
		r.logger.Info("wrote episode page", "id", ep.ID, "path", filepath.Base(path))
		result.Written = append(result.Written, ep.ID)
	}

	return result, nil
}

// MarkdownToHTML renders show notes. Raw HTML in the source is dropped.
func MarkdownToHTML(md string) string {
	if md == "" {
		return ""
	}
	p := mdparser.NewWithExtensions(mdparser.CommonExtensions | mdparser.AutoHeadingIDs | mdparser.NoEmptyLineBeforeBlock)
	doc := p.Parse([]byte(md))
	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.HrefTargetBlank | html.SkipHTML,
	})
	return string(markdown.Render(doc, renderer))
}
