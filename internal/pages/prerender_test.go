package pages

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrerenderWritesPagesServedVerbatim(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "episodes")
	r := newTestRenderer(t, dir)

	episodes := sampleEpisodes()
	episodes[1].Content = "## Links\n\n* [Building Web Reputation Systems](https://buildingreputation.com)\n"

	result, err := r.Prerender(episodes, false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 12}, result.Written)
	assert.Empty(t, result.Skipped)

	raw, err := os.ReadFile(filepath.Join(dir, "12.html"))
	require.NoError(t, err)
	body := string(raw)
	assert.Contains(t, body, `<h2 id="links">Links</h2>`)
	assert.Contains(t, body, `href="https://buildingreputation.com"`)
	assert.Contains(t, body, `target="_blank"`)
	assert.NotContains(t, body, "<em>## Links")

	page := r.RenderEpisode("12", loaderFor(nil, nil))
	assert.Equal(t, SourceStatic, page.Source)
	assert.Equal(t, body, string(page.Body))
}

func TestPrerenderKeepsExistingUnlessOverwrite(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "1.html"), []byte("hand edited"), 0o644))
	r := newTestRenderer(t, dir)

	result, err := r.Prerender(sampleEpisodes(), false)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, result.Skipped)
	assert.Equal(t, []int{12}, result.Written)

	raw, err := os.ReadFile(filepath.Join(dir, "1.html"))
	require.NoError(t, err)
	assert.Equal(t, "hand edited", string(raw))

	result, err = r.Prerender(sampleEpisodes(), true)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 12}, result.Written)

	raw, err = os.ReadFile(filepath.Join(dir, "1.html"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "<h1>Intro</h1>")
}

func TestPrerenderRequiresDirectory(t *testing.T) {
	_, err := newTestRenderer(t, "").Prerender(sampleEpisodes(), false)
	assert.Error(t, err)
}

func TestMarkdownToHTMLDropsRawHTML(t *testing.T) {
	out := MarkdownToHTML("Hello *world*\n\n<script>alert(1)</script>\n")
	assert.Contains(t, out, "<em>world</em>")
	assert.False(t, strings.Contains(out, "<script>"), "raw html should be skipped: %s", out)
	assert.Equal(t, "", MarkdownToHTML(""))
}
