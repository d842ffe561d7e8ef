package pages

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"clarity-podcast/internal/catalog"
	"clarity-podcast/internal/fsutil"
	"clarity-podcast/internal/models"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// NotFoundBody is sent for every episode page that cannot be resolved.
var NotFoundBody = []byte("<h1>Episode not found</h1>")

// ErrInvalidID is returned for ids that cannot name a pre-rendered page.
var ErrInvalidID = errors.New("invalid episode id")

// PrerenderedError reports a pre-rendered page that exists but could not be
// read. Callers fall back to the catalog exactly as if the file were missing.
type PrerenderedError struct {
	Path string
	Err  error
}

func (e *PrerenderedError) Error() string {
	return fmt.Sprintf("read pre-rendered page %s: %v", e.Path, e.Err)
}

func (e *PrerenderedError) Unwrap() error {
	return e.Err
}

// Status is the externally visible outcome of an episode page lookup.
type Status int

const (
	NotFound Status = iota
	Found
)

// Source tells where a found page came from.
type Source int

const (
	SourceNone Source = iota
	SourceStatic
	SourceSynthesized
)

func (s Source) String() string {
	switch s {
	case SourceStatic:
		return "static"
	case SourceSynthesized:
		return "synthesized"
	default:
		return "none"
	}
}

// Page is a resolved episode page.
type Page struct {
	Status Status
	Source Source
	Body   []byte
}

// Config describes the fixed parts of the pages.
type Config struct {
	EpisodesDir string
	Title       string
	ShortTitle  string
	Tagline     string
	HostedBy    string
	FeedPath    string
}

// Renderer builds the index and episode pages.
type Renderer struct {
	cfg       Config
	logger    *log.Logger
	templates *template.Template
}

type indexData struct {
	Site     Config
	Episodes []models.Episode
}

type episodeData struct {
	Site    Config
	Episode models.Episode
	Notes   template.HTML
}

// New parses the embedded templates.
func New(cfg Config, logger *log.Logger) (*Renderer, error) {
	if logger == nil {
		logger = log.Default()
	}
	if cfg.FeedPath == "" {
		cfg.FeedPath = "/feed.xml"
	}

	tmpl, err := template.ParseFS(templateFS, "templates/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page templates: %w", err)
	}

	return &Renderer{
		cfg:       cfg,
		logger:    logger,
		templates: tmpl,
	}, nil
}

// RenderIndex renders the episode listing, one card per episode in catalog order.
func (r *Renderer) RenderIndex(episodes []models.Episode) ([]byte, error) {
	return r.execute("index.html.tmpl", indexData{Site: r.cfg, Episodes: episodes})
}

// RenderEpisode resolves the page for id. A pre-rendered file wins and is
// returned byte for byte; otherwise the episode is looked up in the catalog,
// which load is only called for, and a basic page is synthesized. Everything
// else, including template failures, ends as NotFound.
func (r *Renderer) RenderEpisode(id string, load func() []models.Episode) Page {
	body, err := r.readPrerendered(id)
	if err == nil {
		return Page{Status: Found, Source: SourceStatic, Body: body}
	}

	var readErr *PrerenderedError
	if errors.As(err, &readErr) {
		r.logger.Warn("pre-rendered page unreadable; falling back to catalog", "id", id, "err", err)
	}

	n, ok := catalog.ParseID(id)
	if !ok {
		return notFound()
	}

	ep, ok := catalog.Find(load(), n)
	if !ok {
		return notFound()
	}

	body, err = r.renderEpisode(ep, "")
	if err != nil {
		r.logger.Error("failed to render episode page", "id", id, "err", err)
		return notFound()
	}
	return Page{Status: Found, Source: SourceSynthesized, Body: body}
}

func (r *Renderer) renderEpisode(ep models.Episode, notes template.HTML) ([]byte, error) {
	return r.execute("episode.html.tmpl", episodeData{Site: r.cfg, Episode: ep, Notes: notes})
}

func (r *Renderer) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (r *Renderer) readPrerendered(id string) ([]byte, error) {
	path, err := r.prerenderedPath(id)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		return nil, &PrerenderedError{Path: path, Err: err}
	}
	return data, nil
}

func (r *Renderer) prerenderedPath(id string) (string, error) {
	if r.cfg.EpisodesDir == "" {
		return "", fs.ErrNotExist
	}
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || strings.ContainsRune(id, 0) {
		return "", ErrInvalidID
	}

	root := filepath.Clean(r.cfg.EpisodesDir)
	path := filepath.Join(root, id+".html")
	if !fsutil.WithinRoot(root, path) {
		return "", ErrInvalidID
	}
	return path, nil
}

func notFound() Page {
	return Page{Status: NotFound, Source: SourceNone, Body: NotFoundBody}
}
