package server

import (
	"errors"
	"net/http"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"clarity-podcast/internal/fsutil"
	"clarity-podcast/internal/pages"
)

type siteHandler struct {
	store     EpisodeLoader
	pages     PageRenderer
	publicDir string
	logger    *log.Logger
}

// NewSiteHandler creates the handler for the website process: the episode
// index, per-episode pages and static assets from publicDir. An empty
// publicDir disables static serving.
func NewSiteHandler(store EpisodeLoader, renderer PageRenderer, publicDir string, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	if publicDir != "" {
		if abs, err := filepath.Abs(publicDir); err == nil {
			publicDir = abs
		}
	}

	h := &siteHandler{
		store:     store,
		pages:     renderer,
		publicDir: publicDir,
		logger:    logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(readMethods...)
	router.HandleFunc("/", h.handleIndex).Methods(readMethods...)
	router.HandleFunc("/post/{id}", h.handleEpisode).Methods(readMethods...)
	if publicDir != "" {
		router.PathPrefix("/").HandlerFunc(h.handleStatic).Methods(readMethods...)
	}

	return logRequests(router, logger)
}

func (h *siteHandler) handleIndex(w http.ResponseWriter, r *http.Request) {
	data, err := h.pages.RenderIndex(h.store.Load())
	if err != nil {
		h.logger.Error("error rendering episode index", "err", err)
		writeText(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Error loading episodes"))
		return
	}
	writeText(w, http.StatusOK, "text/html; charset=utf-8", data)
}

func (h *siteHandler) handleEpisode(w http.ResponseWriter, r *http.Request) {
	page := h.pages.RenderEpisode(mux.Vars(r)["id"], h.store.Load)
	if page.Status == pages.NotFound {
		writeText(w, http.StatusNotFound, "text/html; charset=utf-8", page.Body)
		return
	}
	writeText(w, http.StatusOK, "text/html; charset=utf-8", page.Body)
}

func (h *siteHandler) handleStatic(w http.ResponseWriter, r *http.Request) {
	rel := pathpkg.Clean("/" + r.URL.Path)
	rel = strings.TrimPrefix(rel, "/")
	if rel == "" || rel == "." {
		http.NotFound(w, r)
		return
	}

	target := filepath.Join(h.publicDir, filepath.FromSlash(rel))
	resolved, err := filepath.Abs(target)
	if err != nil {
		h.logger.Error("failed to resolve static path", "path", target, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !fsutil.WithinRoot(h.publicDir, resolved) {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to stat static file", "path", resolved, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if info.IsDir() {
		index := filepath.Join(resolved, "index.html")
		if fi, err := os.Stat(index); err == nil && !fi.IsDir() {
			http.ServeFile(w, r, index)
			return
		}
		http.NotFound(w, r)
		return
	}

	http.ServeFile(w, r, resolved)
}
