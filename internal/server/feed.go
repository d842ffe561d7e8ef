package server

import (
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"

	"clarity-podcast/internal/catalog"
)

type feedHandler struct {
	store    EpisodeLoader
	renderer FeedRenderer
	logger   *log.Logger
}

// NewFeedHandler creates the handler for the feed process: the RSS document
// and the read-only JSON API over the catalog.
func NewFeedHandler(store EpisodeLoader, renderer FeedRenderer, logger *log.Logger) http.Handler {
	if logger == nil {
		logger = log.Default()
	}

	h := &feedHandler{
		store:    store,
		renderer: renderer,
		logger:   logger,
	}

	router := mux.NewRouter()
	router.HandleFunc("/health", handleHealth).Methods(readMethods...)
	router.HandleFunc("/feed.xml", h.handleFeed).Methods(readMethods...)
	router.HandleFunc("/api/posts", h.handlePosts).Methods(readMethods...)
	router.HandleFunc("/api/posts/{id}", h.handlePost).Methods(readMethods...)

	return logRequests(allowCORS(router), logger)
}

func (h *feedHandler) handleFeed(w http.ResponseWriter, r *http.Request) {
	base := requestBaseURL(r)
	if base == nil {
		h.logger.Error("unable to determine request base URL")
		writeText(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Error generating RSS feed"))
		return
	}

	data, err := h.renderer.Render(h.store.Load(), base.Scheme, base.Host)
	if err != nil {
		h.logger.Error("error generating RSS feed", "err", err)
		writeText(w, http.StatusInternalServerError, "text/plain; charset=utf-8", []byte("Error generating RSS feed"))
		return
	}

	writeText(w, http.StatusOK, "application/rss+xml; charset=utf-8", data)
}

func (h *feedHandler) handlePosts(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, h.store.Load()); err != nil {
		h.logger.Error("failed to encode posts", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "Error loading posts")
	}
}

func (h *feedHandler) handlePost(w http.ResponseWriter, r *http.Request) {
	id, ok := catalog.ParseID(mux.Vars(r)["id"])
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Post not found")
		return
	}

	ep, ok := catalog.Find(h.store.Load(), id)
	if !ok {
		writeJSONError(w, http.StatusNotFound, "Post not found")
		return
	}

	if err := writeJSON(w, http.StatusOK, ep); err != nil {
		h.logger.Error("failed to encode post", "id", id, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "Error loading post")
	}
}
