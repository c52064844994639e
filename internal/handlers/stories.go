package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/storytime-app/storytime/internal/storage"
)

// StoriesHandler serves the built-in story catalog: the list of shipped
// graphs and individual graph files.
type StoriesHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewStoriesHandler(log *slog.Logger, storage storage.Storage) *StoriesHandler {
	return &StoriesHandler{
		log:     log,
		storage: storage,
	}
}

func (h *StoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	filename := strings.TrimPrefix(r.URL.Path, "/v1/stories")
	filename = strings.Trim(filename, "/")

	if filename == "" {
		h.handleList(w, r)
		return
	}
	h.handleGet(w, r, filename)
}

func (h *StoriesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	graphs, err := h.storage.ListGraphs(r.Context())
	if err != nil {
		h.log.Error("Failed to list stories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list stories")
		return
	}
	writeJSON(w, http.StatusOK, graphs)
}

func (h *StoriesHandler) handleGet(w http.ResponseWriter, r *http.Request, filename string) {
	if strings.Contains(filename, "..") || strings.Contains(filename, "/") {
		writeError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	g, err := h.storage.GetGraph(r.Context(), filename)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Story not found")
			return
		}
		h.log.Error("Failed to get story", "error", err, "filename", filename)
		writeError(w, http.StatusInternalServerError, "Failed to retrieve story")
		return
	}

	writeJSON(w, http.StatusOK, g)
}
