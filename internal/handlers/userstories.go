package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/storytime-app/storytime/internal/storage"
	"github.com/storytime-app/storytime/pkg/userstory"
)

// UserStoriesHandler stores and serves reader-authored stories.
type UserStoriesHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewUserStoriesHandler(log *slog.Logger, storage storage.Storage) *UserStoriesHandler {
	return &UserStoriesHandler{
		log:     log,
		storage: storage,
	}
}

func (h *UserStoriesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/userstories"), "/")

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			h.handleList(w, r)
		case http.MethodPost:
			h.handleSave(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	id, err := uuid.Parse(rest)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid story ID")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r, id)
	case http.MethodDelete:
		h.handleDelete(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *UserStoriesHandler) handleList(w http.ResponseWriter, r *http.Request) {
	stories, err := h.storage.ListUserStories(r.Context())
	if err != nil {
		h.log.Error("Failed to list user stories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list user stories")
		return
	}
	writeJSON(w, http.StatusOK, stories)
}

func (h *UserStoriesHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var s userstory.Story
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if s.Title == "" {
		writeError(w, http.StatusBadRequest, "Story title is required")
		return
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}

	if err := h.storage.SaveUserStory(r.Context(), &s); err != nil {
		h.log.Error("Failed to save user story", "error", err, "id", s.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save user story")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

func (h *UserStoriesHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	stories, err := h.storage.ListUserStories(r.Context())
	if err != nil {
		h.log.Error("Failed to list user stories", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list user stories")
		return
	}
	for i := range stories {
		if stories[i].ID == id {
			writeJSON(w, http.StatusOK, stories[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Story not found")
}

func (h *UserStoriesHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteUserStory(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Story not found")
			return
		}
		h.log.Error("Failed to delete user story", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete user story")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
