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
	"github.com/storytime-app/storytime/pkg/transcript"
)

// TranscriptsHandler stores and serves saved AI story transcripts.
type TranscriptsHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewTranscriptsHandler(log *slog.Logger, storage storage.Storage) *TranscriptsHandler {
	return &TranscriptsHandler{
		log:     log,
		storage: storage,
	}
}

func (h *TranscriptsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/transcripts"), "/")

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
		writeError(w, http.StatusBadRequest, "Invalid transcript ID")
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

func (h *TranscriptsHandler) handleList(w http.ResponseWriter, r *http.Request) {
	transcripts, err := h.storage.ListTranscripts(r.Context())
	if err != nil {
		h.log.Error("Failed to list transcripts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list transcripts")
		return
	}
	writeJSON(w, http.StatusOK, transcripts)
}

func (h *TranscriptsHandler) handleSave(w http.ResponseWriter, r *http.Request) {
	var t transcript.Transcript
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if t.Title == "" {
		writeError(w, http.StatusBadRequest, "Transcript title is required")
		return
	}
	now := time.Now().UTC()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.LastModified = now

	if err := h.storage.SaveTranscript(r.Context(), &t); err != nil {
		h.log.Error("Failed to save transcript", "error", err, "id", t.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save transcript")
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (h *TranscriptsHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	transcripts, err := h.storage.ListTranscripts(r.Context())
	if err != nil {
		h.log.Error("Failed to list transcripts", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to list transcripts")
		return
	}
	for i := range transcripts {
		if transcripts[i].ID == id {
			writeJSON(w, http.StatusOK, transcripts[i])
			return
		}
	}
	writeError(w, http.StatusNotFound, "Transcript not found")
}

func (h *TranscriptsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteTranscript(r.Context(), id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transcript not found")
			return
		}
		h.log.Error("Failed to delete transcript", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete transcript")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
