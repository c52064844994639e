package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/storytime-app/storytime/internal/storage"
	"github.com/storytime-app/storytime/pkg/engine"
	"github.com/storytime-app/storytime/pkg/story"
)

// SessionsHandler runs server-side reading sessions. Each request
// restores the session snapshot, applies one engine operation, and
// stores the snapshot back. The consequence-display delay is owned by
// the client: it calls commit when its timer fires, and a commit that
// arrives after back-navigation is a no-op.
type SessionsHandler struct {
	log     *slog.Logger
	storage storage.Storage
}

func NewSessionsHandler(log *slog.Logger, storage storage.Storage) *SessionsHandler {
	return &SessionsHandler{
		log:     log,
		storage: storage,
	}
}

type CreateSessionRequest struct {
	Story string `json:"story"`
}

type ChoiceRequest struct {
	Choice int `json:"choice"`
}

type CommitRequest struct {
	Token engine.CommitToken `json:"token"`
}

// SessionView is the renderable state of a session.
type SessionView struct {
	ID                 uuid.UUID             `json:"id"`
	Story              string                `json:"story"`
	Current            string                `json:"current"`
	Title              string                `json:"title"`
	StoryText          string                `json:"story_text"`
	Choices            []story.Choice        `json:"choices,omitempty"`
	ShowingConsequence bool                  `json:"showing_consequence,omitempty"`
	ConsequenceText    string                `json:"consequence_text,omitempty"`
	Ended              bool                  `json:"ended,omitempty"`
	ExitStory          bool                  `json:"exit_story,omitempty"`
	History            []engine.HistoryEntry `json:"history,omitempty"`
	CommitToken        engine.CommitToken    `json:"commit_token,omitempty"`
}

func (h *SessionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/sessions"), "/")

	if rest == "" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
			return
		}
		h.handleCreate(w, r)
		return
	}

	parts := strings.SplitN(rest, "/", 2)
	id, err := uuid.Parse(parts[0])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid session ID")
		return
	}

	action := ""
	if len(parts) == 2 {
		action = parts[1]
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.handleGet(w, r, id)
	case action == "" && r.Method == http.MethodDelete:
		h.handleDelete(w, r, id)
	case action == "choice" && r.Method == http.MethodPost:
		h.handleChoice(w, r, id)
	case action == "commit" && r.Method == http.MethodPost:
		h.handleCommit(w, r, id)
	case action == "back" && r.Method == http.MethodPost:
		h.handleBack(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *SessionsHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Story == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'story' field.")
		return
	}

	g, err := h.storage.GetGraph(r.Context(), req.Story)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Story not found")
			return
		}
		h.log.Error("Failed to load story", "error", err, "story", req.Story)
		writeError(w, http.StatusInternalServerError, "Failed to load story")
		return
	}

	sess, err := engine.NewSession(g)
	if err != nil {
		h.log.Error("Story failed validation", "error", err, "story", req.Story)
		writeError(w, http.StatusInternalServerError, "Story failed validation")
		return
	}

	snap := sess.Snapshot(uuid.New(), req.Story)
	if err := h.storage.SaveSession(r.Context(), snap); err != nil {
		h.log.Error("Failed to save session", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return
	}

	writeJSON(w, http.StatusCreated, h.view(snap.ID, req.Story, sess, 0, false))
}

// restore loads the snapshot and rebuilds the engine session over its
// graph.
func (h *SessionsHandler) restore(w http.ResponseWriter, r *http.Request, id uuid.UUID) (*engine.Session, *engine.Snapshot, bool) {
	snap, err := h.storage.LoadSession(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, nil, false
		}
		h.log.Error("Failed to load session", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to load session")
		return nil, nil, false
	}

	g, err := h.storage.GetGraph(r.Context(), snap.Story)
	if err != nil {
		h.log.Error("Failed to load story for session", "error", err, "story", snap.Story)
		writeError(w, http.StatusInternalServerError, "Failed to load story")
		return nil, nil, false
	}

	sess, err := engine.Restore(g, snap)
	if err != nil {
		h.log.Error("Failed to restore session", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to restore session")
		return nil, nil, false
	}
	return sess, snap, true
}

func (h *SessionsHandler) save(w http.ResponseWriter, r *http.Request, sess *engine.Session, snap *engine.Snapshot) bool {
	next := sess.Snapshot(snap.ID, snap.Story)
	if err := h.storage.SaveSession(r.Context(), next); err != nil {
		h.log.Error("Failed to save session", "error", err, "id", snap.ID)
		writeError(w, http.StatusInternalServerError, "Failed to save session")
		return false
	}
	return true
}

func (h *SessionsHandler) handleGet(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, snap, ok := h.restore(w, r, id)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.view(id, snap.Story, sess, sess.PendingToken(), false))
}

func (h *SessionsHandler) handleDelete(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	if err := h.storage.DeleteSession(r.Context(), id); err != nil {
		h.log.Error("Failed to delete session", "error", err, "id", id)
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionsHandler) handleChoice(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req ChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'choice' field.")
		return
	}

	sess, snap, ok := h.restore(w, r, id)
	if !ok {
		return
	}

	token, err := sess.SelectChoice(req.Choice)
	if err != nil {
		// A bad index is a malformed request; pending and ended
		// selections conflict with the session's current state.
		status := http.StatusConflict
		if errors.Is(err, engine.ErrNoChoice) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	if !h.save(w, r, sess, snap) {
		return
	}
	writeJSON(w, http.StatusOK, h.view(id, snap.Story, sess, token, false))
}

func (h *SessionsHandler) handleCommit(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req CommitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'token' field.")
		return
	}

	sess, snap, ok := h.restore(w, r, id)
	if !ok {
		return
	}

	// Tokens survive the snapshot round-trip only for the still-pending
	// selection; anything else is stale and ignored.
	if req.Token == sess.PendingToken() {
		if err := sess.Commit(req.Token); err != nil {
			h.log.Error("Commit failed", "error", err, "id", id)
			writeError(w, http.StatusInternalServerError, "Commit failed")
			return
		}
		if !h.save(w, r, sess, snap) {
			return
		}
	}
	writeJSON(w, http.StatusOK, h.view(id, snap.Story, sess, 0, false))
}

func (h *SessionsHandler) handleBack(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	sess, snap, ok := h.restore(w, r, id)
	if !ok {
		return
	}

	if !sess.GoBack() {
		// No previous scenario: the reader exits the story view.
		writeJSON(w, http.StatusOK, h.view(id, snap.Story, sess, 0, true))
		return
	}
	if !h.save(w, r, sess, snap) {
		return
	}
	writeJSON(w, http.StatusOK, h.view(id, snap.Story, sess, 0, false))
}

func (h *SessionsHandler) view(id uuid.UUID, storyFile string, sess *engine.Session, token engine.CommitToken, exit bool) SessionView {
	title := ""
	if sc, ok := sess.Graph().Get(sess.Current()); ok {
		title = sc.Title
	}
	return SessionView{
		ID:                 id,
		Story:              storyFile,
		Current:            sess.Current(),
		Title:              title,
		StoryText:          sess.StoryText(),
		Choices:            sess.Choices(),
		ShowingConsequence: sess.ShowingConsequence(),
		ConsequenceText:    sess.ConsequenceText(),
		Ended:              sess.Ended(),
		ExitStory:          exit,
		History:            sess.History(),
		CommitToken:        token,
	}
}
