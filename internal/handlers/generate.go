package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/storytime-app/storytime/internal/services"
)

// GenerateHandler produces a single AI-written scenario from a prompt.
type GenerateHandler struct {
	log *slog.Logger
	gen services.Generator
}

func NewGenerateHandler(log *slog.Logger, gen services.Generator) *GenerateHandler {
	return &GenerateHandler{
		log: log,
		gen: gen,
	}
}

type GenerateRequest struct {
	Prompt string `json:"prompt"`
}

func (h *GenerateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body. Expected JSON with 'prompt' field.")
		return
	}

	sc, err := h.gen.GenerateScenario(r.Context(), req.Prompt)
	if err != nil {
		h.log.Error("Scenario generation failed", "error", err)
		switch {
		case errors.Is(err, services.ErrFormat):
			writeError(w, http.StatusBadGateway, "Provider returned an unreadable scenario")
		case errors.Is(err, services.ErrRequest):
			writeError(w, http.StatusBadGateway, "Provider request failed")
		default:
			writeError(w, http.StatusInternalServerError, "Scenario generation failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, sc)
}
