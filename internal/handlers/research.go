package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/services"
)

type researchTracker interface {
	Start(questionID string, kind services.ResearchKind) (bool, error)
	Get(questionID string, kind services.ResearchKind) (*services.ResearchResult, bool)
	Dismiss(questionID string, kind services.ResearchKind) bool
}

type quickExplainer interface {
	QuickExplain(ctx context.Context, concept string) (string, error)
}

type ResearchHandler struct {
	research  researchTracker
	explainer quickExplainer
}

func NewResearchHandler(research researchTracker, explainer quickExplainer) *ResearchHandler {
	return &ResearchHandler{research: research, explainer: explainer}
}

// Start launches a background request of the given kind. A request already running
// for the question answers 202 with started=false.
func (h *ResearchHandler) Start(kind services.ResearchKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		started, err := h.research.Start(id, kind)
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]interface{}{
			"question_id": id,
			"kind":        kind,
			"started":     started,
		})
	}
}

func (h *ResearchHandler) Get(kind services.ResearchKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		result, busy := h.research.Get(id, kind)
		if result == nil && !busy {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No result available", r))
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"busy":   busy,
			"result": result,
		})
	}
}

func (h *ResearchHandler) Dismiss(kind services.ResearchKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !h.research.Dismiss(chi.URLParam(r, "id"), kind) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No result available", r))
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type quickExplainRequest struct {
	Text string `json:"text"`
}

// QuickExplain answers synchronously with a short explanation of free text.
func (h *ResearchHandler) QuickExplain(w http.ResponseWriter, r *http.Request) {
	var req quickExplainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"text": "Required"}, r))
		return
	}

	explanation, err := h.explainer.QuickExplain(r.Context(), text)
	if err != nil {
		log.Error().Err(err).Msg("Quick explanation failed")
		writeJSON(w, http.StatusBadGateway, errorResp("AI_ERROR", "Explanation is unavailable right now", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"explanation": explanation})
}
