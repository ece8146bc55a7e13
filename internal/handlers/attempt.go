package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/quiz"
)

type AttemptHandler struct {
	controller *app.Controller
}

func NewAttemptHandler(controller *app.Controller) *AttemptHandler {
	return &AttemptHandler{controller: controller}
}

type attemptSummary struct {
	ID             string    `json:"id"`
	Date           time.Time `json:"date"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"totalQuestions"`
	Percent        int       `json:"percent"`
	Reviewable     bool      `json:"reviewable"`
}

// List returns the history newest first. Reviewable is false once every question the
// attempt answered has been deleted from the bank.
func (h *AttemptHandler) List(w http.ResponseWriter, r *http.Request) {
	bank := h.controller.Questions().List()
	attempts := h.controller.Attempts().List()

	items := make([]attemptSummary, 0, len(attempts))
	for _, a := range attempts {
		items = append(items, attemptSummary{
			ID:             a.ID,
			Date:           a.Date,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Percent:        quiz.Percent(a.Score, a.TotalQuestions),
			Reviewable:     len(quiz.ReviewQuestions(bank, a)) > 0,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"attempts": items})
}

func (h *AttemptHandler) Get(w http.ResponseWriter, r *http.Request) {
	attempt, ok := h.controller.Attempts().GetByID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attempt not found", r))
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"attempt": attempt,
		"percent": quiz.Percent(attempt.Score, attempt.TotalQuestions),
	})
}

func (h *AttemptHandler) Review(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.StartReview(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"session": view,
		"state":   h.controller.State(),
	})
}
