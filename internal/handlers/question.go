package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"mcq-mastery-backend/internal/app"
)

type questionForgetter interface {
	Forget(questionID string)
}

type QuestionHandler struct {
	controller *app.Controller
	research   questionForgetter
}

func NewQuestionHandler(controller *app.Controller, research questionForgetter) *QuestionHandler {
	return &QuestionHandler{controller: controller, research: research}
}

// List returns the library, filtered by ?search= when given. The term is also
// recorded in the app state so the library view survives a reload.
func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("search")
	if term != h.controller.State().SearchTerm {
		h.controller.Dispatch(app.Action{Type: app.ActionSetSearch, Term: term})
	}

	questions := h.controller.Questions().Search(term)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"total":     len(questions),
	})
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, state, err := h.controller.OpenQuestion(chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"question": q,
		"state":    state,
	})
}

// GetBySlug resolves a shared deep link. Unknown slugs answer 404 together with the
// dashboard state the client should fall back to.
func (h *QuestionHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	q, state, ok := h.controller.OpenQuestionBySlug(chi.URLParam(r, "slug"))
	if !ok {
		resp := errorResp("NOT_FOUND", "Question not found", r)
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": resp.Error,
			"state": state,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"question": q,
		"state":    state,
	})
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, res := h.controller.DeleteQuestion(r.Context(), id)
	if !removed {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
		return
	}
	if h.research != nil {
		h.research.Forget(id)
	}

	writeJSON(w, http.StatusOK, withPersist(map[string]interface{}{
		"deleted": id,
		"state":   h.controller.State(),
	}, res))
}
