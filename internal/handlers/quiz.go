package handlers

import (
	"encoding/json"
	"net/http"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/quiz"
)

type QuizHandler struct {
	controller   *app.Controller
	defaultCount int
}

func NewQuizHandler(controller *app.Controller, defaultCount int) *QuizHandler {
	return &QuizHandler{controller: controller, defaultCount: defaultCount}
}

type startQuizRequest struct {
	Count *int `json:"count"`
}

type selectOptionRequest struct {
	Option *int `json:"option"`
}

type jumpRequest struct {
	Index *int `json:"index"`
}

func (h *QuizHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req startQuizRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
			return
		}
	}

	n := h.defaultCount
	if req.Count != nil {
		n = *req.Count
	}
	if n < 1 {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"count": "Must be at least 1"}, r))
		return
	}

	view, err := h.controller.StartQuiz(n)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respond(w, http.StatusCreated, view)
}

func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.controller.CurrentSession()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, view)
}

func (h *QuizHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req selectOptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Option == nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"option": "Required"}, r))
		return
	}
	h.apply(w, r, func(s *quiz.Session) error { return s.SelectOption(*req.Option) })
}

func (h *QuizHandler) Mark(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(s *quiz.Session) error { return s.ToggleMark() })
}

func (h *QuizHandler) Jump(w http.ResponseWriter, r *http.Request) {
	var req jumpRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Index == nil {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"index": "Required"}, r))
		return
	}
	h.apply(w, r, func(s *quiz.Session) error { return s.JumpTo(*req.Index) })
}

// Next and Prev clamp at the edges, so they never fail on an active session.
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(s *quiz.Session) error { s.Next(); return nil })
}

func (h *QuizHandler) Prev(w http.ResponseWriter, r *http.Request) {
	h.apply(w, r, func(s *quiz.Session) error { s.Prev(); return nil })
}

func (h *QuizHandler) Finish(w http.ResponseWriter, r *http.Request) {
	attempt, res, err := h.controller.FinishQuiz(r.Context())
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	view, err := h.controller.CurrentSession()
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, withPersist(map[string]interface{}{
		"attempt": attempt,
		"percent": quiz.Percent(attempt.Score, attempt.TotalQuestions),
		"session": view,
		"state":   h.controller.State(),
	}, res))
}

func (h *QuizHandler) Exit(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"state": h.controller.ExitSession(),
	})
}

func (h *QuizHandler) apply(w http.ResponseWriter, r *http.Request, fn func(*quiz.Session) error) {
	view, err := h.controller.WithSession(fn)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	h.respond(w, http.StatusOK, view)
}

func (h *QuizHandler) respond(w http.ResponseWriter, status int, view quiz.View) {
	writeJSON(w, status, map[string]interface{}{
		"session": view,
		"state":   h.controller.State(),
	})
}
