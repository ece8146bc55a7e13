package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/models"
	"mcq-mastery-backend/internal/quiz"
	"mcq-mastery-backend/internal/repository"
	"mcq-mastery-backend/internal/services"
	"mcq-mastery-backend/internal/worker"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

// withPersist adds a persist_warning to body when the store write behind it failed.
func withPersist(body map[string]interface{}, res repository.PersistResult) map[string]interface{} {
	if !res.OK() {
		body["persist_warning"] = res.Warning()
	}
	return body
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.RateLimitError:
		writeJSON(w, http.StatusTooManyRequests, errorResp("RATE_LIMITED", e.Message, r))
	default:
		handleSentinelError(w, r, err)
	}
}

func handleSentinelError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, app.ErrNoSession):
		writeJSON(w, http.StatusConflict, errorResp("NO_SESSION", "No quiz is in progress", r))
	case errors.Is(err, app.ErrAttemptNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Attempt not found", r))
	case errors.Is(err, app.ErrQuestionNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Question not found", r))
	case errors.Is(err, repository.ErrJobNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
	case errors.Is(err, repository.ErrPendingNotFound):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Pending question not found", r))
	case errors.Is(err, repository.ErrJobNotReady), errors.Is(err, repository.ErrNothingToConfirm):
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", err.Error(), r))
	case errors.Is(err, quiz.ErrEmptySelection):
		writeJSON(w, http.StatusUnprocessableEntity, errorResp("EMPTY_SELECTION", "No questions available", r))
	case errors.Is(err, quiz.ErrReadOnly):
		writeJSON(w, http.StatusConflict, errorResp("READ_ONLY", "Review sessions are read-only", r))
	case errors.Is(err, quiz.ErrFinished):
		writeJSON(w, http.StatusConflict, errorResp("FINISHED", "Quiz already finished", r))
	case errors.Is(err, quiz.ErrIndexOutOfRange), errors.Is(err, quiz.ErrOptionOutOfRange):
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", err.Error(), r))
	case errors.Is(err, worker.ErrQueueFull):
		writeJSON(w, http.StatusServiceUnavailable, errorResp("UNAVAILABLE", "Extraction queue is full, try again shortly", r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
