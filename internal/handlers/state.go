package handlers

import (
	"encoding/json"
	"net/http"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/middleware"
)

type StateHandler struct {
	controller *app.Controller
}

func NewStateHandler(controller *app.Controller) *StateHandler {
	return &StateHandler{controller: controller}
}

func (h *StateHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.controller.State())
}

// Dispatch applies a client action. Actions that describe repository or session
// changes are produced by their own endpoints and rejected here.
func (h *StateHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var action app.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !app.ClientActions[action.Type] {
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed",
			map[string]string{"type": "Unsupported action"}, r))
		return
	}
	if action.Type == app.ActionSetAdmin {
		action.IsAdmin = middleware.IsAdmin(r.Context())
	}

	writeJSON(w, http.StatusOK, h.controller.Dispatch(action))
}
