package handlers

import (
	"net/http"

	"mcq-mastery-backend/internal/app"
)

type DashboardHandler struct {
	controller *app.Controller
}

func NewDashboardHandler(controller *app.Controller) *DashboardHandler {
	return &DashboardHandler{controller: controller}
}

func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.controller.Stats()
	attempts := h.controller.Attempts().List()

	recent := attempts
	if len(recent) > 5 {
		recent = recent[:5]
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"stats":  stats,
		"recent": recent,
	})
}
