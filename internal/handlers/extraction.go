package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/app"
	"mcq-mastery-backend/internal/models"
	"mcq-mastery-backend/internal/services"
)

type extractionJobs interface {
	Create(j *models.Job)
	GetByID(id uuid.UUID) (*models.Job, error)
	UpdatePending(jobID uuid.UUID, questionID string, q models.Question) (models.Question, error)
	RemovePending(jobID uuid.UUID, questionID string) error
	Take(jobID uuid.UUID) ([]models.Question, error)
	Delete(id uuid.UUID) bool
}

type jobEnqueuer interface {
	Enqueue(ctx context.Context, job *models.Job, data []byte) error
}

type ExtractionHandler struct {
	controller *app.Controller
	jobs       extractionJobs
	queue      jobEnqueuer
	maxUpload  int64
}

func NewExtractionHandler(controller *app.Controller, jobs extractionJobs, queue jobEnqueuer, maxUpload int64) *ExtractionHandler {
	return &ExtractionHandler{
		controller: controller,
		jobs:       jobs,
		queue:      queue,
		maxUpload:  maxUpload,
	}
}

// Upload accepts a pdf, docx, txt or image file and queues a document extraction job.
func (h *ExtractionHandler) Upload(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, models.JobTypeDocument)
}

// Analyze accepts a single screenshot or photo of one question.
func (h *ExtractionHandler) Analyze(w http.ResponseWriter, r *http.Request) {
	h.accept(w, r, models.JobTypeImage)
}

func (h *ExtractionHandler) accept(w http.ResponseWriter, r *http.Request, jobType string) {
	if r.ContentLength > h.maxUpload {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File exceeds the upload limit", r))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)

	file, header, err := r.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("FILE_TOO_LARGE", "File exceeds the upload limit", r))
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "No file provided", r))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Failed to read file", r))
		return
	}
	if len(data) == 0 {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "File is empty", r))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	kind, ok := services.DetectKind(mimeType, header.Filename)
	if !ok || (jobType == models.JobTypeImage && kind != services.KindImage) {
		writeJSON(w, http.StatusUnsupportedMediaType, errorResp("UNSUPPORTED_FORMAT", "File type not supported", r))
		return
	}

	job := &models.Job{
		Type:     jobType,
		Filename: header.Filename,
		MimeType: mimeType,
		Metadata: models.QuestionMetadata{
			Subject:  strings.TrimSpace(r.FormValue("subject")),
			Year:     strings.TrimSpace(r.FormValue("year")),
			ExamDate: strings.TrimSpace(r.FormValue("examDate")),
		},
	}
	h.jobs.Create(job)

	if err := h.queue.Enqueue(r.Context(), job, data); err != nil {
		h.jobs.Delete(job.ID)
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("Failed to enqueue extraction job")
		handleServiceError(w, r, err)
		return
	}

	state := h.controller.Dispatch(app.Action{Type: app.ActionPendingReady, JobID: job.ID.String()})
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
		"state":  state,
	})
}

func (h *ExtractionHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	job, err := h.jobs.GetByID(id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// UpdatePending replaces one extracted question before it is committed.
func (h *ExtractionHandler) UpdatePending(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}

	var q models.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if fields := q.Validate(); len(fields) > 0 {
		handleServiceError(w, r, &services.ValidationError{Fields: fields})
		return
	}

	updated, err := h.jobs.UpdatePending(id, chi.URLParam(r, "qid"), q)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *ExtractionHandler) RemovePending(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if err := h.jobs.RemovePending(id, chi.URLParam(r, "qid")); err != nil {
		handleServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Confirm commits the pending set to the bank and closes the job.
func (h *ExtractionHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	batch, err := h.jobs.Take(id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res := h.controller.CommitPending(r.Context(), id.String(), batch)
	writeJSON(w, http.StatusOK, withPersist(map[string]interface{}{
		"added": len(batch),
		"state": h.controller.State(),
	}, res))
}

// Cancel discards the job and anything it extracted. A job still running is dropped
// when it finishes.
func (h *ExtractionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.jobID(w, r)
	if !ok {
		return
	}
	if !h.jobs.Delete(id) {
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "Job not found", r))
		return
	}

	state := h.controller.Dispatch(app.Action{Type: app.ActionPendingCleared, JobID: id.String()})
	writeJSON(w, http.StatusOK, map[string]interface{}{"state": state})
}

func (h *ExtractionHandler) jobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid job ID", r))
		return uuid.Nil, false
	}
	return id, true
}
