package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	JobTypeDocument = "document-extraction"
	JobTypeImage    = "image-analysis"

	JobStatusQueued     = "queued"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// Job tracks one extraction request and holds its pending questions until they
// are confirmed into the bank or discarded.
type Job struct {
	ID           uuid.UUID        `json:"id"`
	Type         string           `json:"type"`
	Status       string           `json:"status"`
	Filename     string           `json:"filename"`
	MimeType     string           `json:"mime_type"`
	Metadata     QuestionMetadata `json:"metadata"`
	Pending      []Question       `json:"pending"`
	ErrorMessage *string          `json:"error_message"`
	CreatedAt    time.Time        `json:"created_at"`
	CompletedAt  *time.Time       `json:"completed_at"`
}

func (j *Job) Done() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type JobUpdate struct {
	JobID        uuid.UUID `json:"job_id"`
	Status       string    `json:"status"`
	Count        int       `json:"count"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

type ResearchUpdate struct {
	QuestionID string `json:"question_id"`
	Kind       string `json:"kind"`
	Ready      bool   `json:"ready"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
