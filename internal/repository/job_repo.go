package repository

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"mcq-mastery-backend/internal/models"
)

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrJobNotReady      = errors.New("job has not finished extracting")
	ErrPendingNotFound  = errors.New("pending question not found")
	ErrNothingToConfirm = errors.New("job has no pending questions")
)

// JobRepo keeps extraction jobs and their pending questions in memory. Pending
// questions are never persisted: only a confirmed batch reaches the bank.
type JobRepo struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]*models.Job
	now  func() time.Time
}

func NewJobRepo() *JobRepo {
	return &JobRepo{jobs: make(map[uuid.UUID]*models.Job), now: time.Now}
}

func (r *JobRepo) Create(j *models.Job) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j.ID = uuid.New()
	j.Status = models.JobStatusQueued
	j.Pending = []models.Question{}
	j.CreatedAt = r.now()
	r.jobs[j.ID] = copyJob(j)
}

func (r *JobRepo) GetByID(id uuid.UUID) (*models.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	return copyJob(j), nil
}

// MarkProcessing moves a job to processing. Returns false when the job is gone, e.g.
// cancelled while it waited in the queue.
func (r *JobRepo) MarkProcessing(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	j.Status = models.JobStatusProcessing
	return true
}

// Complete stores the extracted batch. A job cancelled in the meantime stays gone.
func (r *JobRepo) Complete(id uuid.UUID, pending []models.Question) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	now := r.now()
	j.Status = models.JobStatusCompleted
	j.Pending = cloneQuestions(pending)
	j.CompletedAt = &now
	return true
}

func (r *JobRepo) Fail(id uuid.UUID, message string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[id]
	if !ok {
		return false
	}
	now := r.now()
	j.Status = models.JobStatusFailed
	j.ErrorMessage = &message
	j.CompletedAt = &now
	return true
}

// UpdatePending replaces one pending question. The edit keeps the original id and slug.
func (r *JobRepo) UpdatePending(jobID uuid.UUID, questionID string, q models.Question) (models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.completedJob(jobID)
	if err != nil {
		return models.Question{}, err
	}
	for i := range j.Pending {
		if j.Pending[i].ID == questionID {
			q.ID = j.Pending[i].ID
			q.Slug = j.Pending[i].Slug
			j.Pending[i] = q.Clone()
			return q.Clone(), nil
		}
	}
	return models.Question{}, ErrPendingNotFound
}

func (r *JobRepo) RemovePending(jobID uuid.UUID, questionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.completedJob(jobID)
	if err != nil {
		return err
	}
	for i := range j.Pending {
		if j.Pending[i].ID == questionID {
			j.Pending = append(j.Pending[:i:i], j.Pending[i+1:]...)
			return nil
		}
	}
	return ErrPendingNotFound
}

// Take removes a completed job and hands back its pending questions for commit.
func (r *JobRepo) Take(jobID uuid.UUID) ([]models.Question, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, err := r.completedJob(jobID)
	if err != nil {
		return nil, err
	}
	if len(j.Pending) == 0 {
		return nil, ErrNothingToConfirm
	}
	delete(r.jobs, jobID)
	return cloneQuestions(j.Pending), nil
}

func (r *JobRepo) Delete(id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.jobs[id]; !ok {
		return false
	}
	delete(r.jobs, id)
	return true
}

func (r *JobRepo) completedJob(id uuid.UUID) (*models.Job, error) {
	j, ok := r.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if j.Status != models.JobStatusCompleted {
		return nil, ErrJobNotReady
	}
	return j, nil
}

func copyJob(j *models.Job) *models.Job {
	c := *j
	c.Pending = cloneQuestions(j.Pending)
	if j.ErrorMessage != nil {
		msg := *j.ErrorMessage
		c.ErrorMessage = &msg
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}
