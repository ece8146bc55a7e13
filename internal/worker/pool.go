package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/models"
	"mcq-mastery-backend/internal/services"
)

type extractor interface {
	ExtractFromDocument(ctx context.Context, data []byte, mimeType, filename string) ([]models.Question, error)
	ExtractFromImage(ctx context.Context, data []byte, mimeType string) (*models.Question, error)
}

type jobStore interface {
	MarkProcessing(id uuid.UUID) bool
	Complete(id uuid.UUID, pending []models.Question) bool
	Fail(id uuid.UUID, message string) bool
}

type Pool struct {
	queue       Queue
	extractor   extractor
	jobs        jobStore
	publisher   services.Publisher
	workerCount int
	aiTimeout   time.Duration
	popTimeout  time.Duration
	ctx         context.Context
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

func NewPool(queue Queue, ex extractor, jobs jobStore, publisher services.Publisher, workerCount int, aiTimeout time.Duration) *Pool {
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		queue:       queue,
		extractor:   ex,
		jobs:        jobs,
		publisher:   publisher,
		workerCount: workerCount,
		aiTimeout:   aiTimeout,
		popTimeout:  30 * time.Second,
		ctx:         ctx,
		cancel:      cancel,
	}
}

// Enqueue hands a freshly created job and its upload to the workers.
func (p *Pool) Enqueue(ctx context.Context, job *models.Job, data []byte) error {
	return p.queue.Push(ctx, Task{
		JobID:    job.ID,
		Type:     job.Type,
		Filename: job.Filename,
		MimeType: job.MimeType,
		Metadata: job.Metadata,
		Data:     data,
	})
}

func (p *Pool) Start() {
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
	log.Info().Int("workers", p.workerCount).Msg("Started extraction workers")
}

// Stop cancels waiting workers and blocks until running jobs finish.
func (p *Pool) Stop() {
	p.cancel()
	p.wg.Wait()
}

func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		if p.ctx.Err() != nil {
			log.Debug().Int("worker", id).Msg("Worker shutting down")
			return
		}

		task, err := p.queue.Pop(p.ctx, p.popTimeout)
		if err != nil {
			if p.ctx.Err() == nil {
				log.Warn().Err(err).Int("worker", id).Msg("Queue pop failed")
				time.Sleep(time.Second)
			}
			continue
		}
		if task == nil {
			continue
		}

		// Try to acquire lock
		locked, err := p.queue.Claim(context.Background(), task.JobID)
		if err != nil || !locked {
			continue
		}

		log.Info().Int("worker", id).Str("job_id", task.JobID.String()).Str("type", task.Type).Msg("Processing extraction job")
		p.process(*task)
		p.queue.Release(context.Background(), task.JobID)
	}
}

func (p *Pool) process(t Task) {
	if !p.jobs.MarkProcessing(t.JobID) {
		log.Info().Str("job_id", t.JobID.String()).Msg("Job was cancelled before processing")
		return
	}
	p.publish(models.JobUpdate{JobID: t.JobID, Status: models.JobStatusProcessing})

	ctx, cancel := context.WithTimeout(context.Background(), p.aiTimeout)
	defer cancel()

	var questions []models.Question
	var err error
	switch t.Type {
	case models.JobTypeDocument:
		questions, err = p.extractor.ExtractFromDocument(ctx, t.Data, t.MimeType, t.Filename)
	case models.JobTypeImage:
		var q *models.Question
		q, err = p.extractor.ExtractFromImage(ctx, t.Data, t.MimeType)
		if q != nil {
			questions = []models.Question{*q}
		}
	default:
		err = fmt.Errorf("unknown job type: %s", t.Type)
	}

	if err != nil {
		log.Error().Err(err).Str("job_id", t.JobID.String()).Msg("Extraction failed")
	}
	if len(questions) == 0 {
		msg := services.ErrNoQuestions.Error()
		if p.jobs.Fail(t.JobID, msg) {
			p.publish(models.JobUpdate{JobID: t.JobID, Status: models.JobStatusFailed, ErrorMessage: msg})
		}
		return
	}

	for i := range questions {
		questions[i].ID = models.NewQuestionID()
		questions[i].Slug = models.NewSlug(questions[i].Question)
		if questions[i].Source == "" {
			questions[i].Source = t.Filename
		}
		t.Metadata.Apply(&questions[i])
	}

	if !p.jobs.Complete(t.JobID, questions) {
		log.Info().Str("job_id", t.JobID.String()).Msg("Job was cancelled during extraction")
		return
	}
	p.publish(models.JobUpdate{JobID: t.JobID, Status: models.JobStatusCompleted, Count: len(questions)})
	log.Info().Str("job_id", t.JobID.String()).Int("count", len(questions)).Msg("Extraction completed")
}

func (p *Pool) publish(update models.JobUpdate) {
	if p.publisher == nil {
		return
	}
	p.publisher.Publish(context.Background(), models.WSMessage{Type: "job_update", Payload: update})
}
