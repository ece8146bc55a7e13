package repository

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/database"
	"mcq-mastery-backend/internal/models"
)

// AttemptRepo holds finished attempts, newest first. Attempts are append-only.
type AttemptRepo struct {
	mu    sync.RWMutex
	store database.KeyValueStore
	items []models.QuizAttempt
}

func NewAttemptRepo(store database.KeyValueStore) *AttemptRepo {
	return &AttemptRepo{store: store, items: []models.QuizAttempt{}}
}

// Load works like QuestionRepo.Load: an unreadable history starts empty.
func (r *AttemptRepo) Load(ctx context.Context) error {
	var items []models.QuizAttempt
	err := load(ctx, r.store, database.BucketAttempts, &items)
	switch {
	case err == nil, errors.Is(err, database.ErrNotFound):
	case errors.Is(err, ErrCorruptBucket):
		log.Warn().Err(err).Msg("Stored attempt history is unreadable, starting empty")
		items = nil
	default:
		log.Error().Err(err).Msg("Failed to load attempt history")
		return err
	}
	if items == nil {
		items = []models.QuizAttempt{}
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

func (r *AttemptRepo) List() []models.QuizAttempt {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.QuizAttempt, len(r.items))
	for i, a := range r.items {
		out[i] = a.Clone()
	}
	return out
}

// Add prepends the attempt.
func (r *AttemptRepo) Add(ctx context.Context, attempt models.QuizAttempt) PersistResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append([]models.QuizAttempt{attempt.Clone()}, r.items...)
	return persist(ctx, r.store, database.BucketAttempts, r.items)
}

func (r *AttemptRepo) GetByID(id string) (models.QuizAttempt, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.items {
		if a.ID == id {
			return a.Clone(), true
		}
	}
	return models.QuizAttempt{}, false
}
