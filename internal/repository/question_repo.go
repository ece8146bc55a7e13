package repository

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/database"
	"mcq-mastery-backend/internal/models"
)

// QuestionRepo is the in-memory question bank, written through to the store on every mutation.
type QuestionRepo struct {
	mu    sync.RWMutex
	store database.KeyValueStore
	items []models.Question
}

func NewQuestionRepo(store database.KeyValueStore) *QuestionRepo {
	return &QuestionRepo{store: store, items: []models.Question{}}
}

// Load replaces the in-memory bank with the stored one. A missing or corrupt bucket is
// an empty bank; only store read failures are returned.
func (r *QuestionRepo) Load(ctx context.Context) error {
	var items []models.Question
	err := load(ctx, r.store, database.BucketQuestions, &items)
	switch {
	case err == nil, errors.Is(err, database.ErrNotFound):
	case errors.Is(err, ErrCorruptBucket):
		log.Warn().Err(err).Msg("Stored question bank is unreadable, starting empty")
		items = nil
	default:
		log.Error().Err(err).Msg("Failed to load question bank")
		return err
	}
	if items == nil {
		items = []models.Question{}
	}

	r.mu.Lock()
	r.items = items
	r.mu.Unlock()
	return nil
}

func (r *QuestionRepo) List() []models.Question {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneQuestions(r.items)
}

func (r *QuestionRepo) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Add appends the batch as-is; ids must already be assigned and duplicates are allowed.
func (r *QuestionRepo) Add(ctx context.Context, batch []models.Question) PersistResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items = append(r.items, cloneQuestions(batch)...)
	return persist(ctx, r.store, database.BucketQuestions, r.items)
}

// Remove deletes the question with id. Attempts that reference it are left alone.
func (r *QuestionRepo) Remove(ctx context.Context, id string) (bool, PersistResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i, q := range r.items {
		if q.ID == id {
			r.items = append(r.items[:i:i], r.items[i+1:]...)
			return true, persist(ctx, r.store, database.BucketQuestions, r.items)
		}
	}
	return false, PersistResult{Bucket: database.BucketQuestions}
}

// Search filters by case-insensitive substring over text, category, subject and year.
func (r *QuestionRepo) Search(term string) []models.Question {
	term = strings.ToLower(strings.TrimSpace(term))

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Question{}
	for _, q := range r.items {
		if q.Matches(term) {
			out = append(out, q.Clone())
		}
	}
	return out
}

func (r *QuestionRepo) GetByID(id string) (models.Question, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.items {
		if q.ID == id {
			return q.Clone(), true
		}
	}
	return models.Question{}, false
}

func (r *QuestionRepo) FindBySlug(slug string) (models.Question, bool) {
	if slug == "" {
		return models.Question{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, q := range r.items {
		if q.Slug == slug {
			return q.Clone(), true
		}
	}
	return models.Question{}, false
}

func (r *QuestionRepo) Exists(id string) bool {
	_, ok := r.GetByID(id)
	return ok
}

func cloneQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, len(in))
	for i, q := range in {
		out[i] = q.Clone()
	}
	return out
}
