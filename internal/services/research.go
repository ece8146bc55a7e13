package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/models"
)

type ResearchKind string

const (
	ResearchFacts   ResearchKind = "facts"
	ResearchExplain ResearchKind = "explain"
)

func (k ResearchKind) Valid() bool {
	return k == ResearchFacts || k == ResearchExplain
}

type researcher interface {
	SearchFacts(ctx context.Context, q models.Question) (*FactSheet, error)
	DeepExplain(ctx context.Context, q models.Question) (string, error)
}

// Publisher pushes a message to connected clients.
type Publisher interface {
	Publish(ctx context.Context, msg models.WSMessage)
}

type ResearchResult struct {
	QuestionID  string       `json:"questionId"`
	Kind        ResearchKind `json:"kind"`
	Facts       *FactSheet   `json:"facts,omitempty"`
	Explanation string       `json:"explanation,omitempty"`
	CompletedAt time.Time    `json:"completedAt"`
}

type researchKey struct {
	questionID string
	kind       ResearchKind
}

// ResearchService runs fact searches and deep explanations in the background. At most
// one request per question and kind is outstanding; duplicates are suppressed.
type ResearchService struct {
	ai        researcher
	lookup    func(id string) (models.Question, bool)
	publisher Publisher
	timeout   time.Duration

	mu      sync.Mutex
	busy    map[researchKey]bool
	results map[researchKey]ResearchResult
	wg      sync.WaitGroup
}

func NewResearchService(ai researcher, lookup func(id string) (models.Question, bool), publisher Publisher, timeout time.Duration) *ResearchService {
	return &ResearchService{
		ai:        ai,
		lookup:    lookup,
		publisher: publisher,
		timeout:   timeout,
		busy:      make(map[researchKey]bool),
		results:   make(map[researchKey]ResearchResult),
	}
}

// Start launches a request unless one is already running for the same question and
// kind, in which case started is false.
func (s *ResearchService) Start(questionID string, kind ResearchKind) (bool, error) {
	if !kind.Valid() {
		return false, &ValidationError{Fields: map[string]string{"kind": "Unknown research kind"}}
	}
	q, ok := s.lookup(questionID)
	if !ok {
		return false, &NotFoundError{Message: "Question not found"}
	}

	key := researchKey{questionID: questionID, kind: kind}
	s.mu.Lock()
	if s.busy[key] {
		s.mu.Unlock()
		log.Debug().Str("question_id", questionID).Str("kind", string(kind)).Msg("Research already in flight")
		return false, nil
	}
	s.busy[key] = true
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(key, q)
	return true, nil
}

func (s *ResearchService) run(key researchKey, q models.Question) {
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	result := ResearchResult{QuestionID: key.questionID, Kind: key.kind}
	var err error
	switch key.kind {
	case ResearchFacts:
		result.Facts, err = s.ai.SearchFacts(ctx, q)
	case ResearchExplain:
		result.Explanation, err = s.ai.DeepExplain(ctx, q)
	}
	result.CompletedAt = time.Now().UTC()

	// Checked under s.mu so a Forget that follows a delete always runs after the store.
	s.mu.Lock()
	_, stillExists := s.lookup(key.questionID)
	delete(s.busy, key)
	ready := err == nil && stillExists
	if ready {
		s.results[key] = result
	}
	s.mu.Unlock()

	switch {
	case err != nil:
		log.Error().Err(err).Str("question_id", key.questionID).Str("kind", string(key.kind)).Msg("Research request failed")
	case !stillExists:
		log.Info().Str("question_id", key.questionID).Str("kind", string(key.kind)).Msg("Dropping research result for deleted question")
		return
	}

	if s.publisher != nil {
		s.publisher.Publish(context.Background(), models.WSMessage{
			Type:    "research_update",
			Payload: models.ResearchUpdate{QuestionID: key.questionID, Kind: string(key.kind), Ready: ready},
		})
	}
}

// Get returns the stored result and whether a request is still running.
func (s *ResearchService) Get(questionID string, kind ResearchKind) (*ResearchResult, bool) {
	key := researchKey{questionID: questionID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	busy := s.busy[key]
	r, ok := s.results[key]
	if !ok {
		return nil, busy
	}
	return &r, busy
}

// Dismiss drops a stored result. It reports whether there was one.
func (s *ResearchService) Dismiss(questionID string, kind ResearchKind) bool {
	key := researchKey{questionID: questionID, kind: kind}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[key]; !ok {
		return false
	}
	delete(s.results, key)
	return true
}

// Forget drops every stored result for a deleted question.
func (s *ResearchService) Forget(questionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.results {
		if key.questionID == questionID {
			delete(s.results, key)
		}
	}
}

// Wait blocks until all running requests have finished.
func (s *ResearchService) Wait() {
	s.wg.Wait()
}
