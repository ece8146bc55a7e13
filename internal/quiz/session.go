// Package quiz holds the quiz pass state machine and the scoring rules.
package quiz

import (
	"errors"
	"math/rand"
	"time"

	"mcq-mastery-backend/internal/models"
)

type Mode string

const (
	ModeTake   Mode = "take"
	ModeReview Mode = "review"
)

type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateReviewing  State = "reviewing"
)

var (
	ErrEmptySelection   = errors.New("no questions available for this session")
	ErrReadOnly         = errors.New("session is read-only")
	ErrFinished         = errors.New("session already finished")
	ErrIndexOutOfRange  = errors.New("question index out of range")
	ErrOptionOutOfRange = errors.New("option index out of range")
)

// Session is one pass over a fixed ordered set of questions. It is not safe for
// concurrent use; the owner serializes access.
type Session struct {
	mode      Mode
	state     State
	questions []models.Question
	current   int
	answers   map[string]int
	marked    map[string]bool
	attempt   *models.QuizAttempt
}

// NewTakeSession samples min(n, len(source)) questions without replacement. The whole
// source is shuffled with Fisher-Yates before truncation. A nil rng seeds from the clock.
func NewTakeSession(source []models.Question, n int, rng *rand.Rand) (*Session, error) {
	if n <= 0 || len(source) == 0 {
		return nil, ErrEmptySelection
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	shuffled := make([]models.Question, len(source))
	for i, q := range source {
		shuffled[i] = q.Clone()
	}
	for i := len(shuffled) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	}
	if n < len(shuffled) {
		shuffled = shuffled[:n]
	}

	return &Session{
		mode:      ModeTake,
		state:     StateInProgress,
		questions: shuffled,
		answers:   make(map[string]int),
		marked:    make(map[string]bool),
	}, nil
}

// ReviewQuestions returns the bank questions answered in attempt, in bank order.
func ReviewQuestions(bank []models.Question, attempt models.QuizAttempt) []models.Question {
	out := []models.Question{}
	for _, q := range bank {
		if _, ok := attempt.Answers[q.ID]; ok {
			out = append(out, q.Clone())
		}
	}
	return out
}

// NewReviewSession rebuilds a read-only pass from the current bank. It fails with
// ErrEmptySelection when every answered question has since been deleted.
func NewReviewSession(bank []models.Question, attempt models.QuizAttempt) (*Session, error) {
	questions := ReviewQuestions(bank, attempt)
	if len(questions) == 0 {
		return nil, ErrEmptySelection
	}

	a := attempt.Clone()
	answers := make(map[string]int, len(a.Answers))
	for _, q := range questions {
		answers[q.ID] = a.Answers[q.ID]
	}

	return &Session{
		mode:      ModeReview,
		state:     StateReviewing,
		questions: questions,
		answers:   answers,
		marked:    make(map[string]bool),
		attempt:   &a,
	}, nil
}

func (s *Session) Mode() Mode   { return s.mode }
func (s *Session) State() State { return s.state }
func (s *Session) Len() int     { return len(s.questions) }

func (s *Session) CurrentIndex() int { return s.current }

func (s *Session) Current() models.Question {
	return s.questions[s.current].Clone()
}

func (s *Session) Questions() []models.Question {
	out := make([]models.Question, len(s.questions))
	for i, q := range s.questions {
		out[i] = q.Clone()
	}
	return out
}

func (s *Session) Answers() map[string]int {
	out := make(map[string]int, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Attempt is the reviewed attempt, or the scored one once a take pass finished.
func (s *Session) Attempt() (models.QuizAttempt, bool) {
	if s.attempt == nil {
		return models.QuizAttempt{}, false
	}
	return s.attempt.Clone(), true
}

func (s *Session) writable() error {
	if s.mode == ModeReview {
		return ErrReadOnly
	}
	if s.state != StateInProgress {
		return ErrFinished
	}
	return nil
}

// SelectOption records option i for the current question, replacing any earlier choice.
func (s *Session) SelectOption(i int) error {
	if err := s.writable(); err != nil {
		return err
	}
	q := s.questions[s.current]
	if i < 0 || i >= len(q.Options) {
		return ErrOptionOutOfRange
	}
	s.answers[q.ID] = i
	return nil
}

func (s *Session) ToggleMark() error {
	if err := s.writable(); err != nil {
		return err
	}
	id := s.questions[s.current].ID
	if s.marked[id] {
		delete(s.marked, id)
	} else {
		s.marked[id] = true
	}
	return nil
}

func (s *Session) JumpTo(i int) error {
	if i < 0 || i >= len(s.questions) {
		return ErrIndexOutOfRange
	}
	s.current = i
	return nil
}

// Next advances one question. It reports false at the last question.
func (s *Session) Next() bool {
	return s.JumpTo(s.current+1) == nil
}

// Prev steps back one question. It reports false at the first question.
func (s *Session) Prev() bool {
	return s.JumpTo(s.current-1) == nil
}

// Finish scores the pass and closes it. The caller persists the attempt.
func (s *Session) Finish(now time.Time) (models.QuizAttempt, error) {
	if err := s.writable(); err != nil {
		return models.QuizAttempt{}, err
	}
	a := BuildAttempt(s.questions, s.answers, now)
	s.attempt = &a
	s.state = StateCompleted
	return a.Clone(), nil
}
