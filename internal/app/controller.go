package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/models"
	"mcq-mastery-backend/internal/quiz"
	"mcq-mastery-backend/internal/repository"
)

var (
	ErrNoSession        = errors.New("no active quiz session")
	ErrAttemptNotFound  = errors.New("attempt not found")
	ErrQuestionNotFound = errors.New("question not found")
)

// Controller owns the bank, the attempt history, the current session and the app
// state. All state and session access goes through mu.
type Controller struct {
	mu        sync.Mutex
	questions *repository.QuestionRepo
	attempts  *repository.AttemptRepo
	session   *quiz.Session
	state     AppState
	rng       *rand.Rand
	now       func() time.Time
}

func NewController(questions *repository.QuestionRepo, attempts *repository.AttemptRepo) *Controller {
	return &Controller{
		questions: questions,
		attempts:  attempts,
		state:     InitialState(),
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
	}
}

func (c *Controller) State() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Dispatch(a Action) AppState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if a.Type == ActionSelectLibraryOption {
		q, ok := c.questions.GetByID(a.QuestionID)
		if !ok || a.Option >= len(q.Options) {
			log.Debug().Str("question_id", a.QuestionID).Int("option", a.Option).Msg("Ignoring library selection")
			return c.state
		}
	}
	c.state = Reduce(c.state, a)
	return c.state
}

func (c *Controller) Questions() *repository.QuestionRepo { return c.questions }
func (c *Controller) Attempts() *repository.AttemptRepo   { return c.attempts }

// StartQuiz replaces any current session with a fresh sample of n questions.
func (c *Controller) StartQuiz(n int) (quiz.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := quiz.NewTakeSession(c.questions.List(), n, c.rng)
	if err != nil {
		return quiz.View{}, err
	}
	c.session = s
	c.state = Reduce(c.state, Action{Type: ActionQuizStarted})
	log.Info().Int("questions", s.Len()).Msg("Quiz started")
	return s.View(), nil
}

// CurrentSession renders the active session.
func (c *Controller) CurrentSession() (quiz.View, error) {
	return c.WithSession(func(*quiz.Session) error { return nil })
}

// WithSession runs fn against the active session under the controller lock and
// returns the resulting view. The view is returned even when fn fails.
func (c *Controller) WithSession(fn func(*quiz.Session) error) (quiz.View, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return quiz.View{}, ErrNoSession
	}
	err := fn(c.session)
	return c.session.View(), err
}

// FinishQuiz scores the take session and records the attempt. A failed store write
// still keeps the attempt in history and is reported through the PersistResult.
func (c *Controller) FinishQuiz(ctx context.Context) (models.QuizAttempt, repository.PersistResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return models.QuizAttempt{}, repository.PersistResult{}, ErrNoSession
	}
	attempt, err := c.session.Finish(c.now())
	if err != nil {
		return models.QuizAttempt{}, repository.PersistResult{}, err
	}

	res := c.attempts.Add(ctx, attempt)
	c.state = Reduce(c.state, Action{Type: ActionQuizFinished, AttemptID: attempt.ID})
	log.Info().Str("attempt_id", attempt.ID).Int("score", attempt.Score).Int("total", attempt.TotalQuestions).Msg("Quiz finished")
	return attempt, res, nil
}

// StartReview opens a read-only session over the attempt's surviving questions. When
// none survive the view is left as it was and quiz.ErrEmptySelection is returned.
func (c *Controller) StartReview(attemptID string) (quiz.View, error) {
	attempt, ok := c.attempts.GetByID(attemptID)
	if !ok {
		return quiz.View{}, ErrAttemptNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	s, err := quiz.NewReviewSession(c.questions.List(), attempt)
	if err != nil {
		return quiz.View{}, err
	}
	c.session = s
	c.state = Reduce(c.state, Action{Type: ActionReviewStarted, AttemptID: attemptID})
	return s.View(), nil
}

// ExitSession drops the current session without persisting anything.
func (c *Controller) ExitSession() AppState {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.session = nil
	c.state = Reduce(c.state, Action{Type: ActionSessionExited})
	return c.state
}

// OpenQuestionBySlug resolves a deep link. An unknown slug sends the view back to the
// dashboard and reports false.
func (c *Controller) OpenQuestionBySlug(slug string) (models.Question, AppState, bool) {
	q, ok := c.questions.FindBySlug(slug)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !ok {
		log.Debug().Str("slug", slug).Msg("Deep link did not resolve")
		c.state = Reduce(c.state, Action{Type: ActionDeepLinkUnresolved})
		return models.Question{}, c.state, false
	}
	c.state = Reduce(c.state, Action{Type: ActionOpenQuestion, QuestionID: q.ID})
	return q, c.state, true
}

func (c *Controller) OpenQuestion(id string) (models.Question, AppState, error) {
	q, ok := c.questions.GetByID(id)
	if !ok {
		return models.Question{}, c.State(), ErrQuestionNotFound
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Reduce(c.state, Action{Type: ActionOpenQuestion, QuestionID: q.ID})
	return q, c.state, nil
}

// DeleteQuestion removes a question from the bank. Attempts keep their references.
func (c *Controller) DeleteQuestion(ctx context.Context, id string) (bool, repository.PersistResult) {
	removed, res := c.questions.Remove(ctx, id)
	if removed {
		c.Dispatch(Action{Type: ActionQuestionRemoved, QuestionID: id})
		log.Info().Str("question_id", id).Msg("Question deleted")
	}
	return removed, res
}

// CommitPending appends a confirmed extraction batch to the bank and opens the library.
func (c *Controller) CommitPending(ctx context.Context, jobID string, batch []models.Question) repository.PersistResult {
	res := c.questions.Add(ctx, batch)

	c.mu.Lock()
	c.state = Reduce(c.state, Action{Type: ActionPendingCleared, JobID: jobID})
	c.state = Reduce(c.state, Action{Type: ActionNavigate, View: ViewLibrary})
	c.mu.Unlock()

	log.Info().Str("job_id", jobID).Int("count", len(batch)).Msg("Pending questions committed")
	return res
}

func (c *Controller) Stats() quiz.DashboardStats {
	return quiz.Summarize(c.questions.Count(), c.attempts.List())
}
