package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// QuizAttempt is the immutable record of one finished quiz.
// Answers holds only the questions that were answered.
type QuizAttempt struct {
	ID             string         `json:"id"`
	Date           time.Time      `json:"date"`
	Score          int            `json:"score"`
	TotalQuestions int            `json:"totalQuestions"`
	Answers        map[string]int `json:"answers"`
}

// NewAttemptID returns attempt-<unix millis>-<suffix>. The suffix keeps attempts
// finished within the same millisecond apart.
func NewAttemptID(now time.Time) string {
	return fmt.Sprintf("attempt-%d-%s", now.UnixMilli(), uuid.NewString()[:6])
}

// Clone returns a copy with its own answers map.
func (a QuizAttempt) Clone() QuizAttempt {
	c := a
	c.Answers = make(map[string]int, len(a.Answers))
	for k, v := range a.Answers {
		c.Answers[k] = v
	}
	return c
}
