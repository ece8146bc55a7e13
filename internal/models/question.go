package models

import (
	"fmt"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// Question is one multiple-choice item of the bank.
type Question struct {
	ID                 string   `json:"id"`
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex int      `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
	Category           string   `json:"category,omitempty"`
	Source             string   `json:"source,omitempty"`
	Subject            string   `json:"subject,omitempty"`
	Year               string   `json:"year,omitempty"`
	ExamDate           string   `json:"examDate,omitempty"`
	Slug               string   `json:"slug,omitempty"`
}

// Validate returns field errors, or nil when the question can be stored.
func (q Question) Validate() map[string]string {
	fields := map[string]string{}
	if strings.TrimSpace(q.Question) == "" {
		fields["question"] = "Question text is required"
	}
	if len(q.Options) < 2 {
		fields["options"] = "At least two options are required"
	} else {
		for i, opt := range q.Options {
			if strings.TrimSpace(opt) == "" {
				fields["options"] = fmt.Sprintf("Option %d is empty", i+1)
				break
			}
		}
	}
	if q.CorrectAnswerIndex < 0 || q.CorrectAnswerIndex >= len(q.Options) {
		fields["correctAnswerIndex"] = "Correct answer must point at one of the options"
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Matches reports whether term occurs in the question text, category, subject or year.
// term must already be lower-cased.
func (q Question) Matches(term string) bool {
	if term == "" {
		return true
	}
	for _, field := range []string{q.Question, q.Category, q.Subject, q.Year} {
		if strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices with q.
func (q Question) Clone() Question {
	c := q
	c.Options = append([]string(nil), q.Options...)
	return c
}

// QuestionMetadata is stamped onto extracted questions from the upload form.
type QuestionMetadata struct {
	Subject  string `json:"subject,omitempty"`
	Year     string `json:"year,omitempty"`
	ExamDate string `json:"examDate,omitempty"`
}

func (m QuestionMetadata) Apply(q *Question) {
	if m.Subject != "" {
		q.Subject = m.Subject
	}
	if m.Year != "" {
		q.Year = m.Year
	}
	if m.ExamDate != "" {
		q.ExamDate = m.ExamDate
	}
}

// RawQuestion is the loosely-typed record returned by the extraction model.
type RawQuestion struct {
	Question           string   `json:"question"`
	Options            []string `json:"options"`
	CorrectAnswerIndex *float64 `json:"correctAnswerIndex"`
	Explanation        string   `json:"explanation"`
	Category           string   `json:"category"`
}

// ToQuestion validates the record and converts it. The result has no ID or Slug yet.
func (r RawQuestion) ToQuestion() (Question, error) {
	if r.CorrectAnswerIndex == nil {
		return Question{}, fmt.Errorf("missing correctAnswerIndex")
	}
	idx := *r.CorrectAnswerIndex
	if idx != math.Trunc(idx) {
		return Question{}, fmt.Errorf("correctAnswerIndex %v is not an integer", idx)
	}

	options := make([]string, 0, len(r.Options))
	for _, opt := range r.Options {
		options = append(options, strings.TrimSpace(opt))
	}

	q := Question{
		Question:           strings.TrimSpace(r.Question),
		Options:            options,
		CorrectAnswerIndex: int(idx),
		Explanation:        strings.TrimSpace(r.Explanation),
		Category:           strings.TrimSpace(r.Category),
	}
	if fields := q.Validate(); fields != nil {
		return Question{}, fmt.Errorf("invalid question: %v", fields)
	}
	return q, nil
}

func NewQuestionID() string {
	return "q-" + uuid.NewString()
}

const slugWords = 8

// NewSlug derives a URL-safe slug from the question text with a random suffix.
func NewSlug(text string) string {
	words := strings.Fields(text)
	if len(words) > slugWords {
		words = words[:slugWords]
	}
	base := slug.Make(strings.Join(words, " "))
	if len(base) > 60 {
		base = strings.TrimRight(base[:60], "-")
	}
	if base == "" {
		base = "question"
	}
	return base + "-" + uuid.NewString()[:6]
}
