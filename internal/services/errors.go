package services

import "errors"

// ErrNoQuestions is returned when an extraction produced nothing usable.
var ErrNoQuestions = errors.New("no questions found")

type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string { return "Validation error" }

type NotFoundError struct{ Message string }

func (e *NotFoundError) Error() string { return e.Message }

type RateLimitError struct{ Message string }

func (e *RateLimitError) Error() string { return e.Message }
