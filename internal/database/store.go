package database

import (
	"context"
	"errors"
)

// Bucket names shared by every driver.
const (
	BucketQuestions = "mcq_questions"
	BucketAttempts  = "mcq_attempts"
)

// ErrNotFound is returned by Get when a bucket has never been written.
var ErrNotFound = errors.New("bucket not found")

// KeyValueStore persists one serialized blob per named bucket.
type KeyValueStore interface {
	Get(ctx context.Context, bucket string) ([]byte, error)
	Set(ctx context.Context, bucket string, blob []byte) error
}
