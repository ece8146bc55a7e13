package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"mcq-mastery-backend/internal/models"
)

// Task is one queued extraction. Data travels with the task so a worker never
// needs the upload on disk.
type Task struct {
	JobID    uuid.UUID               `json:"job_id"`
	Type     string                  `json:"type"`
	Filename string                  `json:"filename"`
	MimeType string                  `json:"mime_type"`
	Metadata models.QuestionMetadata `json:"metadata"`
	Data     []byte                  `json:"data"`
}

var ErrQueueFull = errors.New("extraction queue is full")

type Queue interface {
	Push(ctx context.Context, t Task) error
	// Pop waits up to timeout for the next task and returns nil when none arrived.
	Pop(ctx context.Context, timeout time.Duration) (*Task, error)
	// Claim takes the processing lock for a job. false means another worker holds it.
	Claim(ctx context.Context, jobID uuid.UUID) (bool, error)
	Release(ctx context.Context, jobID uuid.UUID)
}

// MemoryQueue is an in-process queue for single-instance deployments.
type MemoryQueue struct {
	tasks  chan Task
	mu     sync.Mutex
	claims map[uuid.UUID]bool
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size < 1 {
		size = 1
	}
	return &MemoryQueue{tasks: make(chan Task, size), claims: make(map[uuid.UUID]bool)}
}

func (q *MemoryQueue) Push(ctx context.Context, t Task) error {
	select {
	case q.tasks <- t:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	select {
	case t := <-q.tasks:
		return &t, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(timeout):
		return nil, nil
	}
}

func (q *MemoryQueue) Claim(ctx context.Context, jobID uuid.UUID) (bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.claims[jobID] {
		return false, nil
	}
	q.claims[jobID] = true
	return true, nil
}

func (q *MemoryQueue) Release(ctx context.Context, jobID uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.claims, jobID)
}

const extractionQueue = "queue:question-extraction"

// RedisQueue shares extraction work between instances through a Redis list.
type RedisQueue struct {
	client  *redis.Client
	lockTTL time.Duration
}

func NewRedisQueue(client *redis.Client) *RedisQueue {
	return &RedisQueue{client: client, lockTTL: 10 * time.Minute}
}

func (q *RedisQueue) Push(ctx context.Context, t Task) error {
	payload, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}
	return q.client.RPush(ctx, extractionQueue, payload).Err()
}

func (q *RedisQueue) Pop(ctx context.Context, timeout time.Duration) (*Task, error) {
	result, err := q.client.BLPop(ctx, timeout, extractionQueue).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(result) < 2 {
		return nil, nil
	}

	var t Task
	if err := json.Unmarshal([]byte(result[1]), &t); err != nil {
		return nil, fmt.Errorf("failed to parse task: %w", err)
	}
	return &t, nil
}

func (q *RedisQueue) Claim(ctx context.Context, jobID uuid.UUID) (bool, error) {
	return q.client.SetNX(ctx, lockKey(jobID), "1", q.lockTTL).Result()
}

func (q *RedisQueue) Release(ctx context.Context, jobID uuid.UUID) {
	q.client.Del(ctx, lockKey(jobID))
}

func lockKey(jobID uuid.UUID) string {
	return fmt.Sprintf("job_lock:%s", jobID.String())
}
