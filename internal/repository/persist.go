package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"mcq-mastery-backend/internal/database"
)

// ErrCorruptBucket wraps a stored blob that no longer decodes.
var ErrCorruptBucket = errors.New("corrupt bucket")

// PersistResult reports the outcome of the store write that follows a mutation.
// The in-memory state has already changed when a result is returned; callers decide
// whether a failed write is worth surfacing.
type PersistResult struct {
	Bucket string `json:"bucket"`
	Err    error  `json:"-"`
}

func (p PersistResult) OK() bool {
	return p.Err == nil
}

// Warning is a user-facing message for failed writes, empty when the write succeeded.
func (p PersistResult) Warning() string {
	if p.Err == nil {
		return ""
	}
	return fmt.Sprintf("changes are kept in memory but could not be saved to %s", p.Bucket)
}

func persist(ctx context.Context, store database.KeyValueStore, bucket string, v interface{}) PersistResult {
	res := PersistResult{Bucket: bucket}

	blob, err := json.Marshal(v)
	if err != nil {
		res.Err = fmt.Errorf("failed to encode %s: %w", bucket, err)
	} else if err := store.Set(ctx, bucket, blob); err != nil {
		res.Err = err
	}

	if res.Err != nil {
		log.Error().Err(res.Err).Str("bucket", bucket).Msg("Persistence write failed")
	}
	return res
}

func load(ctx context.Context, store database.KeyValueStore, bucket string, v interface{}) error {
	blob, err := store.Get(ctx, bucket)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(blob, v); err != nil {
		return fmt.Errorf("%w %s: %v", ErrCorruptBucket, bucket, err)
	}
	return nil
}
