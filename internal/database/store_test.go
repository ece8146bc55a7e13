package database

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func exerciseStore(t *testing.T, store KeyValueStore) {
	t.Helper()
	ctx := context.Background()

	if _, err := store.Get(ctx, BucketQuestions); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for fresh bucket, got %v", err)
	}

	if err := store.Set(ctx, BucketQuestions, []byte(`[{"id":"a"}]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := store.Set(ctx, BucketQuestions, []byte(`[{"id":"b"}]`)); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}

	blob, err := store.Get(ctx, BucketQuestions)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(blob) != `[{"id":"b"}]` {
		t.Fatalf("expected last write to win, got %s", blob)
	}

	if _, err := store.Get(ctx, BucketAttempts); !errors.Is(err, ErrNotFound) {
		t.Fatalf("buckets must be independent, got %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseStore(t, NewMemoryStore())
}

func TestMemoryStore_CopiesBlobs(t *testing.T) {
	store := NewMemoryStore()
	blob := []byte("abc")
	store.Set(context.Background(), "x", blob)
	blob[0] = 'z'

	got, _ := store.Get(context.Background(), "x")
	if string(got) != "abc" {
		t.Fatalf("store must not alias caller slices, got %s", got)
	}
}

func TestSQLiteStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "mcq.db")
	store, err := NewSQLiteStore(context.Background(), path)
	if err != nil {
		t.Fatalf("NewSQLiteStore failed: %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "mcq.db")

	first, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if err := first.Set(ctx, BucketAttempts, []byte(`[]`)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	first.Close()

	second, err := NewSQLiteStore(ctx, path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer second.Close()

	blob, err := second.Get(ctx, BucketAttempts)
	if err != nil || string(blob) != `[]` {
		t.Fatalf("expected persisted blob, got %q (%v)", blob, err)
	}
}
