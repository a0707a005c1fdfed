package memory

import (
	"context"
	"testing"
)

func TestCheckpointRepositoryLoadMissingRun(t *testing.T) {
	t.Parallel()

	repo := NewCheckpointRepository()

	cursor, found, err := repo.Load(context.Background(), "pro-matches")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if found {
		t.Fatalf("expected no checkpoint for a fresh run")
	}
	if cursor != 0 {
		t.Fatalf("expected zero cursor, got %d", cursor)
	}
}

func TestCheckpointRepositorySaveOverwritesCursor(t *testing.T) {
	t.Parallel()

	repo := NewCheckpointRepository()

	if err := repo.Save(context.Background(), "pro-matches", 7005); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if err := repo.Save(context.Background(), "pro-matches", 7001); err != nil {
		t.Fatalf("second save: %v", err)
	}

	cursor, found, err := repo.Load(context.Background(), "pro-matches")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !found {
		t.Fatalf("expected a stored checkpoint")
	}
	if cursor != 7001 {
		t.Fatalf("expected cursor 7001, got %d", cursor)
	}
}
