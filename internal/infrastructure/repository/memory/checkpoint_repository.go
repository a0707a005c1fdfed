package memory

import (
	"context"
	"sync"
	"time"

	"github.com/dotastats/prostats/internal/domain/checkpoint"
)

type CheckpointRepository struct {
	mu          sync.RWMutex
	checkpoints map[string]checkpoint.Checkpoint
}

func NewCheckpointRepository() *CheckpointRepository {
	return &CheckpointRepository{checkpoints: make(map[string]checkpoint.Checkpoint)}
}

func (r *CheckpointRepository) Load(_ context.Context, runName string) (int64, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cp, ok := r.checkpoints[runName]
	if !ok {
		return 0, false, nil
	}
	return cp.Cursor, true, nil
}

func (r *CheckpointRepository) Save(_ context.Context, runName string, cursor int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.checkpoints[runName] = checkpoint.Checkpoint{
		RunName:   runName,
		Cursor:    cursor,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}
