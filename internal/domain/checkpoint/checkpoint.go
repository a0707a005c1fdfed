package checkpoint

import (
	"context"
	"time"
)

// Checkpoint records how far a named crawl has progressed. Cursor is the
// smallest match id already processed; the next batch asks for ids below it.
type Checkpoint struct {
	RunName   string
	Cursor    int64
	UpdatedAt time.Time
}

// Store persists checkpoints. Implementations must only be written after a
// batch has been durably stored, never after a mere fetch.
type Store interface {
	Load(ctx context.Context, runName string) (int64, bool, error)
	Save(ctx context.Context, runName string, cursor int64) error
}
