package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	qb "github.com/dotastats/prostats/internal/platform/querybuilder"
)

type CheckpointRepository struct {
	db *sqlx.DB
}

func NewCheckpointRepository(db *sqlx.DB) *CheckpointRepository {
	return &CheckpointRepository{db: db}
}

// Load returns the stored cursor for the named run. The second return is
// false when the run has never checkpointed.
func (r *CheckpointRepository) Load(ctx context.Context, runName string) (int64, bool, error) {
	query, args, err := qb.Select("cursor").
		From("checkpoints").
		Where(qb.Eq("run_name", runName)).
		ToSQL()
	if err != nil {
		return 0, false, fmt.Errorf("build load checkpoint query: %w", err)
	}

	var cursor int64
	if err := r.db.GetContext(ctx, &cursor, query, args...); err != nil {
		if isNotFound(err) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("load checkpoint run=%s: %w", runName, err)
	}
	return cursor, true, nil
}

func (r *CheckpointRepository) Save(ctx context.Context, runName string, cursor int64) error {
	insertModel := checkpointInsertModel{RunName: runName, Cursor: cursor}
	query, args, err := qb.InsertModel("checkpoints", insertModel, `ON CONFLICT (run_name)
DO UPDATE SET
    cursor = EXCLUDED.cursor,
    updated_at = NOW()`)
	if err != nil {
		return fmt.Errorf("build save checkpoint query: %w", err)
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("save checkpoint run=%s cursor=%d: %w", runName, cursor, err)
	}
	return nil
}
