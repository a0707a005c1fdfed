package postgres

import (
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/dotastats/prostats/internal/usecase"
)

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	var pqErr *pq.Error
	// Class 08 is connection exceptions, class 57 operator intervention
	// (shutdown, crash recovery).
	return errors.As(err, &pqErr) && (pqErr.Code.Class() == "08" || pqErr.Code.Class() == "57")
}

// markWriteError tags driver errors with the usecase taxonomy so the
// orchestrator can tell "already ingested" and "store down" apart from an
// ordinary per-match write failure.
func markWriteError(err error) error {
	switch {
	case err == nil:
		return nil
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %v", usecase.ErrIntegrityConflict, err)
	case isConnectionFailure(err):
		return fmt.Errorf("%w: %v", usecase.ErrStoreUnavailable, err)
	default:
		return err
	}
}
