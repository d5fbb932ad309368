package postgresrepo

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/kirinyoku/travelgo/internal/repository"
)

// IsRetryable reports serialization failures and deadlocks.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError

	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return true
		}
	}

	return false
}

func translateDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}

	var pge *pgconn.PgError
	if errors.As(err, &pge) {
		switch pge.Code {
		// unique_violation
		case "23505":
			return repository.ErrConflict
		// foreign_key_violation: a referenced row is gone or still referenced
		case "23503":
			return repository.ErrConflict
		// check_violation on available_seats >= 0
		case "23514":
			if pge.ConstraintName == "schedules_available_seats_check" {
				return repository.ErrInsufficientCapacity
			}
		}
	}

	// concurrent writers are surfaced as a conflict, never retried here
	if IsRetryable(err) {
		return repository.ErrConflict
	}

	return err
}
