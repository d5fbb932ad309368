package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/repository"
)

// Reserve takes count seats from a schedule.
//
// The decrement is one conditional UPDATE, so two concurrent reservations can
// never both pass the capacity check on the same row.
//
// Returns:
//   - error: repository.ErrInsufficientCapacity if fewer than count seats are left.
//   - error: repository.ErrNotFound if the schedule does not exist.
func (r *ScheduleRepo) Reserve(ctx context.Context, id uuid.UUID, count int) error {
	const op = "postgresrepo.ScheduleRepo.Reserve"

	db := r.handle()

	tag, err := db.Exec(ctx,
		`UPDATE schedules
		 SET available_seats = available_seats - $2
		 WHERE id = $1 AND available_seats >= $2`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	// nothing updated: tell a missing schedule apart from a full one
	var exists bool
	if err := db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE id = $1)`,
		id,
	).Scan(&exists); err != nil {
		return wrapDBErr(op, err)
	}
	if !exists {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return fmt.Errorf("%s:%w", op, repository.ErrInsufficientCapacity)
}

// Release returns count seats to a schedule.
func (r *ScheduleRepo) Release(ctx context.Context, id uuid.UUID, count int) error {
	const op = "postgresrepo.ScheduleRepo.Release"

	tag, err := r.handle().Exec(ctx,
		`UPDATE schedules
		 SET available_seats = available_seats + $2
		 WHERE id = $1`,
		id, count,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}
