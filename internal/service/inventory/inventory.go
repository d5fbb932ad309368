// Package inventory moves seats in and out of a schedule's available_seats
// counter. Callers pass the schedule repository bound to their transaction.
package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

var (
	ErrInvalidCount         = domain.Errorf(domain.ErrInvalidInput, "seat count must be at least 1")
	ErrScheduleNotFound     = domain.Errorf(domain.ErrNotFound, "schedule not found")
	ErrInsufficientCapacity = domain.Errorf(domain.ErrInsufficientCapacity, "not enough seats available")
)

// Reserve takes count seats from the schedule, or fails with
// ErrInsufficientCapacity and leaves the counter untouched.
func Reserve(ctx context.Context, schedules repository.ScheduleRepo, scheduleID uuid.UUID, count int) error {
	const op = "service.inventory.Reserve"

	if count < 1 {
		return fmt.Errorf("%s:%w", op, ErrInvalidCount)
	}

	if err := schedules.Reserve(ctx, scheduleID, count); err != nil {
		return fmt.Errorf("%s:%w", op, translate(err))
	}

	return nil
}

// Release gives count seats back to the schedule. There is no capacity cap.
func Release(ctx context.Context, schedules repository.ScheduleRepo, scheduleID uuid.UUID, count int) error {
	const op = "service.inventory.Release"

	if count < 1 {
		return fmt.Errorf("%s:%w", op, ErrInvalidCount)
	}

	if err := schedules.Release(ctx, scheduleID, count); err != nil {
		return fmt.Errorf("%s:%w", op, translate(err))
	}

	return nil
}

// Adjust applies a passenger count change of diff seats: a positive diff
// reserves, a negative one releases, zero is a no-op.
func Adjust(ctx context.Context, schedules repository.ScheduleRepo, scheduleID uuid.UUID, diff int) error {
	switch {
	case diff > 0:
		return Reserve(ctx, schedules, scheduleID, diff)
	case diff < 0:
		return Release(ctx, schedules, scheduleID, -diff)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, repository.ErrInsufficientCapacity):
		return ErrInsufficientCapacity
	case errors.Is(err, repository.ErrNotFound):
		return ErrScheduleNotFound
	}
	return err
}
