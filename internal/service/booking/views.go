package booking

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

// viewer joins bookings with their schedule and user for display. Lookups
// are memoized per call; a missing schedule or user leaves that part empty.
type viewer struct {
	repos     repository.Repos
	schedules map[uuid.UUID]*domain.ScheduleSummary
	users     map[uuid.UUID]*domain.UserSummary
}

func newViewer(repos repository.Repos) *viewer {
	return &viewer{
		repos:     repos,
		schedules: make(map[uuid.UUID]*domain.ScheduleSummary),
		users:     make(map[uuid.UUID]*domain.UserSummary),
	}
}

func (v *viewer) views(ctx context.Context, bookings []domain.Booking) ([]domain.BookingView, error) {
	out := make([]domain.BookingView, 0, len(bookings))
	for _, b := range bookings {
		sched, err := v.schedule(ctx, b.ScheduleID)
		if err != nil {
			return nil, err
		}
		user, err := v.user(ctx, b.UserID)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.BookingView{
			Booking:      b,
			ScheduleInfo: sched,
			UserInfo:     user,
		})
	}
	return out, nil
}

func (v *viewer) schedule(ctx context.Context, id uuid.UUID) (*domain.ScheduleSummary, error) {
	if s, ok := v.schedules[id]; ok {
		return s, nil
	}

	sched, err := v.repos.Schedules().Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var summary *domain.ScheduleSummary
	if sched != nil {
		summary = &domain.ScheduleSummary{
			Origin:      sched.Origin,
			Destination: sched.Destination,
			DepartureAt: sched.DepartureAt,
			Price:       sched.Price,
			Type:        sched.Type,
		}
	}

	v.schedules[id] = summary
	return summary, nil
}

func (v *viewer) user(ctx context.Context, id uuid.UUID) (*domain.UserSummary, error) {
	if u, ok := v.users[id]; ok {
		return u, nil
	}

	user, err := v.repos.Users().Get(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var summary *domain.UserSummary
	if user != nil {
		summary = &domain.UserSummary{Name: user.Name, Email: user.Email}
	}

	v.users[id] = summary
	return summary, nil
}
