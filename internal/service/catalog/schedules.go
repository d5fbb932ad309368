package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kirinyoku/travelgo/internal/domain"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/uow"
)

type ScheduleInput struct {
	CompanyID      string
	Type           string
	Origin         string
	Destination    string
	DepartureAt    time.Time
	ArrivalAt      *time.Time
	Price          int64
	AvailableSeats int
}

// SchedulePatch is a partial update; nil fields are left as they are.
// AvailableSeats overwrites the counter and is meant for admin corrections.
type SchedulePatch struct {
	CompanyID      *string
	Type           *string
	Origin         *string
	Destination    *string
	DepartureAt    *time.Time
	ArrivalAt      *time.Time
	Price          *int64
	AvailableSeats *int
}

// CreateSchedule adds a departure for an existing company.
func (s *Service) CreateSchedule(ctx context.Context, in ScheduleInput) (*domain.Schedule, error) {
	const op = "service.catalog.CreateSchedule"

	cid, err := domain.ParseID("company_id", in.CompanyID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	sched := domain.Schedule{
		CompanyID:      cid,
		Type:           domain.TransportType(strings.ToLower(strings.TrimSpace(in.Type))),
		Origin:         strings.TrimSpace(in.Origin),
		Destination:    strings.TrimSpace(in.Destination),
		DepartureAt:    in.DepartureAt.UTC(),
		ArrivalAt:      utcPtr(in.ArrivalAt),
		Price:          in.Price,
		AvailableSeats: in.AvailableSeats,
	}

	if err := validateSchedule(&sched); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		if _, err := tx.Companies().Get(ctx, cid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCompanyNotFound
			}
			return err
		}

		if err := tx.Schedules().Create(ctx, &sched); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCompanyNotFound
			}
			return err
		}

		after(func(ctx context.Context) {
			s.scheduleChanged(ctx, sched.ID)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &sched, nil
}

func (s *Service) UpdateSchedule(ctx context.Context, id string, in SchedulePatch) (*domain.Schedule, error) {
	const op = "service.catalog.UpdateSchedule"

	sid, err := domain.ParseID("schedule_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var updated domain.Schedule

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		// the row lock keeps bookings from moving the seat counter until the
		// whole row is written back
		sched, err := tx.Schedules().GetForUpdate(ctx, sid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}

		if in.CompanyID != nil {
			cid, err := domain.ParseID("company_id", *in.CompanyID)
			if err != nil {
				return err
			}
			if _, err := tx.Companies().Get(ctx, cid); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrCompanyNotFound
				}
				return err
			}
			if cid != sched.CompanyID {
				// reviews keep the company they were written for
				reviews, err := tx.Reviews().ListBySchedule(ctx, sid)
				if err != nil {
					return err
				}
				if len(reviews) > 0 {
					return ErrScheduleReviewed
				}
			}
			sched.CompanyID = cid
		}
		if in.Type != nil {
			sched.Type = domain.TransportType(strings.ToLower(strings.TrimSpace(*in.Type)))
		}
		if in.Origin != nil {
			sched.Origin = strings.TrimSpace(*in.Origin)
		}
		if in.Destination != nil {
			sched.Destination = strings.TrimSpace(*in.Destination)
		}
		if in.DepartureAt != nil {
			sched.DepartureAt = in.DepartureAt.UTC()
		}
		if in.ArrivalAt != nil {
			sched.ArrivalAt = utcPtr(in.ArrivalAt)
		}
		if in.Price != nil {
			sched.Price = *in.Price
		}
		if in.AvailableSeats != nil {
			sched.AvailableSeats = *in.AvailableSeats
		}

		if err := validateSchedule(sched); err != nil {
			return err
		}

		if err := tx.Schedules().Update(ctx, sched); err != nil {
			return err
		}

		updated = *sched

		after(func(ctx context.Context) {
			s.scheduleChanged(ctx, sid)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// DeleteSchedule removes a schedule that has no pending, confirmed or
// completed bookings. Cancelled bookings are removed with it.
func (s *Service) DeleteSchedule(ctx context.Context, id string) error {
	const op = "service.catalog.DeleteSchedule"

	sid, err := domain.ParseID("schedule_id", id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		// locked before counting so no booking can be reserved in between
		if _, err := tx.Schedules().GetForUpdate(ctx, sid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}

		active, err := tx.Bookings().CountActiveBySchedule(ctx, sid)
		if err != nil {
			return err
		}
		if active > 0 {
			return ErrScheduleInUse
		}

		if err := tx.Schedules().Delete(ctx, sid); err != nil {
			return err
		}

		after(func(ctx context.Context) {
			s.scheduleChanged(ctx, sid)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) GetSchedule(ctx context.Context, id string) (*domain.Schedule, error) {
	const op = "service.catalog.GetSchedule"

	sid, err := domain.ParseID("schedule_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	sched, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeySchedule(sid), s.cfg.ScheduleTTL,
		func(ctx context.Context) (*domain.Schedule, error) {
			sched, err := s.store.Schedules().Get(ctx, sid)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrScheduleNotFound
			}
			return sched, err
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return sched, nil
}

// SearchSchedules lists schedules matching f. Results are never cached.
func (s *Service) SearchSchedules(ctx context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error) {
	const op = "service.catalog.SearchSchedules"

	f.Origin = strings.TrimSpace(f.Origin)
	f.Destination = strings.TrimSpace(f.Destination)

	if f.Type != "" && !f.Type.Valid() {
		return nil, fmt.Errorf("%s:%w", op, ErrTransportType)
	}

	switch f.SortBy {
	case "", "departure_at", "price":
	default:
		return nil, fmt.Errorf("%s:%w", op, ErrSortBy)
	}

	if (f.PriceMin != nil && *f.PriceMin < 0) || (f.PriceMax != nil && *f.PriceMax < 0) {
		return nil, fmt.Errorf("%s:%w", op, ErrNegativePrice)
	}

	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return nil, fmt.Errorf("%s:%w", op, ErrPriceRange)
	}

	out, err := s.store.Schedules().Search(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// PopularSchedules returns the most booked schedules with their revenue.
func (s *Service) PopularSchedules(ctx context.Context) ([]domain.PopularSchedule, error) {
	const op = "service.catalog.PopularSchedules"

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyPopularSchedules(), s.cfg.ScheduleTTL,
		func(ctx context.Context) ([]domain.PopularSchedule, error) {
			return s.store.Schedules().Popular(ctx, s.cfg.PopularLimit)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func validateSchedule(s *domain.Schedule) error {
	switch {
	case !s.Type.Valid():
		return ErrTransportType
	case s.Origin == "" || s.Destination == "":
		return ErrBlankRoute
	case s.DepartureAt.IsZero():
		return ErrMissingDeparture
	case s.ArrivalAt != nil && !s.ArrivalAt.After(s.DepartureAt):
		return ErrArrivalOrder
	case s.Price < 0:
		return ErrNegativePrice
	case s.AvailableSeats < 0:
		return ErrNegativeSeats
	}
	return nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
