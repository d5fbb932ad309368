package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type ScheduleRepo struct {
	store *Store
	lock  bool
}

func (r *ScheduleRepo) Create(_ context.Context, s *domain.Schedule) error {
	defer guard(r.store, r.lock)()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.store.st.schedules[s.ID]; ok {
		return repository.ErrConflict
	}

	r.store.st.schedules[s.ID] = *s
	return nil
}

func (r *ScheduleRepo) Get(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	defer guard(r.store, r.lock)()

	s, ok := r.store.st.schedules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

// GetForUpdate is Get: transactions on the memory store already run one at
// a time.
func (r *ScheduleRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	return r.Get(ctx, id)
}

func (r *ScheduleRepo) Update(_ context.Context, s *domain.Schedule) error {
	defer guard(r.store, r.lock)()

	cur, ok := r.store.st.schedules[s.ID]
	if !ok {
		return repository.ErrNotFound
	}
	s.CreatedAt = cur.CreatedAt
	r.store.st.schedules[s.ID] = *s
	return nil
}

func (r *ScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer guard(r.store, r.lock)()

	if _, ok := r.store.st.schedules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.st.schedules, id)

	// bookings (and their reviews) go with the schedule
	for bid, b := range r.store.st.bookings {
		if b.ScheduleID != id {
			continue
		}
		delete(r.store.st.bookings, bid)
		for rid, rv := range r.store.st.reviews {
			if rv.BookingID == bid {
				delete(r.store.st.reviews, rid)
			}
		}
	}
	return nil
}

func (r *ScheduleRepo) Search(_ context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error) {
	defer guard(r.store, r.lock)()

	origin := strings.ToLower(f.Origin)
	destination := strings.ToLower(f.Destination)

	out := make([]domain.Schedule, 0)
	for _, s := range r.store.st.schedules {
		if origin != "" && !strings.Contains(strings.ToLower(s.Origin), origin) {
			continue
		}
		if destination != "" && !strings.Contains(strings.ToLower(s.Destination), destination) {
			continue
		}
		if f.Type != "" && s.Type != f.Type {
			continue
		}
		if f.DepartureOn != nil {
			day := f.DepartureOn.UTC().Truncate(24 * time.Hour)
			dep := s.DepartureAt.UTC()
			if dep.Before(day) || !dep.Before(day.Add(24*time.Hour)) {
				continue
			}
		}
		if f.PriceMin != nil && s.Price < *f.PriceMin {
			continue
		}
		if f.PriceMax != nil && s.Price > *f.PriceMax {
			continue
		}
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if f.Desc {
			a, b = b, a
		}
		if f.SortBy == "price" && a.Price != b.Price {
			return a.Price < b.Price
		}
		if !a.DepartureAt.Equal(b.DepartureAt) {
			return a.DepartureAt.Before(b.DepartureAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return out, nil
}

func (r *ScheduleRepo) Popular(_ context.Context, limit int) ([]domain.PopularSchedule, error) {
	defer guard(r.store, r.lock)()

	agg := make(map[uuid.UUID]*domain.PopularSchedule)
	for _, b := range r.store.st.bookings {
		if b.Status == domain.BookingCancelled {
			continue
		}
		s, ok := r.store.st.schedules[b.ScheduleID]
		if !ok {
			continue
		}
		p, ok := agg[b.ScheduleID]
		if !ok {
			p = &domain.PopularSchedule{Schedule: s}
			agg[b.ScheduleID] = p
		}
		p.BookingCount++
		p.TotalRevenue += b.TotalPrice
	}

	out := make([]domain.PopularSchedule, 0, len(agg))
	for _, p := range agg {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BookingCount != out[j].BookingCount {
			return out[i].BookingCount > out[j].BookingCount
		}
		if out[i].TotalRevenue != out[j].TotalRevenue {
			return out[i].TotalRevenue > out[j].TotalRevenue
		}
		return out[i].Schedule.ID.String() < out[j].Schedule.ID.String()
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (r *ScheduleRepo) ExistsForCompany(_ context.Context, companyID uuid.UUID) (bool, error) {
	defer guard(r.store, r.lock)()

	for _, s := range r.store.st.schedules {
		if s.CompanyID == companyID {
			return true, nil
		}
	}
	return false, nil
}

func (r *ScheduleRepo) Reserve(_ context.Context, id uuid.UUID, count int) error {
	defer guard(r.store, r.lock)()

	s, ok := r.store.st.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	if s.AvailableSeats < count {
		return repository.ErrInsufficientCapacity
	}
	s.AvailableSeats -= count
	r.store.st.schedules[id] = s
	return nil
}

func (r *ScheduleRepo) Release(_ context.Context, id uuid.UUID, count int) error {
	defer guard(r.store, r.lock)()

	s, ok := r.store.st.schedules[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.AvailableSeats += count
	r.store.st.schedules[id] = s
	return nil
}

var _ repository.ScheduleRepo = (*ScheduleRepo)(nil)
