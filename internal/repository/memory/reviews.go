package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type ReviewRepo struct {
	store *Store
	lock  bool
}

func (r *ReviewRepo) Create(_ context.Context, rv *domain.Review) error {
	defer guard(r.store, r.lock)()

	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	if rv.CreatedAt.IsZero() {
		rv.CreatedAt = time.Now().UTC()
	}
	for _, other := range r.store.st.reviews {
		if other.ID == rv.ID || other.BookingID == rv.BookingID {
			return repository.ErrConflict
		}
	}

	r.store.st.reviews[rv.ID] = *rv
	return nil
}

func (r *ReviewRepo) Get(_ context.Context, id uuid.UUID) (*domain.Review, error) {
	defer guard(r.store, r.lock)()

	rv, ok := r.store.st.reviews[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &rv, nil
}

func (r *ReviewRepo) GetByBooking(_ context.Context, bookingID uuid.UUID) (*domain.Review, error) {
	defer guard(r.store, r.lock)()

	for _, rv := range r.store.st.reviews {
		if rv.BookingID == bookingID {
			return &rv, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *ReviewRepo) Update(_ context.Context, rv *domain.Review) error {
	defer guard(r.store, r.lock)()

	cur, ok := r.store.st.reviews[rv.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.Rating = rv.Rating
	cur.Comment = rv.Comment
	r.store.st.reviews[rv.ID] = cur
	return nil
}

func (r *ReviewRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer guard(r.store, r.lock)()

	if _, ok := r.store.st.reviews[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.st.reviews, id)
	return nil
}

func (r *ReviewRepo) RatingsByCompany(_ context.Context, companyID uuid.UUID) ([]int, error) {
	defer guard(r.store, r.lock)()

	out := make([]int, 0)
	for _, rv := range r.store.st.reviews {
		if rv.CompanyID == companyID {
			out = append(out, rv.Rating)
		}
	}
	return out, nil
}

func (r *ReviewRepo) ListByCompany(_ context.Context, companyID uuid.UUID) ([]domain.Review, error) {
	defer guard(r.store, r.lock)()

	return r.collect(func(rv domain.Review) bool { return rv.CompanyID == companyID }), nil
}

func (r *ReviewRepo) ListBySchedule(_ context.Context, scheduleID uuid.UUID) ([]domain.Review, error) {
	defer guard(r.store, r.lock)()

	return r.collect(func(rv domain.Review) bool {
		b, ok := r.store.st.bookings[rv.BookingID]
		return ok && b.ScheduleID == scheduleID
	}), nil
}

func (r *ReviewRepo) collect(match func(domain.Review) bool) []domain.Review {
	out := make([]domain.Review, 0)
	for _, rv := range r.store.st.reviews {
		if match(rv) {
			out = append(out, rv)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

var _ repository.ReviewRepo = (*ReviewRepo)(nil)
