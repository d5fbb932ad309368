package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type BookingRepo struct {
	store *Store
	lock  bool
}

func (r *BookingRepo) Create(_ context.Context, b *domain.Booking) error {
	defer guard(r.store, r.lock)()

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	for _, other := range r.store.st.bookings {
		if other.ID == b.ID || other.Code == b.Code {
			return repository.ErrConflict
		}
	}

	r.store.st.bookings[b.ID] = *b
	return nil
}

func (r *BookingRepo) Get(_ context.Context, id uuid.UUID) (*domain.Booking, error) {
	defer guard(r.store, r.lock)()

	b, ok := r.store.st.bookings[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	return r.Get(ctx, id)
}

func (r *BookingRepo) List(_ context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	defer guard(r.store, r.lock)()

	out := make([]domain.Booking, 0)
	for _, b := range r.store.st.bookings {
		if f.UserID != nil && b.UserID != *f.UserID {
			continue
		}
		if f.ScheduleID != nil && b.ScheduleID != *f.ScheduleID {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	return out, nil
}

func (r *BookingRepo) Update(_ context.Context, b *domain.Booking) error {
	defer guard(r.store, r.lock)()

	cur, ok := r.store.st.bookings[b.ID]
	if !ok {
		return repository.ErrNotFound
	}
	cur.PassengerName = b.PassengerName
	cur.PassengerCount = b.PassengerCount
	cur.TotalPrice = b.TotalPrice
	cur.Status = b.Status
	cur.CompletedAt = b.CompletedAt
	r.store.st.bookings[b.ID] = cur
	return nil
}

func (r *BookingRepo) SetReviewStatus(_ context.Context, id uuid.UUID, status domain.ReviewStatus) error {
	defer guard(r.store, r.lock)()

	b, ok := r.store.st.bookings[id]
	if !ok {
		return repository.ErrNotFound
	}
	b.ReviewStatus = status
	r.store.st.bookings[id] = b
	return nil
}

func (r *BookingRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer guard(r.store, r.lock)()

	if _, ok := r.store.st.bookings[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.st.bookings, id)
	for rid, rv := range r.store.st.reviews {
		if rv.BookingID == id {
			delete(r.store.st.reviews, rid)
		}
	}
	return nil
}

func (r *BookingRepo) CountActiveBySchedule(_ context.Context, scheduleID uuid.UUID) (int, error) {
	defer guard(r.store, r.lock)()

	n := 0
	for _, b := range r.store.st.bookings {
		if b.ScheduleID == scheduleID && b.Status != domain.BookingCancelled {
			n++
		}
	}
	return n, nil
}

var _ repository.BookingRepo = (*BookingRepo)(nil)
