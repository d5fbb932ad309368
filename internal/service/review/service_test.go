package review

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/events"
	"github.com/kirinyoku/travelgo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(_ context.Context, ev events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) Close() error { return nil }

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

type fixture struct {
	ctx      context.Context
	store    *memory.Store
	svc      *Service
	pub      *recorder
	user     domain.User
	company  domain.Company
	schedule domain.Schedule
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{ctx: context.Background(), store: memory.NewStore(), pub: &recorder{}}

	f.user = domain.User{ID: uuid.New(), Name: "Marta"}
	f.store.PutUser(f.user)

	f.company = domain.Company{Name: "Intercity", Type: "train"}
	require.NoError(t, f.store.Companies().Create(f.ctx, &f.company))

	f.schedule = domain.Schedule{
		CompanyID:      f.company.ID,
		Type:           domain.TransportTrain,
		Origin:         "Lviv",
		Destination:    "Kyiv",
		DepartureAt:    time.Date(2025, 5, 1, 7, 0, 0, 0, time.UTC),
		Price:          42000,
		AvailableSeats: 100,
	}
	require.NoError(t, f.store.Schedules().Create(f.ctx, &f.schedule))

	f.svc = New(f.store, nil, nil, f.pub, nil, Config{})
	return f
}

func (f *fixture) booking(t *testing.T, status domain.BookingStatus) domain.Booking {
	t.Helper()

	b := domain.Booking{
		UserID:         f.user.ID,
		ScheduleID:     f.schedule.ID,
		PassengerName:  "Marta",
		PassengerCount: 1,
		TotalPrice:     f.schedule.Price,
		Status:         status,
		ReviewStatus:   domain.ReviewPending,
		Code:           domain.NewBookingCode(time.Now()),
	}
	require.NoError(t, f.store.Bookings().Create(f.ctx, &b))
	return b
}

func (f *fixture) companyRow(t *testing.T) domain.Company {
	t.Helper()

	c, err := f.store.Companies().Get(f.ctx, f.company.ID)
	require.NoError(t, err)
	return *c
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, domain.BookingCompleted)

	rv, err := f.svc.Submit(f.ctx, b.ID.String(), 4, "  on time  ")
	require.NoError(t, err)
	assert.Equal(t, 4, rv.Rating)
	assert.Equal(t, "on time", rv.Comment)
	assert.Equal(t, f.company.ID, rv.CompanyID)
	assert.Equal(t, f.user.ID, rv.UserID)

	c := f.companyRow(t)
	assert.Equal(t, 4.0, c.AverageRating)
	assert.Equal(t, 1, c.TotalReviews)

	stored, err := f.store.Bookings().Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewDone, stored.ReviewStatus)

	assert.Equal(t, []string{events.ReviewSubmitted}, f.pub.types())
}

func TestSubmit_Aggregates(t *testing.T) {
	f := newFixture(t)

	for _, r := range []int{4, 5} {
		b := f.booking(t, domain.BookingCompleted)
		_, err := f.svc.Submit(f.ctx, b.ID.String(), r, "")
		require.NoError(t, err)
	}

	c := f.companyRow(t)
	assert.Equal(t, 4.5, c.AverageRating)
	assert.Equal(t, 2, c.TotalReviews)
}

func TestSubmit_NotEligible(t *testing.T) {
	f := newFixture(t)

	for _, status := range []domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed, domain.BookingCancelled} {
		b := f.booking(t, status)
		_, err := f.svc.Submit(f.ctx, b.ID.String(), 5, "")
		assert.ErrorIs(t, err, domain.ErrNotEligible, status)
	}

	c := f.companyRow(t)
	assert.Equal(t, 0, c.TotalReviews)
	assert.Empty(t, f.pub.types())
}

func TestSubmit_AlreadyReviewed(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, domain.BookingCompleted)

	_, err := f.svc.Submit(f.ctx, b.ID.String(), 3, "")
	require.NoError(t, err)

	_, err = f.svc.Submit(f.ctx, b.ID.String(), 5, "changed my mind")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.ErrorIs(t, err, domain.ErrAlreadyReviewed)

	c := f.companyRow(t)
	assert.Equal(t, 3.0, c.AverageRating)
	assert.Equal(t, 1, c.TotalReviews)
}

func TestSubmit_Validation(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, domain.BookingCompleted)

	for _, r := range []int{0, 6, -1} {
		_, err := f.svc.Submit(f.ctx, b.ID.String(), r, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}

	_, err := f.svc.Submit(f.ctx, "not-an-id", 3, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Submit(f.ctx, uuid.NewString(), 3, "")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	b1 := f.booking(t, domain.BookingCompleted)
	b2 := f.booking(t, domain.BookingCompleted)

	rv, err := f.svc.Submit(f.ctx, b1.ID.String(), 2, "meh")
	require.NoError(t, err)
	_, err = f.svc.Submit(f.ctx, b2.ID.String(), 4, "")
	require.NoError(t, err)
	require.Equal(t, 3.0, f.companyRow(t).AverageRating)

	rating := 5
	comment := "better on second thought"
	got, err := f.svc.Update(f.ctx, rv.ID.String(), UpdateInput{Rating: &rating, Comment: &comment})
	require.NoError(t, err)
	assert.Equal(t, 5, got.Rating)
	assert.Equal(t, comment, got.Comment)

	c := f.companyRow(t)
	assert.Equal(t, 4.5, c.AverageRating)
	assert.Equal(t, 2, c.TotalReviews)

	bad := 9
	_, err = f.svc.Update(f.ctx, rv.ID.String(), UpdateInput{Rating: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.svc.Update(f.ctx, uuid.NewString(), UpdateInput{Rating: &rating})
	assert.ErrorIs(t, err, ErrReviewNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, domain.BookingCompleted)

	rv, err := f.svc.Submit(f.ctx, b.ID.String(), 5, "")
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(f.ctx, rv.ID.String()))

	c := f.companyRow(t)
	assert.Equal(t, 0.0, c.AverageRating)
	assert.Equal(t, 0, c.TotalReviews)

	stored, err := f.store.Bookings().Get(f.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReviewPending, stored.ReviewStatus)

	// the booking can be reviewed again
	_, err = f.svc.Submit(f.ctx, b.ID.String(), 3, "")
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.Delete(f.ctx, rv.ID.String()), ErrReviewNotFound)
	assert.Equal(t, []string{events.ReviewSubmitted, events.ReviewDeleted, events.ReviewSubmitted}, f.pub.types())
}

func TestConcurrentSubmitsKeepAggregateExact(t *testing.T) {
	f := newFixture(t)

	ratings := []int{1, 2, 3, 4, 5, 5, 4, 3}
	bookings := make([]domain.Booking, len(ratings))
	for i := range ratings {
		bookings[i] = f.booking(t, domain.BookingCompleted)
	}

	var wg sync.WaitGroup
	for i := range ratings {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.Submit(f.ctx, bookings[i].ID.String(), ratings[i], "")
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	c := f.companyRow(t)
	assert.Equal(t, len(ratings), c.TotalReviews)
	assert.InDelta(t, 3.4, c.AverageRating, 1e-9)
}

func TestLists(t *testing.T) {
	f := newFixture(t)
	b := f.booking(t, domain.BookingCompleted)

	_, err := f.svc.Submit(f.ctx, b.ID.String(), 4, "clean carriages")
	require.NoError(t, err)

	bySchedule, err := f.svc.ListBySchedule(f.ctx, f.schedule.ID.String())
	require.NoError(t, err)
	require.Len(t, bySchedule, 1)
	assert.Equal(t, "Marta", bySchedule[0].UserName)
	assert.Equal(t, "clean carriages", bySchedule[0].Comment)

	byCompany, err := f.svc.ListByCompany(f.ctx, f.company.ID.String())
	require.NoError(t, err)
	assert.Len(t, byCompany, 1)

	_, err = f.svc.ListBySchedule(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrScheduleNotFound)

	_, err = f.svc.ListByCompany(f.ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrCompanyNotFound)
}
