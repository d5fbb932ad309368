package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedSchedule(t *testing.T, s *Store, seats int) domain.Schedule {
	t.Helper()

	c := domain.Company{Name: "Coach " + uuid.NewString()[:8], Type: "bus"}
	require.NoError(t, s.Companies().Create(context.Background(), &c))

	sched := domain.Schedule{
		CompanyID:      c.ID,
		Type:           domain.TransportBus,
		Origin:         "Warsaw",
		Destination:    "Berlin",
		DepartureAt:    time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC),
		Price:          9900,
		AvailableSeats: seats,
	}
	require.NoError(t, s.Schedules().Create(context.Background(), &sched))
	return sched
}

func TestRunTx_RollbackRestoresState(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sched := seedSchedule(t, s, 5)

	boom := errors.New("boom")
	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		require.NoError(t, tx.Schedules().Reserve(ctx, sched.ID, 3))
		b := domain.Booking{ScheduleID: sched.ID, UserID: uuid.New(), PassengerCount: 3, Code: "TRAV-20250601-AAAAAA"}
		require.NoError(t, tx.Bookings().Create(ctx, &b))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Schedules().Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, got.AvailableSeats)

	list, err := s.Bookings().List(ctx, domain.BookingFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRunTx_Commit(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sched := seedSchedule(t, s, 5)

	err := s.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		return tx.Schedules().Reserve(ctx, sched.ID, 5)
	})
	require.NoError(t, err)

	got, err := s.Schedules().Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.AvailableSeats)

	assert.ErrorIs(t, s.Schedules().Reserve(ctx, sched.ID, 1), repository.ErrInsufficientCapacity)
}

func TestBookings_CodeUnique(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sched := seedSchedule(t, s, 5)

	a := domain.Booking{ScheduleID: sched.ID, Code: "TRAV-20250601-ABCDEF"}
	require.NoError(t, s.Bookings().Create(ctx, &a))

	b := domain.Booking{ScheduleID: sched.ID, Code: "TRAV-20250601-ABCDEF"}
	assert.ErrorIs(t, s.Bookings().Create(ctx, &b), repository.ErrConflict)
}

func TestCompanies_NameCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a := domain.Company{Name: "SkyLine", Type: "airline"}
	require.NoError(t, s.Companies().Create(ctx, &a))

	b := domain.Company{Name: "skyline", Type: "airline"}
	assert.ErrorIs(t, s.Companies().Create(ctx, &b), repository.ErrConflict)
}

func TestSchedules_DeleteCascades(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	sched := seedSchedule(t, s, 5)

	b := domain.Booking{ScheduleID: sched.ID, Status: domain.BookingCancelled, Code: "TRAV-20250601-000001"}
	require.NoError(t, s.Bookings().Create(ctx, &b))
	rv := domain.Review{BookingID: b.ID, CompanyID: sched.CompanyID, Rating: 3}
	require.NoError(t, s.Reviews().Create(ctx, &rv))

	require.NoError(t, s.Schedules().Delete(ctx, sched.ID))

	_, err := s.Bookings().Get(ctx, b.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = s.Reviews().Get(ctx, rv.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSchedules_Popular(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	quiet := seedSchedule(t, s, 10)
	busy := seedSchedule(t, s, 10)

	add := func(scheduleID uuid.UUID, total int64, status domain.BookingStatus) {
		b := domain.Booking{ScheduleID: scheduleID, TotalPrice: total, Status: status, Code: uuid.NewString()}
		require.NoError(t, s.Bookings().Create(ctx, &b))
	}
	add(busy.ID, 100, domain.BookingPending)
	add(busy.ID, 200, domain.BookingCompleted)
	add(quiet.ID, 999, domain.BookingConfirmed)
	add(quiet.ID, 999, domain.BookingCancelled)

	out, err := s.Schedules().Popular(ctx, 5)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, busy.ID, out[0].Schedule.ID)
	assert.Equal(t, 2, out[0].BookingCount)
	assert.Equal(t, int64(300), out[0].TotalRevenue)
	assert.Equal(t, quiet.ID, out[1].Schedule.ID)
	assert.Equal(t, 1, out[1].BookingCount)

	out, err = s.Schedules().Popular(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
