package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSchedule(t *testing.T, store *memory.Store, seats int) uuid.UUID {
	t.Helper()

	s := domain.Schedule{
		CompanyID:      uuid.New(),
		Type:           domain.TransportBus,
		Origin:         "Kyiv",
		Destination:    "Lviv",
		DepartureAt:    time.Now().Add(24 * time.Hour).UTC(),
		Price:          50000,
		AvailableSeats: seats,
	}
	require.NoError(t, store.Schedules().Create(context.Background(), &s))
	return s.ID
}

func seats(t *testing.T, store *memory.Store, id uuid.UUID) int {
	t.Helper()

	s, err := store.Schedules().Get(context.Background(), id)
	require.NoError(t, err)
	return s.AvailableSeats
}

func TestReserve(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := newSchedule(t, store, 3)

	require.NoError(t, Reserve(ctx, store.Schedules(), id, 2))
	assert.Equal(t, 1, seats(t, store, id))

	err := Reserve(ctx, store.Schedules(), id, 2)
	assert.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.ErrorIs(t, err, domain.ErrInsufficientCapacity)
	assert.Equal(t, 1, seats(t, store, id), "failed reserve must not touch the counter")

	require.NoError(t, Reserve(ctx, store.Schedules(), id, 1))
	assert.Equal(t, 0, seats(t, store, id))
}

func TestReserve_InvalidCount(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := newSchedule(t, store, 3)

	for _, n := range []int{0, -1} {
		err := Reserve(ctx, store.Schedules(), id, n)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, 3, seats(t, store, id))
}

func TestReserve_UnknownSchedule(t *testing.T) {
	err := Reserve(context.Background(), memory.NewStore().Schedules(), uuid.New(), 1)
	assert.ErrorIs(t, err, ErrScheduleNotFound)
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := newSchedule(t, store, 0)

	require.NoError(t, Release(ctx, store.Schedules(), id, 4))
	assert.Equal(t, 4, seats(t, store, id))

	assert.ErrorIs(t, Release(ctx, store.Schedules(), id, 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, Release(ctx, store.Schedules(), uuid.New(), 1), domain.ErrNotFound)
}

func TestAdjust(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	id := newSchedule(t, store, 5)

	require.NoError(t, Adjust(ctx, store.Schedules(), id, 3))
	assert.Equal(t, 2, seats(t, store, id))

	require.NoError(t, Adjust(ctx, store.Schedules(), id, -1))
	assert.Equal(t, 3, seats(t, store, id))

	require.NoError(t, Adjust(ctx, store.Schedules(), id, 0))
	assert.Equal(t, 3, seats(t, store, id))

	assert.ErrorIs(t, Adjust(ctx, store.Schedules(), id, 4), ErrInsufficientCapacity)
	assert.Equal(t, 3, seats(t, store, id))
}
