package catalog

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
	"github.com/kirinyoku/travelgo/internal/repository/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// lockingStore counts schedule row locks taken inside transactions.
type lockingStore struct {
	*memory.Store
	mu     sync.Mutex
	locked []uuid.UUID
}

func (s *lockingStore) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	return s.Store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
		return fn(ctx, lockingRepos{Repos: tx, store: s})
	})
}

type lockingRepos struct {
	repository.Repos
	store *lockingStore
}

func (r lockingRepos) Schedules() repository.ScheduleRepo {
	return lockingSchedules{ScheduleRepo: r.Repos.Schedules(), store: r.store}
}

type lockingSchedules struct {
	repository.ScheduleRepo
	store *lockingStore
}

func (s lockingSchedules) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	s.store.mu.Lock()
	s.store.locked = append(s.store.locked, id)
	s.store.mu.Unlock()
	return s.ScheduleRepo.GetForUpdate(ctx, id)
}

func TestScheduleWritesLockTheRow(t *testing.T) {
	ctx := context.Background()
	ls := &lockingStore{Store: memory.NewStore()}
	s := New(ls, nil, nil, nil, Config{})

	c := mustCompany(t, s, "Theta")
	sched := mustSchedule(t, s, ScheduleInput{
		CompanyID:      c.ID.String(),
		Type:           "bus",
		Origin:         "Kyiv",
		Destination:    "Poltava",
		DepartureAt:    time.Now().Add(time.Hour),
		Price:          500,
		AvailableSeats: 10,
	})

	price := int64(700)
	_, err := s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{Price: &price})
	require.NoError(t, err)
	require.NoError(t, s.DeleteSchedule(ctx, sched.ID.String()))

	assert.Equal(t, []uuid.UUID{sched.ID, sched.ID}, ls.locked)
}

func TestUpdateSchedule_PriceEditKeepsSoldSeats(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)
	c := mustCompany(t, s, "Iota")
	sched := mustSchedule(t, s, ScheduleInput{
		CompanyID:      c.ID.String(),
		Type:           "bus",
		Origin:         "Kyiv",
		Destination:    "Chernihiv",
		DepartureAt:    time.Now().Add(time.Hour),
		Price:          500,
		AvailableSeats: 40,
	})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.RunTx(ctx, func(ctx context.Context, tx repository.Repos) error {
				return tx.Schedules().Reserve(ctx, sched.ID, 1)
			}))
		}()
		go func() {
			defer wg.Done()
			price := int64(600 + i)
			_, err := s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{Price: &price})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.Schedules().Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, 30, got.AvailableSeats)
}

func TestUpdateSchedule_CompanyMoveWithReviews(t *testing.T) {
	ctx := context.Background()
	s, store := newService(t)
	from := mustCompany(t, s, "Kappa")
	to := mustCompany(t, s, "Lambda")
	sched := mustSchedule(t, s, ScheduleInput{
		CompanyID:      from.ID.String(),
		Type:           "flight",
		Origin:         "Kyiv",
		Destination:    "Warsaw",
		DepartureAt:    time.Now().Add(time.Hour),
		Price:          9000,
		AvailableSeats: 10,
	})

	toID := to.ID.String()

	// no reviews yet: the move is allowed and back again
	got, err := s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{CompanyID: &toID})
	require.NoError(t, err)
	assert.Equal(t, to.ID, got.CompanyID)

	fromID := from.ID.String()
	_, err = s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{CompanyID: &fromID})
	require.NoError(t, err)

	b := domain.Booking{ScheduleID: sched.ID, Status: domain.BookingCompleted, Code: "TRAV-20250101-00000A"}
	require.NoError(t, store.Bookings().Create(ctx, &b))
	rv := domain.Review{BookingID: b.ID, CompanyID: from.ID, Rating: 4}
	require.NoError(t, store.Reviews().Create(ctx, &rv))

	_, err = s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{CompanyID: &toID})
	require.ErrorIs(t, err, ErrScheduleReviewed)
	assert.ErrorIs(t, err, domain.ErrConflict)

	// naming the current company is not a move
	_, err = s.UpdateSchedule(ctx, sched.ID.String(), SchedulePatch{CompanyID: &fromID})
	assert.NoError(t, err)

	stored, err := store.Schedules().Get(ctx, sched.ID)
	require.NoError(t, err)
	assert.Equal(t, from.ID, stored.CompanyID)
}
