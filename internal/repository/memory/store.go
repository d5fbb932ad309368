// Package memory is an in-process implementation of repository.Store. It backs
// the service tests and local runs started with STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type state struct {
	users     map[uuid.UUID]domain.User
	companies map[uuid.UUID]domain.Company
	schedules map[uuid.UUID]domain.Schedule
	bookings  map[uuid.UUID]domain.Booking
	reviews   map[uuid.UUID]domain.Review
}

func newState() *state {
	return &state{
		users:     make(map[uuid.UUID]domain.User),
		companies: make(map[uuid.UUID]domain.Company),
		schedules: make(map[uuid.UUID]domain.Schedule),
		bookings:  make(map[uuid.UUID]domain.Booking),
		reviews:   make(map[uuid.UUID]domain.Review),
	}
}

func (s *state) clone() *state {
	cp := newState()
	for k, v := range s.users {
		cp.users[k] = v
	}
	for k, v := range s.companies {
		cp.companies[k] = v
	}
	for k, v := range s.schedules {
		cp.schedules[k] = v
	}
	for k, v := range s.bookings {
		cp.bookings[k] = v
	}
	for k, v := range s.reviews {
		cp.reviews[k] = v
	}
	return cp
}

// Store keeps every entity in maps guarded by a single mutex. A transaction
// holds the mutex for its whole duration and restores a snapshot on error, so
// transactions are serialized and all-or-nothing.
type Store struct {
	mu sync.Mutex
	st *state
}

func NewStore() *Store {
	return &Store{st: newState()}
}

// PutUser seeds the identity store.
func (s *Store) PutUser(u domain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.users[u.ID] = u
}

func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	if err := fn(ctx, &repos{store: s}); err != nil {
		s.st = snapshot
		return err
	}

	return nil
}

func (s *Store) Schedules() repository.ScheduleRepo { return &ScheduleRepo{store: s, lock: true} }
func (s *Store) Bookings() repository.BookingRepo   { return &BookingRepo{store: s, lock: true} }
func (s *Store) Companies() repository.CompanyRepo  { return &CompanyRepo{store: s, lock: true} }
func (s *Store) Reviews() repository.ReviewRepo     { return &ReviewRepo{store: s, lock: true} }
func (s *Store) Users() repository.UserRepo         { return &UserRepo{store: s, lock: true} }

// repos is handed to RunTx callbacks; the store mutex is already held.
type repos struct {
	store *Store
}

func (r *repos) Schedules() repository.ScheduleRepo { return &ScheduleRepo{store: r.store} }
func (r *repos) Bookings() repository.BookingRepo   { return &BookingRepo{store: r.store} }
func (r *repos) Companies() repository.CompanyRepo  { return &CompanyRepo{store: r.store} }
func (r *repos) Reviews() repository.ReviewRepo     { return &ReviewRepo{store: r.store} }
func (r *repos) Users() repository.UserRepo         { return &UserRepo{store: r.store} }

// guard locks the store unless the caller runs inside a transaction.
func guard(s *Store, lock bool) func() {
	if !lock {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Repos = (*repos)(nil)
)
