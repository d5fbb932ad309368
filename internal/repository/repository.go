package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
)

// ScheduleRepo persists schedules and owns the seat counter.
type ScheduleRepo interface {
	Create(ctx context.Context, s *domain.Schedule) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	// GetForUpdate is Get plus a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	Update(ctx context.Context, s *domain.Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error)
	Popular(ctx context.Context, limit int) ([]domain.PopularSchedule, error)
	ExistsForCompany(ctx context.Context, companyID uuid.UUID) (bool, error)

	// Reserve decrements available seats by count in a single conditional
	// update. It returns ErrInsufficientCapacity when fewer than count seats
	// are left and ErrNotFound when the schedule does not exist.
	Reserve(ctx context.Context, id uuid.UUID, count int) error
	// Release increments available seats by count. There is no upper bound.
	Release(ctx context.Context, id uuid.UUID, count int) error
}

// BookingRepo persists bookings. Writers that read a booking and then write
// it back load it with GetForUpdate. Locks are taken in the order company,
// booking, schedule.
type BookingRepo interface {
	Create(ctx context.Context, b *domain.Booking) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	// GetForUpdate is Get plus a row lock held until the transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error)
	List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error)
	// Update writes passenger name/count, total price, status and completion time.
	Update(ctx context.Context, b *domain.Booking) error
	SetReviewStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) error
	Delete(ctx context.Context, id uuid.UUID) error
	// CountActiveBySchedule counts bookings of a schedule that are not cancelled.
	CountActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error)
}

type CompanyRepo interface {
	Create(ctx context.Context, c *domain.Company) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Company, error)
	List(ctx context.Context) ([]domain.Company, error)
	// Update writes the descriptive fields only; cached rating fields are
	// written exclusively through SetRating.
	Update(ctx context.Context, c *domain.Company) error
	Delete(ctx context.Context, id uuid.UUID) error
	// Lock takes a row lock on the company for the rest of the transaction.
	Lock(ctx context.Context, id uuid.UUID) error
	SetRating(ctx context.Context, id uuid.UUID, average float64, total int) error
}

type ReviewRepo interface {
	Create(ctx context.Context, r *domain.Review) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Review, error)
	GetByBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Review, error)
	Update(ctx context.Context, r *domain.Review) error
	Delete(ctx context.Context, id uuid.UUID) error
	RatingsByCompany(ctx context.Context, companyID uuid.UUID) ([]int, error)
	ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Review, error)
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]domain.Review, error)
}

// UserRepo is a read-only view of the external identity store.
type UserRepo interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// Repos groups the per-entity repositories bound to one handle (pool or tx).
type Repos interface {
	Schedules() ScheduleRepo
	Bookings() BookingRepo
	Companies() CompanyRepo
	Reviews() ReviewRepo
	Users() UserRepo
}

// Store is the persistence port used by services.
type Store interface {
	Repos
	// RunTx runs fn in a transaction. Any error returned by fn rolls back
	// every write made through tx.
	RunTx(ctx context.Context, fn func(ctx context.Context, tx Repos) error) error
}
