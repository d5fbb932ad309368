// Package booking runs the booking lifecycle against the schedule inventory:
// create, amend, complete and cancel, each as one transaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/events"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/service/inventory"
	"github.com/kirinyoku/travelgo/internal/service/rating"
	"github.com/kirinyoku/travelgo/internal/uow"
)

type Config struct {
	// Now is the clock used for booking codes and completion stamps.
	Now func() time.Time
}

type Service struct {
	store     repository.Store
	cache     *redisrepo.Cache
	pubsub    *redisx.CatalogPubSub
	limiter   *redisrepo.SlidingWindowLimiter
	publisher events.Publisher
	logger    *slog.Logger
	uow       *uow.UoW
	cfg       Config
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.CatalogPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	if publisher == nil {
		publisher = events.Nop{}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:     store,
		cache:     cache,
		pubsub:    pubsub,
		limiter:   limiter,
		publisher: publisher,
		logger:    logger,
		uow:       uow.NewUoW(store),
		cfg:       cfg,
	}
}

type CreateInput struct {
	UserID         string
	ScheduleID     string
	PassengerName  string
	PassengerCount int
}

// Create books PassengerCount seats on a schedule for a user.
//
// The booking insert and the seat reservation commit together or not at all.
//
// Parameters:
//   - ctx: request-scoped context.
//   - in: booking request.
//   - rlKey: rate limit bucket of the caller, empty to skip limiting.
//
// Returns:
//   - *domain.Booking: the new booking in status pending.
//   - error: a domain.ErrInvalidInput kind for malformed ids, blank name or count < 1.
//   - error: ErrScheduleNotFound / ErrUserNotFound.
//   - error: inventory.ErrInsufficientCapacity if fewer seats are available.
//   - error: RateLimitedError if the caller is over the limit.
func (s *Service) Create(ctx context.Context, in CreateInput, rlKey string) (*domain.Booking, error) {
	const op = "service.booking.Create"

	userID, err := domain.ParseID("user_id", in.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	scheduleID, err := domain.ParseID("schedule_id", in.ScheduleID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	name := strings.TrimSpace(in.PassengerName)
	if name == "" {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPassengerName)
	}

	if in.PassengerCount < 1 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPassengerCount)
	}

	if rlKey != "" {
		d, err := s.limiter.Allow(ctx, rlKey)
		if err != nil {
			s.logger.Warn("rate limiter unavailable", slog.String("op", op), slog.Any("error", err))
		} else if !d.Allowed {
			return nil, fmt.Errorf("%s:%w", op, RateLimitedError{RetryAfter: d.RetryAfter})
		}
	}

	var created domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		if _, err := tx.Users().Get(ctx, userID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		sched, err := tx.Schedules().Get(ctx, scheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}

		if err := inventory.Reserve(ctx, tx.Schedules(), scheduleID, in.PassengerCount); err != nil {
			return err
		}

		now := s.cfg.Now().UTC()
		b := domain.Booking{
			ID:             uuid.New(),
			UserID:         userID,
			ScheduleID:     scheduleID,
			PassengerName:  name,
			PassengerCount: in.PassengerCount,
			TotalPrice:     sched.Price * int64(in.PassengerCount),
			Status:         domain.BookingPending,
			ReviewStatus:   domain.ReviewPending,
			Code:           domain.NewBookingCode(now),
			CreatedAt:      now,
		}

		if err := tx.Bookings().Create(ctx, &b); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCodeConflict
			}
			return err
		}

		created = b

		after(func(ctx context.Context) {
			s.scheduleChanged(ctx, scheduleID)
			s.emit(ctx, events.New(events.BookingCreated, b.ID, b))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &created, nil
}

// Get returns a booking with its schedule summary and passenger's user name.
func (s *Service) Get(ctx context.Context, id string) (*domain.BookingView, error) {
	const op = "service.booking.Get"

	bookingID, err := domain.ParseID("booking_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	b, err := s.store.Bookings().Get(ctx, bookingID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%s:%w", op, ErrBookingNotFound)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	views, err := newViewer(s.store).views(ctx, []domain.Booking{*b})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &views[0], nil
}

// List returns bookings newest first. An empty userID lists every booking.
func (s *Service) List(ctx context.Context, userID string) ([]domain.BookingView, error) {
	const op = "service.booking.List"

	var f domain.BookingFilter
	if userID != "" {
		uid, err := domain.ParseID("user_id", userID)
		if err != nil {
			return nil, fmt.Errorf("%s:%w", op, err)
		}
		f.UserID = &uid
	}

	bookings, err := s.store.Bookings().List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	views, err := newViewer(s.store).views(ctx, bookings)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return views, nil
}

// AmendInput is a partial update; nil fields are left as they are.
type AmendInput struct {
	PassengerName  *string
	PassengerCount *int
	Status         *string
}

// Amend applies a partial update to a booking.
//
// A passenger count change moves the seat difference through the inventory
// and reprices the booking at the schedule's current price. A status change
// to cancelled releases the booking's seats; a change to completed stamps
// completed_at. Any failure leaves the booking and the seats untouched.
//
// Returns:
//   - *domain.Booking: the updated booking.
//   - error: ErrBookingNotFound, ErrInvalidPassengerName, ErrInvalidPassengerCount.
//   - error: a domain.ErrInvalidStatus kind for unknown statuses or illegal transitions.
//   - error: inventory.ErrInsufficientCapacity when a larger count does not fit.
func (s *Service) Amend(ctx context.Context, id string, in AmendInput) (*domain.Booking, error) {
	const op = "service.booking.Amend"

	bookingID, err := domain.ParseID("booking_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var name string
	if in.PassengerName != nil {
		name = strings.TrimSpace(*in.PassengerName)
		if name == "" {
			return nil, fmt.Errorf("%s:%w", op, ErrInvalidPassengerName)
		}
	}

	if in.PassengerCount != nil && *in.PassengerCount < 1 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidPassengerCount)
	}

	var status domain.BookingStatus
	if in.Status != nil {
		status = domain.NormalizeBookingStatus(*in.Status)
		if !status.Valid() {
			return nil, fmt.Errorf("%s:%w", op, ErrUnknownStatus)
		}
	}

	var updated domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		b, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		prevStatus := b.Status
		seatsMoved := false

		if in.PassengerName != nil {
			b.PassengerName = name
		}

		if in.PassengerCount != nil && *in.PassengerCount != b.PassengerCount {
			if b.Status.Terminal() {
				return terminalError(b.Status, "change passengers of")
			}

			sched, err := tx.Schedules().Get(ctx, b.ScheduleID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return ErrScheduleNotFound
				}
				return err
			}

			diff := *in.PassengerCount - b.PassengerCount
			if err := inventory.Adjust(ctx, tx.Schedules(), b.ScheduleID, diff); err != nil {
				return err
			}

			b.PassengerCount = *in.PassengerCount
			b.TotalPrice = sched.Price * int64(b.PassengerCount)
			seatsMoved = true
		}

		if in.Status != nil && status != b.Status {
			if b.Status.Terminal() {
				return terminalError(b.Status, "change status of")
			}

			switch status {
			case domain.BookingCancelled:
				if err := inventory.Release(ctx, tx.Schedules(), b.ScheduleID, b.PassengerCount); err != nil {
					return err
				}
				seatsMoved = true
			case domain.BookingCompleted:
				now := s.cfg.Now().UTC()
				b.CompletedAt = &now
			}

			b.Status = status
		}

		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}

		updated = *b

		after(func(ctx context.Context) {
			if seatsMoved {
				s.scheduleChanged(ctx, b.ScheduleID)
			}
			s.emit(ctx, events.New(amendEventType(prevStatus, b.Status), b.ID, b))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// Complete marks a booking completed. Completing a completed booking is a
// no-op; completing a cancelled one fails with ErrAlreadyCancelled.
func (s *Service) Complete(ctx context.Context, id string) (*domain.Booking, error) {
	const op = "service.booking.Complete"

	bookingID, err := domain.ParseID("booking_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var out domain.Booking

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		b, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		switch b.Status {
		case domain.BookingCompleted:
			out = *b
			return nil
		case domain.BookingCancelled:
			return ErrAlreadyCancelled
		}

		now := s.cfg.Now().UTC()
		b.Status = domain.BookingCompleted
		b.CompletedAt = &now

		if err := tx.Bookings().Update(ctx, b); err != nil {
			return err
		}

		out = *b

		after(func(ctx context.Context) {
			s.emit(ctx, events.New(events.BookingCompleted, b.ID, b))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &out, nil
}

// Cancel deletes a booking and gives its seats back to the schedule. Seats
// of a booking already in status cancelled were released on that transition
// and are not released twice. A review attached to the booking is removed
// and the company's rating recomputed in the same transaction.
func (s *Service) Cancel(ctx context.Context, id string) error {
	const op = "service.booking.Cancel"

	bookingID, err := domain.ParseID("booking_id", id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		// lock order: company, booking, schedule
		peek, err := tx.Bookings().Get(ctx, bookingID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		sched, err := tx.Schedules().Get(ctx, peek.ScheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if err := lockCompany(ctx, tx, sched.CompanyID); err != nil {
			return err
		}

		b, err := lockBooking(ctx, tx, bookingID)
		if err != nil {
			return err
		}

		review, err := tx.Reviews().GetByBooking(ctx, b.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if review != nil {
			if review.CompanyID != sched.CompanyID {
				if err := lockCompany(ctx, tx, review.CompanyID); err != nil {
					return err
				}
			}
			if err := tx.Reviews().Delete(ctx, review.ID); err != nil {
				return err
			}
		}

		if err := tx.Bookings().Delete(ctx, b.ID); err != nil {
			return err
		}

		if b.Status != domain.BookingCancelled {
			if err := inventory.Release(ctx, tx.Schedules(), b.ScheduleID, b.PassengerCount); err != nil {
				return err
			}
		}

		if review != nil {
			if _, _, err := rating.Recompute(ctx, tx, review.CompanyID); err != nil {
				return err
			}
		}

		after(func(ctx context.Context) {
			s.scheduleChanged(ctx, b.ScheduleID)
			if review != nil {
				s.companyChanged(ctx, review.CompanyID)
			}
			s.emit(ctx, events.New(events.BookingCancelled, b.ID, b))
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// lockBooking loads a booking under a row lock for a read-modify-write.
func lockBooking(ctx context.Context, tx repository.Repos, id uuid.UUID) (*domain.Booking, error) {
	b, err := tx.Bookings().GetForUpdate(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// lockCompany takes the company row lock that serializes rating writes. A
// company that is already gone has no rating left to protect.
func lockCompany(ctx context.Context, tx repository.Repos, id uuid.UUID) error {
	if err := tx.Companies().Lock(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func amendEventType(from, to domain.BookingStatus) string {
	if from != to {
		switch to {
		case domain.BookingCancelled:
			return events.BookingCancelled
		case domain.BookingCompleted:
			return events.BookingCompleted
		}
	}
	return events.BookingUpdated
}

// Side effects below run after commit. Their failures are logged and never
// reach the caller.

func (s *Service) scheduleChanged(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateSchedule(ctx, id); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("schedule_id", id.String()), slog.Any("error", err))
	}
	if err := s.pubsub.PublishScheduleChanged(ctx, id); err != nil {
		s.logger.Warn("schedule change publish failed", slog.String("schedule_id", id.String()), slog.Any("error", err))
	}
}

func (s *Service) companyChanged(ctx context.Context, id uuid.UUID) {
	if err := s.cache.InvalidateCompany(ctx, id); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("company_id", id.String()), slog.Any("error", err))
	}
	if err := s.pubsub.PublishCompanyChanged(ctx, id); err != nil {
		s.logger.Warn("company change publish failed", slog.String("company_id", id.String()), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", slog.String("type", ev.Type), slog.String("key", ev.Key), slog.Any("error", err))
	}
}
