// Package review gates reviews on completed bookings and keeps the reviewed
// company's rating current.
package review

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
	"github.com/kirinyoku/travelgo/internal/service/rating"
	"github.com/kirinyoku/travelgo/internal/uow"
)

type Config struct {
	// ListTTL is how long review lists stay cached.
	ListTTL time.Duration
}

type Service struct {
	store     repository.Store
	cache     *redisrepo.Cache
	pubsub    *redisx.CatalogPubSub
	publisher events.Publisher
	logger    *slog.Logger
	uow       *uow.UoW
	cfg       Config
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.CatalogPubSub,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.ListTTL <= 0 {
		cfg.ListTTL = time.Minute
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
		publisher: publisher,
		logger:    logger,
		uow:       uow.NewUoW(store),
		cfg:       cfg,
	}
}

// Submit stores the single review of a completed booking and recomputes the
// company's rating before returning.
//
// Returns:
//   - *domain.Review: the stored review.
//   - error: ErrInvalidRating, or a domain.ErrInvalidInput kind for a malformed id.
//   - error: ErrBookingNotFound if the booking does not exist.
//   - error: ErrNotCompleted if the booking is not completed.
//   - error: ErrAlreadyReviewed if the booking already has a review.
func (s *Service) Submit(ctx context.Context, bookingID string, ratingValue int, comment string) (*domain.Review, error) {
	const op = "service.review.Submit"

	bid, err := domain.ParseID("booking_id", bookingID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if ratingValue < 1 || ratingValue > 5 {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidRating)
	}

	var created domain.Review
	var scheduleID uuid.UUID

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		b, err := tx.Bookings().Get(ctx, bid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}

		if b.Status != domain.BookingCompleted {
			return ErrNotCompleted
		}

		sched, err := tx.Schedules().Get(ctx, b.ScheduleID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrScheduleNotFound
			}
			return err
		}
		scheduleID = sched.ID

		// lock order: company, booking
		if err := lockCompany(ctx, tx, sched.CompanyID); err != nil {
			return err
		}

		b, err = tx.Bookings().GetForUpdate(ctx, bid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if b.Status != domain.BookingCompleted {
			return ErrNotCompleted
		}

		if _, err := tx.Reviews().GetByBooking(ctx, b.ID); err == nil {
			return ErrAlreadyReviewed
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		rv := domain.Review{
			ID:        uuid.New(),
			BookingID: b.ID,
			CompanyID: sched.CompanyID,
			UserID:    b.UserID,
			Rating:    ratingValue,
			Comment:   strings.TrimSpace(comment),
			CreatedAt: time.Now().UTC(),
		}

		if err := tx.Reviews().Create(ctx, &rv); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrAlreadyReviewed
			}
			return err
		}

		if err := tx.Bookings().SetReviewStatus(ctx, b.ID, domain.ReviewDone); err != nil {
			return err
		}

		if _, _, err := rating.Recompute(ctx, tx, rv.CompanyID); err != nil {
			return err
		}

		created = rv

		after(func(ctx context.Context) {
			s.invalidate(ctx, rv.CompanyID, scheduleID)
			s.emit(ctx, events.New(events.ReviewSubmitted, rv.ID, rv))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &created, nil
}

// UpdateInput is a partial update; nil fields are left as they are.
type UpdateInput struct {
	Rating  *int
	Comment *string
}

// Update edits a review's rating and/or comment and recomputes the rating.
func (s *Service) Update(ctx context.Context, reviewID string, in UpdateInput) (*domain.Review, error) {
	const op = "service.review.Update"

	rid, err := domain.ParseID("review_id", reviewID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return nil, fmt.Errorf("%s:%w", op, ErrInvalidRating)
	}

	var updated domain.Review

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		rv, err := tx.Reviews().Get(ctx, rid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReviewNotFound
			}
			return err
		}

		if err := lockCompany(ctx, tx, rv.CompanyID); err != nil {
			return err
		}

		if in.Rating != nil {
			rv.Rating = *in.Rating
		}
		if in.Comment != nil {
			rv.Comment = strings.TrimSpace(*in.Comment)
		}

		if err := tx.Reviews().Update(ctx, rv); err != nil {
			return err
		}

		if _, _, err := rating.Recompute(ctx, tx, rv.CompanyID); err != nil {
			return err
		}

		scheduleID := s.scheduleOf(ctx, tx, rv.BookingID)
		updated = *rv

		after(func(ctx context.Context) {
			s.invalidate(ctx, rv.CompanyID, scheduleID)
			s.emit(ctx, events.New(events.ReviewUpdated, rv.ID, rv))
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// Delete removes a review, reopens its booking for review and recomputes the
// company's rating.
func (s *Service) Delete(ctx context.Context, reviewID string) error {
	const op = "service.review.Delete"

	rid, err := domain.ParseID("review_id", reviewID)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		rv, err := tx.Reviews().Get(ctx, rid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrReviewNotFound
			}
			return err
		}

		if err := lockCompany(ctx, tx, rv.CompanyID); err != nil {
			return err
		}

		if err := tx.Reviews().Delete(ctx, rv.ID); err != nil {
			return err
		}

		if err := tx.Bookings().SetReviewStatus(ctx, rv.BookingID, domain.ReviewPending); err != nil &&
			!errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if _, _, err := rating.Recompute(ctx, tx, rv.CompanyID); err != nil {
			return err
		}

		scheduleID := s.scheduleOf(ctx, tx, rv.BookingID)

		after(func(ctx context.Context) {
			s.invalidate(ctx, rv.CompanyID, scheduleID)
			s.emit(ctx, events.New(events.ReviewDeleted, rv.ID, rv))
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

// ListBySchedule returns the reviews left on bookings of a schedule, newest first.
func (s *Service) ListBySchedule(ctx context.Context, scheduleID string) ([]domain.ReviewView, error) {
	const op = "service.review.ListBySchedule"

	sid, err := domain.ParseID("schedule_id", scheduleID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyScheduleReviews(sid), s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.ReviewView, error) {
			if _, err := s.store.Schedules().Get(ctx, sid); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrScheduleNotFound
				}
				return nil, err
			}

			reviews, err := s.store.Reviews().ListBySchedule(ctx, sid)
			if err != nil {
				return nil, err
			}

			return s.withNames(ctx, reviews)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// ListByCompany returns every review of a company, newest first.
func (s *Service) ListByCompany(ctx context.Context, companyID string) ([]domain.ReviewView, error) {
	const op = "service.review.ListByCompany"

	cid, err := domain.ParseID("company_id", companyID)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyCompanyReviews(cid), s.cfg.ListTTL,
		func(ctx context.Context) ([]domain.ReviewView, error) {
			if _, err := s.store.Companies().Get(ctx, cid); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, ErrCompanyNotFound
				}
				return nil, err
			}

			reviews, err := s.store.Reviews().ListByCompany(ctx, cid)
			if err != nil {
				return nil, err
			}

			return s.withNames(ctx, reviews)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (s *Service) withNames(ctx context.Context, reviews []domain.Review) ([]domain.ReviewView, error) {
	names := make(map[uuid.UUID]string)
	out := make([]domain.ReviewView, 0, len(reviews))

	for _, rv := range reviews {
		name, ok := names[rv.UserID]
		if !ok {
			u, err := s.store.Users().Get(ctx, rv.UserID)
			switch {
			case err == nil:
				name = u.Name
			case errors.Is(err, repository.ErrNotFound):
				name = ""
			default:
				return nil, err
			}
			names[rv.UserID] = name
		}
		out = append(out, domain.ReviewView{Review: rv, UserName: name})
	}

	return out, nil
}

func lockCompany(ctx context.Context, tx repository.Repos, companyID uuid.UUID) error {
	if err := tx.Companies().Lock(ctx, companyID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrCompanyNotFound
		}
		return err
	}
	return nil
}

// scheduleOf resolves the schedule of a booking for cache invalidation.
// uuid.Nil means the booking is gone.
func (s *Service) scheduleOf(ctx context.Context, tx repository.Repos, bookingID uuid.UUID) uuid.UUID {
	b, err := tx.Bookings().Get(ctx, bookingID)
	if err != nil {
		return uuid.Nil
	}
	return b.ScheduleID
}

func (s *Service) invalidate(ctx context.Context, companyID, scheduleID uuid.UUID) {
	if err := s.cache.InvalidateCompany(ctx, companyID); err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("company_id", companyID.String()), slog.Any("error", err))
	}
	if scheduleID != uuid.Nil {
		if err := s.cache.Del(ctx, redisx.KeyScheduleReviews(scheduleID)); err != nil {
			s.logger.Warn("cache invalidation failed", slog.String("schedule_id", scheduleID.String()), slog.Any("error", err))
		}
	}
	if err := s.pubsub.PublishCompanyChanged(ctx, companyID); err != nil {
		s.logger.Warn("company change publish failed", slog.String("company_id", companyID.String()), slog.Any("error", err))
	}
}

func (s *Service) emit(ctx context.Context, ev events.Event) {
	if err := s.publisher.Publish(ctx, ev); err != nil {
		s.logger.Warn("event publish failed", slog.String("type", ev.Type), slog.String("key", ev.Key), slog.Any("error", err))
	}
}
