package postgresrepo

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

const reviewColumns = `r.id, r.booking_id, r.company_id, r.user_id, r.rating, r.comment, r.created_at`

type ReviewRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ReviewRepo) With(db DB) *ReviewRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ReviewRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanReview(row pgx.Row, rv *domain.Review) error {
	return row.Scan(
		&rv.ID,
		&rv.BookingID,
		&rv.CompanyID,
		&rv.UserID,
		&rv.Rating,
		&rv.Comment,
		&rv.CreatedAt,
	)
}

// Create inserts a review.
//
// Returns:
//   - error: repository.ErrConflict if the booking already has a review.
func (r *ReviewRepo) Create(ctx context.Context, rv *domain.Review) error {
	const op = "postgresrepo.ReviewRepo.Create"

	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO reviews(id, booking_id, company_id, user_id, rating, comment)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING created_at`,
		rv.ID, rv.BookingID, rv.CompanyID, rv.UserID, rv.Rating, rv.Comment,
	).Scan(&rv.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *ReviewRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Review, error) {
	const op = "postgresrepo.ReviewRepo.Get"

	var rv domain.Review
	err := scanReview(r.handle().QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews r WHERE r.id = $1`,
		id,
	), &rv)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &rv, nil
}

func (r *ReviewRepo) GetByBooking(ctx context.Context, bookingID uuid.UUID) (*domain.Review, error) {
	const op = "postgresrepo.ReviewRepo.GetByBooking"

	var rv domain.Review
	err := scanReview(r.handle().QueryRow(ctx,
		`SELECT `+reviewColumns+` FROM reviews r WHERE r.booking_id = $1`,
		bookingID,
	), &rv)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &rv, nil
}

func (r *ReviewRepo) Update(ctx context.Context, rv *domain.Review) error {
	const op = "postgresrepo.ReviewRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE reviews SET rating = $2, comment = $3 WHERE id = $1`,
		rv.ID, rv.Rating, rv.Comment,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReviewRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.ReviewRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *ReviewRepo) RatingsByCompany(ctx context.Context, companyID uuid.UUID) ([]int, error) {
	const op = "postgresrepo.ReviewRepo.RatingsByCompany"

	rows, err := r.handle().Query(ctx,
		`SELECT rating FROM reviews WHERE company_id = $1`,
		companyID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	ratings, err := pgx.CollectRows(rows, pgx.RowTo[int])
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return ratings, nil
}

func (r *ReviewRepo) ListByCompany(ctx context.Context, companyID uuid.UUID) ([]domain.Review, error) {
	const op = "postgresrepo.ReviewRepo.ListByCompany"

	return r.list(ctx, op,
		`SELECT `+reviewColumns+`
		 FROM reviews r
		 WHERE r.company_id = $1
		 ORDER BY r.created_at DESC, r.id`,
		companyID,
	)
}

func (r *ReviewRepo) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]domain.Review, error) {
	const op = "postgresrepo.ReviewRepo.ListBySchedule"

	return r.list(ctx, op,
		`SELECT `+reviewColumns+`
		 FROM reviews r
		 JOIN bookings b ON b.id = r.booking_id
		 WHERE b.schedule_id = $1
		 ORDER BY r.created_at DESC, r.id`,
		scheduleID,
	)
}

func (r *ReviewRepo) list(ctx context.Context, op, sql string, args ...any) ([]domain.Review, error) {
	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Review, 0)
	for rows.Next() {
		var rv domain.Review
		if err := scanReview(rows, &rv); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

var _ repository.ReviewRepo = (*ReviewRepo)(nil)
