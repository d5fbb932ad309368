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

const bookingColumns = `id, user_id, schedule_id, passenger_name, passenger_count, total_price,
	status, review_status, booking_code, created_at, completed_at`

type BookingRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *BookingRepo) With(db DB) *BookingRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *BookingRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanBooking(row pgx.Row, b *domain.Booking) error {
	var status, reviewStatus string
	if err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ScheduleID,
		&b.PassengerName,
		&b.PassengerCount,
		&b.TotalPrice,
		&status,
		&reviewStatus,
		&b.Code,
		&b.CreatedAt,
		&b.CompletedAt,
	); err != nil {
		return err
	}
	b.Status = domain.BookingStatus(status)
	b.ReviewStatus = domain.ReviewStatus(reviewStatus)
	return nil
}

func (r *BookingRepo) Create(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Create"

	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO bookings(id, user_id, schedule_id, passenger_name, passenger_count, total_price,
			status, review_status, booking_code)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		b.ID, b.UserID, b.ScheduleID, b.PassengerName, b.PassengerCount, b.TotalPrice,
		string(b.Status), string(b.ReviewStatus), b.Code,
	).Scan(&b.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *BookingRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.Get"

	b, err := r.get(ctx, id, "")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

// GetForUpdate reads the booking under a row lock. A concurrent amend,
// complete or cancel of the same booking waits and then sees this
// transaction's result.
func (r *BookingRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.GetForUpdate"

	b, err := r.get(ctx, id, " FOR UPDATE")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return b, nil
}

func (r *BookingRepo) get(ctx context.Context, id uuid.UUID, lock string) (*domain.Booking, error) {
	var b domain.Booking
	err := scanBooking(r.handle().QueryRow(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings WHERE id = $1`+lock,
		id,
	), &b)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepo) List(ctx context.Context, f domain.BookingFilter) ([]domain.Booking, error) {
	const op = "postgresrepo.BookingRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+bookingColumns+`
		 FROM bookings
		 WHERE ($1::uuid IS NULL OR user_id = $1)
		   AND ($2::uuid IS NULL OR schedule_id = $2)
		 ORDER BY created_at DESC, id`,
		f.UserID, f.ScheduleID,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Booking, 0)
	for rows.Next() {
		var b domain.Booking
		if err := scanBooking(rows, &b); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *BookingRepo) Update(ctx context.Context, b *domain.Booking) error {
	const op = "postgresrepo.BookingRepo.Update"

	tag, err := r.handle().Exec(ctx,
		`UPDATE bookings
		 SET passenger_name = $2, passenger_count = $3, total_price = $4, status = $5, completed_at = $6
		 WHERE id = $1`,
		b.ID, b.PassengerName, b.PassengerCount, b.TotalPrice, string(b.Status), b.CompletedAt,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) SetReviewStatus(ctx context.Context, id uuid.UUID, status domain.ReviewStatus) error {
	const op = "postgresrepo.BookingRepo.SetReviewStatus"

	tag, err := r.handle().Exec(ctx,
		`UPDATE bookings SET review_status = $2 WHERE id = $1`,
		id, string(status),
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Delete removes a booking; its review goes with it through ON DELETE CASCADE.
func (r *BookingRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.BookingRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

func (r *BookingRepo) CountActiveBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error) {
	const op = "postgresrepo.BookingRepo.CountActiveBySchedule"

	var n int
	err := r.handle().QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE schedule_id = $1 AND status <> 'cancelled'`,
		scheduleID,
	).Scan(&n)
	if err != nil {
		return 0, wrapDBErr(op, err)
	}

	return n, nil
}

var _ repository.BookingRepo = (*BookingRepo)(nil)
