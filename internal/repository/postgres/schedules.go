package postgresrepo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

const scheduleColumns = `id, company_id, type, origin, destination, departure_at, arrival_at,
	price, available_seats, created_at`

type ScheduleRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *ScheduleRepo) With(db DB) *ScheduleRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *ScheduleRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanSchedule(row pgx.Row, s *domain.Schedule) error {
	var typ string
	if err := row.Scan(
		&s.ID,
		&s.CompanyID,
		&typ,
		&s.Origin,
		&s.Destination,
		&s.DepartureAt,
		&s.ArrivalAt,
		&s.Price,
		&s.AvailableSeats,
		&s.CreatedAt,
	); err != nil {
		return err
	}
	s.Type = domain.TransportType(typ)
	return nil
}

func (r *ScheduleRepo) Create(ctx context.Context, s *domain.Schedule) error {
	const op = "postgresrepo.ScheduleRepo.Create"

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO schedules(id, company_id, type, origin, destination, departure_at, arrival_at,
			price, available_seats)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 RETURNING created_at`,
		s.ID, s.CompanyID, string(s.Type), s.Origin, s.Destination, s.DepartureAt, s.ArrivalAt,
		s.Price, s.AvailableSeats,
	).Scan(&s.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Get retrieves a schedule by its ID.
//
// Returns:
//   - *domain.Schedule: the schedule when found.
//   - error: repository.ErrNotFound if the schedule is not found.
func (r *ScheduleRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	const op = "postgresrepo.ScheduleRepo.Get"

	s, err := r.get(ctx, id, "")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

// GetForUpdate reads the schedule under a row lock, so seat counter changes
// made by other transactions wait for this one.
func (r *ScheduleRepo) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Schedule, error) {
	const op = "postgresrepo.ScheduleRepo.GetForUpdate"

	s, err := r.get(ctx, id, " FOR UPDATE")
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return s, nil
}

func (r *ScheduleRepo) get(ctx context.Context, id uuid.UUID, lock string) (*domain.Schedule, error) {
	var s domain.Schedule
	err := scanSchedule(r.handle().QueryRow(ctx,
		`SELECT `+scheduleColumns+`
		 FROM schedules WHERE id = $1`+lock,
		id,
	), &s)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *ScheduleRepo) Update(ctx context.Context, s *domain.Schedule) error {
	const op = "postgresrepo.ScheduleRepo.Update"

	err := r.handle().QueryRow(ctx,
		`UPDATE schedules
		 SET company_id = $2, type = $3, origin = $4, destination = $5, departure_at = $6,
			 arrival_at = $7, price = $8, available_seats = $9
		 WHERE id = $1
		 RETURNING created_at`,
		s.ID, s.CompanyID, string(s.Type), s.Origin, s.Destination, s.DepartureAt, s.ArrivalAt,
		s.Price, s.AvailableSeats,
	).Scan(&s.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

// Delete removes a schedule. Bookings that still reference it are removed by
// the ON DELETE CASCADE on bookings.schedule_id.
func (r *ScheduleRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.ScheduleRepo.Delete"

	ct, err := r.handle().Exec(ctx, `DELETE FROM schedules WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search lists schedules matching f. Origin and destination match as
// case-insensitive substrings; DepartureOn matches the whole UTC day.
func (r *ScheduleRepo) Search(ctx context.Context, f domain.ScheduleFilter) ([]domain.Schedule, error) {
	const op = "postgresrepo.ScheduleRepo.Search"

	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}

	if f.Origin != "" {
		add(`origin ILIKE '%%' || $%d || '%%'`, likeEscaper.Replace(f.Origin))
	}
	if f.Destination != "" {
		add(`destination ILIKE '%%' || $%d || '%%'`, likeEscaper.Replace(f.Destination))
	}
	if f.Type != "" {
		add(`type = $%d`, string(f.Type))
	}
	if f.DepartureOn != nil {
		day := f.DepartureOn.UTC().Truncate(24 * time.Hour)
		add(`departure_at >= $%d`, day)
		add(`departure_at < $%d`, day.Add(24*time.Hour))
	}
	if f.PriceMin != nil {
		add(`price >= $%d`, *f.PriceMin)
	}
	if f.PriceMax != nil {
		add(`price <= $%d`, *f.PriceMax)
	}

	dir := "ASC"
	if f.Desc {
		dir = "DESC"
	}
	order := "departure_at " + dir + ", id " + dir
	if f.SortBy == "price" {
		order = "price " + dir + ", " + order
	}

	sql := `SELECT ` + scheduleColumns + ` FROM schedules`
	if len(where) > 0 {
		sql += ` WHERE ` + strings.Join(where, " AND ")
	}
	sql += ` ORDER BY ` + order

	rows, err := r.handle().Query(ctx, sql, args...)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Schedule, 0)
	for rows.Next() {
		var s domain.Schedule
		if err := scanSchedule(rows, &s); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

// Popular ranks schedules by the number of non-cancelled bookings.
func (r *ScheduleRepo) Popular(ctx context.Context, limit int) ([]domain.PopularSchedule, error) {
	const op = "postgresrepo.ScheduleRepo.Popular"

	rows, err := r.handle().Query(ctx,
		`SELECT s.id, s.company_id, s.type, s.origin, s.destination, s.departure_at, s.arrival_at,
			s.price, s.available_seats, s.created_at,
			COUNT(b.id) AS booking_count,
			COALESCE(SUM(b.total_price), 0) AS total_revenue
		 FROM bookings b
		 JOIN schedules s ON s.id = b.schedule_id
		 WHERE b.status <> 'cancelled'
		 GROUP BY s.id
		 ORDER BY booking_count DESC, total_revenue DESC, s.id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.PopularSchedule, 0, limit)
	for rows.Next() {
		var (
			p   domain.PopularSchedule
			typ string
		)
		if err := rows.Scan(
			&p.Schedule.ID,
			&p.Schedule.CompanyID,
			&typ,
			&p.Schedule.Origin,
			&p.Schedule.Destination,
			&p.Schedule.DepartureAt,
			&p.Schedule.ArrivalAt,
			&p.Schedule.Price,
			&p.Schedule.AvailableSeats,
			&p.Schedule.CreatedAt,
			&p.BookingCount,
			&p.TotalRevenue,
		); err != nil {
			return nil, wrapDBErr(op, err)
		}
		p.Schedule.Type = domain.TransportType(typ)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *ScheduleRepo) ExistsForCompany(ctx context.Context, companyID uuid.UUID) (bool, error) {
	const op = "postgresrepo.ScheduleRepo.ExistsForCompany"

	var exists bool
	err := r.handle().QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM schedules WHERE company_id = $1)`,
		companyID,
	).Scan(&exists)
	if err != nil {
		return false, wrapDBErr(op, err)
	}

	return exists, nil
}

var _ repository.ScheduleRepo = (*ScheduleRepo)(nil)
