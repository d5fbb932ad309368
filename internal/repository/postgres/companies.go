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

const companyColumns = `id, name, type, description, logo, contact_email, phone,
	average_rating, total_reviews, created_at`

type CompanyRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *CompanyRepo) With(db DB) *CompanyRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *CompanyRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func scanCompany(row pgx.Row, c *domain.Company) error {
	return row.Scan(
		&c.ID,
		&c.Name,
		&c.Type,
		&c.Description,
		&c.Logo,
		&c.ContactEmail,
		&c.Phone,
		&c.AverageRating,
		&c.TotalReviews,
		&c.CreatedAt,
	)
}

// Create inserts a company with a zeroed rating cache.
//
// Returns:
//   - error: repository.ErrConflict if the name is taken (case-insensitive).
func (r *CompanyRepo) Create(ctx context.Context, c *domain.Company) error {
	const op = "postgresrepo.CompanyRepo.Create"

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	err := r.handle().QueryRow(ctx,
		`INSERT INTO companies(id, name, type, description, logo, contact_email, phone)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING average_rating, total_reviews, created_at`,
		c.ID, c.Name, c.Type, c.Description, c.Logo, c.ContactEmail, c.Phone,
	).Scan(&c.AverageRating, &c.TotalReviews, &c.CreatedAt)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CompanyRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Company, error) {
	const op = "postgresrepo.CompanyRepo.Get"

	var c domain.Company
	err := scanCompany(r.handle().QueryRow(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = $1`,
		id,
	), &c)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	return &c, nil
}

func (r *CompanyRepo) List(ctx context.Context) ([]domain.Company, error) {
	const op = "postgresrepo.CompanyRepo.List"

	rows, err := r.handle().Query(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY lower(name)`,
	)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}

	defer rows.Close()

	out := make([]domain.Company, 0)
	for rows.Next() {
		var c domain.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, wrapDBErr(op, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func (r *CompanyRepo) Update(ctx context.Context, c *domain.Company) error {
	const op = "postgresrepo.CompanyRepo.Update"

	err := scanCompany(r.handle().QueryRow(ctx,
		`UPDATE companies
		 SET name = $2, type = $3, description = $4, logo = $5, contact_email = $6, phone = $7
		 WHERE id = $1
		 RETURNING `+companyColumns,
		c.ID, c.Name, c.Type, c.Description, c.Logo, c.ContactEmail, c.Phone,
	), c)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CompanyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.CompanyRepo.Delete"

	tag, err := r.handle().Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

// Lock holds the company row until the surrounding transaction ends, which
// serializes concurrent rating recomputations for the same company.
func (r *CompanyRepo) Lock(ctx context.Context, id uuid.UUID) error {
	const op = "postgresrepo.CompanyRepo.Lock"

	var locked uuid.UUID
	err := r.handle().QueryRow(ctx,
		`SELECT id FROM companies WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&locked)
	if err != nil {
		return wrapDBErr(op, err)
	}

	return nil
}

func (r *CompanyRepo) SetRating(ctx context.Context, id uuid.UUID, average float64, total int) error {
	const op = "postgresrepo.CompanyRepo.SetRating"

	tag, err := r.handle().Exec(ctx,
		`UPDATE companies SET average_rating = $2, total_reviews = $3 WHERE id = $1`,
		id, average, total,
	)
	if err != nil {
		return wrapDBErr(op, err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s:%w", op, repository.ErrNotFound)
	}

	return nil
}

var _ repository.CompanyRepo = (*CompanyRepo)(nil)
