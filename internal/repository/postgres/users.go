package postgresrepo

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

// UserRepo reads the users table, which is owned by the identity service.
type UserRepo struct {
	pool *pgxpool.Pool
	db   DB
}

func (r *UserRepo) With(db DB) *UserRepo {
	cp := *r
	cp.db = db
	return &cp
}

func (r *UserRepo) handle() DB {
	if r.db != nil {
		return r.db
	}
	return r.pool
}

func (r *UserRepo) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	const op = "postgresrepo.UserRepo.Get"

	var (
		u    domain.User
		role string
	)
	err := r.handle().QueryRow(ctx,
		`SELECT id, name, email, role FROM users WHERE id = $1`,
		id,
	).Scan(&u.ID, &u.Name, &u.Email, &role)
	if err != nil {
		return nil, wrapDBErr(op, err)
	}
	u.Role = domain.Role(role)

	return &u, nil
}

var _ repository.UserRepo = (*UserRepo)(nil)
