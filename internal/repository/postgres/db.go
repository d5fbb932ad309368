// Package postgresrepo implements repository.Store on top of PostgreSQL.
package postgresrepo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool: pool,
	}
}

// RunTx runs fn inside a READ COMMITTED transaction. Seat counters are only
// ever changed with conditional updates, so a writer that loses a race
// re-evaluates the predicate on the committed row instead of failing with a
// serialization error.
func (s *Store) RunTx(ctx context.Context, fn func(ctx context.Context, tx repository.Repos) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.ReadCommitted,
		AccessMode: pgx.ReadWrite,
	})
	if err != nil {
		return translateDBErr(err)
	}

	defer tx.Rollback(ctx)

	if err := fn(ctx, &txRepos{pool: s.pool, db: tx}); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", translateDBErr(err))
	}

	return nil
}

func (s *Store) Schedules() repository.ScheduleRepo { return &ScheduleRepo{pool: s.pool} }
func (s *Store) Bookings() repository.BookingRepo   { return &BookingRepo{pool: s.pool} }
func (s *Store) Companies() repository.CompanyRepo  { return &CompanyRepo{pool: s.pool} }
func (s *Store) Reviews() repository.ReviewRepo     { return &ReviewRepo{pool: s.pool} }
func (s *Store) Users() repository.UserRepo         { return &UserRepo{pool: s.pool} }

// txRepos binds every repository to the same open transaction.
type txRepos struct {
	pool *pgxpool.Pool
	db   DB
}

func (t *txRepos) Schedules() repository.ScheduleRepo {
	return (&ScheduleRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Bookings() repository.BookingRepo {
	return (&BookingRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Companies() repository.CompanyRepo {
	return (&CompanyRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Reviews() repository.ReviewRepo {
	return (&ReviewRepo{pool: t.pool}).With(t.db)
}

func (t *txRepos) Users() repository.UserRepo {
	return (&UserRepo{pool: t.pool}).With(t.db)
}

var (
	_ repository.Store = (*Store)(nil)
	_ repository.Repos = (*txRepos)(nil)
)
