package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type UserRepo struct {
	store *Store
	lock  bool
}

func (r *UserRepo) Get(_ context.Context, id uuid.UUID) (*domain.User, error) {
	defer guard(r.store, r.lock)()

	u, ok := r.store.st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

var _ repository.UserRepo = (*UserRepo)(nil)
