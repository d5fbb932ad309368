package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository"
)

type CompanyRepo struct {
	store *Store
	lock  bool
}

func (r *CompanyRepo) nameTaken(name string, except uuid.UUID) bool {
	for _, c := range r.store.st.companies {
		if c.ID != except && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (r *CompanyRepo) Create(_ context.Context, c *domain.Company) error {
	defer guard(r.store, r.lock)()

	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	if _, ok := r.store.st.companies[c.ID]; ok || r.nameTaken(c.Name, c.ID) {
		return repository.ErrConflict
	}
	c.AverageRating = 0
	c.TotalReviews = 0

	r.store.st.companies[c.ID] = *c
	return nil
}

func (r *CompanyRepo) Get(_ context.Context, id uuid.UUID) (*domain.Company, error) {
	defer guard(r.store, r.lock)()

	c, ok := r.store.st.companies[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r *CompanyRepo) List(_ context.Context) ([]domain.Company, error) {
	defer guard(r.store, r.lock)()

	out := make([]domain.Company, 0, len(r.store.st.companies))
	for _, c := range r.store.st.companies {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})

	return out, nil
}

func (r *CompanyRepo) Update(_ context.Context, c *domain.Company) error {
	defer guard(r.store, r.lock)()

	cur, ok := r.store.st.companies[c.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if r.nameTaken(c.Name, c.ID) {
		return repository.ErrConflict
	}
	cur.Name = c.Name
	cur.Type = c.Type
	cur.Description = c.Description
	cur.Logo = c.Logo
	cur.ContactEmail = c.ContactEmail
	cur.Phone = c.Phone
	r.store.st.companies[c.ID] = cur
	*c = cur
	return nil
}

func (r *CompanyRepo) Delete(_ context.Context, id uuid.UUID) error {
	defer guard(r.store, r.lock)()

	if _, ok := r.store.st.companies[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.store.st.companies, id)
	return nil
}

// Lock is a no-op: transactions on the memory store are already serialized.
func (r *CompanyRepo) Lock(_ context.Context, id uuid.UUID) error {
	defer guard(r.store, r.lock)()

	if _, ok := r.store.st.companies[id]; !ok {
		return repository.ErrNotFound
	}
	return nil
}

func (r *CompanyRepo) SetRating(_ context.Context, id uuid.UUID, average float64, total int) error {
	defer guard(r.store, r.lock)()

	c, ok := r.store.st.companies[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.AverageRating = average
	c.TotalReviews = total
	r.store.st.companies[id] = c
	return nil
}

var _ repository.CompanyRepo = (*CompanyRepo)(nil)
