package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirinyoku/travelgo/internal/domain"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/uow"
)

type CompanyInput struct {
	Name         string
	Type         string
	Description  string
	Logo         string
	ContactEmail string
	Phone        string
}

// CompanyPatch is a partial update; nil fields are left as they are.
type CompanyPatch struct {
	Name         *string
	Type         *string
	Description  *string
	Logo         *string
	ContactEmail *string
	Phone        *string
}

// CreateCompany registers a company. Names are unique ignoring case.
func (s *Service) CreateCompany(ctx context.Context, in CompanyInput) (*domain.Company, error) {
	const op = "service.catalog.CreateCompany"

	c := domain.Company{
		Name:         strings.TrimSpace(in.Name),
		Type:         strings.TrimSpace(in.Type),
		Description:  in.Description,
		Logo:         in.Logo,
		ContactEmail: strings.TrimSpace(in.ContactEmail),
		Phone:        strings.TrimSpace(in.Phone),
	}

	if err := validateCompany(&c); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := s.store.Companies().Create(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, fmt.Errorf("%s:%w", op, ErrCompanyNameTaken)
		}
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	s.companyChanged(ctx, c.ID)

	return &c, nil
}

func (s *Service) UpdateCompany(ctx context.Context, id string, in CompanyPatch) (*domain.Company, error) {
	const op = "service.catalog.UpdateCompany"

	cid, err := domain.ParseID("company_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	var updated domain.Company

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		c, err := tx.Companies().Get(ctx, cid)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCompanyNotFound
			}
			return err
		}

		if in.Name != nil {
			c.Name = strings.TrimSpace(*in.Name)
		}
		if in.Type != nil {
			c.Type = strings.TrimSpace(*in.Type)
		}
		if in.Description != nil {
			c.Description = *in.Description
		}
		if in.Logo != nil {
			c.Logo = *in.Logo
		}
		if in.ContactEmail != nil {
			c.ContactEmail = strings.TrimSpace(*in.ContactEmail)
		}
		if in.Phone != nil {
			c.Phone = strings.TrimSpace(*in.Phone)
		}

		if err := validateCompany(c); err != nil {
			return err
		}

		if err := tx.Companies().Update(ctx, c); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCompanyNameTaken
			}
			return err
		}

		updated = *c

		after(func(ctx context.Context) {
			s.companyChanged(ctx, cid)
		})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return &updated, nil
}

// DeleteCompany removes a company that no schedule references.
func (s *Service) DeleteCompany(ctx context.Context, id string) error {
	const op = "service.catalog.DeleteCompany"

	cid, err := domain.ParseID("company_id", id)
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	err = s.uow.Do(ctx, func(
		ctx context.Context,
		tx repository.Repos,
		after func(uow.AfterCommit),
	) error {
		if err := tx.Companies().Lock(ctx, cid); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCompanyNotFound
			}
			return err
		}

		inUse, err := tx.Schedules().ExistsForCompany(ctx, cid)
		if err != nil {
			return err
		}
		if inUse {
			return ErrCompanyInUse
		}

		if err := tx.Companies().Delete(ctx, cid); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return ErrCompanyInUse
			}
			return err
		}

		after(func(ctx context.Context) {
			s.companyChanged(ctx, cid)
		})

		return nil
	})
	if err != nil {
		return fmt.Errorf("%s:%w", op, err)
	}

	return nil
}

func (s *Service) GetCompany(ctx context.Context, id string) (*domain.Company, error) {
	const op = "service.catalog.GetCompany"

	cid, err := domain.ParseID("company_id", id)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	c, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyCompany(cid), s.cfg.CompanyTTL,
		func(ctx context.Context) (*domain.Company, error) {
			c, err := s.store.Companies().Get(ctx, cid)
			if errors.Is(err, repository.ErrNotFound) {
				return nil, ErrCompanyNotFound
			}
			return c, err
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return c, nil
}

func (s *Service) ListCompanies(ctx context.Context) ([]domain.Company, error) {
	const op = "service.catalog.ListCompanies"

	out, err := redisrepo.GetOrSetJSON(ctx, s.cache, redisx.KeyCompanies(), s.cfg.CompanyTTL,
		func(ctx context.Context) ([]domain.Company, error) {
			return s.store.Companies().List(ctx)
		})
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	return out, nil
}

func validateCompany(c *domain.Company) error {
	if c.Name == "" {
		return ErrBlankName
	}
	if c.Type == "" {
		return ErrBlankType
	}
	return nil
}

