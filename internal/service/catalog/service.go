// Package catalog manages companies and schedules and serves the public
// read paths over them, cached in Redis when it is configured.
package catalog

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/uow"
)

type Config struct {
	ScheduleTTL  time.Duration
	CompanyTTL   time.Duration
	PopularLimit int
}

type Service struct {
	store  repository.Store
	cache  *redisrepo.Cache
	pubsub *redisx.CatalogPubSub
	logger *slog.Logger
	uow    *uow.UoW
	cfg    Config
}

func New(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.CatalogPubSub,
	logger *slog.Logger,
	cfg Config,
) *Service {
	if cfg.ScheduleTTL <= 0 {
		cfg.ScheduleTTL = 30 * time.Second
	}

	if cfg.CompanyTTL <= 0 {
		cfg.CompanyTTL = 5 * time.Minute
	}

	if cfg.PopularLimit <= 0 {
		cfg.PopularLimit = 5
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		store:  store,
		cache:  cache,
		pubsub: pubsub,
		logger: logger,
		uow:    uow.NewUoW(store),
		cfg:    cfg,
	}
}

// Invalidate drops cached copies of a catalog entity. It is the handler for
// change notifications coming from other instances.
func (s *Service) Invalidate(ctx context.Context, kind string, id uuid.UUID) {
	var err error
	switch kind {
	case redisx.KindSchedule:
		err = s.cache.InvalidateSchedule(ctx, id)
	case redisx.KindCompany:
		err = s.cache.InvalidateCompany(ctx, id)
	default:
		return
	}
	if err != nil {
		s.logger.Warn("cache invalidation failed", slog.String("kind", kind), slog.String("id", id.String()), slog.Any("error", err))
	}
}

func (s *Service) scheduleChanged(ctx context.Context, id uuid.UUID) {
	s.Invalidate(ctx, redisx.KindSchedule, id)
	if err := s.pubsub.PublishScheduleChanged(ctx, id); err != nil {
		s.logger.Warn("schedule change publish failed", slog.String("schedule_id", id.String()), slog.Any("error", err))
	}
}

func (s *Service) companyChanged(ctx context.Context, id uuid.UUID) {
	s.Invalidate(ctx, redisx.KindCompany, id)
	if err := s.pubsub.PublishCompanyChanged(ctx, id); err != nil {
		s.logger.Warn("company change publish failed", slog.String("company_id", id.String()), slog.Any("error", err))
	}
}
