package service

import (
	"log/slog"

	"github.com/kirinyoku/travelgo/internal/events"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/service/booking"
	"github.com/kirinyoku/travelgo/internal/service/catalog"
	"github.com/kirinyoku/travelgo/internal/service/review"
)

type Services struct {
	Bookings *booking.Service
	Reviews  *review.Service
	Catalog  *catalog.Service
}

type Config struct {
	Booking booking.Config
	Review  review.Config
	Catalog catalog.Config
}

func NewServices(
	store repository.Store,
	cache *redisrepo.Cache,
	pubsub *redisx.CatalogPubSub,
	limiter *redisrepo.SlidingWindowLimiter,
	publisher events.Publisher,
	logger *slog.Logger,
	cfg Config,
) *Services {
	return &Services{
		Bookings: booking.New(store, cache, pubsub, limiter, publisher, logger, cfg.Booking),
		Reviews:  review.New(store, cache, pubsub, publisher, logger, cfg.Review),
		Catalog:  catalog.New(store, cache, pubsub, logger, cfg.Catalog),
	}
}
