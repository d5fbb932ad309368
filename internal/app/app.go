package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kirinyoku/travelgo/internal/config"
	"github.com/kirinyoku/travelgo/internal/events"
	"github.com/kirinyoku/travelgo/internal/postgres"
	redisx "github.com/kirinyoku/travelgo/internal/redis"
	"github.com/kirinyoku/travelgo/internal/repository"
	"github.com/kirinyoku/travelgo/internal/repository/memory"
	postgresrepo "github.com/kirinyoku/travelgo/internal/repository/postgres"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/service"
	"github.com/kirinyoku/travelgo/internal/service/booking"
	"github.com/kirinyoku/travelgo/internal/service/catalog"
	"github.com/kirinyoku/travelgo/internal/service/review"
	httpgin "github.com/kirinyoku/travelgo/internal/transport/http/gin"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	httpServer *http.Server
	services   *service.Services
	pubsub     *redisx.CatalogPubSub
	publisher  events.Publisher
	pool       *pgxpool.Pool
	rdb        *goredis.Client
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.New"

	a := &App{cfg: cfg, logger: logger}

	store, err := a.openStore(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	a.rdb, err = redisx.New(ctx, redisx.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: redis: %w", op, err)
	}
	if a.rdb == nil {
		logger.Warn("redis disabled: no cache, rate limit, idempotency or pubsub")
	}

	a.publisher, err = newPublisher(cfg.Events)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("%s: events: %w", op, err)
	}

	cache := redisrepo.New(a.rdb)
	a.pubsub = redisx.NewCatalogPubSub(a.rdb)
	limiter := redisrepo.NewSlidingWindowLimiter(a.rdb, "booking", cfg.Booking.RateLimit, cfg.Booking.RateWindow)
	idem := redisrepo.NewIdempotencyStore(a.rdb, cfg.Booking.IdempotencyTTL)

	a.services = service.NewServices(store, cache, a.pubsub, limiter, a.publisher, logger, service.Config{
		Booking: booking.Config{},
		Review:  review.Config{ListTTL: cfg.Cache.ScheduleTTL},
		Catalog: catalog.Config{
			ScheduleTTL: cfg.Cache.ScheduleTTL,
			CompanyTTL:  cfg.Cache.CompanyTTL,
		},
	})

	router := httpgin.NewRouter(a.services, idem, httpgin.Config{
		JWTSecret:      cfg.Auth.JWTSecret,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}, logger)

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context) (repository.Store, error) {
	switch a.cfg.Storage.Driver {
	case config.StorageMemory:
		a.logger.Warn("using in-memory storage; data is lost on exit")
		return memory.NewStore(), nil
	default:
		pool, err := postgres.New(ctx, postgres.Config{
			DSN:         a.cfg.Postgres.DSN(),
			MaxConns:    a.cfg.Postgres.MaxConns,
			AutoMigrate: a.cfg.Postgres.AutoMigrate,
		})
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.pool = pool
		return postgresrepo.NewStore(pool), nil
	}
}

func newPublisher(cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Broker {
	case config.BrokerKafka:
		return events.NewKafkaProducer(cfg.KafkaBrokers, cfg.KafkaTopic), nil
	case config.BrokerRabbitMQ:
		return events.NewRabbitPublisher(cfg.RabbitURL, cfg.RabbitQueue)
	default:
		return events.Nop{}, nil
	}
}

func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()
	defer a.close()

	g, gCtx := errgroup.WithContext(ctx)

	// Start HTTP server
	g.Go(func() error {
		a.logger.Info("HTTP server listening", "host", a.cfg.Server.Host, "port", a.cfg.Server.Port)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start HTTP server: %w", err)
		}
		return nil
	})

	// Cache invalidation from other instances
	g.Go(func() error {
		err := a.pubsub.Subscribe(gCtx, a.services.Catalog.Invalidate)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gCtx.Done()
		a.logger.Info("shutting down HTTP server")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.httpServer.Shutdown(ctx)
	})

	return g.Wait()
}

func (a *App) close() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("close events publisher", slog.Any("error", err))
		}
	}
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
