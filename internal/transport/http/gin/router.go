package httpgin

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/service"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

type Config struct {
	JWTSecret      string
	AllowedOrigins []string
	// IdempotencyLockTTL bounds how long a first request holds its key.
	IdempotencyLockTTL time.Duration
}

type handler struct {
	svcs *service.Services
	idem *redisrepo.IdempotencyStore
	cfg  Config
}

func NewRouter(
	svcs *service.Services,
	idem *redisrepo.IdempotencyStore,
	cfg Config,
	logger *slog.Logger,
	middlewares ...gin.HandlerFunc,
) *gin.Engine {
	if cfg.IdempotencyLockTTL <= 0 {
		cfg.IdempotencyLockTTL = 60 * time.Second
	}

	registerValidations()

	h := &handler{svcs: svcs, idem: idem, cfg: cfg}

	r := gin.New()

	r.Use(gin.Recovery(), RequestIDMiddleware(), LoggingMiddleware(logger), CORS(cfg.AllowedOrigins))
	for _, m := range middlewares {
		if m != nil {
			r.Use(m)
		}
	}

	// Swagger UI
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// health
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")

	// Public API
	api.GET("/schedules", h.searchSchedules)
	api.GET("/schedules/popular", h.popularSchedules)
	api.GET("/schedules/:id", h.getSchedule)
	api.GET("/schedules/:id/reviews", h.scheduleReviews)
	api.GET("/companies", h.listCompanies)
	api.GET("/companies/:id", h.getCompany)
	api.GET("/companies/:id/reviews", h.companyReviews)

	// Authenticated API
	authed := api.Group("", JWTAuth(cfg.JWTSecret))
	{
		authed.POST("/bookings", h.createBooking)
		authed.GET("/bookings/me", h.myBookings)
		authed.GET("/bookings/:id", h.getBooking)
		authed.PATCH("/bookings/:id", h.amendBooking)
		authed.DELETE("/bookings/:id", h.cancelBooking)
		authed.POST("/reviews", h.submitReview)
	}

	// Admin API
	admin := api.Group("/admin", JWTAuth(cfg.JWTSecret), RequireAdmin())
	{
		admin.GET("/bookings", h.listBookings)
		admin.PUT("/bookings/:id/complete", h.completeBooking)

		admin.POST("/companies", h.createCompany)
		admin.PUT("/companies/:id", h.updateCompany)
		admin.DELETE("/companies/:id", h.deleteCompany)

		admin.POST("/schedules", h.createSchedule)
		admin.PUT("/schedules/:id", h.updateSchedule)
		admin.DELETE("/schedules/:id", h.deleteSchedule)

		admin.PUT("/reviews/:id", h.updateReview)
		admin.DELETE("/reviews/:id", h.deleteReview)
	}

	return r
}
