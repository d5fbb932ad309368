package httpgin

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kirinyoku/travelgo/internal/domain"
	redisrepo "github.com/kirinyoku/travelgo/internal/repository/redis"
	"github.com/kirinyoku/travelgo/internal/service/booking"
)

// @Summary  Create booking (idempotent)
// @Tags     bookings
// @Security BearerAuth
// @Param    req  body  CreateBookingRequest  true  "payload"
// @Header   201  {string}  Idempotency-Key  "echo"
// @Success  201  {object}  domain.Booking
// @Failure  400  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse  "schedule or user not found"
// @Failure  409  {object}  ErrorResponse  "insufficient capacity / idem in progress"
// @Failure  429  {object}  ErrorResponse  "rate limited"
// @Router   /api/bookings [post]
func (h *handler) createBooking(c *gin.Context) {
	p, _ := principal(c)

	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	count := 1
	if req.PassengerCount != nil {
		count = *req.PassengerCount
	}

	ctx := c.Request.Context()

	idemKey := strings.TrimSpace(c.GetHeader("Idempotency-Key"))
	useIdem := h.idem != nil && idemKey != ""
	if useIdem {
		state, body, err := h.idem.Begin(ctx, p.UserID, idemKey, h.cfg.IdempotencyLockTTL)
		switch {
		case err != nil:
			// redis hiccup: serve the request without idempotency
			useIdem = false
		case state == redisrepo.IdemReplay:
			replay(c, idemKey, body)
			return
		case state == redisrepo.IdemInFlight:
			c.AbortWithStatusJSON(http.StatusConflict, ErrorResponse{
				Error:  domain.ErrConflict.Error(),
				Detail: "idempotency key in progress",
			})
			return
		}
	}

	b, err := h.svcs.Bookings.Create(ctx, booking.CreateInput{
		UserID:         p.UserID.String(),
		ScheduleID:     req.ScheduleID,
		PassengerName:  req.PassengerName,
		PassengerCount: count,
	}, "user:"+p.UserID.String())
	if err != nil {
		if useIdem {
			_ = h.idem.Abort(ctx, p.UserID, idemKey)
		}
		respondErr(c, err)
		return
	}

	if useIdem {
		body, _ := json.Marshal(b)
		_ = h.idem.Complete(ctx, p.UserID, idemKey, body)
		c.Header("Idempotency-Key", idemKey)
	}

	c.JSON(http.StatusCreated, b)
}

func replay(c *gin.Context, idemKey string, body []byte) {
	c.Header("Idempotency-Key", idemKey)
	c.Data(http.StatusCreated, "application/json; charset=utf-8", body)
}

// @Summary  My bookings
// @Tags     bookings
// @Security BearerAuth
// @Success  200  {array}  domain.BookingView
// @Router   /api/bookings/me [get]
func (h *handler) myBookings(c *gin.Context) {
	p, _ := principal(c)

	out, err := h.svcs.Bookings.List(c.Request.Context(), p.UserID.String())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// @Summary  All bookings
// @Tags     admin
// @Security BearerAuth
// @Success  200  {array}  domain.BookingView
// @Router   /api/admin/bookings [get]
func (h *handler) listBookings(c *gin.Context) {
	out, err := h.svcs.Bookings.List(c.Request.Context(), "")
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, out)
}

// @Summary  Get booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID"
// @Success  200  {object}  domain.BookingView
// @Failure  403  {object}  ErrorResponse
// @Failure  404  {object}  ErrorResponse
// @Router   /api/bookings/{id} [get]
func (h *handler) getBooking(c *gin.Context) {
	v, ok := h.ownedBooking(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, v)
}

// @Summary  Amend booking
// @Description Passengers may rename, resize or cancel their booking. Other status changes require admin.
// @Tags     bookings
// @Security BearerAuth
// @Param    id   path  string               true  "Booking ID"
// @Param    req  body  AmendBookingRequest  true  "payload"
// @Success  200  {object}  domain.Booking
// @Failure  409  {object}  ErrorResponse  "insufficient capacity"
// @Failure  422  {object}  ErrorResponse  "invalid status transition"
// @Router   /api/bookings/{id} [patch]
func (h *handler) amendBooking(c *gin.Context) {
	var req AmendBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	if _, ok := h.ownedBooking(c); !ok {
		return
	}

	p, _ := principal(c)
	if req.Status != nil && !p.IsAdmin() && domain.NormalizeBookingStatus(*req.Status) != domain.BookingCancelled {
		abortAuth(c, http.StatusForbidden, "only an admin may set this status")
		return
	}

	b, err := h.svcs.Bookings.Amend(c.Request.Context(), c.Param("id"), req.input())
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// @Summary  Cancel booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID"
// @Success  204
// @Failure  404  {object}  ErrorResponse
// @Router   /api/bookings/{id} [delete]
func (h *handler) cancelBooking(c *gin.Context) {
	if _, ok := h.ownedBooking(c); !ok {
		return
	}

	if err := h.svcs.Bookings.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// @Summary  Complete booking
// @Tags     admin
// @Security BearerAuth
// @Param    id  path  string  true  "Booking ID"
// @Success  200  {object}  domain.Booking
// @Failure  422  {object}  ErrorResponse  "booking is cancelled"
// @Router   /api/admin/bookings/{id}/complete [put]
func (h *handler) completeBooking(c *gin.Context) {
	b, err := h.svcs.Bookings.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, b)
}

// ownedBooking loads the booking named by :id and aborts with 403 unless the
// caller owns it or is an admin.
func (h *handler) ownedBooking(c *gin.Context) (*domain.BookingView, bool) {
	v, err := h.svcs.Bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return nil, false
	}
	if !canAccess(c, v.UserID) {
		abortAuth(c, http.StatusForbidden, "booking belongs to another user")
		return nil, false
	}
	return v, true
}
