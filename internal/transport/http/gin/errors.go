package httpgin

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/service/booking"
)

var kindStatus = map[error]int{
	domain.ErrInvalidInput:         http.StatusBadRequest,
	domain.ErrNotFound:             http.StatusNotFound,
	domain.ErrInsufficientCapacity: http.StatusConflict,
	domain.ErrNotEligible:          http.StatusUnprocessableEntity,
	domain.ErrAlreadyReviewed:      http.StatusConflict,
	domain.ErrInvalidStatus:        http.StatusUnprocessableEntity,
	domain.ErrConflict:             http.StatusConflict,
}

// respondErr renders err as {"error": kind, "detail": message}. Errors without
// a kind are logged through c.Error and reported as a bare 500.
func respondErr(c *gin.Context, err error) {
	if err == nil {
		c.Status(http.StatusNoContent)
		return
	}

	var rl booking.RateLimitedError
	if errors.As(err, &rl) {
		c.Header("Retry-After", strconv.Itoa(int(rl.RetryAfter.Seconds())+1))
		c.AbortWithStatusJSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate_limited", Detail: rl.Error()})
		return
	}

	kind := domain.KindOf(err)
	if kind == nil {
		_ = c.Error(err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal", Detail: "internal error"})
		return
	}

	detail := kind.Error()
	var de *domain.Error
	if errors.As(err, &de) {
		detail = de.Detail
	}

	c.AbortWithStatusJSON(kindStatus[kind], ErrorResponse{Error: kind.Error(), Detail: detail})
}

// badRequest reports a request that failed binding or validation.
func badRequest(c *gin.Context, err error) {
	detail := err.Error()

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		detail = fmt.Sprintf("%s failed on %q", fe.Field(), fe.Tag())
		if fe.Param() != "" {
			detail = fmt.Sprintf("%s failed on %q (%s)", fe.Field(), fe.Tag(), fe.Param())
		}
	}

	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Error: domain.ErrInvalidInput.Error(), Detail: detail})
}
