package booking

import (
	"fmt"
	"time"

	"github.com/kirinyoku/travelgo/internal/domain"
)

var (
	ErrBookingNotFound       = domain.Errorf(domain.ErrNotFound, "booking not found")
	ErrScheduleNotFound      = domain.Errorf(domain.ErrNotFound, "schedule not found")
	ErrUserNotFound          = domain.Errorf(domain.ErrNotFound, "user not found")
	ErrInvalidPassengerName  = domain.Errorf(domain.ErrInvalidInput, "passenger_name must not be blank")
	ErrInvalidPassengerCount = domain.Errorf(domain.ErrInvalidInput, "passenger_count must be at least 1")
	ErrUnknownStatus         = domain.Errorf(domain.ErrInvalidStatus, "status must be one of pending, confirmed, completed, cancelled")
	ErrAlreadyCancelled      = domain.Errorf(domain.ErrInvalidStatus, "booking is cancelled")
	ErrCodeConflict          = domain.Errorf(domain.ErrConflict, "booking code already in use, retry the request")
)

// RateLimitedError is returned by Create when the caller exceeded the
// booking rate limit.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e RateLimitedError) Error() string {
	return fmt.Sprintf("too many booking attempts, retry in %s", e.RetryAfter.Round(time.Second))
}

func terminalError(from domain.BookingStatus, action string) error {
	return domain.Errorf(domain.ErrInvalidStatus, "cannot %s a %s booking", action, from)
}
