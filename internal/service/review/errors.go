package review

import "github.com/kirinyoku/travelgo/internal/domain"

var (
	ErrInvalidRating    = domain.Errorf(domain.ErrInvalidInput, "rating must be between 1 and 5")
	ErrBookingNotFound  = domain.Errorf(domain.ErrNotFound, "booking not found")
	ErrReviewNotFound   = domain.Errorf(domain.ErrNotFound, "review not found")
	ErrScheduleNotFound = domain.Errorf(domain.ErrNotFound, "schedule not found")
	ErrCompanyNotFound  = domain.Errorf(domain.ErrNotFound, "company not found")
	ErrNotCompleted     = domain.Errorf(domain.ErrNotEligible, "only completed bookings can be reviewed")
	ErrAlreadyReviewed  = domain.Errorf(domain.ErrAlreadyReviewed, "booking has already been reviewed")
)
