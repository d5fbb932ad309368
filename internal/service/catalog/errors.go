package catalog

import "github.com/kirinyoku/travelgo/internal/domain"

var (
	ErrCompanyNotFound  = domain.Errorf(domain.ErrNotFound, "company not found")
	ErrScheduleNotFound = domain.Errorf(domain.ErrNotFound, "schedule not found")
	ErrCompanyNameTaken = domain.Errorf(domain.ErrConflict, "a company with this name already exists")
	ErrCompanyInUse     = domain.Errorf(domain.ErrConflict, "company still has schedules")
	ErrScheduleInUse    = domain.Errorf(domain.ErrConflict, "schedule still has active bookings")
	ErrScheduleReviewed = domain.Errorf(domain.ErrConflict, "schedule has reviews and cannot move to another company")

	ErrBlankName        = domain.Errorf(domain.ErrInvalidInput, "name must not be blank")
	ErrBlankType        = domain.Errorf(domain.ErrInvalidInput, "type must not be blank")
	ErrTransportType    = domain.Errorf(domain.ErrInvalidInput, "type must be one of bus, flight, train")
	ErrBlankRoute       = domain.Errorf(domain.ErrInvalidInput, "origin and destination must not be blank")
	ErrNegativePrice    = domain.Errorf(domain.ErrInvalidInput, "price must not be negative")
	ErrNegativeSeats    = domain.Errorf(domain.ErrInvalidInput, "available_seats must not be negative")
	ErrArrivalOrder     = domain.Errorf(domain.ErrInvalidInput, "arrival_at must be after departure_at")
	ErrMissingDeparture = domain.Errorf(domain.ErrInvalidInput, "departure_at is required")
	ErrPriceRange       = domain.Errorf(domain.ErrInvalidInput, "price_min must not exceed price_max")
	ErrSortBy           = domain.Errorf(domain.ErrInvalidInput, "sort_by must be departure_at or price")
)
