package httpgin

import (
	"time"

	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/service/booking"
	"github.com/kirinyoku/travelgo/internal/service/catalog"
	"github.com/kirinyoku/travelgo/internal/service/review"
)

type ErrorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

type CreateBookingRequest struct {
	ScheduleID     string `json:"schedule_id" binding:"required"`
	PassengerName  string `json:"passenger_name" binding:"required"`
	// PassengerCount defaults to 1 when omitted.
	PassengerCount *int `json:"passenger_count"`
}

type AmendBookingRequest struct {
	PassengerName  *string `json:"passenger_name"`
	PassengerCount *int    `json:"passenger_count"`
	Status         *string `json:"status"`
}

func (r AmendBookingRequest) input() booking.AmendInput {
	return booking.AmendInput{
		PassengerName:  r.PassengerName,
		PassengerCount: r.PassengerCount,
		Status:         r.Status,
	}
}

type SubmitReviewRequest struct {
	BookingID string `json:"booking_id" binding:"required"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment" binding:"max=2000"`
}

type UpdateReviewRequest struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment" binding:"omitempty,max=2000"`
}

type CompanyRequest struct {
	Name         string `json:"name" binding:"required,max=200"`
	Type         string `json:"type" binding:"required"`
	Description  string `json:"description"`
	Logo         string `json:"logo" binding:"omitempty,url"`
	ContactEmail string `json:"contact_email" binding:"omitempty,email"`
	Phone        string `json:"phone"`
}

func (r CompanyRequest) input() catalog.CompanyInput {
	return catalog.CompanyInput{
		Name:         r.Name,
		Type:         r.Type,
		Description:  r.Description,
		Logo:         r.Logo,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
	}
}

type CompanyPatchRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=200"`
	Type         *string `json:"type"`
	Description  *string `json:"description"`
	Logo         *string `json:"logo" binding:"omitempty,url"`
	ContactEmail *string `json:"contact_email" binding:"omitempty,email"`
	Phone        *string `json:"phone"`
}

func (r CompanyPatchRequest) input() catalog.CompanyPatch {
	return catalog.CompanyPatch{
		Name:         r.Name,
		Type:         r.Type,
		Description:  r.Description,
		Logo:         r.Logo,
		ContactEmail: r.ContactEmail,
		Phone:        r.Phone,
	}
}

type ScheduleRequest struct {
	CompanyID      string     `json:"company_id" binding:"required"`
	Type           string     `json:"type" binding:"required,transport"`
	Origin         string     `json:"origin" binding:"required"`
	Destination    string     `json:"destination" binding:"required"`
	DepartureAt    time.Time  `json:"departure_at" binding:"required"`
	ArrivalAt      *time.Time `json:"arrival_at"`
	Price          int64      `json:"price" binding:"gte=0"`
	AvailableSeats int        `json:"available_seats" binding:"gte=0"`
}

func (r ScheduleRequest) input() catalog.ScheduleInput {
	return catalog.ScheduleInput{
		CompanyID:      r.CompanyID,
		Type:           r.Type,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureAt:    r.DepartureAt,
		ArrivalAt:      r.ArrivalAt,
		Price:          r.Price,
		AvailableSeats: r.AvailableSeats,
	}
}

type SchedulePatchRequest struct {
	CompanyID      *string    `json:"company_id"`
	Type           *string    `json:"type" binding:"omitempty,transport"`
	Origin         *string    `json:"origin"`
	Destination    *string    `json:"destination"`
	DepartureAt    *time.Time `json:"departure_at"`
	ArrivalAt      *time.Time `json:"arrival_at"`
	Price          *int64     `json:"price" binding:"omitempty,gte=0"`
	AvailableSeats *int       `json:"available_seats" binding:"omitempty,gte=0"`
}

func (r SchedulePatchRequest) input() catalog.SchedulePatch {
	return catalog.SchedulePatch{
		CompanyID:      r.CompanyID,
		Type:           r.Type,
		Origin:         r.Origin,
		Destination:    r.Destination,
		DepartureAt:    r.DepartureAt,
		ArrivalAt:      r.ArrivalAt,
		Price:          r.Price,
		AvailableSeats: r.AvailableSeats,
	}
}

// ScheduleSearchQuery is bound from the query string of GET /api/schedules.
type ScheduleSearchQuery struct {
	Origin        string `form:"origin"`
	Destination   string `form:"destination"`
	Type          string `form:"type" binding:"omitempty,transport"`
	DepartureDate string `form:"departure_date" binding:"omitempty,datetime=2006-01-02"`
	PriceMin      *int64 `form:"price_min" binding:"omitempty,gte=0"`
	PriceMax      *int64 `form:"price_max" binding:"omitempty,gte=0"`
	SortBy        string `form:"sort_by" binding:"omitempty,oneof=departure_at price"`
	Order         string `form:"order" binding:"omitempty,oneof=asc desc"`
}

func (q ScheduleSearchQuery) filter() domain.ScheduleFilter {
	f := domain.ScheduleFilter{
		Origin:      q.Origin,
		Destination: q.Destination,
		Type:        domain.TransportType(q.Type),
		PriceMin:    q.PriceMin,
		PriceMax:    q.PriceMax,
		SortBy:      q.SortBy,
		Desc:        q.Order == "desc",
	}
	if day, err := time.Parse(time.DateOnly, q.DepartureDate); err == nil {
		f.DepartureOn = &day
	}
	return f
}

func (r UpdateReviewRequest) input() review.UpdateInput {
	return review.UpdateInput{Rating: r.Rating, Comment: r.Comment}
}
