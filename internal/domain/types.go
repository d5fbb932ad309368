package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type TransportType string

const (
	TransportBus    TransportType = "bus"
	TransportFlight TransportType = "flight"
	TransportTrain  TransportType = "train"
)

func (t TransportType) Valid() bool {
	switch t {
	case TransportBus, TransportFlight, TransportTrain:
		return true
	}
	return false
}

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCompleted BookingStatus = "completed"
	BookingCancelled BookingStatus = "cancelled"
)

// NormalizeBookingStatus trims and lower-cases a client supplied status. The
// result still needs a Valid check.
func NormalizeBookingStatus(raw string) BookingStatus {
	return BookingStatus(strings.ToLower(strings.TrimSpace(raw)))
}

// Valid reports whether s is one of the four known booking states.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition is allowed out of s.
func (s BookingStatus) Terminal() bool {
	return s == BookingCompleted || s == BookingCancelled
}

type ReviewStatus string

const (
	ReviewPending ReviewStatus = "pending"
	ReviewDone    ReviewStatus = "done"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

type User struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Email string    `json:"email"`
	Role  Role      `json:"role"`
}

type Company struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	Type          string    `json:"type"`
	Description   string    `json:"description,omitempty"`
	Logo          string    `json:"logo,omitempty"`
	ContactEmail  string    `json:"contact_email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	AverageRating float64   `json:"average_rating"`
	TotalReviews  int       `json:"total_reviews"`
	CreatedAt     time.Time `json:"created_at"`
}

type Schedule struct {
	ID             uuid.UUID     `json:"id"`
	CompanyID      uuid.UUID     `json:"company_id"`
	Type           TransportType `json:"type"`
	Origin         string        `json:"origin"`
	Destination    string        `json:"destination"`
	DepartureAt    time.Time     `json:"departure_at"`
	ArrivalAt      *time.Time    `json:"arrival_at,omitempty"`
	Price          int64         `json:"price"`
	AvailableSeats int           `json:"available_seats"`
	CreatedAt      time.Time     `json:"created_at"`
}

type Booking struct {
	ID             uuid.UUID     `json:"id"`
	UserID         uuid.UUID     `json:"user_id"`
	ScheduleID     uuid.UUID     `json:"schedule_id"`
	PassengerName  string        `json:"passenger_name"`
	PassengerCount int           `json:"passenger_count"`
	TotalPrice     int64         `json:"total_price"`
	Status         BookingStatus `json:"status"`
	ReviewStatus   ReviewStatus  `json:"review_status"`
	Code           string        `json:"booking_code"`
	CreatedAt      time.Time     `json:"created_at"`
	CompletedAt    *time.Time    `json:"completed_at,omitempty"`
}

type Review struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking_id"`
	CompanyID uuid.UUID `json:"company_id"`
	UserID    uuid.UUID `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScheduleFilter narrows a schedule search. Zero values mean "no filter".
type ScheduleFilter struct {
	Origin      string
	Destination string
	Type        TransportType
	DepartureOn *time.Time // matches the whole UTC day
	PriceMin    *int64
	PriceMax    *int64
	SortBy      string // "departure_at" or "price"
	Desc        bool
}

type BookingFilter struct {
	UserID     *uuid.UUID
	ScheduleID *uuid.UUID
}

type PopularSchedule struct {
	Schedule     Schedule `json:"schedule"`
	BookingCount int      `json:"booking_count"`
	TotalRevenue int64    `json:"total_revenue"`
}

// Read-side projections. They are assembled for API responses only.

type ScheduleSummary struct {
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	DepartureAt time.Time     `json:"departure_at"`
	Price       int64         `json:"price"`
	Type        TransportType `json:"type"`
}

type UserSummary struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

type BookingView struct {
	Booking
	ScheduleInfo *ScheduleSummary `json:"schedule_info,omitempty"`
	UserInfo     *UserSummary     `json:"user_info,omitempty"`
}

type ReviewView struct {
	Review
	UserName string `json:"user_name"`
}
