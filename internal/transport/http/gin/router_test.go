package httpgin

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/kirinyoku/travelgo/internal/domain"
	"github.com/kirinyoku/travelgo/internal/repository/memory"
	"github.com/kirinyoku/travelgo/internal/service"
	"github.com/kirinyoku/travelgo/internal/service/booking"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

type env struct {
	router   *gin.Engine
	store    *memory.Store
	alice    domain.User
	bob      domain.User
	admin    domain.User
	company  domain.Company
	schedule domain.Schedule
}

func newEnv(t *testing.T) *env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	e := &env{store: memory.NewStore()}
	e.alice = domain.User{ID: uuid.New(), Name: "Alice", Role: domain.RoleCustomer}
	e.bob = domain.User{ID: uuid.New(), Name: "Bob", Role: domain.RoleCustomer}
	e.admin = domain.User{ID: uuid.New(), Name: "Root", Role: domain.RoleAdmin}
	for _, u := range []domain.User{e.alice, e.bob, e.admin} {
		e.store.PutUser(u)
	}

	e.company = domain.Company{Name: "Night Train Co", Type: "train"}
	require.NoError(t, e.store.Companies().Create(t.Context(), &e.company))

	e.schedule = domain.Schedule{
		CompanyID:      e.company.ID,
		Type:           domain.TransportTrain,
		Origin:         "Kyiv",
		Destination:    "Uzhhorod",
		DepartureAt:    time.Date(2025, 10, 1, 21, 0, 0, 0, time.UTC),
		Price:          150000,
		AvailableSeats: 4,
	}
	require.NoError(t, e.store.Schedules().Create(t.Context(), &e.schedule))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svcs := service.NewServices(e.store, nil, nil, nil, nil, logger, service.Config{})
	e.router = NewRouter(svcs, nil, Config{JWTSecret: testSecret}, logger)

	return e
}

func token(t *testing.T, u domain.User) string {
	t.Helper()

	claims := Claims{
		Role: string(u.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return s
}

func (e *env) do(t *testing.T, method, path string, as *domain.User, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+token(t, *as))
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func (e *env) book(t *testing.T, as domain.User, count int) domain.Booking {
	t.Helper()

	w := e.do(t, http.MethodPost, "/api/bookings", &as, gin.H{
		"schedule_id":     e.schedule.ID,
		"passenger_name":  as.Name,
		"passenger_count": count,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[domain.Booking](t, w)
}

func TestHealthz(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestCreateBooking(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/bookings", nil, gin.H{"schedule_id": e.schedule.ID, "passenger_name": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	b := e.book(t, e.alice, 2)
	assert.Equal(t, int64(300000), b.TotalPrice)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, e.alice.ID, b.UserID)

	// passenger_count defaults to 1
	w = e.do(t, http.MethodPost, "/api/bookings", &e.bob, gin.H{"schedule_id": e.schedule.ID, "passenger_name": "Bob"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, decode[domain.Booking](t, w).PassengerCount)

	w = e.do(t, http.MethodPost, "/api/bookings", &e.bob, gin.H{"schedule_id": e.schedule.ID, "passenger_name": "Bob", "passenger_count": 5})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_capacity", decode[ErrorResponse](t, w).Error)

	w = e.do(t, http.MethodPost, "/api/bookings", &e.bob, gin.H{"passenger_name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_input", decode[ErrorResponse](t, w).Error)

	w = e.do(t, http.MethodPost, "/api/bookings", &e.bob, gin.H{"schedule_id": uuid.New(), "passenger_name": "Bob"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = e.do(t, http.MethodPost, "/api/bookings", &e.bob, gin.H{"schedule_id": e.schedule.ID, "passenger_name": "Bob", "passenger_count": 0})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingOwnership(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, e.alice, 1)
	path := "/api/bookings/" + b.ID.String()

	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, path, &e.alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, path, &e.bob, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, path, &e.admin, nil).Code)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodDelete, path, &e.bob, nil).Code)

	mine := e.do(t, http.MethodGet, "/api/bookings/me", &e.bob, nil)
	require.Equal(t, http.StatusOK, mine.Code)
	assert.Empty(t, decode[[]domain.BookingView](t, mine))

	mine = e.do(t, http.MethodGet, "/api/bookings/me", &e.alice, nil)
	views := decode[[]domain.BookingView](t, mine)
	require.Len(t, views, 1)
	require.NotNil(t, views[0].ScheduleInfo)
	assert.Equal(t, "Uzhhorod", views[0].ScheduleInfo.Destination)
}

func TestAmendBooking_CustomerCancelIgnoresCase(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, e.alice, 2)
	path := "/api/bookings/" + b.ID.String()

	w := e.do(t, http.MethodPatch, path, &e.alice, gin.H{"status": " Confirmed "})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, path, &e.alice, gin.H{"status": " Cancelled"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, domain.BookingCancelled, decode[domain.Booking](t, w).Status)

	s, err := e.store.Schedules().Get(t.Context(), e.schedule.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, s.AvailableSeats)
}

func TestAmendBooking(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, e.alice, 1)
	path := "/api/bookings/" + b.ID.String()

	w := e.do(t, http.MethodPatch, path, &e.alice, gin.H{"status": "completed"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = e.do(t, http.MethodPatch, path, &e.alice, gin.H{"passenger_count": 3})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(450000), decode[domain.Booking](t, w).TotalPrice)

	w = e.do(t, http.MethodPatch, path, &e.alice, gin.H{"passenger_count": 5})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPatch, path, &e.alice, gin.H{"status": "cancelled"})
	require.Equal(t, http.StatusOK, w.Code)

	w = e.do(t, http.MethodPatch, path, &e.admin, gin.H{"status": "confirmed"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "invalid_status", decode[ErrorResponse](t, w).Error)

	w = e.do(t, http.MethodDelete, path, &e.alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, path, &e.alice, nil).Code)
}

func TestAdminRoutesRequireAdmin(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusUnauthorized, e.do(t, http.MethodGet, "/api/admin/bookings", nil, nil).Code)
	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodGet, "/api/admin/bookings", &e.alice, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(t, http.MethodGet, "/api/admin/bookings", &e.admin, nil).Code)

	w := e.do(t, http.MethodPost, "/api/admin/companies", &e.alice, gin.H{"name": "Sneaky", "type": "bus"})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReviewFlow(t *testing.T) {
	e := newEnv(t)
	b := e.book(t, e.alice, 1)

	review := gin.H{"booking_id": b.ID, "rating": 5, "comment": "slept well"}

	w := e.do(t, http.MethodPost, "/api/reviews", &e.alice, review)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, "not_eligible", decode[ErrorResponse](t, w).Error)

	w = e.do(t, http.MethodPut, "/api/admin/bookings/"+b.ID.String()+"/complete", &e.admin, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusForbidden, e.do(t, http.MethodPost, "/api/reviews", &e.bob, review).Code)

	w = e.do(t, http.MethodPost, "/api/reviews", &e.alice, review)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	rv := decode[domain.Review](t, w)

	w = e.do(t, http.MethodPost, "/api/reviews", &e.alice, review)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_reviewed", decode[ErrorResponse](t, w).Error)

	w = e.do(t, http.MethodGet, "/api/companies/"+e.company.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	c := decode[domain.Company](t, w)
	assert.Equal(t, 5.0, c.AverageRating)
	assert.Equal(t, 1, c.TotalReviews)

	w = e.do(t, http.MethodGet, "/api/schedules/"+e.schedule.ID.String()+"/reviews", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[[]domain.ReviewView](t, w)
	require.Len(t, list, 1)
	assert.Equal(t, "Alice", list[0].UserName)

	w = e.do(t, http.MethodDelete, "/api/admin/reviews/"+rv.ID.String(), &e.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = e.do(t, http.MethodGet, "/api/companies/"+e.company.ID.String(), nil, nil)
	assert.Equal(t, 0, decode[domain.Company](t, w).TotalReviews)
}

func TestCatalogAdmin(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodPost, "/api/admin/companies", &e.admin, gin.H{"name": "night train co", "type": "train"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/companies", &e.admin, gin.H{"name": "Wings", "type": "airline", "contact_email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/schedules", &e.admin, gin.H{
		"company_id":      e.company.ID,
		"type":            "boat",
		"origin":          "A",
		"destination":     "B",
		"departure_at":    "2025-10-02T10:00:00Z",
		"price":           100,
		"available_seats": 10,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(t, http.MethodPost, "/api/admin/schedules", &e.admin, gin.H{
		"company_id":      e.company.ID,
		"type":            "bus",
		"origin":          "Chernivtsi",
		"destination":     "Suceava",
		"departure_at":    "2025-10-02T10:00:00Z",
		"price":           30000,
		"available_seats": 40,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sched := decode[domain.Schedule](t, w)

	e.book(t, e.alice, 1)
	w = e.do(t, http.MethodDelete, "/api/admin/schedules/"+e.schedule.ID.String(), &e.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodDelete, "/api/admin/companies/"+e.company.ID.String(), &e.admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(t, http.MethodDelete, "/api/admin/schedules/"+sched.ID.String(), &e.admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestSearchSchedules(t *testing.T) {
	e := newEnv(t)

	w := e.do(t, http.MethodGet, "/api/schedules?origin=kyiv&type=train&departure_date=2025-10-01", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[[]domain.Schedule](t, w)
	require.Len(t, got, 1)
	assert.Equal(t, e.schedule.ID, got[0].ID)

	w = e.do(t, http.MethodGet, "/api/schedules?departure_date=2025-10-02", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]domain.Schedule](t, w))

	for _, q := range []string{"sort_by=name", "order=up", "type=boat", "departure_date=01-10-2025", "price_min=-1", "price_min=10&price_max=5"} {
		w = e.do(t, http.MethodGet, "/api/schedules?"+q, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestGetSchedule(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, http.StatusBadRequest, e.do(t, http.MethodGet, "/api/schedules/42", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(t, http.MethodGet, "/api/schedules/"+uuid.NewString(), nil, nil).Code)

	w := e.do(t, http.MethodGet, "/api/schedules/"+e.schedule.ID.String(), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	tag := w.Header().Get("ETag")
	require.NotEmpty(t, tag)

	w = e.do(t, http.MethodGet, "/api/schedules/"+e.schedule.ID.String(), nil, nil, "If-None-Match", tag)
	assert.Equal(t, http.StatusNotModified, w.Code)

	e.book(t, e.alice, 1)
	w = e.do(t, http.MethodGet, "/api/schedules/"+e.schedule.ID.String(), nil, nil, "If-None-Match", tag)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 3, decode[domain.Schedule](t, w).AvailableSeats)
}

func TestPopularSchedules(t *testing.T) {
	e := newEnv(t)
	e.book(t, e.alice, 2)

	w := e.do(t, http.MethodGet, "/api/schedules/popular", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	out := decode[[]domain.PopularSchedule](t, w)
	require.Len(t, out, 1)
	assert.Equal(t, int64(300000), out[0].TotalRevenue)
}

func TestRespondErr(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "not found", err: domain.Errorf(domain.ErrNotFound, "schedule not found"), status: http.StatusNotFound, code: "not_found"},
		{name: "capacity", err: domain.Errorf(domain.ErrInsufficientCapacity, "full"), status: http.StatusConflict, code: "insufficient_capacity"},
		{name: "eligibility", err: domain.Errorf(domain.ErrNotEligible, "nope"), status: http.StatusUnprocessableEntity, code: "not_eligible"},
		{name: "rate limited", err: booking.RateLimitedError{RetryAfter: 3 * time.Second}, status: http.StatusTooManyRequests, code: "rate_limited"},
		{name: "unknown", err: errors.New("db on fire"), status: http.StatusInternalServerError, code: "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)

			respondErr(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode[ErrorResponse](t, w).Error)
			assert.NotContains(t, w.Body.String(), "db on fire")
		})
	}
}

func TestJWTAuth_Rejects(t *testing.T) {
	e := newEnv(t)

	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   e.alice.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   e.alice.ID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	for name, tok := range map[string]string{"expired": expired, "forged": forged, "garbage": "abc.def.ghi"} {
		w := e.do(t, http.MethodGet, "/api/bookings/me", nil, nil, "Authorization", "Bearer "+tok)
		assert.Equal(t, http.StatusUnauthorized, w.Code, name)
	}
}
