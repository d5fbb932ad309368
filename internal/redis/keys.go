package redisx

import (
	"fmt"

	"github.com/google/uuid"
)

const ns = "travelgo:v1"

func KeySchedule(id uuid.UUID) string {
	return fmt.Sprintf("%s:schedule:%s", ns, id)
}

func KeyScheduleReviews(id uuid.UUID) string {
	return fmt.Sprintf("%s:schedule:%s:reviews", ns, id)
}

func KeyPopularSchedules() string {
	return ns + ":schedules:popular"
}

func KeyCompany(id uuid.UUID) string {
	return fmt.Sprintf("%s:company:%s", ns, id)
}

func KeyCompanyReviews(id uuid.UUID) string {
	return fmt.Sprintf("%s:company:%s:reviews", ns, id)
}

func KeyCompanies() string {
	return ns + ":companies"
}

func KeyRateLimit(scope, id string) string {
	return fmt.Sprintf("%s:rl:%s:%s", ns, scope, id)
}

func KeyIdemBooking(userID uuid.UUID, idemKey string) string {
	return fmt.Sprintf("%s:idem:bookings:%s:%s", ns, userID, idemKey)
}

func ChannelCatalogChanged() string {
	return ns + ":catalog:changed"
}
