package domain

import (
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ParseID parses an entity identifier. Anything that is not a canonical UUID
// is reported as ErrInvalidInput naming the field.
func ParseID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, Errorf(ErrInvalidInput, "%s is not a valid id", field)
	}
	return id, nil
}

const bookingCodePrefix = "TRAV-"

// NewBookingCode returns a code of the form TRAV-YYYYMMDD-XXXXXX where the
// date is taken from now in UTC and the suffix is 6 random uppercase hex chars.
func NewBookingCode(now time.Time) string {
	b := make([]byte, 3)
	_, _ = rand.Read(b)
	return bookingCodePrefix + now.UTC().Format("20060102") + "-" + strings.ToUpper(hex.EncodeToString(b))
}
