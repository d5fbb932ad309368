// Package events publishes booking and review domain events to a broker.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	BookingCreated   = "booking.created"
	BookingUpdated   = "booking.updated"
	BookingCompleted = "booking.completed"
	BookingCancelled = "booking.cancelled"
	ReviewSubmitted  = "review.submitted"
	ReviewUpdated    = "review.updated"
	ReviewDeleted    = "review.deleted"
)

// Event is the envelope written to the broker. Key orders events of the same
// aggregate on partitioned brokers.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       string    `json:"type"`
	Key        string    `json:"key"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

func New(typ string, key uuid.UUID, payload any) Event {
	return Event{
		ID:         uuid.New(),
		Type:       typ,
		Key:        key.String(),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
