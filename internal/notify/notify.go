// Package notify publishes booking domain events after they commit. It is the
// hook for user notifications; delivering them is left to consumers of the
// exchange.
package notify

import (
	"context"
	"time"
)

// Routing keys.
const (
	KeyBookingConfirmed  = "booking.confirmed"
	KeyBookingWaitlisted = "booking.waitlisted"
	KeyBookingCancelled  = "booking.cancelled"
	KeyBookingPromoted   = "booking.promoted"
)

// Message is the JSON body of every booking event.
type Message struct {
	EventID         string    `json:"event_id"`
	UserID          string    `json:"user_id"`
	BookingID       string    `json:"booking_id,omitempty"`
	WaitlistEntryID string    `json:"wait_list_id,omitempty"`
	Reason          string    `json:"reason,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher emits domain events.
type Publisher interface {
	Publish(ctx context.Context, key string, msg Message) error
	Close() error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Publish(context.Context, string, Message) error { return nil }
func (Nop) Close() error                                    { return nil }
