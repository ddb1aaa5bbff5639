// Package model defines the core domain types for the ticket allocation system.
package model

import "time"

// EventStatus is the lifecycle state of an event.
type EventStatus string

const (
	EventStatusActive    EventStatus = "ACTIVE"
	EventStatusCancelled EventStatus = "CANCELLED"
)

// Event is a schedulable occasion with a fixed ticket capacity.
//
// AvailableTicket is owned by the allocation engine: it only changes inside a
// transaction that holds the event row lock and that also creates or removes
// exactly one booking.
type Event struct {
	ID              string      `json:"id"`
	Name            string      `json:"name"`
	Venue           string      `json:"venue"`
	ManagerID       string      `json:"manager_id"`
	TotalTicket     int         `json:"total_ticket"`
	AvailableTicket int         `json:"available_ticket"`
	StartAt         time.Time   `json:"start_at"`
	EndAt           time.Time   `json:"end_at"`
	Status          EventStatus `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
}

// Booked returns the number of tickets currently held by confirmed bookings.
func (e *Event) Booked() int {
	return e.TotalTicket - e.AvailableTicket
}

// IsFull returns true when no tickets remain.
func (e *Event) IsFull() bool {
	return e.AvailableTicket <= 0
}

// IsBookable reports whether the event still accepts bookings at now.
func (e *Event) IsBookable(now time.Time) bool {
	return e.Status == EventStatusActive && !e.EndAt.Before(now)
}

// BookingStatus is the state of a booking. The only transition is
// CONFIRMED -> CANCELLED.
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// Booking is a claim on one ticket unit of an event.
type Booking struct {
	ID        string        `json:"id"`
	EventID   string        `json:"event_id"`
	UserID    string        `json:"user_id"`
	Status    BookingStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

// IsActive reports whether the booking still holds a ticket.
func (b *Booking) IsActive() bool {
	return b.Status == BookingStatusConfirmed && b.DeletedAt == nil
}

// WaitlistEntry is a pending claim queued because the event was full.
// Entries are promoted in (CreatedAt, Seq) order.
type WaitlistEntry struct {
	ID        string    `json:"id"`
	EventID   string    `json:"event_id"`
	UserID    string    `json:"user_id"`
	Seq       int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Before reports whether e is ahead of other in the FIFO queue.
func (e *WaitlistEntry) Before(other *WaitlistEntry) bool {
	if !e.CreatedAt.Equal(other.CreatedAt) {
		return e.CreatedAt.Before(other.CreatedAt)
	}
	return e.Seq < other.Seq
}

// CancellationRecord is the audit entry written for every cancelled booking.
type CancellationRecord struct {
	ID        string    `json:"id"`
	BookingID string    `json:"booking_id"`
	Reason    *string   `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// User is an identity that can manage events and book tickets.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// OutcomeStatus tags a BookingOutcome.
type OutcomeStatus string

const (
	OutcomeConfirmed  OutcomeStatus = "confirmed"
	OutcomeWaitlisted OutcomeStatus = "waitlisted"
)

// BookingOutcome is the result of a booking attempt: exactly one of Booking
// or WaitlistEntry is set, matching Status.
type BookingOutcome struct {
	Status        OutcomeStatus  `json:"status"`
	Booking       *Booking       `json:"booking,omitempty"`
	WaitlistEntry *WaitlistEntry `json:"wait_list,omitempty"`
}

// Confirmed wraps a confirmed booking.
func Confirmed(b *Booking) *BookingOutcome {
	return &BookingOutcome{Status: OutcomeConfirmed, Booking: b}
}

// Waitlisted wraps a waitlist entry.
func Waitlisted(w *WaitlistEntry) *BookingOutcome {
	return &BookingOutcome{Status: OutcomeWaitlisted, WaitlistEntry: w}
}

// EventStatusResponse summarises an event and the length of its waitlist.
type EventStatusResponse struct {
	Event         Event `json:"event"`
	WaitListCount int   `json:"wait_list_count"`
}
