package model

import "time"

// InitializeEventRequest is the payload for creating a new event.
type InitializeEventRequest struct {
	Name        string    `json:"name" validate:"required,max=200"`
	Venue       string    `json:"venue" validate:"required,max=200"`
	TotalTicket int       `json:"total_ticket" validate:"required,min=1,max=100000"`
	StartAt     time.Time `json:"start_at" validate:"required"`
	EndAt       time.Time `json:"end_at" validate:"required,gtfield=StartAt"`
}

// BookTicketRequest is the payload for booking a ticket.
type BookTicketRequest struct {
	EventID string `json:"event_id" validate:"required,uuid"`
}

// CancelBookingRequest is the payload for cancelling a booking.
type CancelBookingRequest struct {
	BookingID string  `json:"booking_id" validate:"required,uuid"`
	Reason    *string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

// SignUpRequest is the payload for registering a user.
type SignUpRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest is the payload for exchanging credentials for a token.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries an access token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}
