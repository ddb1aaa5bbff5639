package service

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/ticket-allocation/internal/repository"
)

var (
	// ErrEventNotFound is returned when the requested event does not exist.
	ErrEventNotFound = fmt.Errorf("event %w", repository.ErrNotFound)

	// ErrBookingNotFound covers a missing booking, one that is already
	// cancelled and one owned by someone else.
	ErrBookingNotFound = fmt.Errorf("ticket %w", repository.ErrNotFound)

	// ErrInvalidState is returned when booking a cancelled or finished event.
	ErrInvalidState = errors.New("event date is past")

	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidCredentials is returned by Login for an unknown email or a
	// wrong password.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrEmailTaken is returned by SignUp when the email is registered.
	ErrEmailTaken = fmt.Errorf("email already registered: %w", repository.ErrConflict)
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
