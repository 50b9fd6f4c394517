// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import (
	"errors"
	"fmt"
)

// Session and account sentinels.
var (
	// ErrAlreadyLoggedIn indicates the session already has an authenticated user.
	ErrAlreadyLoggedIn = errors.New("already logged in")

	// ErrLoginFailed indicates an unknown username or a wrong password.
	ErrLoginFailed = errors.New("login failed")

	// ErrNotLoggedIn indicates an operation that requires an authenticated session.
	ErrNotLoggedIn = errors.New("not logged in")

	// ErrInvalidAmount indicates a negative initial balance.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUserExists indicates the (lowercased) username is already taken.
	ErrUserExists = errors.New("user exists")
)

// Search and reservation sentinels.
var (
	// ErrNoMatch indicates no itinerary satisfied the search criteria.
	ErrNoMatch = errors.New("no matching flights")

	// ErrNoSuchItinerary indicates the session cache has no itinerary at the index.
	ErrNoSuchItinerary = errors.New("no such itinerary")

	// ErrBookingFailed indicates a booking that could not complete: a leg out of
	// seats, or conflict retries exhausted.
	ErrBookingFailed = errors.New("booking failed")

	// ErrSameDayConflict indicates the user already holds a non-cancelled
	// reservation on the itinerary's day.
	ErrSameDayConflict = errors.New("same-day reservation conflict")

	// ErrReservationNotFound indicates no matching reservation owned by the user.
	ErrReservationNotFound = errors.New("reservation not found")

	// ErrPaymentFailed indicates a storage failure during payment.
	ErrPaymentFailed = errors.New("payment failed")

	// ErrCancelFailed indicates a missing reservation or a storage failure
	// during cancellation.
	ErrCancelFailed = errors.New("cancel failed")

	// ErrNoReservations indicates the user holds no non-cancelled reservations.
	ErrNoReservations = errors.New("no reservations")
)

// Storage-level sentinels, translated into the kinds above at the service boundary.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a unique constraint violation.
	ErrAlreadyExists = errors.New("already exists")

	// ErrTxConflict indicates a serialization failure or deadlock; the whole
	// transactional body may be retried.
	ErrTxConflict = errors.New("transaction conflict")
)

// InsufficientFundsError reports a balance too small to cover a reservation.
// It carries both values because the user-facing outcome message does.
type InsufficientFundsError struct {
	Balance int64
	Cost    int64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %d, cost %d", e.Balance, e.Cost)
}
