package repository

import (
	"context"

	"github.com/avdeyev/flightapp/internal/model"
)

// ReservationRepository owns the transactional bodies of the reservation
// lifecycle. Each mutating method runs as a single serializable transaction;
// errs.ErrTxConflict marks failures the caller may retry as a whole.
type ReservationRepository interface {
	// Book atomically takes one seat per leg, enforces the one-reservation-
	// per-day invariant and inserts the reservation. Returns the assigned id.
	Book(ctx context.Context, username string, it model.Itinerary) (int64, error)
	// Pay atomically debits the user's balance and marks the reservation paid.
	// Returns the balance after the debit.
	Pay(ctx context.Context, username string, reservationID int64) (int64, error)
	// Cancel atomically refunds a paid reservation, releases its seats and
	// marks it cancelled. The id is retained forever.
	Cancel(ctx context.Context, username string, reservationID int64) error
	// ListActive returns the user's non-cancelled reservations in ascending
	// id order. Runs without an explicit transaction.
	ListActive(ctx context.Context, username string) ([]model.Reservation, error)
}
