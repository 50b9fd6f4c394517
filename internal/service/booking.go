package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/events"
	"github.com/avdeyev/flightapp/internal/model"
)

// Book reserves the itinerary the session's last search assigned to index.
// Serialization conflicts rerun the whole attempt, precondition checks
// included, under a bounded exponential backoff; exhausting the attempts
// reports ErrBookingFailed rather than retrying forever. Storage failures
// surface as ErrBookingFailed too; only booking's own outcomes pass through
// unchanged.
func (e *Engine) Book(ctx context.Context, s *Session, index int) (int64, error) {
	defer e.checkLeak("book")

	if !s.Active() {
		return 0, errs.ErrNotLoggedIn
	}

	var (
		id     int64
		booked model.Itinerary
	)
	backoff := retry.WithMaxRetries(e.bookAttempts-1, retry.NewExponential(10*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		bookedID, it, err := e.bookOnce(ctx, s, index)
		if err != nil {
			if errors.Is(err, errs.ErrTxConflict) {
				return retry.RetryableError(err)
			}
			return err
		}
		id, booked = bookedID, it
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, errs.ErrNoSuchItinerary),
			errors.Is(err, errs.ErrSameDayConflict),
			errors.Is(err, errs.ErrBookingFailed):
			return 0, err
		}
		// conflict exhaustion and any other storage failure
		return 0, fmt.Errorf("%w: %w", errs.ErrBookingFailed, err)
	}

	e.publish(ctx, events.ReservationEvent{
		Type:          events.TypeBooked,
		ReservationID: id,
		Username:      s.Username(),
		Cost:          booked.TotalCost(),
		DayOfMonth:    booked.First.DayOfMonth,
	})
	return id, nil
}

// bookOnce is one attempt: cache lookup, live capacity pre-check, then the
// transactional body. The pre-check is advisory only; a concurrent booking
// can still take the last seat before the transaction commits, which the
// body detects on its own.
func (e *Engine) bookOnce(ctx context.Context, s *Session, index int) (int64, model.Itinerary, error) {
	it, ok, err := e.itineraries.Get(ctx, s.ID(), index)
	if err != nil {
		return 0, model.Itinerary{}, err
	}
	if !ok {
		return 0, model.Itinerary{}, errs.ErrNoSuchItinerary
	}
	for _, leg := range it.Legs() {
		seats, err := e.flights.SeatsRemaining(ctx, leg.ID)
		if err != nil {
			return 0, model.Itinerary{}, err
		}
		if seats <= 0 {
			return 0, model.Itinerary{}, errs.ErrBookingFailed
		}
	}
	id, err := e.reservations.Book(ctx, s.Username(), it)
	if err != nil {
		return 0, model.Itinerary{}, err
	}
	return id, it, nil
}

// Pay settles an unpaid reservation against the user's balance and returns
// the balance after the debit. Payment failures are not assumed transient:
// there is no retry, unlike booking.
func (e *Engine) Pay(ctx context.Context, s *Session, reservationID int64) (int64, error) {
	defer e.checkLeak("pay")

	if !s.Active() {
		return 0, errs.ErrNotLoggedIn
	}
	balance, err := e.reservations.Pay(ctx, s.Username(), reservationID)
	if err != nil {
		var insufficient *errs.InsufficientFundsError
		if errors.Is(err, errs.ErrReservationNotFound) || errors.As(err, &insufficient) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", errs.ErrPaymentFailed, err)
	}

	e.publish(ctx, events.ReservationEvent{
		Type:          events.TypePaid,
		ReservationID: reservationID,
		Username:      s.Username(),
	})
	return balance, nil
}

// Cancel voids a reservation, refunding it when paid and releasing its
// seats. A missing reservation and a storage failure both report
// ErrCancelFailed.
func (e *Engine) Cancel(ctx context.Context, s *Session, reservationID int64) error {
	defer e.checkLeak("cancel")

	if !s.Active() {
		return errs.ErrNotLoggedIn
	}
	if err := e.reservations.Cancel(ctx, s.Username(), reservationID); err != nil {
		return fmt.Errorf("%w: %w", errs.ErrCancelFailed, err)
	}

	e.publish(ctx, events.ReservationEvent{
		Type:          events.TypeCancelled,
		ReservationID: reservationID,
		Username:      s.Username(),
	})
	return nil
}

// ReservationDetail pairs a reservation with the full flight rows of its legs.
type ReservationDetail struct {
	Reservation model.Reservation
	Legs        []model.Flight
}

// ListReservations returns the user's non-cancelled reservations in ascending
// id order, each leg resolved to its flight independently. Listing reads
// committed state only and surfaces storage errors as-is, wrapped.
func (e *Engine) ListReservations(ctx context.Context, s *Session) ([]ReservationDetail, error) {
	defer e.checkLeak("reservations")

	if !s.Active() {
		return nil, errs.ErrNotLoggedIn
	}
	list, err := e.reservations.ListActive(ctx, s.Username())
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if len(list) == 0 {
		return nil, errs.ErrNoReservations
	}

	out := make([]ReservationDetail, 0, len(list))
	for _, res := range list {
		detail := ReservationDetail{Reservation: res}
		for _, fid := range res.FlightIDs() {
			f, err := e.flights.GetByID(ctx, fid)
			if err != nil {
				return nil, fmt.Errorf("list reservations: %w", err)
			}
			detail.Legs = append(detail.Legs, *f)
		}
		out = append(out, detail)
	}
	return out, nil
}
