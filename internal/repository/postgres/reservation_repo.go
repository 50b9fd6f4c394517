package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/model"
)

// ReservationRepo implements ReservationRepository using PostgreSQL. Every
// mutating method is one serializable transaction; partial effects never
// survive an error return.
type ReservationRepo struct{ db *DB }

// NewReservationRepo constructs a reservation repository.
func NewReservationRepo(db *DB) *ReservationRepo { return &ReservationRepo{db: db} }

// Book takes one seat per leg, enforces the same-day invariant and inserts
// the reservation row. The id comes from the reservations identity column,
// so it is monotonic and never reused even after cancellation.
func (r *ReservationRepo) Book(ctx context.Context, username string, it model.Itinerary) (id int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = classify(e)
		}
	}()

	if err = takeSeat(ctx, tx, it.First); err != nil {
		return 0, err
	}

	day := it.First.DayOfMonth
	const sameDay = `SELECT 1 FROM reservations WHERE username=$1 AND day_of_month=$2 AND NOT cancelled LIMIT 1`
	var one int
	scanErr := tx.QueryRow(ctx, sameDay, username, day).Scan(&one)
	switch {
	case scanErr == nil:
		err = errs.ErrSameDayConflict
		return 0, err
	case errors.Is(scanErr, pgx.ErrNoRows):
		// day is free
	default:
		err = classify(scanErr)
		return 0, err
	}

	if it.Second != nil {
		if err = takeSeat(ctx, tx, *it.Second); err != nil {
			return 0, err
		}
	}

	const ins = `
INSERT INTO reservations (username, itinerary, is_direct, fid1, fid2, cost, paid, cancelled, day_of_month)
VALUES ($1, $2, $3, $4, $5, $6, false, false, $7)
RETURNING reservation_id`
	var fid2 any
	if it.Second != nil {
		fid2 = it.Second.ID
	}
	if err = tx.QueryRow(ctx, ins, username, it.Index, it.Direct(), it.First.ID, fid2, it.TotalCost(), day).Scan(&id); err != nil {
		err = classify(err)
		return 0, err
	}
	return id, nil
}

// takeSeat decrements the seat ledger entry for one leg, materializing it at
// capacity-1 on first booking. A present entry at zero aborts the booking.
func takeSeat(ctx context.Context, tx pgx.Tx, leg model.Flight) error {
	const sel = `SELECT seats FROM seat_ledger WHERE fid=$1 FOR UPDATE`
	var seats int
	scanErr := tx.QueryRow(ctx, sel, leg.ID).Scan(&seats)
	switch {
	case scanErr == nil:
		if seats == 0 {
			return errs.ErrBookingFailed
		}
		const upd = `UPDATE seat_ledger SET seats=$2 WHERE fid=$1`
		if _, err := tx.Exec(ctx, upd, leg.ID, seats-1); err != nil {
			return classify(err)
		}
	case errors.Is(scanErr, pgx.ErrNoRows):
		const ins = `INSERT INTO seat_ledger (fid, seats) VALUES ($1, $2)`
		if _, err := tx.Exec(ctx, ins, leg.ID, leg.Capacity-1); err != nil {
			return classify(err)
		}
	default:
		return classify(scanErr)
	}
	return nil
}

// Pay debits the owner's balance by the reservation cost and marks the
// reservation paid. Paying an already-paid or cancelled reservation reports
// errs.ErrReservationNotFound.
func (r *ReservationRepo) Pay(ctx context.Context, username string, reservationID int64) (newBalance int64, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = classify(e)
		}
	}()

	const sel = `
SELECT cost FROM reservations
WHERE reservation_id=$1 AND username=$2 AND NOT paid AND NOT cancelled
FOR UPDATE`
	var cost int64
	if err = tx.QueryRow(ctx, sel, reservationID, username).Scan(&cost); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrReservationNotFound
			return 0, err
		}
		err = classify(err)
		return 0, err
	}

	const selBal = `SELECT balance FROM users WHERE username=$1 FOR UPDATE`
	var balance int64
	if err = tx.QueryRow(ctx, selBal, username).Scan(&balance); err != nil {
		err = classify(err)
		return 0, err
	}
	if balance < cost {
		err = &errs.InsufficientFundsError{Balance: balance, Cost: cost}
		return 0, err
	}

	newBalance = balance - cost
	const updBal = `UPDATE users SET balance=$2 WHERE username=$1`
	if _, err = tx.Exec(ctx, updBal, username, newBalance); err != nil {
		err = classify(err)
		return 0, err
	}
	const updPaid = `UPDATE reservations SET paid=true WHERE reservation_id=$1`
	if _, err = tx.Exec(ctx, updPaid, reservationID); err != nil {
		err = classify(err)
		return 0, err
	}
	return newBalance, nil
}

// Cancel refunds the cost if the reservation was paid, releases one seat per
// leg back to the ledger and marks the row cancelled. Cancelled is terminal;
// the row and its id are kept forever.
func (r *ReservationRepo) Cancel(ctx context.Context, username string, reservationID int64) (err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return classify(err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if e := tx.Commit(ctx); e != nil {
			err = classify(e)
		}
	}()

	const sel = `
SELECT is_direct, fid1, COALESCE(fid2, 0), cost, paid FROM reservations
WHERE reservation_id=$1 AND username=$2 AND NOT cancelled
FOR UPDATE`
	var (
		direct     bool
		fid1, fid2 int64
		cost       int64
		paid       bool
	)
	if err = tx.QueryRow(ctx, sel, reservationID, username).Scan(&direct, &fid1, &fid2, &cost, &paid); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = errs.ErrReservationNotFound
			return err
		}
		err = classify(err)
		return err
	}

	if paid {
		const refund = `UPDATE users SET balance = balance + $2 WHERE username=$1`
		if _, err = tx.Exec(ctx, refund, username, cost); err != nil {
			err = classify(err)
			return err
		}
	}

	if err = releaseSeat(ctx, tx, fid1); err != nil {
		return err
	}
	if !direct {
		if err = releaseSeat(ctx, tx, fid2); err != nil {
			return err
		}
	}

	const upd = `UPDATE reservations SET cancelled=true, paid=false WHERE reservation_id=$1`
	if _, err = tx.Exec(ctx, upd, reservationID); err != nil {
		err = classify(err)
		return err
	}
	return nil
}

// releaseSeat returns one seat to the ledger. The entry always exists for a
// booked leg, since booking is what materializes it.
func releaseSeat(ctx context.Context, tx pgx.Tx, fid int64) error {
	const upd = `UPDATE seat_ledger SET seats = seats + 1 WHERE fid=$1`
	if _, err := tx.Exec(ctx, upd, fid); err != nil {
		return classify(err)
	}
	return nil
}

// ListActive returns the user's non-cancelled reservations, ascending by id.
// Listing observes committed state only, so it runs without a transaction.
func (r *ReservationRepo) ListActive(ctx context.Context, username string) ([]model.Reservation, error) {
	const q = `
SELECT reservation_id, username, itinerary, is_direct, fid1, COALESCE(fid2, 0), cost, paid, cancelled, day_of_month
FROM reservations
WHERE username=$1 AND NOT cancelled
ORDER BY reservation_id`
	rows, err := r.db.Pool.Query(ctx, q, username)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.Username, &res.Itinerary, &res.Direct,
			&res.Flight1, &res.Flight2, &res.Cost, &res.Paid, &res.Cancelled, &res.DayOfMonth); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
