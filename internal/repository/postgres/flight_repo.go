package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/model"
)

// FlightRepo implements FlightRepository using PostgreSQL. Flights are
// read-only here; only the seat ledger derived from them ever changes.
type FlightRepo struct{ db *DB }

// NewFlightRepo constructs a flight repository.
func NewFlightRepo(db *DB) *FlightRepo { return &FlightRepo{db: db} }

// GetByID selects a flight by id.
func (r *FlightRepo) GetByID(ctx context.Context, id int64) (*model.Flight, error) {
	const q = `
SELECT fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price
FROM flights WHERE fid=$1`
	row := r.db.Pool.QueryRow(ctx, q, id)
	var f model.Flight
	if err := scanFlight(row, &f); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}
		return nil, err
	}
	return &f, nil
}

// SearchDirect returns up to limit direct itineraries for the route and day,
// ordered by duration then flight id.
func (r *FlightRepo) SearchDirect(ctx context.Context, origin, dest string, day, limit int) ([]model.Itinerary, error) {
	const q = `
SELECT fid, day_of_month, carrier_id, flight_num, origin_city, dest_city, actual_time, capacity, price
FROM flights
WHERE origin_city=$1 AND dest_city=$2 AND day_of_month=$3 AND canceled=0
ORDER BY actual_time ASC, fid ASC
LIMIT $4`
	rows, err := r.db.Pool.Query(ctx, q, origin, dest, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Itinerary
	for rows.Next() {
		var f model.Flight
		if err := scanFlight(rows, &f); err != nil {
			return nil, err
		}
		out = append(out, model.Itinerary{First: f})
	}
	return out, rows.Err()
}

// SearchOneHop returns up to limit two-leg itineraries: the first leg's
// destination is the second leg's origin, both on the requested day.
func (r *FlightRepo) SearchOneHop(ctx context.Context, origin, dest string, day, limit int) ([]model.Itinerary, error) {
	const q = `
SELECT f1.fid, f1.day_of_month, f1.carrier_id, f1.flight_num, f1.origin_city, f1.dest_city, f1.actual_time, f1.capacity, f1.price,
       f2.fid, f2.day_of_month, f2.carrier_id, f2.flight_num, f2.origin_city, f2.dest_city, f2.actual_time, f2.capacity, f2.price
FROM flights f1
JOIN flights f2 ON f2.origin_city = f1.dest_city AND f2.day_of_month = f1.day_of_month
WHERE f1.origin_city=$1 AND f2.dest_city=$2 AND f1.day_of_month=$3
  AND f1.canceled=0 AND f2.canceled=0 AND f1.fid <> f2.fid
ORDER BY f1.actual_time + f2.actual_time ASC, f1.fid ASC, f2.fid ASC
LIMIT $4`
	rows, err := r.db.Pool.Query(ctx, q, origin, dest, day, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Itinerary
	for rows.Next() {
		var first, second model.Flight
		if err := rows.Scan(
			&first.ID, &first.DayOfMonth, &first.CarrierID, &first.FlightNum,
			&first.OriginCity, &first.DestCity, &first.Duration, &first.Capacity, &first.Price,
			&second.ID, &second.DayOfMonth, &second.CarrierID, &second.FlightNum,
			&second.OriginCity, &second.DestCity, &second.Duration, &second.Capacity, &second.Price,
		); err != nil {
			return nil, err
		}
		s := second
		out = append(out, model.Itinerary{First: first, Second: &s})
	}
	return out, rows.Err()
}

// SeatsRemaining reports the flight's live seat count: the ledger entry when
// one exists, otherwise the flight's full capacity.
func (r *FlightRepo) SeatsRemaining(ctx context.Context, id int64) (int, error) {
	const q = `
SELECT COALESCE(s.seats, f.capacity)
FROM flights f LEFT JOIN seat_ledger s ON s.fid = f.fid
WHERE f.fid=$1`
	var seats int
	if err := r.db.Pool.QueryRow(ctx, q, id).Scan(&seats); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errs.ErrNotFound
		}
		return 0, err
	}
	return seats, nil
}

func scanFlight(row pgx.Row, f *model.Flight) error {
	return row.Scan(&f.ID, &f.DayOfMonth, &f.CarrierID, &f.FlightNum,
		&f.OriginCity, &f.DestCity, &f.Duration, &f.Capacity, &f.Price)
}
