package repository

import (
	"context"

	"github.com/avdeyev/flightapp/internal/model"
)

// FlightRepository provides read access to the flights table and the
// seat ledger derived from it.
type FlightRepository interface {
	// GetByID loads a flight by id.
	GetByID(ctx context.Context, id int64) (*model.Flight, error)
	// SearchDirect returns direct flights for the route and day, ordered by
	// duration then id, capped at limit.
	SearchDirect(ctx context.Context, origin, dest string, day, limit int) ([]model.Itinerary, error)
	// SearchOneHop returns two-leg itineraries (first leg's destination equals
	// the second leg's origin, same day, distinct flights), ordered by combined
	// duration then leg ids, capped at limit.
	SearchOneHop(ctx context.Context, origin, dest string, day, limit int) ([]model.Itinerary, error)
	// SeatsRemaining reports the flight's remaining seats: the seat ledger
	// entry when present, otherwise full capacity.
	SeatsRemaining(ctx context.Context, id int64) (int, error)
}
