package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/model"
)

// Search finds up to maxResults itineraries from origin to dest on the given
// day. Direct flights are fetched first; when directOnly is false and the
// direct results leave room, one-hop itineraries fill the remainder. The
// combined set is re-sorted by the total order before indices are assigned,
// so the fetch order never leaks into the final numbering.
//
// The result set replaces the session's itinerary cache wholesale: indices
// from any previous search are invalid afterwards. Search does not require a
// login; booking does.
func (e *Engine) Search(ctx context.Context, s *Session, origin, dest string, directOnly bool, day, maxResults int) ([]model.Itinerary, error) {
	defer e.checkLeak("search")

	found, err := e.flights.SearchDirect(ctx, origin, dest, day, maxResults)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	if !directOnly && len(found) < maxResults {
		hops, err := e.flights.SearchOneHop(ctx, origin, dest, day, maxResults-len(found))
		if err != nil {
			return nil, fmt.Errorf("search: %w", err)
		}
		found = append(found, hops...)
	}
	if len(found) == 0 {
		return nil, errs.ErrNoMatch
	}

	sort.SliceStable(found, func(i, j int) bool {
		return model.CompareItineraries(found[i], found[j]) < 0
	})
	for i := range found {
		found[i].Index = i
	}

	if err := e.itineraries.Put(ctx, s.ID(), found); err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return found, nil
}
