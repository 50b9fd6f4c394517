// Package cache holds per-session search results between search and booking.
//
// The cache is replace-on-write: every search stores its full result set under
// the session key, invalidating all previously issued indices. Indices are
// only meaningful until the session's next search.
package cache

import (
	"context"
	"sync"

	"github.com/gofrs/uuid/v5"

	"github.com/avdeyev/flightapp/internal/model"
)

// ItineraryCache maps (session, index) to a previously searched itinerary.
type ItineraryCache interface {
	// Put replaces the session's cached result set.
	Put(ctx context.Context, session uuid.UUID, itineraries []model.Itinerary) error
	// Get returns the itinerary at index, or false when the session has no
	// cached result set or the index is out of range.
	Get(ctx context.Context, session uuid.UUID, index int) (model.Itinerary, bool, error)
	// Clear drops the session's cached result set.
	Clear(ctx context.Context, session uuid.UUID) error
}

// Memory is an in-process ItineraryCache for single-instance deployments.
type Memory struct {
	mu   sync.RWMutex
	sets map[uuid.UUID][]model.Itinerary
}

// NewMemory constructs an empty in-memory cache.
func NewMemory() *Memory {
	return &Memory{sets: make(map[uuid.UUID][]model.Itinerary)}
}

// Put replaces the session's result set wholesale.
func (m *Memory) Put(_ context.Context, session uuid.UUID, itineraries []model.Itinerary) error {
	cpy := make([]model.Itinerary, len(itineraries))
	copy(cpy, itineraries)
	m.mu.Lock()
	m.sets[session] = cpy
	m.mu.Unlock()
	return nil
}

// Get returns the itinerary the session's last search assigned to index.
func (m *Memory) Get(_ context.Context, session uuid.UUID, index int) (model.Itinerary, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[session]
	if !ok || index < 0 || index >= len(set) {
		return model.Itinerary{}, false, nil
	}
	return set[index], true, nil
}

// Clear drops the session's result set.
func (m *Memory) Clear(_ context.Context, session uuid.UUID) error {
	m.mu.Lock()
	delete(m.sets, session)
	m.mu.Unlock()
	return nil
}

var _ ItineraryCache = (*Memory)(nil)
