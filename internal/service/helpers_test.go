package service

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/events"
	"github.com/avdeyev/flightapp/internal/model"
	"github.com/avdeyev/flightapp/internal/repository"
)

type fakeUsers struct {
	byName map[string]*model.User

	createErr error
	getErr    error

	// conflictOnce makes the first Create lose a simulated registration race:
	// it inserts the row (the concurrent winner) and reports a conflict.
	conflictOnce bool

	createCalls int
	getCalls    int
}

var _ repository.UserRepository = (*fakeUsers)(nil)

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	if f.byName == nil {
		f.byName = map[string]*model.User{}
	}
	if _, exists := f.byName[u.Username]; exists {
		return errs.ErrAlreadyExists
	}
	cpy := *u
	f.byName[u.Username] = &cpy
	if f.conflictOnce {
		f.conflictOnce = false
		return errs.ErrAlreadyExists
	}
	return nil
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*model.User, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	u, ok := f.byName[username]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *u
	return &c, nil
}

type fakeFlights struct {
	byID   map[int64]*model.Flight
	seats  map[int64]int
	direct []model.Itinerary
	oneHop []model.Itinerary

	directErr error
	hopErr    error
	getErr    error

	hopCalls int
}

var _ repository.FlightRepository = (*fakeFlights)(nil)

func (f *fakeFlights) GetByID(_ context.Context, id int64) (*model.Flight, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	fl, ok := f.byID[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	c := *fl
	return &c, nil
}

func (f *fakeFlights) SearchDirect(_ context.Context, _, _ string, _, limit int) ([]model.Itinerary, error) {
	if f.directErr != nil {
		return nil, f.directErr
	}
	if limit > len(f.direct) {
		limit = len(f.direct)
	}
	return append([]model.Itinerary(nil), f.direct[:limit]...), nil
}

func (f *fakeFlights) SearchOneHop(_ context.Context, _, _ string, _, limit int) ([]model.Itinerary, error) {
	f.hopCalls++
	if f.hopErr != nil {
		return nil, f.hopErr
	}
	if limit > len(f.oneHop) {
		limit = len(f.oneHop)
	}
	return append([]model.Itinerary(nil), f.oneHop[:limit]...), nil
}

func (f *fakeFlights) SeatsRemaining(_ context.Context, id int64) (int, error) {
	if s, ok := f.seats[id]; ok {
		return s, nil
	}
	if fl, ok := f.byID[id]; ok {
		return fl.Capacity, nil
	}
	return 0, errs.ErrNotFound
}

type fakeReservations struct {
	bookID    int64
	bookErrs  []error // consumed one per call before bookID succeeds
	bookCalls int

	payBalance int64
	payErr     error

	cancelErr error

	list    []model.Reservation
	listErr error
}

var _ repository.ReservationRepository = (*fakeReservations)(nil)

func (f *fakeReservations) Book(_ context.Context, _ string, _ model.Itinerary) (int64, error) {
	f.bookCalls++
	if len(f.bookErrs) > 0 {
		err := f.bookErrs[0]
		f.bookErrs = f.bookErrs[1:]
		if err != nil {
			return 0, err
		}
	}
	return f.bookID, nil
}

func (f *fakeReservations) Pay(_ context.Context, _ string, _ int64) (int64, error) {
	if f.payErr != nil {
		return 0, f.payErr
	}
	return f.payBalance, nil
}

func (f *fakeReservations) Cancel(_ context.Context, _ string, _ int64) error {
	return f.cancelErr
}

func (f *fakeReservations) ListActive(_ context.Context, _ string) ([]model.Reservation, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list, nil
}

type fakePublisher struct {
	events []events.ReservationEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, ev events.ReservationEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

type fakeTxCounter struct{ open int64 }

func (f *fakeTxCounter) OpenTxCount() int64 { return f.open }

func newSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession()
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	return s
}

func loggedIn(t *testing.T, username string) *Session {
	t.Helper()
	s := newSession(t)
	s.bind(username)
	return s
}

func testLogger() *zap.Logger { return zap.NewNop() }
