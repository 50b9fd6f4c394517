package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/avdeyev/flightapp/internal/cache"
	"github.com/avdeyev/flightapp/internal/errs"
	"github.com/avdeyev/flightapp/internal/events"
	"github.com/avdeyev/flightapp/internal/model"
)

// seedItineraries puts the given itineraries into a fresh cache under the
// session, the way a preceding search would.
func seedItineraries(t *testing.T, s *Session, its ...model.Itinerary) cache.ItineraryCache {
	t.Helper()
	for i := range its {
		its[i].Index = i
	}
	c := cache.NewMemory()
	require.NoError(t, c.Put(context.Background(), s.ID(), its))
	return c
}

func TestEngine_Book_NotLoggedIn(t *testing.T) {
	e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, cache.NewMemory(), testLogger())

	_, err := e.Book(context.Background(), newSession(t), 0)
	require.ErrorIs(t, err, errs.ErrNotLoggedIn)
}

func TestEngine_Book_NoSuchItinerary(t *testing.T) {
	s := loggedIn(t, "alice")
	itineraries := seedItineraries(t, s, directItinerary(1, 60))
	e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, itineraries, testLogger())

	_, err := e.Book(context.Background(), s, 7)
	require.ErrorIs(t, err, errs.ErrNoSuchItinerary)
}

func TestEngine_Book_SoldOutLegFailsBeforeTransaction(t *testing.T) {
	s := loggedIn(t, "alice")
	it := oneHopItinerary(1, 2, 60, 60)
	itineraries := seedItineraries(t, s, it)
	flights := &fakeFlights{
		byID: map[int64]*model.Flight{
			1: {ID: 1, Capacity: 10},
			2: {ID: 2, Capacity: 10},
		},
		seats: map[int64]int{2: 0},
	}
	reservations := &fakeReservations{bookID: 1}
	e := NewEngine(&fakeUsers{}, flights, reservations, itineraries, testLogger())

	_, err := e.Book(context.Background(), s, 0)
	require.ErrorIs(t, err, errs.ErrBookingFailed)
	require.Zero(t, reservations.bookCalls)
}

func TestEngine_Book_PublishesEvent(t *testing.T) {
	s := loggedIn(t, "alice")
	it := directItinerary(1, 60)
	itineraries := seedItineraries(t, s, it)
	flights := &fakeFlights{byID: map[int64]*model.Flight{1: {ID: 1, Capacity: 10}}}
	pub := &fakePublisher{}
	e := NewEngine(&fakeUsers{}, flights, &fakeReservations{bookID: 42}, itineraries, testLogger(),
		WithPublisher(pub))

	id, err := e.Book(context.Background(), s, 0)
	require.NoError(t, err)
	require.Equal(t, int64(42), id)

	require.Len(t, pub.events, 1)
	require.Equal(t, events.ReservationEvent{
		Type:          events.TypeBooked,
		ReservationID: 42,
		Username:      "alice",
		Cost:          it.TotalCost(),
		DayOfMonth:    it.First.DayOfMonth,
	}, pub.events[0])
}

func TestEngine_Book_RetriesSerializationConflicts(t *testing.T) {
	s := loggedIn(t, "alice")
	itineraries := seedItineraries(t, s, directItinerary(1, 60))
	flights := &fakeFlights{byID: map[int64]*model.Flight{1: {ID: 1, Capacity: 10}}}
	conflict := fmt.Errorf("%w: restart transaction", errs.ErrTxConflict)
	reservations := &fakeReservations{bookID: 9, bookErrs: []error{conflict, conflict}}
	e := NewEngine(&fakeUsers{}, flights, reservations, itineraries, testLogger())

	id, err := e.Book(context.Background(), s, 0)
	require.NoError(t, err)
	require.Equal(t, int64(9), id)
	require.Equal(t, 3, reservations.bookCalls)
}

func TestEngine_Book_GivesUpAfterMaxAttempts(t *testing.T) {
	s := loggedIn(t, "alice")
	itineraries := seedItineraries(t, s, directItinerary(1, 60))
	flights := &fakeFlights{byID: map[int64]*model.Flight{1: {ID: 1, Capacity: 10}}}
	conflict := fmt.Errorf("%w: restart transaction", errs.ErrTxConflict)
	reservations := &fakeReservations{bookErrs: []error{conflict, conflict, conflict}}
	e := NewEngine(&fakeUsers{}, flights, reservations, itineraries, testLogger(),
		WithBookAttempts(2))

	_, err := e.Book(context.Background(), s, 0)
	require.ErrorIs(t, err, errs.ErrBookingFailed)
	require.ErrorIs(t, err, errs.ErrTxConflict)
	require.Equal(t, 2, reservations.bookCalls)
}

func TestEngine_Book_StorageFailureReportsBookingFailed(t *testing.T) {
	s := loggedIn(t, "alice")
	itineraries := seedItineraries(t, s, directItinerary(1, 60))
	flights := &fakeFlights{byID: map[int64]*model.Flight{1: {ID: 1, Capacity: 10}}}
	reservations := &fakeReservations{bookErrs: []error{errors.New("connection reset")}}
	e := NewEngine(&fakeUsers{}, flights, reservations, itineraries, testLogger())

	_, err := e.Book(context.Background(), s, 0)
	require.ErrorIs(t, err, errs.ErrBookingFailed)
	require.Equal(t, 1, reservations.bookCalls)
}

func TestEngine_Book_SameDayConflictNotRetried(t *testing.T) {
	s := loggedIn(t, "alice")
	itineraries := seedItineraries(t, s, directItinerary(1, 60))
	flights := &fakeFlights{byID: map[int64]*model.Flight{1: {ID: 1, Capacity: 10}}}
	reservations := &fakeReservations{bookErrs: []error{errs.ErrSameDayConflict}}
	e := NewEngine(&fakeUsers{}, flights, reservations, itineraries, testLogger())

	_, err := e.Book(context.Background(), s, 0)
	require.ErrorIs(t, err, errs.ErrSameDayConflict)
	require.Equal(t, 1, reservations.bookCalls)
}

func TestEngine_Pay(t *testing.T) {
	t.Run("success publishes event", func(t *testing.T) {
		s := loggedIn(t, "alice")
		pub := &fakePublisher{}
		e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{payBalance: 250}, cache.NewMemory(),
			testLogger(), WithPublisher(pub))

		balance, err := e.Pay(context.Background(), s, 5)
		require.NoError(t, err)
		require.Equal(t, int64(250), balance)
		require.Len(t, pub.events, 1)
		require.Equal(t, events.TypePaid, pub.events[0].Type)
		require.Equal(t, int64(5), pub.events[0].ReservationID)
	})

	t.Run("not logged in", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, cache.NewMemory(), testLogger())
		_, err := e.Pay(context.Background(), newSession(t), 5)
		require.ErrorIs(t, err, errs.ErrNotLoggedIn)
	})

	t.Run("unknown reservation passes through", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{},
			&fakeReservations{payErr: errs.ErrReservationNotFound}, cache.NewMemory(), testLogger())
		_, err := e.Pay(context.Background(), loggedIn(t, "alice"), 5)
		require.ErrorIs(t, err, errs.ErrReservationNotFound)
		require.NotErrorIs(t, err, errs.ErrPaymentFailed)
	})

	t.Run("insufficient funds passes through", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{},
			&fakeReservations{payErr: &errs.InsufficientFundsError{Balance: 10, Cost: 300}},
			cache.NewMemory(), testLogger())
		_, err := e.Pay(context.Background(), loggedIn(t, "alice"), 5)

		var insufficient *errs.InsufficientFundsError
		require.ErrorAs(t, err, &insufficient)
		require.Equal(t, int64(10), insufficient.Balance)
		require.Equal(t, int64(300), insufficient.Cost)
	})

	t.Run("storage failure wrapped", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{},
			&fakeReservations{payErr: errors.New("connection reset")}, cache.NewMemory(), testLogger())
		_, err := e.Pay(context.Background(), loggedIn(t, "alice"), 5)
		require.ErrorIs(t, err, errs.ErrPaymentFailed)
	})
}

func TestEngine_Cancel(t *testing.T) {
	t.Run("success publishes event", func(t *testing.T) {
		pub := &fakePublisher{}
		e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, cache.NewMemory(),
			testLogger(), WithPublisher(pub))

		require.NoError(t, e.Cancel(context.Background(), loggedIn(t, "alice"), 5))
		require.Len(t, pub.events, 1)
		require.Equal(t, events.TypeCancelled, pub.events[0].Type)
	})

	t.Run("not logged in", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, cache.NewMemory(), testLogger())
		require.ErrorIs(t, e.Cancel(context.Background(), newSession(t), 5), errs.ErrNotLoggedIn)
	})

	t.Run("repository error maps to cancel failure", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, &fakeFlights{},
			&fakeReservations{cancelErr: errs.ErrReservationNotFound}, cache.NewMemory(), testLogger())
		err := e.Cancel(context.Background(), loggedIn(t, "alice"), 5)
		require.ErrorIs(t, err, errs.ErrCancelFailed)
	})
}

func TestEngine_ListReservations(t *testing.T) {
	flights := &fakeFlights{byID: map[int64]*model.Flight{
		10: {ID: 10, CarrierID: "AA", FlightNum: "100", Capacity: 5},
		11: {ID: 11, CarrierID: "UA", FlightNum: "200", Capacity: 5},
	}}

	t.Run("resolves each leg", func(t *testing.T) {
		reservations := &fakeReservations{list: []model.Reservation{
			{ID: 1, Username: "alice", Direct: true, Flight1: 10, Cost: 100, Paid: true},
			{ID: 2, Username: "alice", Flight1: 10, Flight2: 11, Cost: 200},
		}}
		e := NewEngine(&fakeUsers{}, flights, reservations, cache.NewMemory(), testLogger())

		got, err := e.ListReservations(context.Background(), loggedIn(t, "alice"))
		require.NoError(t, err)
		require.Len(t, got, 2)
		require.Len(t, got[0].Legs, 1)
		require.Equal(t, int64(10), got[0].Legs[0].ID)
		require.Len(t, got[1].Legs, 2)
		require.Equal(t, int64(11), got[1].Legs[1].ID)
	})

	t.Run("empty set", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, flights, &fakeReservations{}, cache.NewMemory(), testLogger())
		_, err := e.ListReservations(context.Background(), loggedIn(t, "alice"))
		require.ErrorIs(t, err, errs.ErrNoReservations)
	})

	t.Run("not logged in", func(t *testing.T) {
		e := NewEngine(&fakeUsers{}, flights, &fakeReservations{}, cache.NewMemory(), testLogger())
		_, err := e.ListReservations(context.Background(), newSession(t))
		require.ErrorIs(t, err, errs.ErrNotLoggedIn)
	})
}

func TestEngine_LeakGuardPanics(t *testing.T) {
	e := NewEngine(&fakeUsers{}, &fakeFlights{}, &fakeReservations{}, cache.NewMemory(), testLogger(),
		WithTxCounter(&fakeTxCounter{open: 1}))

	require.Panics(t, func() {
		_, _ = e.ListReservations(context.Background(), loggedIn(t, "alice"))
	})
}
