// Package service implements the reservation transaction engine: account
// management, itinerary search, and the booking/payment/cancellation
// lifecycle against the shared relational store.
package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avdeyev/flightapp/internal/cache"
	"github.com/avdeyev/flightapp/internal/events"
	"github.com/avdeyev/flightapp/internal/repository"
)

// Publisher emits reservation lifecycle events. Implemented by
// events.Producer; nil disables publishing.
type Publisher interface {
	Publish(ctx context.Context, ev events.ReservationEvent) error
}

// TxCounter reports how many transactions the storage boundary currently has
// open. Implemented by postgres.DB; nil disables the leak guard.
type TxCounter interface {
	OpenTxCount() int64
}

const defaultBookAttempts = 5

// Engine orchestrates all public operations. Mutating operations run as
// serializable transactions owned by the repositories; the engine adds
// precondition checks, conflict retry, session cache handling and the
// transaction-leak guard.
type Engine struct {
	users        repository.UserRepository
	flights      repository.FlightRepository
	reservations repository.ReservationRepository
	itineraries  cache.ItineraryCache

	publisher    Publisher
	txs          TxCounter
	log          *zap.Logger
	bookAttempts uint64
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithPublisher attaches a reservation event publisher.
func WithPublisher(p Publisher) Option {
	return func(e *Engine) { e.publisher = p }
}

// WithTxCounter enables the transaction-leak guard against the given counter.
func WithTxCounter(c TxCounter) Option {
	return func(e *Engine) { e.txs = c }
}

// WithBookAttempts caps how many times a booking is attempted when the
// transactional body keeps losing serialization conflicts.
func WithBookAttempts(n uint64) Option {
	return func(e *Engine) {
		if n > 0 {
			e.bookAttempts = n
		}
	}
}

// NewEngine constructs the engine with required dependencies.
func NewEngine(
	users repository.UserRepository,
	flights repository.FlightRepository,
	reservations repository.ReservationRepository,
	itineraries cache.ItineraryCache,
	log *zap.Logger,
	opts ...Option,
) *Engine {
	e := &Engine{
		users:        users,
		flights:      flights,
		reservations: reservations,
		itineraries:  itineraries,
		log:          log,
		bookAttempts: defaultBookAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// checkLeak verifies that no transaction is left open after a public
// operation. A non-zero count is a programming invariant violation, not a
// user-facing error: a code path opened a unit of work without settling it,
// and every later operation would observe broken isolation. Deferred by every
// public operation.
func (e *Engine) checkLeak(op string) {
	if e.txs == nil {
		return
	}
	if n := e.txs.OpenTxCount(); n != 0 {
		panic(fmt.Sprintf("transaction leak after %s: %d still open", op, n))
	}
}

// publish emits a reservation event, best-effort.
func (e *Engine) publish(ctx context.Context, ev events.ReservationEvent) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(ctx, ev); err != nil {
		e.log.Warn("publish reservation event",
			zap.String("type", ev.Type),
			zap.Int64("reservation_id", ev.ReservationID),
			zap.Error(err),
		)
	}
}
