// Package events publishes reservation lifecycle events to Kafka.
//
// Publishing is best-effort: the engine treats a failed publish as a warning,
// never as an operation failure.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

// Event types emitted over the reservation topic.
const (
	TypeBooked    = "reservation_booked"
	TypePaid      = "reservation_paid"
	TypeCancelled = "reservation_cancelled"
)

// ReservationEvent is the wire payload for a reservation lifecycle change.
type ReservationEvent struct {
	Type          string `json:"type"`
	ReservationID int64  `json:"reservation_id"`
	Username      string `json:"username"`
	Cost          int64  `json:"cost,omitempty"`
	DayOfMonth    int    `json:"day_of_month,omitempty"`
}

// Producer writes reservation events to a single topic, keyed by username so
// one user's events stay ordered.
type Producer struct {
	writer *kafka.Writer
}

// NewProducer constructs a producer for the given brokers and topic.
func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

// Publish sends one event.
func (p *Producer) Publish(ctx context.Context, ev ReservationEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.Username),
		Value: data,
		Time:  time.Now(),
	})
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error { return p.writer.Close() }
